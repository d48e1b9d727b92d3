package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "consentd/pkg/domain-errors"
)

type approveRequest struct {
	Approver string `json:"approver" validate:"required,notblank,max=100"`
	Level    string `json:"risk_level" validate:"omitempty,oneof=low medium high"`
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(approveRequest{Approver: "dpo", Level: "low"}))

	err := Validate(approveRequest{})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	assert.EqualError(t, err, "approver is required")

	err = Validate(approveRequest{Approver: "   "})
	assert.EqualError(t, err, "approver must not be blank")

	err = Validate(approveRequest{Approver: "dpo", Level: "extreme"})
	assert.EqualError(t, err, "risk_level must be one of [low medium high]")
}

func TestValidateSubjectID(t *testing.T) {
	assert.NoError(t, ValidateSubjectID("u1"))
	assert.Error(t, ValidateSubjectID(" "))
	assert.Error(t, ValidateSubjectID(strings.Repeat("x", MaxSubjectIDLen+1)))
}

func TestCheckList(t *testing.T) {
	assert.NoError(t, CheckList("purposes", []string{"billing"}, MaxPurposes))
	assert.Error(t, CheckList("purposes", make([]string, MaxPurposes+1), MaxPurposes))
	assert.Error(t, CheckList("purposes", []string{strings.Repeat("p", MaxListItemChars+1)}, MaxPurposes))
}
