package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	assert.Equal(t, []string{"billing", "Billing", "email"},
		DedupeAndTrim([]string{" billing ", "Billing", "", "billing", "email  "}))
	assert.Nil(t, DedupeAndTrim(nil))
}

func TestDedupeAndTrimLower(t *testing.T) {
	assert.Equal(t, []string{"billing", "email"},
		DedupeAndTrimLower([]string{" billing ", "Billing", "  ", "EMAIL"}))
}
