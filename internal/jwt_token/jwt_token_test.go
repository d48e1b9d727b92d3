package jwttoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "consentd/pkg/domain-errors"
)

var issuedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newService(now time.Time) *Service {
	return NewService("test-signing-key", "consentd-test", 15*time.Minute, WithClock(func() time.Time { return now }))
}

func TestIssueAndValidate(t *testing.T) {
	svc := newService(issuedAt)
	token, err := svc.Issue("u1", []Role{RoleSubject})
	require.NoError(t, err)

	p, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", p.Subject)
	assert.True(t, p.HasRole(RoleSubject))
	assert.False(t, p.HasRole(RoleDPO))
	assert.True(t, p.CanActOn("u1"))
	assert.False(t, p.CanActOn("u2"))
}

func TestIssue_RejectsBadInput(t *testing.T) {
	svc := newService(issuedAt)
	_, err := svc.Issue("", []Role{RoleDPO})
	assert.True(t, dErrors.IsInvalidArgument(err))
	_, err = svc.Issue("u1", nil)
	assert.True(t, dErrors.IsInvalidArgument(err))
	_, err = svc.Issue("u1", []Role{"root"})
	assert.True(t, dErrors.IsInvalidArgument(err))
}

func TestValidate_Expired(t *testing.T) {
	token, err := newService(issuedAt).Issue("u1", []Role{RoleSubject})
	require.NoError(t, err)

	_, err = newService(issuedAt.Add(time.Hour)).Validate(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.ErrorContains(t, err, "token expired")
}

func TestValidate_WrongKeyOrIssuer(t *testing.T) {
	token, err := newService(issuedAt).Issue("u1", []Role{RoleDPO})
	require.NoError(t, err)

	other := NewService("another-key", "consentd-test", time.Minute, WithClock(func() time.Time { return issuedAt }))
	_, err = other.Validate(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	wrongIssuer := NewService("test-signing-key", "elsewhere", time.Minute, WithClock(func() time.Time { return issuedAt }))
	_, err = wrongIssuer.Validate(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidate_RejectsUnsignedAlgorithms(t *testing.T) {
	claims := Claims{Roles: []Role{RoleDPO}, RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newService(issuedAt).Validate(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestPrincipal_DPOActsOnAnySubject(t *testing.T) {
	p := Principal{Subject: "officer", Roles: []Role{RoleDPO}}
	assert.True(t, p.CanActOn("u1"))
	assert.True(t, p.CanActOn("u2"))
}
