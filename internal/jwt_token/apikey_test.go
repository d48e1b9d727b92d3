package jwttoken

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "consentd/pkg/domain-errors"
	"consentd/pkg/secrets"
)

func TestAPIKeyStore(t *testing.T) {
	key, err := secrets.NewKey("billing")
	require.NoError(t, err)
	hash, err := secrets.Hash(key.Secret)
	require.NoError(t, err)
	store := NewAPIKeyStore(map[string]string{"billing": hash})

	p, err := store.ValidateAPIKey(key.Token)
	require.NoError(t, err)
	assert.Equal(t, "service:billing", p.Subject)
	assert.True(t, p.HasRole(RoleService))
	assert.False(t, p.CanActOn("u1"))

	for _, bad := range []string{"", key.Secret, "billing.wrong", "crm." + key.Secret} {
		_, err = store.ValidateAPIKey(bad)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized), bad)
	}
}

func TestAPIKeyStore_BrokenHash(t *testing.T) {
	store := NewAPIKeyStore(map[string]string{"broken": "plaintext"})
	_, err := store.ValidateAPIKey("broken.anything")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}
