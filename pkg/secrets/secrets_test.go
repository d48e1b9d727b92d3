package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "consentd/pkg/domain-errors"
)

func TestNewKey_RoundTrip(t *testing.T) {
	key, err := NewKey("billing")
	require.NoError(t, err)
	assert.Len(t, key.Secret, 43)
	assert.Equal(t, "billing."+key.Secret, key.Token)

	name, secret, ok := ParseToken(key.Token)
	require.True(t, ok)
	assert.Equal(t, "billing", name)

	hash, err := Hash(secret)
	require.NoError(t, err)
	assert.NotContains(t, hash, secret)
	assert.NoError(t, Verify(secret, hash))

	err = Verify(secret+"x", hash)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestNewKey_RejectsBadName(t *testing.T) {
	for _, name := range []string{"", "a.b"} {
		_, err := NewKey(name)
		assert.True(t, dErrors.IsInvalidArgument(err), name)
	}
}

func TestParseToken(t *testing.T) {
	for _, token := range []string{"", "noseparator", ".secret", "name."} {
		_, _, ok := ParseToken(token)
		assert.False(t, ok, token)
	}
	name, secret, ok := ParseToken("crm.a.b")
	require.True(t, ok)
	assert.Equal(t, "crm", name)
	assert.Equal(t, "a.b", secret)
}

func TestHash_RejectsBadInput(t *testing.T) {
	_, err := Hash("")
	assert.True(t, dErrors.IsInvalidArgument(err))

	_, err = Hash(strings.Repeat("k", 100))
	assert.True(t, dErrors.IsInvalidArgument(err))
}

func TestVerify_MalformedHash(t *testing.T) {
	err := Verify("secret", "not-a-bcrypt-hash")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}
