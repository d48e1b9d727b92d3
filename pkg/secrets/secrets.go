// Package secrets issues and checks the API keys machine clients present
// instead of bearer tokens. A key reads "<name>.<secret>"; the server is
// configured with the name and a bcrypt hash of the secret only.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	dErrors "consentd/pkg/domain-errors"
)

const (
	secretBytes = 32
	separator   = "."
)

// Key is a freshly issued API key. Token is what the client sends.
type Key struct {
	Name   string
	Secret string
	Token  string
}

// NewKey draws a random secret for the named client.
func NewKey(name string) (Key, error) {
	if name == "" || strings.Contains(name, separator) {
		return Key{}, dErrors.New(dErrors.CodeInvalidArgument, "key name must be non-empty and contain no '.'")
	}
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return Key{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not generate secret")
	}
	secret := base64.RawURLEncoding.EncodeToString(buf)
	return Key{Name: name, Secret: secret, Token: name + separator + secret}, nil
}

// ParseToken splits a presented key into client name and secret.
func ParseToken(token string) (name, secret string, ok bool) {
	name, secret, ok = strings.Cut(token, separator)
	if !ok || name == "" || secret == "" {
		return "", "", false
	}
	return name, secret, true
}

func Hash(secret string) (string, error) {
	if secret == "" {
		return "", dErrors.New(dErrors.CodeInvalidArgument, "secret cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	switch {
	case errors.Is(err, bcrypt.ErrPasswordTooLong):
		return "", dErrors.New(dErrors.CodeInvalidArgument, "secret is too long")
	case err != nil:
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not hash secret")
	}
	return string(hashed), nil
}

// Verify returns an unauthorized error on mismatch and an internal error
// when the stored hash itself is unusable.
func Verify(secret, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return dErrors.New(dErrors.CodeUnauthorized, "invalid secret")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "stored hash is unusable")
	}
}
