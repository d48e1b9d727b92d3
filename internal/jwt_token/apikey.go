package jwttoken

import (
	"errors"

	dErrors "consentd/pkg/domain-errors"
	"consentd/pkg/secrets"
)

// RoleService is held by machine clients authenticated with an API key. It
// may only append processing records.
const RoleService Role = "service"

// APIKeyStore validates "<name>.<secret>" keys against configured bcrypt
// hashes of the secret, keyed by client name.
type APIKeyStore struct {
	hashes map[string]string
}

func NewAPIKeyStore(hashes map[string]string) *APIKeyStore {
	return &APIKeyStore{hashes: hashes}
}

func (s *APIKeyStore) Len() int {
	return len(s.hashes)
}

// ValidateAPIKey returns a service principal named after the client.
func (s *APIKeyStore) ValidateAPIKey(key string) (*Principal, error) {
	name, secret, ok := secrets.ParseToken(key)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "malformed api key")
	}
	hash, ok := s.hashes[name]
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid api key")
	}
	if err := secrets.Verify(secret, hash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid api key")
		}
		return nil, errors.Join(dErrors.New(dErrors.CodeInternal, "api key store misconfigured"), err)
	}
	return &Principal{Subject: "service:" + name, Roles: []Role{RoleService}}, nil
}
