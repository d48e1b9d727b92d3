// Package jwttoken issues and validates the HS256 bearer tokens that
// authenticate callers of the HTTP API.
package jwttoken

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "consentd/pkg/domain-errors"
)

// Role is a coarse permission carried in the token.
type Role string

const (
	// RoleSubject may act only on its own subject id.
	RoleSubject Role = "subject"
	// RoleDPO may act on any subject and on governance records.
	RoleDPO Role = "dpo"
)

func (r Role) IsValid() bool {
	return r == RoleSubject || r == RoleDPO || r == RoleService
}

// Claims is the token payload. The registered subject claim carries the
// data subject id.
type Claims struct {
	Roles []Role `json:"roles"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller.
type Principal struct {
	Subject string
	Roles   []Role
}

func (p Principal) HasRole(r Role) bool {
	return slices.Contains(p.Roles, r)
}

// CanActOn reports whether the caller may act on the given subject.
func (p Principal) CanActOn(subjectID string) bool {
	return p.HasRole(RoleDPO) || (p.HasRole(RoleSubject) && p.Subject == subjectID)
}

type Service struct {
	signingKey []byte
	issuer     string
	tokenTTL   time.Duration
	now        func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(signingKey, issuer string, tokenTTL time.Duration, opts ...Option) *Service {
	s := &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		tokenTTL:   tokenTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue signs a token for the subject with the given roles.
func (s *Service) Issue(subject string, roles []Role) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", dErrors.New(dErrors.CodeInvalidArgument, "subject is required")
	}
	if len(roles) == 0 {
		return "", dErrors.New(dErrors.CodeInvalidArgument, "at least one role is required")
	}
	for _, r := range roles {
		if !r.IsValid() {
			return "", dErrors.New(dErrors.CodeInvalidArgument, "unknown role: "+string(r))
		}
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			ID:        hex.EncodeToString(b),
		},
	})
	return token.SignedString(s.signingKey)
}

// Validate checks signature, expiry and issuer and returns the caller.
func (s *Service) Validate(tokenString string) (*Principal, error) {
	if tokenString == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "empty token")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := new(Claims)
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.signingKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "token expired")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return &Principal{Subject: claims.Subject, Roles: claims.Roles}, nil
}
