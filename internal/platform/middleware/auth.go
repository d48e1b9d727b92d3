package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	jwttoken "consentd/internal/jwt_token"
	"consentd/internal/platform/metrics"
	dErrors "consentd/pkg/domain-errors"
	"consentd/pkg/platform/httputil"
)

// TokenValidator turns a bearer token into the calling principal.
type TokenValidator interface {
	Validate(token string) (*jwttoken.Principal, error)
}

// APIKeyValidator authenticates machine clients sending X-API-Key.
type APIKeyValidator interface {
	ValidateAPIKey(key string) (*jwttoken.Principal, error)
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *jwttoken.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the authenticated caller, or nil outside RequireAuth.
func PrincipalFrom(ctx context.Context) *jwttoken.Principal {
	p, _ := ctx.Value(principalKey{}).(*jwttoken.Principal)
	return p
}

// RequireAuth rejects requests without a valid bearer token or, when keys is
// non-nil, a valid X-API-Key. m may be nil.
func RequireAuth(validator TokenValidator, keys APIKeyValidator, m *metrics.Metrics, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if apiKey := r.Header.Get("X-API-Key"); apiKey != "" && keys != nil {
				principal, err := keys.ValidateAPIKey(apiKey)
				if err != nil {
					logger.WarnContext(ctx, "unauthorized access - invalid api key",
						"error", err,
						"request_id", GetRequestID(ctx),
					)
					if m != nil {
						m.IncrementAuthFailures("invalid_api_key")
					}
					httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid api key"))
					return
				}
				next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
				return
			}

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
				)
				if m != nil {
					m.IncrementAuthFailures("missing_token")
				}
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			principal, err := validator.Validate(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				if m != nil {
					m.IncrementAuthFailures("invalid_token")
				}
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
		})
	}
}

// RequireRole admits principals holding any of the roles. It must run after
// RequireAuth.
func RequireRole(roles ...jwttoken.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFrom(r.Context())
			if p != nil && slices.ContainsFunc(roles, p.HasRole) {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "caller lacks the required role"))
		})
	}
}
