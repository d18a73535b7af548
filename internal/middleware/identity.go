package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"companywise/internal/security"
)

type identityKey struct{}

// Identity is the caller a request acts on behalf of. The zero value is the
// anonymous identity.
type Identity struct {
	// Key is the progress identity; empty for anonymous callers.
	Key    string
	Claims *security.Claims
}

// Anonymous reports whether the caller is not signed in.
func (i Identity) Anonymous() bool {
	return i.Key == ""
}

// WithIdentity stores identity in ctx.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the identity resolved by IdentityMiddleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(Identity)
	return identity, ok
}

// TokenValidator verifies bearer tokens.
type TokenValidator interface {
	Validate(token string) (*security.Claims, error)
}

// IdentityMiddleware resolves the caller from an optional bearer token.
// Requests without a token proceed anonymously; a token that fails
// validation is rejected with 401. WebSocket clients, which cannot set
// headers, may pass the token as the access_token query parameter.
func IdentityMiddleware(logger *slog.Logger, tokens TokenValidator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := bearerToken(r)
			if !ok {
				logger.WarnContext(ctx, "invalid authorization format",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				writeProblem(w, ProblemFromStatus(
					http.StatusUnauthorized,
					"Invalid authorization format. Use: Bearer <token>",
					GetRequestID(ctx),
				))
				return
			}

			if token == "" {
				next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, Identity{})))
				return
			}

			claims, err := tokens.Validate(token)
			if err != nil {
				logger.WarnContext(ctx, "authentication failed",
					slog.String("error", err.Error()),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("remote_addr", r.RemoteAddr),
				)
				writeProblem(w, ProblemFromStatus(
					http.StatusUnauthorized,
					"Invalid or expired token",
					GetRequestID(ctx),
				))
				return
			}

			identity := Identity{Key: claims.Subject, Claims: claims}
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
		})
	}
}

// bearerToken extracts the token. ok is false for a malformed header.
func bearerToken(r *http.Request) (token string, ok bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return r.URL.Query().Get("access_token"), true
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
