package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/vidtube/internal/apperror"
	"github.com/sakif/vidtube/internal/model"
	"github.com/sakif/vidtube/internal/response"
)

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. A package-private type means
// only this package can create the key, so no other package can read or
// shadow the user stored under it.
type contextKey string

const userKey contextKey = "user"

// UserLookup is the slice of the user repository the guard needs.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// RequireAuth rejects the request with 401 unless it carries a valid access
// token whose subject still exists. On success the user is in the context.
//
// The token is read from the accessToken cookie first, then from an
// "Authorization: Bearer <token>" header (mobile and API clients).
func RequireAuth(tokens *TokenService, users UserLookup, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := TokenFromRequest(r)
			if raw == "" {
				response.Error(w, apperror.Unauthorized("Unauthorized request"))
				return
			}

			claims, err := tokens.ValidateAccess(raw)
			if err != nil {
				msg := "Invalid access token"
				if errors.Is(err, ErrTokenExpired) {
					msg = "Access token expired"
				}
				response.Error(w, apperror.Unauthorized(msg))
				return
			}

			user, err := users.GetByID(r.Context(), claims.Subject)
			if err != nil {
				if errors.Is(err, apperror.ErrNotFound) {
					response.Error(w, apperror.Unauthorized("Invalid access token"))
					return
				}
				logger.Error("auth: loading token subject",
					slog.String("userID", claims.Subject),
					slog.String("error", err.Error()),
				)
				response.Error(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// TokenFromRequest returns the raw access token, or "".
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(AccessCookie); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// WithUser stores the authenticated user in ctx.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the user set by RequireAuth.
//
// Usage in handlers:
//
//	user, ok := auth.UserFromContext(r.Context())
//	if !ok {
//	    // route is not behind RequireAuth
//	}
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}
