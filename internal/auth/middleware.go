package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sakif/resource-hub/internal/apperror"
)

// contextKey is package-private so no other package can read or shadow the
// subject stored in a request context.
type contextKey string

const subjectKey contextKey = "subject"

// TokenCookie is the cookie name set by the GitHub callback.
const TokenCookie = "token"

// RequireAuth rejects requests without a valid token with 401 and otherwise
// stores the token subject (the user's email) in the request context.
//
// Chi applies middlewares in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, err := extractSubject(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", "Bearer")
				w.WriteHeader(http.StatusUnauthorized)
				if errors.Is(err, apperror.ErrExpiredToken) {
					_, _ = w.Write([]byte(`{"error":"expired_token","message":"token expired"}`))
					return
				}
				_, _ = w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), subject)))
		})
	}
}

// OptionalAuth records the subject when a valid token is present but never
// blocks the request. Used on public routes whose behaviour depends on who is
// asking (private downloads, rating attribution, resource ownership).
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if subject, err := extractSubject(r, tokens); err == nil {
				r = r.WithContext(WithSubject(r.Context(), subject))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithSubject returns a copy of ctx carrying subject.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

// SubjectFromContext returns ("", false) for anonymous requests.
func SubjectFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(subjectKey).(string)
	return s, ok && s != ""
}

// BearerToken extracts the raw token from the Authorization header, falling
// back to the token cookie. It returns "" when neither is present.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, found := strings.Cut(h, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := r.Cookie(TokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func extractSubject(r *http.Request, tokens *TokenService) (string, error) {
	raw := BearerToken(r)
	if raw == "" {
		return "", apperror.InvalidToken("no token presented")
	}
	return tokens.Validate(raw)
}
