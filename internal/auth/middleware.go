package auth

import (
	"context"
	"net/http"
)

// SessionCookie is the cookie carrying the session token.
const SessionCookie = "token"

type contextKey struct{}

// UserFromContext returns the authenticated username, "" when absent.
func UserFromContext(ctx context.Context) string {
	username, _ := ctx.Value(contextKey{}).(string)
	return username
}

// WithUser returns a context carrying the authenticated username. Exported
// for handler tests.
func WithUser(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, contextKey{}, username)
}

// Middleware authenticates the session cookie and injects the username
// into the request context. Requests without a valid session get 401.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookie)
		if err != nil {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		username, err := s.VerifyToken(cookie.Value)
		if err != nil {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), username)))
	})
}
