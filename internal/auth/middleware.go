package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const contextKeySubject contextKey = "auth.subject"

// SubjectFromContext returns the token subject stored by Middleware.
func SubjectFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if subject, ok := ctx.Value(contextKeySubject).(string); ok {
		return subject
	}
	return ""
}

// Middleware requires a valid bearer token on protected paths.
type Middleware struct {
	Secret []byte
	// Prefixes lists the protected path prefixes.
	Prefixes []string
}

// NewMiddleware protects /api/ unless other prefixes are given.
func NewMiddleware(secret []byte, prefixes ...string) *Middleware {
	if len(prefixes) == 0 {
		prefixes = []string{"/api/"}
	}
	return &Middleware{Secret: secret, Prefixes: prefixes}
}

// Wrap applies auth to next. With no secret configured every request passes.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	if m == nil || len(m.Secret) == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.protected(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := ParseJWT(extractBearer(r), m.Secret)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), contextKeySubject, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) protected(path string) bool {
	for _, prefix := range m.Prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func extractBearer(r *http.Request) string {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
