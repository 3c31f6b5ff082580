package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func mustToken(t *testing.T, secret []byte, subject string, expires time.Time) string {
	t.Helper()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return signed
}

func serve(h http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func echoSubject() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(SubjectFromContext(r.Context())))
	})
}

func TestMiddleware(t *testing.T) {
	h := NewMiddleware(testSecret).Wrap(echoSubject())
	valid := mustToken(t, testSecret, "operator-1", time.Now().Add(time.Hour))

	tests := []struct {
		name  string
		path  string
		token string
		code  int
		body  string
	}{
		{"no token", "/api/analysis", "", http.StatusUnauthorized, ""},
		{"valid", "/api/analysis", valid, http.StatusOK, "operator-1"},
		{"expired", "/api/analysis", mustToken(t, testSecret, "operator-1", time.Now().Add(-time.Minute)), http.StatusUnauthorized, ""},
		{"wrong secret", "/api/analysis", mustToken(t, []byte("other"), "operator-1", time.Now().Add(time.Hour)), http.StatusUnauthorized, ""},
		{"no subject", "/api/analysis", mustToken(t, testSecret, "", time.Now().Add(time.Hour)), http.StatusUnauthorized, ""},
		{"unprotected", "/data", "", http.StatusOK, ""},
		{"health", "/health", "garbage", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := serve(h, tt.path, tt.token)
			assert.Equal(t, tt.code, resp.Code)
			if tt.code == http.StatusOK {
				assert.Equal(t, tt.body, resp.Body.String())
			}
		})
	}
}

func TestMiddleware_DisabledWithoutSecret(t *testing.T) {
	h := NewMiddleware(nil).Wrap(echoSubject())
	assert.Equal(t, http.StatusOK, serve(h, "/api/analysis", "").Code)

	var m *Middleware
	assert.Equal(t, http.StatusOK, serve(m.Wrap(echoSubject()), "/api/analysis", "").Code)
}

func TestMiddleware_BearerCase(t *testing.T) {
	h := NewMiddleware(testSecret).Wrap(echoSubject())
	req := httptest.NewRequest(http.MethodGet, "/api/realtime", nil)
	req.Header.Set("Authorization", "bearer "+mustToken(t, testSecret, "op", time.Now().Add(time.Hour)))
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestParseJWT_RejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "op"}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(testSecret)
	require.NoError(t, err)

	_, err = ParseJWT(signed, testSecret)
	assert.Error(t, err)

	_, err = ParseJWT("", testSecret)
	assert.ErrorIs(t, err, ErrEmptyToken)
	_, err = ParseJWT(signed, nil)
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestIssueToken(t *testing.T) {
	token, err := IssueToken(testSecret, "operator-2", "sihwa", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "operator-2", claims.Subject)
	assert.Equal(t, "sihwa", claims.Site)

	_, err = IssueToken(nil, "x", "", time.Hour)
	assert.ErrorIs(t, err, ErrEmptySecret)
}
