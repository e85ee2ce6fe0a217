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

func sign(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func serve(m *Middleware, r *http.Request) (*httptest.ResponseRecorder, User) {
	var seen User
	h := m.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = m.GetUser(r.Context())
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec, seen
}

func TestBearerAccepted(t *testing.T) {
	m := New(Config{Secret: "s3cret", Issuer: "bench", AdminRole: "admin"})
	tok := sign(t, "s3cret", jwt.MapClaims{
		"sub": "loadgen", "iss": "bench", "role": "invoker",
		"exp": time.Now().Add(time.Minute).Unix(),
	})

	r := httptest.NewRequest(http.MethodPost, "/invoke/instance", nil)
	r.Header.Set("Authorization", "Bearer "+tok)
	rec, u := serve(m, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "loadgen", u.Username)
	assert.Equal(t, "invoker", u.Role.Name)
	assert.Equal(t, "bearer", u.AuthenticationSource.Provider)
}

func TestBearerRejected(t *testing.T) {
	m := New(Config{Secret: "s3cret", Issuer: "bench"})
	cases := map[string]string{
		"wrong secret": sign(t, "other", jwt.MapClaims{"sub": "x", "iss": "bench"}),
		"wrong issuer": sign(t, "s3cret", jwt.MapClaims{"sub": "x", "iss": "elsewhere"}),
		"expired":      sign(t, "s3cret", jwt.MapClaims{"sub": "x", "iss": "bench", "exp": time.Now().Add(-time.Hour).Unix()}),
		"no subject":   sign(t, "s3cret", jwt.MapClaims{"iss": "bench"}),
		"garbage":      "not.a.jwt",
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/invoke/instance", nil)
			r.Header.Set("Authorization", "Bearer "+tok)
			rec, _ := serve(m, r)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestNoTokenPassesThroughUnauthenticated(t *testing.T) {
	m := New(Config{Secret: "s3cret"})
	r := httptest.NewRequest(http.MethodGet, "/functions", nil)
	rec, u := serve(m, r)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", u.Username)
}

func TestDisabledIgnoresTokens(t *testing.T) {
	m := New(Config{})
	assert.False(t, m.Enabled())

	r := httptest.NewRequest(http.MethodGet, "/functions", nil)
	r.Header.Set("Authorization", "Bearer whatever")
	rec, _ := serve(m, r)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDevBypassAndRoles(t *testing.T) {
	m := New(Config{DevBypass: true, AdminRole: "admin"})
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Dev-User", "alice")
	r.Header.Set("X-Dev-Role", "admin")

	var ok bool
	h := m.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok = m.IsAuthenticated(r.Context()) && m.HasRole(r.Context(), "invoker")
	}))
	h.ServeHTTP(httptest.NewRecorder(), r)
	assert.True(t, ok)
}
