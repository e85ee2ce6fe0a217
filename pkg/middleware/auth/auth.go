// Package auth optionally guards the invoke surface with HS256 bearer
// tokens. With no secret configured every request passes through
// unauthenticated.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Role struct {
	Name string `json:"name"`
}

type AuthenticationSource struct {
	Provider string `json:"provider"`
}

type User struct {
	Username             string               `json:"username"`
	AuthenticationSource AuthenticationSource `json:"authenticationSource"`
	Role                 Role                 `json:"role"`
}

type ctxKey struct{}

var userCtxKey ctxKey

type Middleware struct {
	secret    []byte
	issuer    string
	audience  string
	leeway    time.Duration
	adminRole string
	devBypass bool
}

// Enabled reports whether bearer tokens are verified at all.
func (m *Middleware) Enabled() bool { return m != nil && len(m.secret) > 0 }

func (m *Middleware) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Dev bypass for local testing (NEVER enable in prod)
			if m.devBypass {
				if u := devUserFromHeaders(r); u.Username != "" {
					next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userCtxKey, u)))
					return
				}
			}

			raw, ok := bearer(r)
			if !ok || !m.Enabled() {
				next.ServeHTTP(w, r)
				return
			}
			u, err := m.validate(raw)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userCtxKey, u)))
		})
	}
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const p = "Bearer "
	if len(h) <= len(p) || !strings.EqualFold(h[:len(p)], p) {
		return "", false
	}
	return strings.TrimSpace(h[len(p):]), true
}

func (m *Middleware) validate(raw string) (User, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(m.leeway),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}

	var claims struct {
		jwt.RegisteredClaims
		Role  string   `json:"role"`
		Roles []string `json:"roles"`
	}
	tok, err := jwt.NewParser(opts...).ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil || !tok.Valid {
		return User{}, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return User{}, errors.New("missing sub")
	}

	role := claims.Role
	if role == "" && len(claims.Roles) > 0 {
		role = claims.Roles[0]
	}
	return User{
		Username:             claims.Subject,
		AuthenticationSource: AuthenticationSource{Provider: "bearer"},
		Role:                 Role{Name: role},
	}, nil
}

// Dev-only user injection via headers when AUTH_DEV_BYPASS=true
func devUserFromHeaders(r *http.Request) User {
	user := r.Header.Get("X-Dev-User")
	if user == "" {
		return User{}
	}
	return User{
		Username:             user,
		AuthenticationSource: AuthenticationSource{Provider: "dev"},
		Role:                 Role{Name: r.Header.Get("X-Dev-Role")},
	}
}

func (m *Middleware) GetUser(ctx context.Context) User {
	if u, ok := ctx.Value(userCtxKey).(User); ok {
		return u
	}
	return User{}
}

func (m *Middleware) IsAuthenticated(ctx context.Context) bool {
	return m.GetUser(ctx).Username != ""
}

// HasRole is true for the named role and, when configured, the admin role.
func (m *Middleware) HasRole(ctx context.Context, role string) bool {
	name := m.GetUser(ctx).Role.Name
	if name == "" {
		return false
	}
	return name == role || (m.adminRole != "" && name == m.adminRole)
}
