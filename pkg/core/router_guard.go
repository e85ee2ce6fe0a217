package core

import (
	"net/http"

	"github.com/joeydtaylor/steeze-runner/pkg/middleware/auth"
)

// Guard restricts a route to authenticated callers, optionally with one of
// Roles.
type Guard struct {
	RequireAuth bool
	Roles       []string
}

func withGuard(next http.HandlerFunc, a *auth.Middleware, g Guard) http.HandlerFunc {
	if !g.RequireAuth && len(g.Roles) == 0 {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if a == nil || !a.IsAuthenticated(r.Context()) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if len(g.Roles) == 0 {
			next(w, r)
			return
		}
		for _, role := range g.Roles {
			if a.HasRole(r.Context(), role) {
				next(w, r)
				return
			}
		}
		http.Error(w, "Forbidden", http.StatusForbidden)
	}
}
