package metrics

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Option tunes what Collect records.
type Option func(*collector)

type collector struct {
	skip  map[string]bool
	label func(*http.Request) string
}

func newCollector(opts []Option) *collector {
	c := &collector{
		skip:  map[string]bool{"/metrics": true, "/ping": true},
		label: routeLabel,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Skip leaves exact request paths out of the HTTP counters.
func Skip(paths ...string) Option {
	return func(c *collector) {
		for _, p := range paths {
			if p != "" {
				c.skip[p] = true
			}
		}
	}
}

// WithLabeler replaces the uri label function.
func WithLabeler(fn func(*http.Request) string) Option {
	return func(c *collector) {
		if fn != nil {
			c.label = fn
		}
	}
}

// routeLabel uses the matched chi pattern; unrouted requests share "other".
func routeLabel(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "other"
}
