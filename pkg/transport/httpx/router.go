// Package httpx is the router seam between the HTTP surface and chi.
package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Router is the subset of a mux that core.BuildRouter needs.
type Router interface {
	Handle(method, path string, h http.Handler)
	Get(path string, h http.HandlerFunc)
	Post(path string, h http.HandlerFunc)
	Use(mw ...func(http.Handler) http.Handler)
	NotFound(h http.HandlerFunc)
	MethodNotAllowed(h http.HandlerFunc)
	Mux() http.Handler
}

type chiRouter struct{ r *chi.Mux }

// NewChi returns a chi-backed Router.
func NewChi() Router { return &chiRouter{r: chi.NewRouter()} }

func (c *chiRouter) Handle(method, path string, h http.Handler) { c.r.Method(method, path, h) }
func (c *chiRouter) Get(path string, h http.HandlerFunc)        { c.r.Get(path, h) }
func (c *chiRouter) Post(path string, h http.HandlerFunc)       { c.r.Post(path, h) }
func (c *chiRouter) Use(mw ...func(http.Handler) http.Handler)  { c.r.Use(mw...) }
func (c *chiRouter) NotFound(h http.HandlerFunc)                { c.r.NotFound(h) }
func (c *chiRouter) MethodNotAllowed(h http.HandlerFunc)        { c.r.MethodNotAllowed(h) }
func (c *chiRouter) Mux() http.Handler                          { return c.r }
