// Package core builds the runner's HTTP surface over a bound host.
package core

import (
	"net/http"

	chimd "github.com/go-chi/chi/v5/middleware"
	"github.com/joeydtaylor/steeze-runner/pkg/codec"
	"github.com/joeydtaylor/steeze-runner/pkg/host"
	"github.com/joeydtaylor/steeze-runner/pkg/middleware/auth"
	"github.com/joeydtaylor/steeze-runner/pkg/middleware/logger"
	hmetrics "github.com/joeydtaylor/steeze-runner/pkg/middleware/metrics"
	httpx "github.com/joeydtaylor/steeze-runner/pkg/transport/httpx"
	"go.uber.org/zap"
)

const (
	PathFunctions = "/functions"
	PathInvoke    = "/invoke/instance"
	PathHealth    = "/healthz"
	PathMetrics   = "/metrics"
	PathPing      = "/ping"
)

type BuildDeps struct {
	Host    *host.Host
	Auth    *auth.Middleware
	LogMW   *logger.Middleware
	Metrics http.Handler
	Router  httpx.Router
	Codec   codec.Codec
	Log     *zap.Logger

	// InvokeGuard applies to POST /invoke/instance only.
	InvokeGuard Guard
	// MaxBodyBytes caps the invocation payload; 0 means DefaultMaxBody.
	MaxBodyBytes int64
}

const DefaultMaxBody = 64 << 20

func BuildRouter(d BuildDeps) http.Handler {
	if d.Router == nil {
		d.Router = httpx.NewChi()
	}
	if d.Codec == nil {
		d.Codec = codec.JSON
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.MaxBodyBytes <= 0 {
		d.MaxBodyBytes = DefaultMaxBody
	}

	r := d.Router
	r.Use(chimd.RequestID, chimd.Recoverer, chimd.Heartbeat(PathPing))
	if d.Auth != nil {
		r.Use(d.Auth.Middleware())
	}
	if d.LogMW != nil {
		r.Use(d.LogMW.Middleware(d.Auth))
	}
	r.Use(hmetrics.Collect())

	if d.Metrics != nil {
		r.Handle(http.MethodGet, PathMetrics, d.Metrics)
	}

	s := &surface{host: d.Host, codec: d.Codec, log: d.Log, maxBody: d.MaxBodyBytes}
	r.Get(PathFunctions, s.listFunctions)
	r.Get(PathHealth, s.health)
	r.Post(PathInvoke, withGuard(s.invoke, d.Auth, d.InvokeGuard))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		s.fail(w, http.StatusNotFound, "not_found", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		s.fail(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
	return r.Mux()
}
