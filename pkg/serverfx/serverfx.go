// Package serverfx wires the HTTP surface into an fx lifecycle. The listener
// is opened and the host moved to Serving in OnStart, so a process whose
// bind failed never gets this far.
package serverfx

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joeydtaylor/steeze-runner/pkg/bundlefx"
	"github.com/joeydtaylor/steeze-runner/pkg/codec"
	"github.com/joeydtaylor/steeze-runner/pkg/core"
	"github.com/joeydtaylor/steeze-runner/pkg/host"
	"github.com/joeydtaylor/steeze-runner/pkg/middleware/auth"
	"github.com/joeydtaylor/steeze-runner/pkg/middleware/logger"
	"github.com/joeydtaylor/steeze-runner/pkg/transport/httpx"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ---------- Options ----------

type Config struct {
	Service       string // for logs only
	ListenEnv     string // SERVER_LISTEN_ADDRESS
	DefaultListen string
	ListenAddr    string // explicit address; wins over ListenEnv
	TLSCertEnv    string // SSL_SERVER_CERTIFICATE
	TLSKeyEnv     string // SSL_SERVER_KEY
	InvokeRoleEnv string // comma separated roles allowed to invoke
}

type Option func(*Config)

func WithService(s string) Option       { return func(c *Config) { c.Service = s } }
func WithListenEnv(k string) Option     { return func(c *Config) { c.ListenEnv = k } }
func WithDefaultListen(a string) Option { return func(c *Config) { c.DefaultListen = a } }
func WithListenAddr(a string) Option    { return func(c *Config) { c.ListenAddr = a } }
func WithInvokeRoleEnv(k string) Option { return func(c *Config) { c.InvokeRoleEnv = k } }
func WithTLSCertKeyEnv(cert, key string) Option {
	return func(c *Config) { c.TLSCertEnv, c.TLSKeyEnv = cert, key }
}

func defaultConfig() Config {
	return Config{
		Service:       "runner",
		ListenEnv:     "SERVER_LISTEN_ADDRESS",
		DefaultListen: "0.0.0.0:12345",
		TLSCertEnv:    "SSL_SERVER_CERTIFICATE",
		TLSKeyEnv:     "SSL_SERVER_KEY",
		InvokeRoleEnv: "INVOKE_JWT_ROLES",
	}
}

func (c Config) addr() string {
	if c.ListenAddr != "" {
		return c.ListenAddr
	}
	return envOr(c.ListenEnv, c.DefaultListen)
}

// Module serves the supplied *host.Host. The caller provides the host and a
// *zap.Logger.
func Module(opts ...Option) fx.Option {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return fx.Options(
		fx.Supply(cfg),
		bundlefx.Module,
		fx.Provide(httpx.NewChi),
		fx.Provide(fx.Annotate(provideRouter, fx.ResultTags(`name:"app"`))),
		fx.Provide(newServer),
		fx.Invoke(func(*Server) {}),
	)
}

// ---------- Router ----------

type routerDeps struct {
	fx.In

	Cfg     Config
	Host    *host.Host
	AuthMW  *auth.Middleware
	LogMW   *logger.Middleware
	Metrics http.Handler `name:"metrics"`
	R       httpx.Router
	Log     *zap.Logger
}

func provideRouter(d routerDeps) http.Handler {
	var guard core.Guard
	if d.AuthMW.Enabled() {
		guard.RequireAuth = true
		guard.Roles = splitList(os.Getenv(d.Cfg.InvokeRoleEnv))
		d.Log.Info("invoke guarded by bearer token", zap.Strings("roles", guard.Roles))
	}
	return core.BuildRouter(core.BuildDeps{
		Host:        d.Host,
		Auth:        d.AuthMW,
		LogMW:       d.LogMW,
		Metrics:     d.Metrics,
		Router:      d.R,
		Codec:       codec.JSON,
		Log:         d.Log,
		InvokeGuard: guard,
	})
}

// ---------- Server lifecycle ----------

// Server is the running listener; Addr is known once fx has started.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

type serverDeps struct {
	fx.In
	Cfg    Config
	Host   *host.Host
	Logger *zap.Logger
	App    http.Handler `name:"app"`
}

func newServer(lc fx.Lifecycle, d serverDeps) *Server {
	addr := d.Cfg.addr()
	cert := os.Getenv(d.Cfg.TLSCertEnv)
	key := os.Getenv(d.Cfg.TLSKeyEnv)
	useTLS := fileExists(cert) && fileExists(key)

	s := &Server{srv: &http.Server{
		Addr:        addr,
		Handler:     d.App,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
		TLSConfig:   &tls.Config{MinVersion: tls.VersionTLS13, MaxVersion: tls.VersionTLS13},
	}}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			if err := d.Host.StartServing(); err != nil {
				_ = ln.Close()
				return err
			}
			s.ln = ln

			log := d.Logger.With(
				zap.String("service", d.Cfg.Service),
				zap.String("addr", s.Addr()),
				zap.String("workload", d.Host.BoundID()),
			)
			if useTLS {
				log.Info("server starting (TLS)", zap.String("cert", cert))
			} else {
				log.Info("server starting (PLAINTEXT)")
				s.srv.TLSConfig = nil
			}
			go func() {
				var err error
				if useTLS {
					err = s.srv.ServeTLS(ln, cert, key)
				} else {
					err = s.srv.Serve(ln)
				}
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			d.Logger.Info("server stopping", zap.String("service", d.Cfg.Service))
			err := s.srv.Shutdown(ctx)
			if cerr := d.Host.Close(ctx); cerr != nil {
				d.Logger.Warn("workload close failed", zap.Error(cerr))
			}
			return err
		},
	})
	return s
}

// ---------- helpers ----------

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func envOr(k, def string) string {
	if k == "" {
		return def
	}
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
