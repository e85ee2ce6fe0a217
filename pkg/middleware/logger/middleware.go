// Package logger provides the zap loggers and the HTTP access log.
package logger

import (
	"bytes"
	"io"
	"net/http"
	"time"

	chimd "github.com/go-chi/chi/v5/middleware"
	"github.com/joeydtaylor/steeze-runner/pkg/middleware/auth"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Middleware writes one access-log line per request. The zero value logs
// bodies on DefaultBodyPaths only.
type Middleware struct {
	BodyPaths []string
	MaxBody   int
}

func ProvideLoggerMiddleware() *Middleware {
	return &Middleware{BodyPaths: bodyPathsFromEnv()}
}

// ProvideLogger is the system logger (system.log).
func ProvideLogger() *zap.Logger { return NewLog("system.log") }

// Module provides the access-log middleware. The system logger is built
// before fx starts and supplied by the caller.
var Module = fx.Options(
	fx.Provide(ProvideLoggerMiddleware),
)

func (m *Middleware) Middleware(ca *auth.Middleware) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := accessLogger()
			ww := chimd.NewWrapResponseWriter(w, r.ProtoMajor)

			// peek at most one byte past the log limit; the handler reads the
			// peeked prefix and then the rest of the stream
			var body []byte
			var rb *countingBody
			if r.Body != nil {
				body, _ = io.ReadAll(io.LimitReader(r.Body, int64(m.bodyLimit())+1))
				rb = &countingBody{r: io.MultiReader(bytes.NewReader(body), r.Body), c: r.Body}
				r.Body = rb
			}

			scheme := "http"
			if r.TLS != nil {
				scheme = "https"
			}

			start := time.Now()
			defer func() {
				var u auth.User
				if ca != nil {
					u = ca.GetUser(r.Context())
				}
				log := l.With(
					zap.String("requestId", chimd.GetReqID(r.Context())),
					zap.String("httpScheme", scheme),
					zap.Bool("isAuthenticated", u.Username != ""),
					zap.String("username", u.Username),
					zap.String("role", u.Role.Name),
					zap.String("httpProto", r.Proto),
					zap.String("httpMethod", r.Method),
					zap.String("remoteAddr", r.RemoteAddr),
					zap.String("uri", r.URL.Path),
					zap.Duration("lat", time.Since(start)),
					zap.Int64("requestSize", rb.size()),
					zap.Int("responseSize", ww.BytesWritten()),
					zap.Int("status", ww.Status()),
				)
				if m.keepsBody(r, body) {
					log.Info("http request", zap.ByteString("requestData", body))
				} else {
					log.Info("http request")
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// countingBody reports how much of the request the handler consumed.
type countingBody struct {
	r io.Reader
	c io.Closer
	n int64
}

func (b *countingBody) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	b.n += int64(n)
	return n, err
}

func (b *countingBody) Close() error { return b.c.Close() }

func (b *countingBody) size() int64 {
	if b == nil {
		return 0
	}
	return b.n
}
