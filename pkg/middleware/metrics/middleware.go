package metrics

import (
	"net/http"
	"strconv"
	"time"

	chimd "github.com/go-chi/chi/v5/middleware"
)

// Collect records the HTTP counters and the response-time histogram.
func Collect(opts ...Option) func(next http.Handler) http.Handler {
	c := newCollector(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c.skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			ww := chimd.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				code := strconv.Itoa(ww.Status())
				totalHttpRequestsToUri.WithLabelValues(code, c.label(r), r.Method).Inc()
				totalHttpRequests.WithLabelValues(code, r.Method).Inc()
				responseTime.Observe(time.Since(start).Seconds())
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
