package logger

import (
	"net/http"
	"os"
	"strings"
)

// DefaultBodyPaths are the routes whose request payloads reach the access log.
var DefaultBodyPaths = []string{"/invoke/instance"}

const defaultMaxLoggedBody = 64 << 10

// bodyPathsFromEnv reads LOG_BODY_PATHS, a comma separated route list.
// "-" disables body logging.
func bodyPathsFromEnv() []string {
	v := strings.TrimSpace(os.Getenv("LOG_BODY_PATHS"))
	switch v {
	case "":
		return DefaultBodyPaths
	case "-":
		return []string{}
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// keepsBody reports whether a write request's payload is logged verbatim:
// JSON (or untyped), non-empty, under the size cap, on a listed route.
func (m *Middleware) keepsBody(r *http.Request, body []byte) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return false
	}
	if len(body) == 0 || len(body) > m.bodyLimit() {
		return false
	}
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return false
	}
	paths := m.BodyPaths
	if paths == nil {
		paths = DefaultBodyPaths
	}
	for _, p := range paths {
		if p == r.URL.Path {
			return true
		}
	}
	return false
}

func (m *Middleware) bodyLimit() int {
	if m.MaxBody <= 0 {
		return defaultMaxLoggedBody
	}
	return m.MaxBody
}
