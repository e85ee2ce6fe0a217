// workload/handlers.go
package workload

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
)

// Handler is the signature for workloads compiled into the host binary.
// 'in' is the raw invocation payload; the returned bytes must be JSON.
type Handler func(ctx context.Context, in json.RawMessage) (json.RawMessage, error)

var (
	mu       sync.RWMutex
	registry = map[string]Handler{}
)

// Register makes a handler available under an entry name referenced in the
// descriptor (e.g. "echo/handler"). Registering a name twice panics.
func Register(name string, h Handler) {
	if name == "" || h == nil {
		panic("workload: name and handler required")
	}
	mu.Lock()
	defer mu.Unlock()
	if _, dup := registry[name]; dup {
		panic("workload: duplicate " + name)
	}
	registry[name] = h
}

// Lookup retrieves a registered handler by entry name.
func Lookup(name string) (Handler, bool) {
	mu.RLock()
	defer mu.RUnlock()
	h, ok := registry[name]
	return h, ok
}

// Names lists registered entry names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
