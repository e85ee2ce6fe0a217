package loader

import (
	"context"
	"encoding/json"
	"time"

	"github.com/joeydtaylor/steeze-runner/pkg/manifest"
)

// Entry is a verified call surface: one structured input, one structured
// output or an error.
type Entry interface {
	Call(ctx context.Context, in json.RawMessage) (json.RawMessage, error)
	Close(ctx context.Context) error
}

// Handle is the bound, callable form of exactly one workload.
type Handle struct {
	id       string
	runtime  manifest.Runtime
	entry    Entry
	loadTime time.Duration
}

// NewHandle wraps an already-verified entry.
func NewHandle(id string, rt manifest.Runtime, e Entry) *Handle {
	return &Handle{id: id, runtime: rt, entry: e}
}

func (h *Handle) ID() string                { return h.id }
func (h *Handle) Runtime() manifest.Runtime { return h.runtime }
func (h *Handle) LoadTime() time.Duration   { return h.loadTime }

// Call forwards in to the entry point. A nil handle or entry yields
// ErrContract instead of a nil dereference.
func (h *Handle) Call(ctx context.Context, in json.RawMessage) (json.RawMessage, error) {
	if h == nil || h.entry == nil {
		return nil, ErrContract
	}
	return h.entry.Call(ctx, in)
}

// Close releases runtime resources (wasm runtime, worker process).
func (h *Handle) Close(ctx context.Context) error {
	if h == nil || h.entry == nil {
		return nil
	}
	return h.entry.Close(ctx)
}
