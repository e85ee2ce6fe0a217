// Package host owns the single bound workload and turns every invocation
// into a tagged Result. Handler failures never escape Invoke.
package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/joeydtaylor/steeze-runner/pkg/loader"
	"github.com/joeydtaylor/steeze-runner/pkg/registry"
	"go.uber.org/zap"
)

type State int32

const (
	Unbound State = iota
	Bound
	Serving
)

func (s State) String() string {
	switch s {
	case Unbound:
		return "unbound"
	case Bound:
		return "bound"
	case Serving:
		return "serving"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

var (
	ErrNilHandle      = errors.New("host: nil handle")
	ErrAlreadyBound   = errors.New("host: a workload is already bound")
	ErrNotBound       = errors.New("host: no workload bound")
	ErrAlreadyServing = errors.New("host: already serving")
)

const msgNotLoaded = "no function loaded"

type Host struct {
	reg     *registry.Registry
	log     *zap.Logger
	timeout time.Duration
	observe Observer

	handle atomic.Pointer[loader.Handle] // written once
	state  atomic.Int32
}

// New returns an Unbound host serving listings from reg.
func New(reg *registry.Registry, opts ...Option) *Host {
	if reg == nil {
		reg = registry.Empty("")
	}
	h := &Host{reg: reg, log: zap.NewNop()}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Bind takes ownership of hd. It succeeds exactly once.
func (h *Host) Bind(hd *loader.Handle) error {
	if hd == nil {
		return ErrNilHandle
	}
	if !h.handle.CompareAndSwap(nil, hd) {
		return ErrAlreadyBound
	}
	h.state.Store(int32(Bound))
	h.log.Info("host bound", zap.String("workload", hd.ID()), zap.String("runtime", string(hd.Runtime())))
	return nil
}

// StartServing moves Bound to Serving. The listener must not accept before
// this returns nil.
func (h *Host) StartServing() error {
	if h.state.CompareAndSwap(int32(Bound), int32(Serving)) {
		h.log.Info("host serving", zap.String("workload", h.BoundID()))
		return nil
	}
	if State(h.state.Load()) == Serving {
		return ErrAlreadyServing
	}
	return ErrNotBound
}

func (h *Host) State() State { return State(h.state.Load()) }

// BoundID is the bound workload id, or "" while Unbound.
func (h *Host) BoundID() string {
	if hd := h.handle.Load(); hd != nil {
		return hd.ID()
	}
	return ""
}

// ListWorkloads is the registry listing; it does not depend on state.
func (h *Host) ListWorkloads() map[string]map[string]any {
	return h.reg.Snapshot()
}

// Close releases the bound handle's runtime resources. The host stays in
// its current state.
func (h *Host) Close(ctx context.Context) error {
	return h.handle.Load().Close(ctx)
}

type callOutcome struct {
	out   json.RawMessage
	err   error
	trace string
}

// Invoke forwards req verbatim to the bound handle. An empty req is JSON
// null.
func (h *Host) Invoke(ctx context.Context, req json.RawMessage) Result {
	start := time.Now()
	hd := h.handle.Load()
	if hd == nil {
		return h.finish("", failure(KindNotLoaded, true, msgNotLoaded, ""), start)
	}
	if len(req) == 0 {
		req = json.RawMessage("null")
	}

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	ch := make(chan callOutcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				ch <- callOutcome{err: &loader.HandlerError{
					Message: fmt.Sprintf("panic: %v", p),
					Trace:   string(debug.Stack()),
				}}
			}
		}()
		out, err := hd.Call(ctx, req)
		ch <- callOutcome{out: out, err: err}
	}()

	var res Result
	select {
	case o := <-ch:
		res = h.classify(ctx, o)
	case <-ctx.Done():
		res = failure(KindCanceled, true, ctx.Err().Error(), "")
	}
	return h.finish(hd.ID(), res, start)
}

func (h *Host) classify(ctx context.Context, o callOutcome) Result {
	if o.err == nil {
		if len(o.out) == 0 {
			return success(json.RawMessage("null"))
		}
		if !json.Valid(o.out) {
			return failure(KindHandlerError, false, "handler returned a value that is not JSON", "")
		}
		return success(o.out)
	}

	var he *loader.HandlerError
	switch {
	case errors.As(o.err, &he):
		return failure(KindHandlerError, false, he.Message, he.Trace)
	case errors.Is(o.err, loader.ErrContract), errors.Is(o.err, loader.ErrWorkerGone):
		return failure(KindContractViolation, true, o.err.Error(), "")
	case ctx.Err() != nil && (errors.Is(o.err, context.Canceled) || errors.Is(o.err, context.DeadlineExceeded)):
		return failure(KindCanceled, true, o.err.Error(), "")
	default:
		return failure(KindHandlerError, false, o.err.Error(), "")
	}
}

func (h *Host) finish(id string, res Result, start time.Time) Result {
	d := time.Since(start)
	res.Duration = d
	outcome := "success"
	if f := res.Failure; f != nil {
		outcome = string(f.Kind)
		h.log.Error("invocation failed",
			zap.String("workload", id),
			zap.String("kind", outcome),
			zap.Bool("hostError", f.HostError),
			zap.String("error", f.Message),
			zap.String("trace", f.Trace),
			zap.Duration("elapsed", d),
		)
	}
	if h.observe != nil {
		h.observe(id, outcome, d)
	}
	return res
}
