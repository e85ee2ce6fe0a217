// Package loader binds one workload's entry unit into the running process
// and returns a callable Handle.
//
// Binding runs the workload's own load-time code (wasm _initialize, Python
// module top level, worker process start-up), so timing Bind measures the
// cold-start cost separately from per-invocation cost.
package loader

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/joeydtaylor/steeze-runner/pkg/manifest"
	"github.com/joeydtaylor/steeze-runner/pkg/registry"
	"go.uber.org/zap"
)

// Options configure a Loader. Zero values are usable.
type Options struct {
	Logger *zap.Logger

	// Stdout/Stderr receive the workload's own output (wasm WASI streams,
	// worker stderr). Default os.Stdout / os.Stderr.
	Stdout io.Writer
	Stderr io.Writer

	// ReadyTimeout bounds the worker handshake for process runtimes.
	ReadyTimeout time.Duration

	// PythonInterpreter is used when a python descriptor names none.
	PythonInterpreter string
}

type binder func(ctx context.Context, d registry.Descriptor) (Entry, error)

type Loader struct {
	opts    Options
	log     *zap.Logger
	binders map[manifest.Runtime]binder
}

func New(opts Options) *Loader {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 60 * time.Second
	}
	if opts.PythonInterpreter == "" {
		opts.PythonInterpreter = "python3"
	}
	l := &Loader{opts: opts, log: opts.Logger}
	l.binders = map[manifest.Runtime]binder{
		manifest.RuntimeInproc:  l.bindInproc,
		manifest.RuntimeWasm:    l.bindWasm,
		manifest.RuntimePython:  l.bindPython,
		manifest.RuntimeProcess: l.bindProcess,
	}
	return l
}

// Bind resolves d's entry unit, verifies its call surface and returns the
// handle. Every failure, including a panic in load-time code, comes back as
// a *LoadError.
func (l *Loader) Bind(ctx context.Context, d registry.Descriptor) (h *Handle, err error) {
	b, ok := l.binders[d.Runtime]
	if !ok {
		return nil, l.fail(d, unresolvable("unsupported runtime %q", d.Runtime))
	}

	defer func() {
		if p := recover(); p != nil {
			h = nil
			err = l.fail(d, unresolvable("panic during load: %v", p))
		}
	}()

	start := time.Now()
	e, err := b(ctx, d)
	if err != nil {
		var le *LoadError
		if !errors.As(err, &le) {
			le = &LoadError{Reason: ReasonUnresolvable, Err: err}
		}
		return nil, l.fail(d, le)
	}
	h = NewHandle(d.ID, d.Runtime, e)
	h.loadTime = time.Since(start)

	l.log.Info("workload bound",
		zap.String("workload", d.ID),
		zap.String("runtime", string(d.Runtime)),
		zap.String("entry", d.EntryPath),
		zap.Duration("loadTime", h.loadTime),
	)
	return h, nil
}

func (l *Loader) fail(d registry.Descriptor, le *LoadError) *LoadError {
	le.ID = d.ID
	le.Runtime = d.Runtime
	l.log.Error("workload load failed",
		zap.String("workload", d.ID),
		zap.String("runtime", string(d.Runtime)),
		zap.String("entry", d.EntryPath),
		zap.String("reason", string(le.Reason)),
		zap.Error(le.Err),
		zap.String("trace", le.Trace),
	)
	return le
}

func requireDir(dir string) error {
	if dir == "" {
		return unresolvable("workload directory not set")
	}
	fi, err := os.Stat(dir)
	if err != nil {
		return unresolvable("workload directory: %w", err)
	}
	if !fi.IsDir() {
		return unresolvable("workload directory %s is not a directory", dir)
	}
	return nil
}

func requireFile(p string) error {
	fi, err := os.Stat(p)
	if err != nil {
		return unresolvable("entry unit: %w", err)
	}
	if fi.IsDir() {
		return unresolvable("entry unit %s is a directory", p)
	}
	return nil
}
