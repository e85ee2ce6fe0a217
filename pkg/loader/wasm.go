package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/joeydtaylor/steeze-runner/pkg/registry"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// Wasm entry units must export:
//   - memory
//   - alloc(size: i32) -> i32
//   - handle(ptr: i32, len: i32) -> i64, returning (ptr << 32) | len
//
// dealloc(ptr: i32, size: i32) is optional. Modules are treated as WASI
// reactors: _initialize runs once at bind time.
const (
	wasmAlloc   = "alloc"
	wasmHandle  = "handle"
	wasmDealloc = "dealloc"
)

type wasmEntry struct {
	mu      sync.Mutex // one instance, one linear memory
	rt      wazero.Runtime
	mod     api.Module
	alloc   api.Function
	handle  api.Function
	dealloc api.Function
}

func (l *Loader) bindWasm(ctx context.Context, d registry.Descriptor) (Entry, error) {
	if err := requireFile(d.EntryPath); err != nil {
		return nil, err
	}
	code, err := os.ReadFile(d.EntryPath)
	if err != nil {
		return nil, unresolvable("read wasm: %w", err)
	}

	rt := wazero.NewRuntime(ctx)
	ok := false
	defer func() {
		if !ok {
			_ = rt.Close(ctx)
		}
	}()

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		return nil, unresolvable("instantiate wasi: %w", err)
	}
	compiled, err := rt.CompileModule(ctx, code)
	if err != nil {
		return nil, unresolvable("compile wasm: %w", err)
	}

	cfg := wazero.NewModuleConfig().
		WithName(d.ID).
		WithStartFunctions("_initialize").
		WithStdout(l.opts.Stdout).
		WithStderr(l.opts.Stderr).
		WithSysWalltime().
		WithSysNanotime().
		WithFSConfig(wazero.NewFSConfig().WithDirMount(d.Dir(), "/"))
	for k, v := range d.Env {
		cfg = cfg.WithEnv(k, v)
	}

	mod, err := rt.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		return nil, unresolvable("instantiate wasm: %w", err)
	}

	e := &wasmEntry{
		rt:      rt,
		mod:     mod,
		alloc:   mod.ExportedFunction(wasmAlloc),
		handle:  mod.ExportedFunction(wasmHandle),
		dealloc: mod.ExportedFunction(wasmDealloc),
	}
	if err := e.verify(); err != nil {
		return nil, err
	}
	ok = true
	return e, nil
}

func (e *wasmEntry) verify() error {
	if e.mod.Memory() == nil {
		return contractMismatch("wasm module exports no memory")
	}
	if !signature(e.alloc, []api.ValueType{api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32}) {
		return contractMismatch("wasm module must export 'alloc(size: i32) -> i32'")
	}
	if !signature(e.handle, []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, []api.ValueType{api.ValueTypeI64}) {
		return contractMismatch("wasm module must export 'handle(ptr: i32, len: i32) -> i64'")
	}
	if e.dealloc != nil && !signature(e.dealloc, []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, nil) {
		e.dealloc = nil
	}
	return nil
}

func signature(fn api.Function, params, results []api.ValueType) bool {
	if fn == nil {
		return false
	}
	def := fn.Definition()
	return sameTypes(def.ParamTypes(), params) && sameTypes(def.ResultTypes(), results)
}

func sameTypes(a, b []api.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (e *wasmEntry) Call(ctx context.Context, in json.RawMessage) (json.RawMessage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(in) == 0 {
		in = json.RawMessage("null")
	}
	size := uint64(len(in))

	res, err := e.alloc.Call(ctx, size)
	if err != nil {
		return nil, &HandlerError{Message: fmt.Sprintf("alloc: %v", err)}
	}
	ptr := uint32(res[0])

	mem := e.mod.Memory()
	if !mem.Write(ptr, in) {
		return nil, &HandlerError{Message: fmt.Sprintf("alloc returned out-of-range pointer %d for %d bytes", ptr, size)}
	}
	if e.dealloc != nil {
		defer func() { _, _ = e.dealloc.Call(ctx, uint64(ptr), size) }()
	}

	res, err = e.handle.Call(ctx, uint64(ptr), size)
	if err != nil {
		return nil, &HandlerError{Message: err.Error()}
	}
	outPtr := uint32(res[0] >> 32)
	outLen := uint32(res[0])

	view, ok := mem.Read(outPtr, outLen)
	if !ok {
		return nil, &HandlerError{Message: fmt.Sprintf("handle returned out-of-range result %d+%d", outPtr, outLen)}
	}
	if len(view) == 0 {
		return json.RawMessage("null"), nil
	}
	// view aliases linear memory; the next call may overwrite it
	out := make([]byte, len(view))
	copy(out, view)
	return out, nil
}

func (e *wasmEntry) Close(ctx context.Context) error {
	return e.rt.Close(ctx)
}
