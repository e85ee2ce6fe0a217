package loader

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/joeydtaylor/steeze-runner/pkg/manifest"
	"github.com/joeydtaylor/steeze-runner/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoWasm exports memory, alloc (always 1024) and handle, which hands the
// input region straight back as (ptr << 32) | len.
var echoWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// types: (i32) -> i32, (i32, i32) -> i64
	0x01, 0x0c, 0x02,
	0x60, 0x01, 0x7f, 0x01, 0x7f,
	0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7e,
	// functions
	0x03, 0x03, 0x02, 0x00, 0x01,
	// memory: 1 page
	0x05, 0x03, 0x01, 0x00, 0x01,
	// exports
	0x07, 0x1b, 0x03,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	0x05, 'a', 'l', 'l', 'o', 'c', 0x00, 0x00,
	0x06, 'h', 'a', 'n', 'd', 'l', 'e', 0x00, 0x01,
	// code
	0x0a, 0x14, 0x02,
	0x05, 0x00, 0x41, 0x80, 0x08, 0x0b,
	0x0c, 0x00, 0x20, 0x00, 0xad, 0x42, 0x20, 0x86, 0x20, 0x01, 0xad, 0x84, 0x0b,
}

var emptyWasm = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

func wasmDescriptor(t *testing.T, code []byte) registry.Descriptor {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, manifest.DefaultWasmEntry)
	require.NoError(t, os.WriteFile(p, code, 0o644))
	return registry.Descriptor{ID: "wasm_echo", EntryPath: p, Runtime: manifest.RuntimeWasm}
}

func TestBindWasmEcho(t *testing.T) {
	ctx := context.Background()
	l := newTestLoader(t)

	h, err := l.Bind(ctx, wasmDescriptor(t, echoWasm))
	require.NoError(t, err)
	defer h.Close(ctx)

	out, err := h.Call(ctx, json.RawMessage(`{"msg":"hi"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"msg":"hi"}`, string(out))

	out, err = h.Call(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))

	// results are copied out of linear memory
	first, err := h.Call(ctx, json.RawMessage(`[1,2,3]`))
	require.NoError(t, err)
	_, err = h.Call(ctx, json.RawMessage(`"zzzzzzz"`))
	require.NoError(t, err)
	assert.Equal(t, `[1,2,3]`, string(first))
}

func TestBindWasmContractMismatch(t *testing.T) {
	l := newTestLoader(t)

	_, err := l.Bind(context.Background(), wasmDescriptor(t, emptyWasm))
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ReasonContract, le.Reason)
	assert.Equal(t, "wasm_echo", le.ID)
}

func TestBindWasmUnresolvable(t *testing.T) {
	l := newTestLoader(t)

	_, err := l.Bind(context.Background(), wasmDescriptor(t, []byte("not wasm")))
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ReasonUnresolvable, le.Reason)

	_, err = l.Bind(context.Background(), registry.Descriptor{
		ID: "missing", EntryPath: filepath.Join(t.TempDir(), "handler.wasm"), Runtime: manifest.RuntimeWasm,
	})
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ReasonUnresolvable, le.Reason)
}
