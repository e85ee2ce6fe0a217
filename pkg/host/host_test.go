package host

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/joeydtaylor/steeze-runner/pkg/loader"
	"github.com/joeydtaylor/steeze-runner/pkg/manifest"
	"github.com/joeydtaylor/steeze-runner/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type funcEntry func(ctx context.Context, in json.RawMessage) (json.RawMessage, error)

func (f funcEntry) Call(ctx context.Context, in json.RawMessage) (json.RawMessage, error) {
	return f(ctx, in)
}

func (funcEntry) Close(context.Context) error { return nil }

var echo = funcEntry(func(_ context.Context, in json.RawMessage) (json.RawMessage, error) { return in, nil })

func testRegistry() *registry.Registry {
	return registry.New(registry.Descriptor{
		ID: "echo", EntryPath: "echo/handler", Runtime: manifest.RuntimeInproc,
		Metadata: map[string]any{"entryPath": "echo/handler"},
	})
}

func boundHost(t *testing.T, e loader.Entry, opts ...Option) *Host {
	t.Helper()
	h := New(testRegistry(), append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)...)
	require.NoError(t, h.Bind(loader.NewHandle("echo", manifest.RuntimeInproc, e)))
	return h
}

func TestUnboundInvokeIsHostError(t *testing.T) {
	h := New(testRegistry())
	assert.Equal(t, Unbound, h.State())

	for _, req := range []string{``, `null`, `{"x":1}`, `[1,2]`} {
		res := h.Invoke(context.Background(), json.RawMessage(req))
		require.False(t, res.OK())
		assert.Equal(t, KindNotLoaded, res.Failure.Kind)
		assert.True(t, res.Failure.HostError)
		assert.Equal(t, "no function loaded", res.Failure.Message)
	}
}

func TestStateMachine(t *testing.T) {
	h := New(testRegistry())
	assert.ErrorIs(t, h.StartServing(), ErrNotBound)
	assert.ErrorIs(t, h.Bind(nil), ErrNilHandle)
	assert.Equal(t, "", h.BoundID())

	first := loader.NewHandle("echo", manifest.RuntimeInproc, echo)
	require.NoError(t, h.Bind(first))
	assert.Equal(t, Bound, h.State())
	assert.Equal(t, "echo", h.BoundID())

	assert.ErrorIs(t, h.Bind(loader.NewHandle("other", manifest.RuntimeInproc, echo)), ErrAlreadyBound)
	assert.Equal(t, "echo", h.BoundID())

	require.NoError(t, h.StartServing())
	assert.Equal(t, Serving, h.State())
	assert.ErrorIs(t, h.StartServing(), ErrAlreadyServing)
	assert.Equal(t, "serving", h.State().String())
}

func TestListWorkloadsIndependentOfState(t *testing.T) {
	h := New(testRegistry())
	assert.Contains(t, h.ListWorkloads(), "echo")

	require.NoError(t, h.Bind(loader.NewHandle("echo", manifest.RuntimeInproc, echo)))
	require.NoError(t, h.StartServing())
	assert.Contains(t, h.ListWorkloads(), "echo")

	assert.Empty(t, New(nil).ListWorkloads())
}

func TestInvokeEcho(t *testing.T) {
	h := boundHost(t, echo)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res := h.Invoke(ctx, json.RawMessage(`{"x":1}`))
		require.True(t, res.OK())
		assert.JSONEq(t, `{"x":1}`, string(res.Value))
	}

	res := h.Invoke(ctx, json.RawMessage(`null`))
	require.True(t, res.OK())
	assert.Equal(t, "null", string(res.Value))

	res = h.Invoke(ctx, nil)
	require.True(t, res.OK())
	assert.Equal(t, "null", string(res.Value))
}

func TestHandlerFailureIsIsolated(t *testing.T) {
	h := boundHost(t, funcEntry(func(_ context.Context, in json.RawMessage) (json.RawMessage, error) {
		switch string(in) {
		case `"error"`:
			return nil, errors.New("division by zero")
		case `"traced"`:
			return nil, &loader.HandlerError{Message: "KeyError: 'path'", Trace: "Traceback (most recent call last)"}
		case `"panic"`:
			var m map[string]int
			m["x"]++
			return nil, nil
		case `"garbage"`:
			return json.RawMessage(`{not json`), nil
		}
		return in, nil
	}))
	require.NoError(t, h.StartServing())
	ctx := context.Background()

	res := h.Invoke(ctx, json.RawMessage(`"error"`))
	require.False(t, res.OK())
	assert.Equal(t, KindHandlerError, res.Failure.Kind)
	assert.False(t, res.Failure.HostError)
	assert.Equal(t, "division by zero", res.Failure.Message)

	res = h.Invoke(ctx, json.RawMessage(`"traced"`))
	require.False(t, res.OK())
	assert.Equal(t, "KeyError: 'path'", res.Failure.Message)
	assert.Contains(t, res.Failure.Trace, "Traceback")

	res = h.Invoke(ctx, json.RawMessage(`"panic"`))
	require.False(t, res.OK())
	assert.Equal(t, KindHandlerError, res.Failure.Kind)
	assert.False(t, res.Failure.HostError)
	assert.Contains(t, res.Failure.Message, "panic")
	assert.NotEmpty(t, res.Failure.Trace)

	res = h.Invoke(ctx, json.RawMessage(`"garbage"`))
	require.False(t, res.OK())
	assert.Equal(t, KindHandlerError, res.Failure.Kind)

	assert.Equal(t, Serving, h.State())
	res = h.Invoke(ctx, json.RawMessage(`{"ok":true}`))
	require.True(t, res.OK())
	assert.JSONEq(t, `{"ok":true}`, string(res.Value))
}

func TestMalformedHandleIsContractViolation(t *testing.T) {
	h := New(testRegistry())
	require.NoError(t, h.Bind(loader.NewHandle("echo", manifest.RuntimeInproc, nil)))

	res := h.Invoke(context.Background(), json.RawMessage(`1`))
	require.False(t, res.OK())
	assert.Equal(t, KindContractViolation, res.Failure.Kind)
	assert.True(t, res.Failure.HostError)
}

func TestTimeoutIsHostError(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	h := boundHost(t, funcEntry(func(_ context.Context, in json.RawMessage) (json.RawMessage, error) {
		<-release
		return in, nil
	}), WithTimeout(20*time.Millisecond))

	res := h.Invoke(context.Background(), json.RawMessage(`1`))
	require.False(t, res.OK())
	assert.Equal(t, KindCanceled, res.Failure.Kind)
	assert.True(t, res.Failure.HostError)
}

func TestCallerCancellation(t *testing.T) {
	h := boundHost(t, funcEntry(func(ctx context.Context, in json.RawMessage) (json.RawMessage, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := h.Invoke(ctx, json.RawMessage(`1`))
	require.False(t, res.OK())
	assert.Equal(t, KindCanceled, res.Failure.Kind)
	assert.True(t, res.Failure.HostError)
}

func TestObserverSeesOutcomes(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}
	obs := func(workload, outcome string, _ time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		seen[workload+"/"+outcome]++
	}

	h := boundHost(t, funcEntry(func(_ context.Context, in json.RawMessage) (json.RawMessage, error) {
		if string(in) == `"fail"` {
			return nil, errors.New("nope")
		}
		return in, nil
	}), WithObserver(obs))

	h.Invoke(context.Background(), json.RawMessage(`1`))
	h.Invoke(context.Background(), json.RawMessage(`"fail"`))
	New(nil, WithObserver(obs)).Invoke(context.Background(), nil)

	assert.Equal(t, map[string]int{
		"echo/success":       1,
		"echo/handler_error": 1,
		"/not_loaded":        1,
	}, seen)
}

func TestConcurrentInvocations(t *testing.T) {
	h := boundHost(t, echo)
	require.NoError(t, h.StartServing())

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in, _ := json.Marshal(map[string]int{"i": i})
			res := h.Invoke(context.Background(), in)
			assert.True(t, res.OK())
			assert.JSONEq(t, string(in), string(res.Value))
		}(i)
	}
	wg.Wait()
}
