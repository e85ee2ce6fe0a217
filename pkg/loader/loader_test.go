package loader

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/joeydtaylor/steeze-runner/pkg/manifest"
	"github.com/joeydtaylor/steeze-runner/pkg/registry"
	"github.com/joeydtaylor/steeze-runner/pkg/workload"
	_ "github.com/joeydtaylor/steeze-runner/pkg/workload/builtin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	return New(Options{Logger: zaptest.NewLogger(t)})
}

func TestBindInproc(t *testing.T) {
	l := newTestLoader(t)

	h, err := l.Bind(context.Background(), registry.Descriptor{
		ID: "echo", EntryPath: "echo/handler", Runtime: manifest.RuntimeInproc,
	})
	require.NoError(t, err)
	assert.Equal(t, "echo", h.ID())
	assert.Equal(t, manifest.RuntimeInproc, h.Runtime())

	out, err := h.Call(context.Background(), json.RawMessage(`{"a":1}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(out))
	assert.NoError(t, h.Close(context.Background()))
}

func TestBindInprocPassesHomeDir(t *testing.T) {
	workload.Register("whereami/handler", func(ctx context.Context, _ json.RawMessage) (json.RawMessage, error) {
		return json.Marshal(workload.Dir(ctx))
	})

	h, err := newTestLoader(t).Bind(context.Background(), registry.Descriptor{
		ID: "whereami", EntryPath: "whereami/handler", Runtime: manifest.RuntimeInproc, Home: "/srv/apps/whereami",
	})
	require.NoError(t, err)

	out, err := h.Call(context.Background(), nil)
	require.NoError(t, err)
	assert.JSONEq(t, `"/srv/apps/whereami"`, string(out))
}

func TestBindInprocMissingHandler(t *testing.T) {
	l := newTestLoader(t)

	_, err := l.Bind(context.Background(), registry.Descriptor{
		ID: "ghost", EntryPath: "ghost/handler", Runtime: manifest.RuntimeInproc,
	})
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ReasonUnresolvable, le.Reason)
	assert.Equal(t, "ghost", le.ID)
	assert.Contains(t, le.Error(), "echo/handler")
}

func TestBindUnsupportedRuntime(t *testing.T) {
	l := newTestLoader(t)

	_, err := l.Bind(context.Background(), registry.Descriptor{ID: "x", Runtime: "cobol"})
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ReasonUnresolvable, le.Reason)
}

func TestBindRecoversLoadTimePanic(t *testing.T) {
	l := newTestLoader(t)
	l.binders[manifest.RuntimeInproc] = func(context.Context, registry.Descriptor) (Entry, error) {
		panic("import-time failure")
	}

	_, err := l.Bind(context.Background(), registry.Descriptor{ID: "p", EntryPath: "p/handler", Runtime: manifest.RuntimeInproc})
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Contains(t, le.Error(), "import-time failure")
}

func TestNilHandleCall(t *testing.T) {
	var h *Handle
	_, err := h.Call(context.Background(), nil)
	assert.ErrorIs(t, err, ErrContract)
	assert.NoError(t, h.Close(context.Background()))

	_, err = NewHandle("x", manifest.RuntimeInproc, nil).Call(context.Background(), nil)
	assert.ErrorIs(t, err, ErrContract)
}
