package workload

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterLookup(t *testing.T) {
	h := func(_ context.Context, in json.RawMessage) (json.RawMessage, error) { return in, nil }
	Register("test/register", h)

	got, ok := Lookup("test/register")
	require.True(t, ok)
	out, err := got(context.Background(), json.RawMessage(`1`))
	require.NoError(t, err)
	assert.Equal(t, "1", string(out))

	_, ok = Lookup("test/REGISTER")
	assert.False(t, ok)
	assert.Contains(t, Names(), "test/register")
}

func TestRegisterDuplicatePanics(t *testing.T) {
	h := func(_ context.Context, in json.RawMessage) (json.RawMessage, error) { return in, nil }
	Register("test/dup", h)
	assert.Panics(t, func() { Register("test/dup", h) })
	assert.Panics(t, func() { Register("", h) })
	assert.Panics(t, func() { Register("test/nil", nil) })
}
