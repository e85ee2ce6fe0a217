package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriveStopsAtRequestCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(string(body), "fail") {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"boom","kind":"handler_error","status":"failed"}`))
			return
		}
		_, _ = w.Write([]byte(`{"result":` + string(body) + `,"status":"success"}`))
	}))
	defer srv.Close()

	calls := drive(context.Background(), srv.Client(), benchConfig{
		URL:         srv.URL + "/invoke/instance",
		Payload:     []byte(`{"n":1}`),
		Concurrency: 4,
		Requests:    20,
	})
	require.Len(t, calls, 20)
	for _, c := range calls {
		assert.True(t, c.ok)
		assert.Equal(t, http.StatusOK, c.status)
	}

	failed := drive(context.Background(), srv.Client(), benchConfig{
		URL:      srv.URL + "/invoke/instance",
		Payload:  []byte(`"fail"`),
		Requests: 3,
	})
	require.Len(t, failed, 3)
	assert.False(t, failed[0].ok)
	assert.Equal(t, "handler_error", failed[0].kind)
}

func TestInvokeOnceRejectsUnexpectedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","extra":1}`))
	}))
	defer srv.Close()

	c := invokeOnce(context.Background(), srv.Client(), srv.URL, []byte(`null`))
	assert.False(t, c.ok)
	assert.Equal(t, "bad_response", c.kind)
}

func TestSummarize(t *testing.T) {
	calls := []call{
		{ok: true, d: 1 * time.Millisecond},
		{ok: true, d: 3 * time.Millisecond},
		{ok: true, d: 2 * time.Millisecond},
		{kind: "canceled"},
	}
	s := summarize(calls, 2*time.Second)

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 3, s.Succeeded)
	assert.Equal(t, map[string]int{"canceled": 1}, s.Failures)
	assert.InDelta(t, 2.0, s.Throughput, 0.001)
	assert.Equal(t, 2*time.Millisecond, s.Median)

	buf := &bytes.Buffer{}
	s.print(buf)
	assert.Contains(t, buf.String(), "Succeeded: 3/4")
	assert.Contains(t, buf.String(), "Failed (canceled): 1")
	assert.Contains(t, buf.String(), "median = 2.000ms")
}
