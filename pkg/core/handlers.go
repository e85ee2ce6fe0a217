package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	chimd "github.com/go-chi/chi/v5/middleware"
	"github.com/joeydtaylor/steeze-runner/pkg/codec"
	"github.com/joeydtaylor/steeze-runner/pkg/host"
	"go.uber.org/zap"
)

const (
	statusSuccess = "success"
	statusFailed  = "failed"
)

// InvokeResponse is the body of every /invoke/instance reply.
type InvokeResponse struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
	Kind   string          `json:"kind,omitempty"`
	Status string          `json:"status"`
}

type surface struct {
	host    *host.Host
	codec   codec.Codec
	log     *zap.Logger
	maxBody int64
}

func (s *surface) listFunctions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.codec, map[string]any{"apps": s.host.ListWorkloads()}, http.StatusOK)
}

func (s *surface) health(w http.ResponseWriter, _ *http.Request) {
	st := s.host.State()
	writeJSON(w, s.codec, map[string]string{
		"state":    st.String(),
		"workload": s.host.BoundID(),
	}, statusIf(st == host.Serving, http.StatusOK, http.StatusServiceUnavailable))
}

func (s *surface) invoke(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			s.fail(w, http.StatusRequestEntityTooLarge, "bad_request", fmt.Sprintf("body exceeds %d bytes", mbe.Limit))
			return
		}
		s.fail(w, http.StatusBadRequest, "bad_request", "read body: "+err.Error())
		return
	}
	req, err := payload(body)
	if err != nil {
		s.fail(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	res := s.host.Invoke(r.Context(), req)
	w.Header().Set("Server-Timing", fmt.Sprintf("invoke;dur=%.3f", float64(res.Duration.Microseconds())/1000))

	if !res.OK() {
		s.log.Debug("invoke failed",
			zap.String("requestId", chimd.GetReqID(r.Context())),
			zap.String("kind", string(res.Failure.Kind)),
		)
		writeJSON(w, s.codec, InvokeResponse{
			Error:  res.Failure.Message,
			Kind:   string(res.Failure.Kind),
			Status: statusFailed,
		}, http.StatusInternalServerError)
		return
	}
	writeJSON(w, s.codec, InvokeResponse{Result: res.Value, Status: statusSuccess}, http.StatusOK)
}

func (s *surface) fail(w http.ResponseWriter, code int, kind, msg string) {
	writeJSON(w, s.codec, InvokeResponse{Error: msg, Kind: kind, Status: statusFailed}, code)
}
