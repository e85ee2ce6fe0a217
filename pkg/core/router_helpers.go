package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/joeydtaylor/steeze-runner/pkg/codec"
)

var errInvalidJSON = errors.New("request body is not valid JSON")

// payload turns a request body into the value handed to the workload. An
// empty body is null; anything else must be one JSON value and is passed on
// untouched.
func payload(body []byte) (json.RawMessage, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(body) {
		return nil, errInvalidJSON
	}
	return body, nil
}

func writeJSON(w http.ResponseWriter, c codec.Codec, v any, status int) {
	b, err := c.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"encode response","status":"failed"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", c.ContentType())
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func statusIf(cond bool, yes, no int) int {
	if cond {
		return yes
	}
	return no
}
