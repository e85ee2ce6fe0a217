package loader

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// Frame is one message on a worker's stdin/stdout: a 4-byte big-endian
// length followed by that many bytes of JSON.
type Frame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Error     string          `json:"error,omitempty"`
	Trace     string          `json:"trace,omitempty"`
}

// Frame types. The worker sends exactly one of ready, load_error or
// contract_error after start-up, then answers every invoke with a result or
// an error carrying the same request id.
const (
	FrameReady         = "ready"
	FrameLoadError     = "load_error"
	FrameContractError = "contract_error"
	FrameInvoke        = "invoke"
	FrameResult        = "result"
	FrameError         = "error"
)

const MaxFrameSize = 64 << 20

func WriteFrame(w io.Writer, f *Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	if len(data) > MaxFrameSize {
		return fmt.Errorf("frame too large: %d bytes", len(data))
	}
	buf := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(buf, uint32(len(data)))
	copy(buf[4:], data)
	_, err = w.Write(buf)
	return err
}

func ReadFrame(r io.Reader) (*Frame, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > MaxFrameSize {
		return nil, fmt.Errorf("frame too large: %d bytes", n)
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return &f, nil
}
