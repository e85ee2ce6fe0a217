package host

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind classifies a failed invocation.
type Kind string

const (
	KindNotLoaded         Kind = "not_loaded"
	KindContractViolation Kind = "contract_violation"
	KindHandlerError      Kind = "handler_error"
	KindCanceled          Kind = "canceled"
)

// Failure is the error half of a Result. HostError separates problems on
// the host side (nothing bound, unusable handle, cancellation) from the
// workload's own code failing.
type Failure struct {
	Kind      Kind
	Message   string
	Trace     string
	HostError bool
}

func (f *Failure) Error() string { return fmt.Sprintf("%s: %s", f.Kind, f.Message) }

// Result is the outcome of one invocation: exactly one of Value or Failure
// is set.
type Result struct {
	Value    json.RawMessage
	Failure  *Failure
	Duration time.Duration
}

func (r Result) OK() bool { return r.Failure == nil }

func success(v json.RawMessage) Result { return Result{Value: v} }

func failure(k Kind, host bool, msg, trace string) Result {
	return Result{Failure: &Failure{Kind: k, Message: msg, Trace: trace, HostError: host}}
}
