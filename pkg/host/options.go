package host

import (
	"time"

	"go.uber.org/zap"
)

type Option func(*Host)

// WithTimeout caps each invocation. Zero, the default, means no cap.
func WithTimeout(d time.Duration) Option {
	return func(h *Host) {
		if d > 0 {
			h.timeout = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(h *Host) {
		if l != nil {
			h.log = l
		}
	}
}

// Observer is told about every finished invocation. outcome is "success" or
// the failure kind.
type Observer func(workload, outcome string, d time.Duration)

func WithObserver(o Observer) Option {
	return func(h *Host) { h.observe = o }
}
