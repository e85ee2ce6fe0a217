package metrics

import "time"

// ObserveInvocation records one finished invocation. Its signature matches
// host.Observer.
func ObserveInvocation(workload, outcome string, d time.Duration) {
	invocationsTotal.WithLabelValues(workload, outcome).Inc()
	if outcome == "success" {
		invocationSeconds.WithLabelValues(workload).Observe(d.Seconds())
	}
}
