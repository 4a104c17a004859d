package port

import "time"

// MetricsRecorder records payment outcomes and stage latency.
type MetricsRecorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, d time.Duration, labels map[string]string)
}
