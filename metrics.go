package admsession

import (
	"sync/atomic"
	"time"
)

// MetricID names a console counter.
type MetricID uint16

const (
	MetricSignInSuccess MetricID = iota
	MetricSignInFailure
	MetricSignInDenied
	MetricSignInRejected
	MetricSignInSuperseded
	MetricSignOut
	MetricSignOutStoreFailure
	MetricSessionRestored
	MetricSessionRestoreFailed
	MetricSessionExpired
	MetricRequestAuthorized
	MetricRequestAnonymous
	// MetricSignInLatency is the only metric with a histogram.
	MetricSignInLatency
	metricIDCount
)

var metricNames = [metricIDCount]string{
	MetricSignInSuccess:        "sign_in_success",
	MetricSignInFailure:        "sign_in_failure",
	MetricSignInDenied:         "sign_in_denied",
	MetricSignInRejected:       "sign_in_rejected",
	MetricSignInSuperseded:     "sign_in_superseded",
	MetricSignOut:              "sign_out",
	MetricSignOutStoreFailure:  "sign_out_store_failure",
	MetricSessionRestored:      "session_restored",
	MetricSessionRestoreFailed: "session_restore_failed",
	MetricSessionExpired:       "session_expired",
	MetricRequestAuthorized:    "request_authorized",
	MetricRequestAnonymous:     "request_anonymous",
	MetricSignInLatency:        "sign_in_latency",
}

// String returns the metric's snake_case name.
func (id MetricID) String() string {
	if id >= metricIDCount {
		return "unknown"
	}
	return metricNames[id]
}

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	signInLatency [histBucketCount]uint64
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns counters configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the sign-in histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram of id. Only MetricSignInLatency has one.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id != MetricSignInLatency {
		return
	}
	atomic.AddUint64(&m.signInLatency[bucketIndex(d)], 1)
}

// Value returns the current count of id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter, and the latency histogram when enabled.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricSignInLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.signInLatency[i])
		}
		s.Histograms[MetricSignInLatency] = buckets
	}

	return s
}

// Upper bounds of the sign-in latency buckets, in milliseconds. Sign-in is a
// network round trip, so they are coarser than a hot-path histogram would use.
var latencyBoundsMs = [histBucketCount - 1]int64{50, 100, 250, 500, 1000, 2500, 5000}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()
	for i, bound := range latencyBoundsMs {
		if ms <= bound {
			return i
		}
	}
	return histBucketCount - 1
}
