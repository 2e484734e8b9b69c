package writebuffer

import (
	"github.com/ethosengine/cachecore/metric"
)

// bufferMetrics forwards buffer activity to the shared engine metrics.
// A nil receiver makes every method a no-op so call sites stay clean.
type bufferMetrics struct {
	core *metric.Metrics
}

func (m *bufferMetrics) recordDepth(priority Priority, depth int) {
	if m == nil {
		return
	}
	m.core.RecordBufferDepth(priority.String(), depth)
}

func (m *bufferMetrics) recordRetryDepth(depth int) {
	if m == nil {
		return
	}
	m.core.RecordBufferDepth("retry", depth)
}

func (m *bufferMetrics) recordFlush(outcome string) {
	if m == nil {
		return
	}
	m.core.RecordBufferFlush(outcome)
}

func (m *bufferMetrics) recordRetry() {
	if m == nil {
		return
	}
	m.core.RecordBufferRetry()
}

func (m *bufferMetrics) recordReject() {
	if m == nil {
		return
	}
	m.core.RecordBufferReject()
}

func (m *bufferMetrics) recordInFlight(count int) {
	if m == nil {
		return
	}
	m.core.RecordBufferInFlight(count)
}

func (m *bufferMetrics) recordBackpressure(pct float64) {
	if m == nil {
		return
	}
	m.core.RecordBackpressure(pct)
}
