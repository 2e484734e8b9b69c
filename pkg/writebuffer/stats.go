package writebuffer

// Stats is a snapshot of buffer state and lifetime counters.
type Stats struct {
	HighQueued      int    `json:"highQueued"`
	NormalQueued    int    `json:"normalQueued"`
	BulkQueued      int    `json:"bulkQueued"`
	RetryQueued     int    `json:"retryQueued"`
	InFlightBatches int    `json:"inFlightBatches"`
	BatchesFlushed  uint64 `json:"batchesFlushed"`
	OpsCommitted    uint64 `json:"opsCommitted"`
	OpsFailed       uint64 `json:"opsFailed"`
	OpsDeduplicated uint64 `json:"opsDeduplicated"`
	Backpressure    int    `json:"backpressure"`
}

// Stats returns a consistent snapshot of the buffer.
func (b *Buffer) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Stats{
		HighQueued:      len(b.high),
		NormalQueued:    len(b.normal),
		BulkQueued:      len(b.bulk),
		RetryQueued:     len(b.retry),
		InFlightBatches: len(b.inFlight),
		BatchesFlushed:  b.batchesFlushed,
		OpsCommitted:    b.opsCommitted,
		OpsFailed:       b.opsFailed,
		OpsDeduplicated: b.opsDeduplicated,
		Backpressure:    b.backpressureLocked(),
	}
}

// ResetStats zeroes the lifetime counters, keeping queued operations.
func (b *Buffer) ResetStats() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.batchesFlushed = 0
	b.opsCommitted = 0
	b.opsFailed = 0
	b.opsDeduplicated = 0
}
