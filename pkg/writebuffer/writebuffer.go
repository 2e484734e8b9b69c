// Package writebuffer batches write operations behind priority queues so
// heavy seeding, sync, and recovery loads reach the backing store in
// controlled batches instead of one request per write.
//
// Three priority levels feed separate queues:
//   - High: identity, auth, critical state. Flushed immediately, never
//     rejected by backpressure.
//   - Normal: regular content updates, batched moderately.
//   - Bulk: seeding, imports, recovery sync, batched aggressively.
//
// Failed batches requeue their operations for retry up to a bounded
// count. Statistics are always collected; Prometheus metrics are
// optional via WithMetrics.
package writebuffer

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Priority determines which queue an operation lands in and how eagerly
// it is flushed.
type Priority uint8

const (
	// High priority operations flush immediately and bypass backpressure.
	High Priority = iota
	// Normal priority operations are batched moderately.
	Normal
	// Bulk priority operations are batched aggressively.
	Bulk
)

// String returns a human-readable representation of the priority.
func (p Priority) String() string {
	switch p {
	case High:
		return "high"
	case Normal:
		return "normal"
	case Bulk:
		return "bulk"
	default:
		return "unknown"
	}
}

// OpType is the kind of write an operation performs.
type OpType uint8

const (
	OpCreateEntry OpType = iota
	OpUpdateEntry
	OpDeleteEntry
	OpCreateLink
	OpDeleteLink
)

// String returns a human-readable representation of the operation type.
func (t OpType) String() string {
	switch t {
	case OpCreateEntry:
		return "create_entry"
	case OpUpdateEntry:
		return "update_entry"
	case OpDeleteEntry:
		return "delete_entry"
	case OpCreateLink:
		return "create_link"
	case OpDeleteLink:
		return "delete_link"
	default:
		return "unknown"
	}
}

// Operation is a single queued write.
type Operation struct {
	ID         string    `json:"opId"`
	Type       OpType    `json:"opType"`
	Payload    string    `json:"payload"`
	Priority   Priority  `json:"priority"`
	QueuedAt   time.Time `json:"queuedAt"`
	RetryCount int       `json:"retryCount"`
	DedupKey   string    `json:"dedupKey,omitempty"`
}

// Batch is a group of operations flushed together. The caller sends it to
// the backing store and reports the outcome with MarkCommitted,
// MarkFailed, or MarkOperationsFailed.
type Batch struct {
	ID         string      `json:"batchId"`
	Operations []Operation `json:"operations"`
	CreatedAt  time.Time   `json:"createdAt"`
	Priority   Priority    `json:"priority"`
}

// Buffer is a thread-safe write buffer with priority queues, dedup, and
// bounded retry.
type Buffer struct {
	mu sync.Mutex

	high   []Operation
	normal []Operation
	bulk   []Operation
	retry  []Operation

	// dedup key -> op id of the currently queued operation for that key
	dedup    map[string]string
	inFlight map[string]Batch

	batchSize     int
	flushInterval time.Duration
	maxRetries    int
	maxQueueSize  int
	lastFlushAt   time.Time

	batchesFlushed  uint64
	opsCommitted    uint64
	opsFailed       uint64
	opsDeduplicated uint64

	metrics *bufferMetrics
	now     func() time.Time
}

// New creates a write buffer. batchSize is the maximum operations per
// batch (minimum 1), flushInterval the idle deadline after which any
// queued work should flush, maxRetries the retry budget per operation.
// The queue capacity defaults to 100 batches worth; override it with
// WithMaxQueueSize.
func New(batchSize int, flushInterval time.Duration, maxRetries int, options ...Option) *Buffer {
	if batchSize < 1 {
		batchSize = 1
	}
	opts := applyOptions(options...)

	b := &Buffer{
		dedup:         make(map[string]string),
		inFlight:      make(map[string]Batch),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		maxRetries:    maxRetries,
		maxQueueSize:  batchSize * 100,
		metrics:       opts.metrics,
		now:           opts.clock,
	}
	if opts.maxQueueSize > 0 {
		b.maxQueueSize = opts.maxQueueSize
	}
	if b.maxQueueSize < b.batchSize {
		b.maxQueueSize = b.batchSize
	}
	b.lastFlushAt = b.now()
	return b
}

// ForSeeding creates a buffer tuned for bulk seeding: larger batches,
// faster flushes, more retries.
func ForSeeding(options ...Option) *Buffer {
	return New(100, 50*time.Millisecond, 5, options...)
}

// ForInteractive creates a buffer tuned for interactive use: small,
// responsive batches.
func ForInteractive(options ...Option) *Buffer {
	return New(20, 100*time.Millisecond, 3, options...)
}

// ForRecovery creates a buffer tuned for recovery sync: large batches,
// fast flushes, a deep retry budget.
func ForRecovery(options ...Option) *Buffer {
	return New(200, 25*time.Millisecond, 10, options...)
}

// Default creates a buffer with general-purpose settings.
func Default(options ...Option) *Buffer {
	return New(50, 100*time.Millisecond, 3, options...)
}

// Enqueue queues a write operation. Returns false when the buffer is at
// capacity and the priority is not High; the caller should back off and
// retry after draining.
func (b *Buffer) Enqueue(opID string, opType OpType, payload string, priority Priority) bool {
	return b.EnqueueDedup(opID, opType, payload, priority, "")
}

// EnqueueDedup queues a write operation under a deduplication key. If
// another operation with the same key is still queued it is replaced,
// last write wins. An empty key disables deduplication.
func (b *Buffer) EnqueueDedup(opID string, opType OpType, payload string, priority Priority, dedupKey string) bool {
	b.mu.Lock()

	if priority != High && b.totalQueuedLocked() >= b.maxQueueSize {
		b.mu.Unlock()
		b.metrics.recordReject()
		return false
	}

	if dedupKey != "" {
		if oldID, exists := b.dedup[dedupKey]; exists {
			b.removeFromQueues(oldID)
			b.opsDeduplicated++
		}
		b.dedup[dedupKey] = opID
	}

	op := Operation{
		ID:       opID,
		Type:     opType,
		Payload:  payload,
		Priority: priority,
		QueuedAt: b.now(),
		DedupKey: dedupKey,
	}
	switch priority {
	case High:
		b.high = append(b.high, op)
	case Bulk:
		b.bulk = append(b.bulk, op)
	default:
		b.normal = append(b.normal, op)
	}

	b.publishGauges()
	b.mu.Unlock()
	return true
}

// removeFromQueues drops a deduplicated operation. Retried operations
// are never deduplicated away, they already failed once.
func (b *Buffer) removeFromQueues(opID string) {
	b.high = removeOp(b.high, opID)
	b.normal = removeOp(b.normal, opID)
	b.bulk = removeOp(b.bulk, opID)
}

func removeOp(queue []Operation, opID string) []Operation {
	for i := range queue {
		if queue[i].ID == opID {
			return append(queue[:i], queue[i+1:]...)
		}
	}
	return queue
}

// ShouldFlush reports whether the caller should assemble and send a
// batch now: pending high priority work, a queue past the batch size,
// elapsed flush interval with anything queued, or pending retries.
func (b *Buffer) ShouldFlush() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.high) > 0 {
		return true
	}
	if len(b.normal) >= b.batchSize || len(b.bulk) >= b.batchSize {
		return true
	}
	if b.now().Sub(b.lastFlushAt) >= b.flushInterval {
		return b.totalQueuedLocked() > 0
	}
	return len(b.retry) > 0
}

// NextBatch assembles the next batch to send. The high queue drains
// completely; retry, normal, and bulk queues yield up to batchSize
// operations, in that order. Returns false when nothing is queued. The
// batch stays tracked in-flight until the caller reports its outcome.
func (b *Buffer) NextBatch() (Batch, bool) {
	b.mu.Lock()

	now := b.now()
	b.lastFlushAt = now

	var ops []Operation
	var priority Priority
	switch {
	case len(b.high) > 0:
		ops, b.high = b.high, nil
		priority = High
	case len(b.retry) > 0:
		ops, b.retry = splitBatch(b.retry, b.batchSize)
		priority = Normal
	case len(b.normal) > 0:
		ops, b.normal = splitBatch(b.normal, b.batchSize)
		priority = Normal
	case len(b.bulk) > 0:
		ops, b.bulk = splitBatch(b.bulk, b.batchSize)
		priority = Bulk
	default:
		b.mu.Unlock()
		return Batch{}, false
	}

	// Flushed operations leave the dedup window unless a newer write
	// already claimed the key
	for _, op := range ops {
		if op.DedupKey != "" && b.dedup[op.DedupKey] == op.ID {
			delete(b.dedup, op.DedupKey)
		}
	}

	batch := Batch{
		ID:         uuid.NewString(),
		Operations: ops,
		CreatedAt:  now,
		Priority:   priority,
	}
	b.inFlight[batch.ID] = batch
	b.batchesFlushed++

	b.publishGauges()
	b.metrics.recordInFlight(len(b.inFlight))
	b.mu.Unlock()
	return batch, true
}

func splitBatch(queue []Operation, max int) (batch, rest []Operation) {
	if len(queue) <= max {
		return queue, nil
	}
	rest = make([]Operation, len(queue)-max)
	copy(rest, queue[max:])
	return queue[:max:max], rest
}

// MarkCommitted records that every operation in a batch succeeded.
// Unknown batch ids are ignored.
func (b *Buffer) MarkCommitted(batchID string) {
	b.mu.Lock()
	batch, exists := b.inFlight[batchID]
	if exists {
		delete(b.inFlight, batchID)
		b.opsCommitted += uint64(len(batch.Operations))
	}
	inFlight := len(b.inFlight)
	b.mu.Unlock()

	if exists {
		b.metrics.recordFlush("committed")
		b.metrics.recordInFlight(inFlight)
	}
}

// MarkFailed records that a whole batch failed. Operations within their
// retry budget move to the retry queue; the rest are dropped and counted
// as failed. Unknown batch ids are ignored.
func (b *Buffer) MarkFailed(batchID string) {
	b.mu.Lock()
	batch, exists := b.inFlight[batchID]
	if exists {
		delete(b.inFlight, batchID)
		for _, op := range batch.Operations {
			b.requeueFailed(op)
		}
		b.publishGauges()
	}
	inFlight := len(b.inFlight)
	b.mu.Unlock()

	if exists {
		b.metrics.recordFlush("failed")
		b.metrics.recordInFlight(inFlight)
	}
}

// MarkOperationsFailed records a partial batch failure: the listed
// operation ids are retried or dropped, every other operation in the
// batch is counted as committed. Unknown batch ids are ignored.
func (b *Buffer) MarkOperationsFailed(batchID string, failedOpIDs []string) {
	failed := make(map[string]struct{}, len(failedOpIDs))
	for _, id := range failedOpIDs {
		failed[id] = struct{}{}
	}

	b.mu.Lock()
	batch, exists := b.inFlight[batchID]
	if exists {
		delete(b.inFlight, batchID)
		for _, op := range batch.Operations {
			if _, isFailed := failed[op.ID]; isFailed {
				b.requeueFailed(op)
			} else {
				b.opsCommitted++
			}
		}
		b.publishGauges()
	}
	inFlight := len(b.inFlight)
	b.mu.Unlock()

	if exists {
		b.metrics.recordFlush("partial")
		b.metrics.recordInFlight(inFlight)
	}
}

// requeueFailed moves one failed operation to the retry queue or drops
// it when its retry budget is spent. Must be called with the mutex held.
func (b *Buffer) requeueFailed(op Operation) {
	op.RetryCount++
	if op.RetryCount <= b.maxRetries {
		b.retry = append(b.retry, op)
		b.metrics.recordRetry()
	} else {
		b.opsFailed++
	}
}

// TotalQueued returns the number of operations across all queues,
// excluding in-flight batches.
func (b *Buffer) TotalQueued() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totalQueuedLocked()
}

func (b *Buffer) totalQueuedLocked() int {
	return len(b.high) + len(b.normal) + len(b.bulk) + len(b.retry)
}

// InFlightCount returns the number of batches sent but not yet reported.
func (b *Buffer) InFlightCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.inFlight)
}

// Backpressure returns queue fullness as a percentage from 0 to 100.
func (b *Buffer) Backpressure() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.backpressureLocked()
}

func (b *Buffer) backpressureLocked() int {
	pct := b.totalQueuedLocked() * 100 / b.maxQueueSize
	if pct > 100 {
		pct = 100
	}
	return pct
}

// IsBackpressured reports whether callers should pause non-critical
// queuing. True at 80 percent fullness and above.
func (b *Buffer) IsBackpressured() bool {
	return b.Backpressure() >= 80
}

// Clear drops every queued operation. In-flight batches are kept, they
// are already on the wire.
func (b *Buffer) Clear() {
	b.mu.Lock()
	b.high = nil
	b.normal = nil
	b.bulk = nil
	b.retry = nil
	b.dedup = make(map[string]string)
	b.publishGauges()
	b.mu.Unlock()
}

// DrainAll removes and returns every queued operation, high through
// retry, for persistence across a shutdown. Pair with Restore.
func (b *Buffer) DrainAll() []Operation {
	b.mu.Lock()
	defer b.mu.Unlock()

	all := make([]Operation, 0, b.totalQueuedLocked())
	all = append(all, b.high...)
	all = append(all, b.normal...)
	all = append(all, b.bulk...)
	all = append(all, b.retry...)

	b.high = nil
	b.normal = nil
	b.bulk = nil
	b.retry = nil
	b.dedup = make(map[string]string)

	b.publishGauges()
	return all
}

// Restore requeues previously drained operations. Operations with a
// retry count resume in the retry queue; the rest return to their
// priority queue, and dedup keys are re-indexed.
func (b *Buffer) Restore(operations []Operation) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, op := range operations {
		if op.DedupKey != "" {
			b.dedup[op.DedupKey] = op.ID
		}
		if op.RetryCount > 0 {
			b.retry = append(b.retry, op)
			continue
		}
		switch op.Priority {
		case High:
			b.high = append(b.high, op)
		case Bulk:
			b.bulk = append(b.bulk, op)
		default:
			b.normal = append(b.normal, op)
		}
	}
	b.publishGauges()
}

// publishGauges pushes queue depth and backpressure gauges. Must be
// called with the mutex held.
func (b *Buffer) publishGauges() {
	if b.metrics == nil {
		return
	}
	b.metrics.recordDepth(High, len(b.high))
	b.metrics.recordDepth(Normal, len(b.normal))
	b.metrics.recordDepth(Bulk, len(b.bulk))
	b.metrics.recordRetryDepth(len(b.retry))
	b.metrics.recordBackpressure(float64(b.backpressureLocked()))
}
