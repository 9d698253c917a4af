package ingest

import (
	"errors"
	"sync"

	"github.com/tickstream/tick-ingestor/internal/model"
)

// DefaultBatchSize keeps batches small enough to watch them flush.
const DefaultBatchSize = 3

// ErrBatchFull is returned by Append when the batch was not drained at capacity.
var ErrBatchFull = errors.New("batch full")

// BatchStatus describes the batch right after an append.
type BatchStatus struct {
	Size int
	Full bool
}

// Accumulator holds price records until exactly maxSize are pending.
// All methods are safe for concurrent use; AppendAndDrain performs the
// append, size check and drain under one lock.
type Accumulator struct {
	maxSize int

	mu      sync.Mutex
	batch   []model.PriceRecord
	flushes int64
}

// NewAccumulator creates an accumulator that fills at maxSize records.
func NewAccumulator(maxSize int) *Accumulator {
	if maxSize < 1 {
		maxSize = DefaultBatchSize
	}
	return &Accumulator{
		maxSize: maxSize,
		batch:   make([]model.PriceRecord, 0, maxSize),
	}
}

// Append adds a record at the tail of the batch.
func (a *Accumulator) Append(r model.PriceRecord) (BatchStatus, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.appendLocked(r)
}

// DrainIfFull takes the whole batch if it is at capacity and leaves an empty one.
func (a *Accumulator) DrainIfFull() ([]model.PriceRecord, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.drainIfFullLocked()
}

// AppendAndDrain appends and, if that filled the batch, drains it in the
// same critical section. The returned status is taken before the drain.
func (a *Accumulator) AppendAndDrain(r model.PriceRecord) (BatchStatus, []model.PriceRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	status, err := a.appendLocked(r)
	if err != nil {
		return status, nil, err
	}
	batch, _ := a.drainIfFullLocked()
	return status, batch, nil
}

// Drain takes whatever is pending, full or not.
func (a *Accumulator) Drain() []model.PriceRecord {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.batch) == 0 {
		return nil
	}
	batch := a.batch
	a.batch = make([]model.PriceRecord, 0, a.maxSize)
	return batch
}

// MarkFlushed records that a drained batch was persisted and returns the new count.
func (a *Accumulator) MarkFlushed() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.flushes++
	return a.flushes
}

// FlushCount returns the number of batches persisted so far.
func (a *Accumulator) FlushCount() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.flushes
}

// Len returns the number of pending records.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.batch)
}

// MaxSize returns the flush threshold.
func (a *Accumulator) MaxSize() int {
	return a.maxSize
}

func (a *Accumulator) appendLocked(r model.PriceRecord) (BatchStatus, error) {
	if len(a.batch) >= a.maxSize {
		return BatchStatus{Size: len(a.batch), Full: true}, ErrBatchFull
	}
	a.batch = append(a.batch, r)
	return BatchStatus{Size: len(a.batch), Full: len(a.batch) == a.maxSize}, nil
}

func (a *Accumulator) drainIfFullLocked() ([]model.PriceRecord, bool) {
	if len(a.batch) < a.maxSize {
		return nil, false
	}
	// Take ownership of current batch
	batch := a.batch
	a.batch = make([]model.PriceRecord, 0, a.maxSize)
	return batch, true
}
