package writer

import (
	"errors"
	"time"
)

// Errors
var (
	ErrPersistence = errors.New("persistence failed")
	ErrEmptyBatch  = errors.New("empty batch")
	ErrNoDatabase  = errors.New("no database configured")
)

// Columns are the destination columns, in insert order.
var Columns = []string{"time", "symbol", "price", "day_volume"}

// WriterConfig contains configuration for the price writer.
type WriterConfig struct {
	// Table is the destination table, optionally schema-qualified.
	Table string

	// WriteTimeout bounds a single insert transaction. Zero disables it.
	WriteTimeout time.Duration
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		Table:        "crypto_ws_table",
		WriteTimeout: 10 * time.Second,
	}
}

// WriterMetrics holds metrics for a writer.
type WriterMetrics struct {
	Inserts int64 // Rows committed
	Errors  int64 // Failed writes
	Flushes int64 // Committed transactions
}
