package writer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tickstream/tick-ingestor/internal/model"
)

// TxBeginner starts transactions. *pgxpool.Pool and *pgx.Conn satisfy it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PriceWriter writes batches of price records to the time-series table.
// It is safe for concurrent use, though the ingest loop calls it serially.
type PriceWriter struct {
	cfg    WriterConfig
	logger *slog.Logger

	db TxBeginner

	mu      sync.Mutex
	metrics WriterMetrics
}

// NewPriceWriter creates a new PriceWriter.
func NewPriceWriter(cfg WriterConfig, db TxBeginner, logger *slog.Logger) *PriceWriter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Table == "" {
		cfg.Table = DefaultWriterConfig().Table
	}
	return &PriceWriter{
		cfg:    cfg,
		db:     db,
		logger: logger,
	}
}

// Write inserts all records in one statement and commits. On any failure the
// transaction is rolled back and the returned error wraps ErrPersistence.
func (w *PriceWriter) Write(ctx context.Context, records []model.PriceRecord) error {
	if len(records) == 0 {
		return ErrEmptyBatch
	}
	if w.db == nil {
		return fmt.Errorf("%w: %w", ErrPersistence, ErrNoDatabase)
	}

	if w.cfg.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.WriteTimeout)
		defer cancel()
	}

	start := time.Now()
	if err := w.insert(ctx, records); err != nil {
		w.mu.Lock()
		w.metrics.Errors++
		w.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	w.mu.Lock()
	w.metrics.Inserts += int64(len(records))
	w.metrics.Flushes++
	w.mu.Unlock()

	w.logger.Debug("flushed prices",
		"table", w.cfg.Table,
		"count", len(records),
		"duration", time.Since(start),
	)
	return nil
}

// Stats returns current metrics.
func (w *PriceWriter) Stats() WriterMetrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.metrics
}

func (w *PriceWriter) insert(ctx context.Context, records []model.PriceRecord) error {
	tx, err := w.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// No-op once committed.
	defer tx.Rollback(context.WithoutCancel(ctx))

	sql, args := buildInsert(w.cfg.Table, records)
	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	if tag.RowsAffected() != int64(len(records)) {
		return fmt.Errorf("insert batch: %d rows affected, want %d", tag.RowsAffected(), len(records))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// buildInsert renders a single multi-row INSERT with positional parameters.
func buildInsert(table string, records []model.PriceRecord) (string, []any) {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(pgx.Identifier(strings.Split(table, ".")).Sanitize())
	sb.WriteString(" (")
	for i, col := range Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(pgx.Identifier{col}.Sanitize())
	}
	sb.WriteString(") VALUES ")

	args := make([]any, 0, len(records)*len(Columns))
	for i, r := range records {
		if i > 0 {
			sb.WriteString(", ")
		}
		n := i * len(Columns)
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4)
		args = append(args, r.ObservedAt, r.Symbol, r.Price.InexactFloat64(), volumeArg(r))
	}

	return sb.String(), args
}

// volumeArg maps an absent day volume to SQL NULL.
func volumeArg(r model.PriceRecord) any {
	if !r.DayVolume.Valid {
		return nil
	}
	return r.DayVolume.Decimal.InexactFloat64()
}
