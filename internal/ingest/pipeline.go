package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tickstream/tick-ingestor/internal/connection"
	"github.com/tickstream/tick-ingestor/internal/metrics"
	"github.com/tickstream/tick-ingestor/internal/model"
	"github.com/tickstream/tick-ingestor/internal/router"
)

// Errors
var (
	ErrSubscribeFailed = errors.New("subscribe failed")
	ErrFeedFailed      = errors.New("feed failed")
	ErrFeedClosed      = errors.New("feed message stream closed")
	ErrHeartbeatFailed = errors.New("heartbeat failed")
)

// Feed is the upstream subscription consumed by the pipeline.
type Feed interface {
	Subscribe(ctx context.Context, symbols []string) error
	Heartbeat() error
	Messages() <-chan connection.TimestampedMessage
	Errors() <-chan error
	Close() error
}

// Sink persists one full batch atomically.
type Sink interface {
	Write(ctx context.Context, records []model.PriceRecord) error
}

// Config holds pipeline configuration.
type Config struct {
	BatchSize         int           // Records per flush (default: 3)
	HeartbeatInterval time.Duration // Outbound heartbeat period (default: 10s)
	FlushOnShutdown   bool          // Persist a partial batch on shutdown instead of dropping it
	HaltOnWriteError  bool          // Stop the run when a batch cannot be persisted
	ShutdownTimeout   time.Duration // Bound for the shutdown flush (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:         DefaultBatchSize,
		HeartbeatInterval: 10 * time.Second,
		ShutdownTimeout:   10 * time.Second,
	}
}

// Stats contains runtime statistics.
type Stats struct {
	MessagesReceived int64
	Prices           int64
	Heartbeats       int64
	Unrecognized     int64
	Malformed        int64
	HeartbeatsSent   int64
	Flushes          int64
	WriteErrors      int64
	RecordsDropped   int64
	BatchSize        int
}

// Pipeline owns the feed subscription, the batch and the heartbeat cadence.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger

	feed Feed
	sink Sink
	acc  *Accumulator

	mu    sync.Mutex
	stats Stats
}

// NewPipeline creates a new Pipeline.
func NewPipeline(cfg Config, feed Feed, sink Sink, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultConfig().HeartbeatInterval
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}
	return &Pipeline{
		cfg:    cfg,
		logger: logger,
		feed:   feed,
		sink:   sink,
		acc:    NewAccumulator(cfg.BatchSize),
	}
}

// Run subscribes and processes messages until ctx is cancelled or the feed
// fails. Cancellation is a clean stop and returns nil.
func (p *Pipeline) Run(ctx context.Context, symbols []string) error {
	p.logger.Info("connecting to feed", "symbols", symbols)
	if err := p.feed.Subscribe(ctx, symbols); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}
	defer p.feed.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.consumeLoop(gctx) })
	g.Go(func() error { return p.heartbeatLoop(gctx) })
	err := g.Wait()

	if serr := p.shutdown(); err == nil {
		err = serr
	}
	if err != nil {
		return err
	}
	p.logger.Info("ingestion stopped", "flushes", p.acc.FlushCount())
	return nil
}

// HandleMessage classifies one raw frame and applies it. It returns an
// error only when a failed write must stop ingestion.
func (p *Pipeline) HandleMessage(ctx context.Context, data []byte) error {
	p.mu.Lock()
	p.stats.MessagesReceived++
	p.mu.Unlock()

	ev, err := router.Classify(data)
	if err != nil {
		p.mu.Lock()
		p.stats.Malformed++
		p.mu.Unlock()
		metrics.RecordMalformed()
		p.logger.Warn("malformed event, dropping", "error", err)
		return nil
	}
	metrics.RecordMessage(string(ev.Kind()))

	switch e := ev.(type) {
	case router.PriceTick:
		return p.handlePrice(ctx, e)

	case router.Heartbeat:
		p.mu.Lock()
		p.stats.Heartbeats++
		p.mu.Unlock()
		p.logger.Info("heartbeat received",
			"at", time.Now().UTC().Format(time.TimeOnly),
			"status", e.Status,
		)

	case router.Unrecognized:
		p.mu.Lock()
		p.stats.Unrecognized++
		p.mu.Unlock()
		if len(e.FailedSymbols) > 0 {
			p.logger.Warn("feed rejected symbols", "symbols", e.FailedSymbols)
		}
		p.logger.Info("unrecognized event, ignoring", "event", e.RawKind)
	}

	return nil
}

// Stats returns current statistics.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	s := p.stats
	p.mu.Unlock()

	s.Flushes = p.acc.FlushCount()
	s.BatchSize = p.acc.Len()
	return s
}

func (p *Pipeline) consumeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-p.feed.Messages():
			if !ok {
				return p.feedEnded()
			}
			if err := p.HandleMessage(ctx, msg.Data); err != nil {
				return err
			}
		case err := <-p.feed.Errors():
			p.logger.Error("feed connection failed", "error", err)
			return fmt.Errorf("%w: %w", ErrFeedFailed, err)
		}
	}
}

// feedEnded reports why the message stream closed. A pending connection
// error takes precedence over a plain end of stream.
func (p *Pipeline) feedEnded() error {
	select {
	case err := <-p.feed.Errors():
		p.logger.Error("feed connection failed", "error", err)
		return fmt.Errorf("%w: %w", ErrFeedFailed, err)
	default:
		p.logger.Error("feed closed the stream")
		return ErrFeedClosed
	}
}

// heartbeatLoop pings the feed right away and then on every tick.
func (p *Pipeline) heartbeatLoop(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		if err := p.sendHeartbeat(); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (p *Pipeline) sendHeartbeat() error {
	err := p.feed.Heartbeat()
	metrics.RecordHeartbeat(err)
	if err != nil {
		p.logger.Error("heartbeat send failed", "error", err)
		return fmt.Errorf("%w: %w", ErrHeartbeatFailed, err)
	}

	p.mu.Lock()
	p.stats.HeartbeatsSent++
	p.mu.Unlock()
	p.logger.Info("heartbeat sent", "at", time.Now().UTC().Format(time.TimeOnly))
	return nil
}

func (p *Pipeline) handlePrice(ctx context.Context, tick router.PriceTick) error {
	rec := tick.Record()

	status, batch, err := p.acc.AppendAndDrain(rec)
	if err != nil {
		// Unreachable while every append goes through AppendAndDrain.
		return fmt.Errorf("append record: %w", err)
	}

	p.mu.Lock()
	p.stats.Prices++
	p.mu.Unlock()
	metrics.SetPendingRecords(p.acc.Len())

	p.logger.Info("price tick",
		"time", rec.ObservedAt.Format(time.DateTime),
		"symbol", rec.Symbol,
		"price", rec.Price.String(),
		"day_volume", rec.VolumeString(),
		"batch_size", status.Size,
	)

	if batch == nil {
		return nil
	}
	// Cancellation must not abort a write already in progress; the sink
	// applies its own timeout.
	return p.flush(context.WithoutCancel(ctx), batch)
}

// flush writes a drained batch under ctx.
func (p *Pipeline) flush(ctx context.Context, batch []model.PriceRecord) error {
	batchID := uuid.New()
	start := time.Now()

	if err := p.sink.Write(ctx, batch); err != nil {
		p.mu.Lock()
		p.stats.WriteErrors++
		p.stats.RecordsDropped += int64(len(batch))
		p.mu.Unlock()
		metrics.RecordWriteError()
		metrics.RecordDropped(metrics.ReasonWriteFailed, len(batch))

		p.logger.Error("batch insert failed, records lost",
			"batch_id", batchID,
			"records", len(batch),
			"error", err,
		)
		if p.cfg.HaltOnWriteError {
			return fmt.Errorf("write batch %s: %w", batchID, err)
		}
		return nil
	}

	n := p.acc.MarkFlushed()
	elapsed := time.Since(start)
	metrics.RecordFlush(len(batch), elapsed)

	p.logger.Info("batch inserted",
		"insert", n,
		"records", len(batch),
		"batch_id", batchID,
		"duration", elapsed,
	)
	return nil
}

// shutdown disposes of the partial batch left when the loop stops. A
// shutdown flush is bounded by ShutdownTimeout.
func (p *Pipeline) shutdown() error {
	rest := p.acc.Drain()
	metrics.SetPendingRecords(0)
	if len(rest) == 0 {
		return nil
	}

	if p.cfg.FlushOnShutdown {
		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.ShutdownTimeout)
		defer cancel()
		p.logger.Info("flushing partial batch on shutdown", "records", len(rest))
		return p.flush(ctx, rest)
	}

	p.mu.Lock()
	p.stats.RecordsDropped += int64(len(rest))
	p.mu.Unlock()
	metrics.RecordDropped(metrics.ReasonShutdown, len(rest))
	p.logger.Warn("dropping partial batch on shutdown", "records", len(rest))
	return nil
}
