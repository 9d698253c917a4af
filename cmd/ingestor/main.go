// ingestor subscribes to the Twelve Data price stream and writes ticks to
// TimescaleDB in fixed-size batches.
//
// Usage: go run ./cmd/ingestor [-config configs/ingestor.yaml] [-env-file .env]
//
// Exit codes: 0 after an operator interrupt, 1 on configuration or startup
// failure, 2 when the feed or the database fails at runtime.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tickstream/tick-ingestor/internal/config"
	"github.com/tickstream/tick-ingestor/internal/connection"
	"github.com/tickstream/tick-ingestor/internal/database"
	"github.com/tickstream/tick-ingestor/internal/ingest"
	"github.com/tickstream/tick-ingestor/internal/version"
	"github.com/tickstream/tick-ingestor/internal/writer"
)

const (
	exitOK      = 0
	exitStartup = 1
	exitRuntime = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before reading the environment")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return exitOK
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid -log-level %q: %v\n", *logLevel, err)
		return exitStartup
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting ingestor",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	if err := config.LoadDotEnv(*envFile); err != nil {
		logger.Error("failed to load env file", "error", err)
		return exitStartup
	}
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return exitStartup
	}

	logger.Info("configuration loaded",
		"symbols", cfg.Feed.Symbols,
		"table", cfg.Writer.Table,
		"batch_size", cfg.Writer.BatchSize,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	var interrupted atomic.Bool
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			interrupted.Store(true)
			cancel()
		case <-ctx.Done():
		}
	}()

	// Connect to database
	if db := cfg.Database.Timescale; db.DSN != "" {
		logger.Info("connecting to database", "dsn", true)
	} else {
		logger.Info("connecting to database",
			"host", db.Host,
			"port", db.Port,
			"database", db.Name,
		)
	}

	pool, err := database.Connect(ctx, cfg.Database.Timescale)
	if err != nil {
		return startupFailed("failed to connect to database", err, interrupted.Load(), logger)
	}
	defer pool.Close()

	logger.Info("database connected")

	priceWriter := writer.NewPriceWriter(writer.WriterConfig{
		Table:        cfg.Writer.Table,
		WriteTimeout: cfg.Writer.WriteTimeout,
	}, pool, logger)

	feed := connection.NewFeed(connection.FeedConfig{
		URL:          cfg.Feed.WSURL,
		APIKey:       cfg.Feed.APIKey,
		PingInterval: cfg.Feed.PingInterval,
		PingTimeout:  cfg.Feed.PingTimeout,
		WriteTimeout: cfg.Feed.WriteTimeout,
		BufferSize:   cfg.Feed.BufferSize,
	}, logger)
	defer feed.Close()

	pipeline := ingest.NewPipeline(ingest.Config{
		BatchSize:         cfg.Writer.BatchSize,
		HeartbeatInterval: cfg.Feed.HeartbeatInterval,
		FlushOnShutdown:   cfg.Ingest.FlushOnShutdown,
		HaltOnWriteError:  cfg.Ingest.HaltOnWriteError,
		ShutdownTimeout:   cfg.Ingest.ShutdownTimeout,
	}, feed, priceWriter, logger)

	healthServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:           newHealthHandler(pool, feed, pipeline, cfg.Metrics.Path, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return pipeline.Run(gctx, cfg.Feed.Symbols)
	})
	g.Go(func() error {
		logger.Info("starting health server", "port", cfg.Metrics.Port)
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return healthServer.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	stats := pipeline.Stats()
	writerStats := priceWriter.Stats()
	logger.Info("ingestor stopped",
		"messages", stats.MessagesReceived,
		"prices", stats.Prices,
		"flushes", stats.Flushes,
		"rows_written", writerStats.Inserts,
		"write_errors", stats.WriteErrors,
		"records_dropped", stats.RecordsDropped,
	)

	return exitCode(err, interrupted.Load(), logger)
}

func exitCode(err error, interrupted bool, logger *slog.Logger) int {
	switch {
	case err == nil && interrupted:
		return exitOK
	case err == nil:
		logger.Error("ingestion ended without an interrupt")
		return exitRuntime
	case errors.Is(err, ingest.ErrSubscribeFailed):
		return startupFailed("failed to subscribe to feed", err, interrupted, logger)
	default:
		logger.Error("ingestion failed", "error", err)
		return exitRuntime
	}
}

// startupFailed maps a failed startup step to an exit code. A step cut short
// by an operator interrupt still exits cleanly.
func startupFailed(msg string, err error, interrupted bool, logger *slog.Logger) int {
	if interrupted {
		logger.Info("interrupted during startup", "step", msg, "error", err)
		return exitOK
	}
	logger.Error(msg, "error", err)
	return exitStartup
}
