// streamtest connects to the Twelve Data WebSocket and prints classified
// events to the console. Nothing is written to the database.
// Usage: go run ./cmd/streamtest -symbols BTC/USD,AAPL
//
// Required environment variables:
//
//	TWELVE_DATA_SECRET_API_KEY - API key from the Twelve Data dashboard
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tickstream/tick-ingestor/internal/config"
	"github.com/tickstream/tick-ingestor/internal/connection"
	"github.com/tickstream/tick-ingestor/internal/router"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before reading the environment")
	symbols := flag.String("symbols", "", "comma-separated symbols, overrides config")
	verbose := flag.Bool("verbose", false, "print raw message JSON")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// Load config
	if err := config.LoadDotEnv(*envFile); err != nil {
		logger.Error("failed to load env file", "error", err)
		os.Exit(1)
	}
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *symbols != "" {
		cfg.Feed.Symbols = config.ParseSymbols(*symbols)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	feed := connection.NewFeed(connection.FeedConfig{
		URL:          cfg.Feed.WSURL,
		APIKey:       cfg.Feed.APIKey,
		PingInterval: cfg.Feed.PingInterval,
		PingTimeout:  cfg.Feed.PingTimeout,
		WriteTimeout: cfg.Feed.WriteTimeout,
		BufferSize:   cfg.Feed.BufferSize,
	}, logger)
	defer feed.Close()

	logger.Info("subscribing", "symbols", cfg.Feed.Symbols)
	if err := feed.Subscribe(ctx, cfg.Feed.Symbols); err != nil {
		logger.Error("failed to subscribe", "error", err)
		os.Exit(1)
	}

	heartbeat := time.NewTicker(cfg.Feed.HeartbeatInterval)
	defer heartbeat.Stop()

	var prices, heartbeats, other, malformed int
	logger.Info("streaming started - press Ctrl+C to stop")

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutdown complete",
				"prices", prices,
				"heartbeats", heartbeats,
				"other", other,
				"malformed", malformed,
			)
			return

		case <-heartbeat.C:
			if err := feed.Heartbeat(); err != nil {
				logger.Error("heartbeat send failed", "error", err)
				os.Exit(2)
			}

		case err := <-feed.Errors():
			logger.Error("feed failed", "error", err)
			os.Exit(2)

		case msg, ok := <-feed.Messages():
			if !ok {
				select {
				case err := <-feed.Errors():
					logger.Error("feed failed", "error", err)
					os.Exit(2)
				default:
				}
				logger.Info("feed closed the stream")
				os.Exit(2)
			}
			if *verbose {
				fmt.Printf("[RAW] %s\n", msg.Data)
			}

			ev, err := router.Classify(msg.Data)
			if err != nil {
				malformed++
				fmt.Printf("[MALFORMED] %v\n", err)
				continue
			}

			switch e := ev.(type) {
			case router.PriceTick:
				prices++
				rec := e.Record()
				fmt.Printf("[PRICE] %s symbol=%s price=%s day_volume=%s latency=%s\n",
					rec.ObservedAt.Format(time.DateTime), rec.Symbol, rec.Price, rec.VolumeString(),
					msg.ReceivedAt.Sub(rec.ObservedAt).Round(time.Millisecond))
			case router.Heartbeat:
				heartbeats++
				fmt.Printf("[HEARTBEAT] status=%s\n", e.Status)
			case router.Unrecognized:
				other++
				fmt.Printf("[OTHER] event=%s failed=%v\n", e.RawKind, e.FailedSymbols)
			}
		}
	}
}
