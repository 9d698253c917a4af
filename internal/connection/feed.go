package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tickstream/tick-ingestor/internal/metrics"
)

// Feed is a single-session price subscription. It dials on the first
// Subscribe and never reconnects: once the connection ends, Messages is
// closed and any cause is delivered on Errors first.
type Feed struct {
	cfg    FeedConfig
	logger *slog.Logger

	messages chan TimestampedMessage
	errs     chan error
	done     chan struct{} // closed by Close
	readDone chan struct{} // closed when the read side stops

	writeMu sync.Mutex

	mu      sync.RWMutex
	conn    *websocket.Conn
	state   state
	symbols []string
}

// NewFeed creates a feed. Nothing is dialed until Subscribe.
func NewFeed(cfg FeedConfig, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultFeedConfig()
	if cfg.URL == "" {
		cfg.URL = defaults.URL
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = defaults.BufferSize
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}

	return &Feed{
		cfg:      cfg,
		logger:   logger,
		messages: make(chan TimestampedMessage, cfg.BufferSize),
		errs:     make(chan error, 1),
		done:     make(chan struct{}),
		readDone: make(chan struct{}),
	}
}

// BuildURL appends the API key to the feed URL.
func BuildURL(rawURL, apiKey string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse feed url: %w", err)
	}
	if apiKey != "" {
		q := u.Query()
		q.Set("apikey", apiKey)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Subscribe connects if needed and subscribes to the given symbols.
func (f *Feed) Subscribe(ctx context.Context, symbols []string) error {
	if len(symbols) == 0 {
		return ErrNoSymbols
	}
	if err := f.dial(ctx); err != nil {
		return err
	}

	err := f.send(Action{
		Action: "subscribe",
		Params: &SubscribeParams{Symbols: strings.Join(symbols, ",")},
	})
	if err != nil {
		return fmt.Errorf("send subscribe: %w", err)
	}

	f.mu.Lock()
	f.symbols = append([]string(nil), symbols...)
	f.mu.Unlock()
	f.logger.Info("subscribed to feed", "symbols", symbols)
	return nil
}

// Heartbeat sends an application-level liveness ping.
func (f *Feed) Heartbeat() error {
	return f.send(Action{Action: "heartbeat"})
}

// Messages returns inbound frames. The channel is closed when the
// connection ends or the feed is closed.
func (f *Feed) Messages() <-chan TimestampedMessage {
	return f.messages
}

// Errors delivers at most one error: the reason the connection ended.
// A normal close by the server or by Close delivers none.
func (f *Feed) Errors() <-chan error {
	return f.errs
}

// IsConnected reports whether frames are flowing.
func (f *Feed) IsConnected() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state == stateOpen
}

// Symbols returns the currently subscribed symbols.
func (f *Feed) Symbols() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string(nil), f.symbols...)
}

// Close sends a close frame and tears down the connection. It is safe to
// call more than once.
func (f *Feed) Close() error {
	f.mu.Lock()
	prev := f.state
	if prev == stateClosed {
		f.mu.Unlock()
		return nil
	}
	f.state = stateClosed
	conn := f.conn
	f.mu.Unlock()

	close(f.done)
	if prev == stateIdle {
		// No reader was started to close the stream.
		close(f.messages)
		return nil
	}

	metrics.SetFeedConnected(false)
	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	err := conn.Close()
	<-f.readDone
	return err
}

func (f *Feed) dial(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case stateOpen:
		return nil
	case stateEnded:
		return ErrNotConnected
	case stateClosed:
		return ErrAlreadyClosed
	}

	target, err := BuildURL(f.cfg.URL, f.cfg.APIKey)
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial feed: %s: %w", resp.Status, err)
		}
		return fmt.Errorf("dial feed: %w", err)
	}

	// Any inbound frame, ping or pong proves the peer is alive.
	f.extendReadDeadline(conn)
	conn.SetPongHandler(func(string) error {
		return f.extendReadDeadline(conn)
	})
	conn.SetPingHandler(func(data string) error {
		f.extendReadDeadline(conn)
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(f.cfg.WriteTimeout))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	f.conn = conn
	f.state = stateOpen
	metrics.SetFeedConnected(true)

	go f.readFrames(conn)
	go f.keepalive(conn)

	f.logger.Debug("websocket connected", "url", f.cfg.URL)
	return nil
}

func (f *Feed) send(a Action) error {
	f.mu.RLock()
	conn, open := f.conn, f.state == stateOpen
	f.mu.RUnlock()
	if !open {
		return ErrNotConnected
	}

	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(f.cfg.WriteTimeout))
	return conn.WriteJSON(a)
}

// readFrames is the only sender on messages and closes it on exit.
func (f *Feed) readFrames(conn *websocket.Conn) {
	defer func() {
		f.mu.Lock()
		if f.state == stateOpen {
			f.state = stateEnded
		}
		f.mu.Unlock()
		metrics.SetFeedConnected(false)
		close(f.messages)
		close(f.readDone)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			f.readFailed(err)
			return
		}
		receivedAt := time.Now()
		f.extendReadDeadline(conn)

		select {
		case f.messages <- TimestampedMessage{Data: data, ReceivedAt: receivedAt}:
		default:
			metrics.RecordFrameDropped()
			f.logger.Warn("message buffer full, dropping message")
		}
	}
}

func (f *Feed) readFailed(err error) {
	select {
	case <-f.done:
		return
	default:
	}

	var netErr net.Error
	switch {
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		f.logger.Info("feed closed by server", "reason", err)
	case errors.As(err, &netErr) && netErr.Timeout():
		f.logger.Warn("no frames within ping timeout, connection stale", "timeout", f.cfg.PingTimeout)
		f.reportError(fmt.Errorf("%w: nothing received for %s", ErrStaleConnection, f.cfg.PingTimeout))
	default:
		f.reportError(fmt.Errorf("read frame: %w", err))
	}
}

// keepalive sends transport pings until the read side stops.
func (f *Feed) keepalive(conn *websocket.Conn) {
	if f.cfg.PingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(f.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.readDone:
			return
		case <-ticker.C:
			deadline := time.Now().Add(f.cfg.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				f.logger.Debug("failed to send ping", "error", err)
			}
		}
	}
}

func (f *Feed) extendReadDeadline(conn *websocket.Conn) error {
	if f.cfg.PingTimeout <= 0 {
		return nil
	}
	return conn.SetReadDeadline(time.Now().Add(f.cfg.PingTimeout))
}

func (f *Feed) reportError(err error) {
	select {
	case f.errs <- err:
	default:
	}
}
