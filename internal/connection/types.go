package connection

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrNoSymbols       = errors.New("no symbols to subscribe")
)

// DefaultURL is the Twelve Data real-time price endpoint.
const DefaultURL = "wss://ws.twelvedata.com/v1/quotes/price"

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// Action is a command sent to the feed.
type Action struct {
	Action string           `json:"action"` // "subscribe", "unsubscribe", "reset", "heartbeat"
	Params *SubscribeParams `json:"params,omitempty"`
}

// SubscribeParams are parameters for subscribe/unsubscribe actions.
type SubscribeParams struct {
	Symbols string `json:"symbols"` // Comma-separated, e.g. "BTC/USD,AAPL"
}

// FeedConfig configures the feed connection.
type FeedConfig struct {
	URL          string        // WebSocket URL, without the apikey parameter
	APIKey       string        // Sent as the apikey query parameter
	PingInterval time.Duration // Interval between transport-level pings (0 disables)
	PingTimeout  time.Duration // Read deadline; no frame or pong within it means stale (0 disables)
	WriteTimeout time.Duration // Write deadline for actions and control frames
	BufferSize   int           // Inbound frame buffer; frames beyond it are dropped
}

// DefaultFeedConfig returns sensible defaults.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		URL:          DefaultURL,
		PingInterval: 30 * time.Second,
		PingTimeout:  90 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   1000,
	}
}

// state is the lifecycle of a Feed. It only moves forward.
type state int

const (
	stateIdle   state = iota // not dialed yet
	stateOpen                // dialed, frames flowing
	stateEnded               // read side stopped; Messages is closed
	stateClosed              // Close called
)
