package router

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tickstream/tick-ingestor/internal/model"
)

// Errors
var (
	ErrMalformedMessage = errors.New("message is not a JSON object")
	ErrMissingField     = errors.New("required field missing")
	ErrInvalidField     = errors.New("field has invalid value")
)

// EventKind names the variant of a classified event.
type EventKind string

const (
	KindPrice        EventKind = "price"
	KindHeartbeat    EventKind = "heartbeat"
	KindUnrecognized EventKind = "unrecognized"
)

// Event is a classified feed message. The concrete type is one of
// PriceTick, Heartbeat or Unrecognized.
type Event interface {
	Kind() EventKind
	isEvent()
}

// PriceTick is a single price observation from the feed.
type PriceTick struct {
	Timestamp int64               // Epoch seconds (feed "timestamp")
	Symbol    string              // e.g. "BTC/USD"
	Price     decimal.Decimal     // Exact wire value
	DayVolume decimal.NullDecimal // Valid=false when the feed omitted it
}

func (PriceTick) Kind() EventKind { return KindPrice }
func (PriceTick) isEvent()        {}

// Record converts the tick to the persisted form.
func (t PriceTick) Record() model.PriceRecord {
	return model.NewPriceRecord(t.Timestamp, t.Symbol, t.Price, t.DayVolume)
}

// Heartbeat is the feed's reply to a liveness ping.
type Heartbeat struct {
	Status string // "ok" or "error"
}

func (Heartbeat) Kind() EventKind { return KindHeartbeat }
func (Heartbeat) isEvent()        {}

// Unrecognized is any message whose "event" is not price or heartbeat.
type Unrecognized struct {
	RawKind string // Value of "event", empty when missing

	// Symbols the feed refused, set for "subscribe-status" messages only.
	FailedSymbols []string
}

func (Unrecognized) Kind() EventKind { return KindUnrecognized }
func (Unrecognized) isEvent()        {}

// FieldError reports which field of a price event could not be used.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
