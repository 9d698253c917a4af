package router

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

const (
	eventPrice           = "price"
	eventHeartbeat       = "heartbeat"
	eventSubscribeStatus = "subscribe-status"
)

// maxEpochSeconds is 9999-12-31T23:59:59Z, the last second a timestamptz
// column accepts in the common range.
const maxEpochSeconds = 253402300799

var maxTimestamp = decimal.NewFromInt(maxEpochSeconds)

// Classify inspects a raw feed message and returns its typed form.
// A non-nil error means the message is unusable and must be dropped.
func Classify(data []byte) (Event, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrMalformedMessage
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, ErrMalformedMessage
	}

	event := root.Get("event")
	if event.Type != gjson.String {
		// Missing or non-string "event": keep the raw token for diagnosis.
		return Unrecognized{RawKind: event.Raw}, nil
	}

	switch event.Str {
	case eventPrice:
		return parsePriceTick(root)
	case eventHeartbeat:
		return Heartbeat{Status: root.Get("status").String()}, nil
	case eventSubscribeStatus:
		return Unrecognized{RawKind: event.Str, FailedSymbols: failedSymbols(root)}, nil
	default:
		return Unrecognized{RawKind: event.Str}, nil
	}
}

// ClassifyMap classifies an already-decoded message.
func ClassifyMap(msg map[string]any) (Event, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return Classify(data)
}

// parsePriceTick refuses values the store would reject: a single bad row
// fails the whole multi-row insert.
func parsePriceTick(root gjson.Result) (Event, error) {
	ts, err := requiredDecimal(root, "timestamp")
	if err != nil {
		return nil, err
	}
	if ts.IsNegative() || ts.GreaterThan(maxTimestamp) {
		return nil, &FieldError{Field: "timestamp", Err: ErrInvalidField}
	}

	symbol := root.Get("symbol")
	if !present(symbol) {
		return nil, &FieldError{Field: "symbol", Err: ErrMissingField}
	}
	if symbol.Type != gjson.String || !validText(symbol.Str) {
		return nil, &FieldError{Field: "symbol", Err: ErrInvalidField}
	}

	price, err := requiredDecimal(root, "price")
	if err != nil {
		return nil, err
	}
	if !finite(price) {
		return nil, &FieldError{Field: "price", Err: ErrInvalidField}
	}

	var volume decimal.NullDecimal
	if v := root.Get("day_volume"); present(v) {
		d, err := toDecimal(v)
		if err != nil || !finite(d) {
			return nil, &FieldError{Field: "day_volume", Err: ErrInvalidField}
		}
		volume = decimal.NewNullDecimal(d)
	}

	return PriceTick{
		// Fractional seconds are truncated; the feed sends whole seconds.
		Timestamp: ts.IntPart(),
		Symbol:    symbol.Str,
		Price:     price,
		DayVolume: volume,
	}, nil
}

// validText reports whether s can be stored in a TEXT column.
func validText(s string) bool {
	return s != "" && utf8.ValidString(s) && !strings.ContainsRune(s, 0)
}

// finite reports whether d survives conversion to DOUBLE PRECISION.
func finite(d decimal.Decimal) bool {
	return !math.IsInf(d.InexactFloat64(), 0)
}

func requiredDecimal(root gjson.Result, field string) (decimal.Decimal, error) {
	v := root.Get(field)
	if !present(v) {
		return decimal.Decimal{}, &FieldError{Field: field, Err: ErrMissingField}
	}
	d, err := toDecimal(v)
	if err != nil {
		return decimal.Decimal{}, &FieldError{Field: field, Err: ErrInvalidField}
	}
	return d, nil
}

// toDecimal accepts JSON numbers and numeric strings.
func toDecimal(v gjson.Result) (decimal.Decimal, error) {
	switch v.Type {
	case gjson.Number:
		return decimal.NewFromString(v.Raw)
	case gjson.String:
		return decimal.NewFromString(v.Str)
	default:
		return decimal.Decimal{}, ErrInvalidField
	}
}

func present(v gjson.Result) bool {
	return v.Exists() && v.Type != gjson.Null
}

func failedSymbols(root gjson.Result) []string {
	var out []string
	root.Get("fails").ForEach(func(_, item gjson.Result) bool {
		if sym := item.Get("symbol"); sym.Exists() {
			out = append(out, sym.String())
		} else {
			out = append(out, item.String())
		}
		return true
	})
	return out
}
