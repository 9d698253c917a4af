package router

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_PriceTick(t *testing.T) {
	data := []byte(`{"event":"price","symbol":"BTC/USD","currency_base":"Bitcoin","exchange":"Coinbase Pro","type":"Digital Currency","timestamp":1700000000,"price":65000.5,"day_volume":1234.0}`)

	ev, err := Classify(data)
	require.NoError(t, err)
	tick, ok := ev.(PriceTick)
	require.True(t, ok, "Classify() = %T, want PriceTick", ev)

	assert.Equal(t, KindPrice, tick.Kind())
	assert.Equal(t, int64(1700000000), tick.Timestamp)
	assert.Equal(t, "BTC/USD", tick.Symbol)
	assert.True(t, tick.Price.Equal(decimal.RequireFromString("65000.5")), "Price = %s", tick.Price)
	require.True(t, tick.DayVolume.Valid)
	assert.True(t, tick.DayVolume.Decimal.Equal(decimal.NewFromInt(1234)), "DayVolume = %s", tick.DayVolume.Decimal)

	rec := tick.Record()
	assert.True(t, rec.ObservedAt.Equal(time.Unix(1700000000, 0)), "ObservedAt = %v", rec.ObservedAt)
	assert.Equal(t, time.UTC, rec.ObservedAt.Location())
	assert.Equal(t, "BTC/USD", rec.Symbol)
	assert.True(t, rec.Price.Equal(tick.Price))
}

func TestClassify_MissingDayVolume(t *testing.T) {
	for _, data := range []string{
		`{"event":"price","symbol":"AAPL","timestamp":1700000000,"price":189.7}`,
		`{"event":"price","symbol":"AAPL","timestamp":1700000000,"price":189.7,"day_volume":null}`,
	} {
		ev, err := Classify([]byte(data))
		require.NoError(t, err, data)
		tick := ev.(PriceTick)
		assert.False(t, tick.DayVolume.Valid, data)
		assert.Equal(t, "None", tick.Record().VolumeString())
	}
}

func TestClassify_StringNumbers(t *testing.T) {
	ev, err := Classify([]byte(`{"event":"price","symbol":"ETH/USD","timestamp":"1700000001","price":"3120.25","day_volume":"10"}`))
	require.NoError(t, err)

	tick := ev.(PriceTick)
	assert.Equal(t, int64(1700000001), tick.Timestamp)
	assert.Equal(t, "3120.25", tick.Price.String())
}

func TestClassify_TimestampBounds(t *testing.T) {
	for _, ts := range []string{"0", "1700000000.9", "253402300799"} {
		ev, err := Classify([]byte(`{"event":"price","symbol":"MSFT","price":1,"timestamp":` + ts + `}`))
		require.NoError(t, err, ts)
		assert.Equal(t, decimal.RequireFromString(ts).IntPart(), ev.(PriceTick).Timestamp, ts)
	}
}

func TestClassify_MalformedPrice(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		field   string
		wantErr error
	}{
		{
			name:    "missing symbol",
			data:    `{"event":"price","timestamp":1700000000,"price":1.5}`,
			field:   "symbol",
			wantErr: ErrMissingField,
		},
		{
			name:    "missing timestamp",
			data:    `{"event":"price","symbol":"MSFT","price":1.5}`,
			field:   "timestamp",
			wantErr: ErrMissingField,
		},
		{
			name:    "missing price",
			data:    `{"event":"price","symbol":"MSFT","timestamp":1700000000}`,
			field:   "price",
			wantErr: ErrMissingField,
		},
		{
			name:    "null price",
			data:    `{"event":"price","symbol":"MSFT","timestamp":1700000000,"price":null}`,
			field:   "price",
			wantErr: ErrMissingField,
		},
		{
			name:    "non-numeric price",
			data:    `{"event":"price","symbol":"MSFT","timestamp":1700000000,"price":"abc"}`,
			field:   "price",
			wantErr: ErrInvalidField,
		},
		{
			name:    "price overflows double",
			data:    `{"event":"price","symbol":"MSFT","timestamp":1700000000,"price":1e400}`,
			field:   "price",
			wantErr: ErrInvalidField,
		},
		{
			name:    "empty symbol",
			data:    `{"event":"price","symbol":"","timestamp":1700000000,"price":1}`,
			field:   "symbol",
			wantErr: ErrInvalidField,
		},
		{
			name:    "invalid utf-8 symbol",
			data:    "{\"event\":\"price\",\"symbol\":\"BTC\xff\xfe\",\"timestamp\":1700000000,\"price\":1}",
			field:   "symbol",
			wantErr: ErrInvalidField,
		},
		{
			name:    "nul in symbol",
			data:    `{"event":"price","symbol":"BTC\u0000USD","timestamp":1700000000,"price":1}`,
			field:   "symbol",
			wantErr: ErrInvalidField,
		},
		{
			name:    "timestamp beyond year 9999",
			data:    `{"event":"price","symbol":"MSFT","timestamp":1e20,"price":1}`,
			field:   "timestamp",
			wantErr: ErrInvalidField,
		},
		{
			name:    "one second past year 9999",
			data:    `{"event":"price","symbol":"MSFT","timestamp":253402300800,"price":1}`,
			field:   "timestamp",
			wantErr: ErrInvalidField,
		},
		{
			name:    "negative timestamp",
			data:    `{"event":"price","symbol":"MSFT","timestamp":-1,"price":1}`,
			field:   "timestamp",
			wantErr: ErrInvalidField,
		},
		{
			name:    "object day volume",
			data:    `{"event":"price","symbol":"MSFT","timestamp":1700000000,"price":1,"day_volume":{}}`,
			field:   "day_volume",
			wantErr: ErrInvalidField,
		},
		{
			name:    "day volume overflows double",
			data:    `{"event":"price","symbol":"MSFT","timestamp":1700000000,"price":1,"day_volume":"-1e999"}`,
			field:   "day_volume",
			wantErr: ErrInvalidField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Classify([]byte(tt.data))
			require.Error(t, err, "Classify() = %#v, want error", ev)
			assert.ErrorIs(t, err, tt.wantErr)

			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.field, fe.Field)
		})
	}
}

func TestClassify_PassThrough(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantKind EventKind
		rawKind  string
	}{
		{name: "heartbeat", data: `{"event":"heartbeat","status":"ok"}`, wantKind: KindHeartbeat},
		{name: "subscribe status", data: `{"event":"subscribe-status","status":"ok","success":[],"fails":[]}`, wantKind: KindUnrecognized, rawKind: "subscribe-status"},
		{name: "missing event", data: `{"symbol":"AAPL"}`, wantKind: KindUnrecognized, rawKind: ""},
		{name: "numeric event", data: `{"event":42}`, wantKind: KindUnrecognized, rawKind: "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Classify([]byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, ev.Kind())
			if u, ok := ev.(Unrecognized); ok {
				assert.Equal(t, tt.rawKind, u.RawKind)
			}
		})
	}
}

func TestClassify_SubscribeStatusFails(t *testing.T) {
	data := `{"event":"subscribe-status","status":"error","success":[{"symbol":"AAPL"}],"fails":[{"symbol":"NOPE/USD"},{"symbol":"XYZ"}]}`

	ev, err := Classify([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, []string{"NOPE/USD", "XYZ"}, ev.(Unrecognized).FailedSymbols)
}

func TestClassify_NotAnObject(t *testing.T) {
	for _, data := range []string{``, `not json`, `[1,2,3]`, `"price"`} {
		_, err := Classify([]byte(data))
		assert.ErrorIs(t, err, ErrMalformedMessage, "Classify(%q)", data)
	}
}

func TestClassifyMap(t *testing.T) {
	ev, err := ClassifyMap(map[string]any{
		"event":      "price",
		"timestamp":  1700000000,
		"symbol":     "BTC/USD",
		"price":      65000.5,
		"day_volume": 1234.0,
	})
	require.NoError(t, err)
	assert.True(t, ev.(PriceTick).Price.Equal(decimal.NewFromFloat(65000.5)))

	_, err = ClassifyMap(map[string]any{"event": "price", "timestamp": 1700000000, "price": 1.0})
	assert.ErrorIs(t, err, ErrMissingField)
}
