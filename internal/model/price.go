package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceRecord is a single price observation ready to be written to the store.
// ObservedAt, Symbol and Price are always set; DayVolume may be null.
type PriceRecord struct {
	ObservedAt time.Time           // UTC instant of the feed timestamp
	Symbol     string              // Feed symbol (e.g., "BTC/USD")
	Price      decimal.Decimal     // Last price
	DayVolume  decimal.NullDecimal // Cumulative day volume, Valid=false when absent
}

// NewPriceRecord builds a record from feed epoch seconds.
func NewPriceRecord(epochSeconds int64, symbol string, price decimal.Decimal, dayVolume decimal.NullDecimal) PriceRecord {
	return PriceRecord{
		ObservedAt: time.Unix(epochSeconds, 0).UTC(),
		Symbol:     symbol,
		Price:      price,
		DayVolume:  dayVolume,
	}
}

// VolumeString renders the day volume for status output ("None" when absent).
func (r PriceRecord) VolumeString() string {
	if !r.DayVolume.Valid {
		return "None"
	}
	return r.DayVolume.Decimal.String()
}
