// Package model defines the data types persisted by the tick ingestor.
//
// Conventions:
//   - Timestamps: time.Time in UTC, derived from feed epoch seconds
//   - Prices and volumes: decimal.Decimal, exact as received on the wire
//   - Symbols: feed identifiers as-is (e.g. "BTC/USD", "AAPL")
package model
