// Package router classifies raw feed messages into typed events.
//
// Every inbound WebSocket frame becomes exactly one of:
//   - PriceTick: "event" == "price", carries timestamp/symbol/price and an optional day_volume
//   - Heartbeat: "event" == "heartbeat"
//   - Unrecognized: anything else, including a missing "event" field
//
// Field access is defensive: the feed enforces no schema, so a price event
// missing a required field is reported as a *FieldError instead of being
// defaulted. Classification has no side effects.
package router
