// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Feed connection state, inbound messages by kind, dropped frames
//   - Malformed price events
//   - Batch flushes, flush latency, rows written, write failures
//   - Records lost to failed writes or shutdown
//   - Outbound heartbeats
package metrics
