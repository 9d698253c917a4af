// Package connection implements the upstream price feed connection.
//
// A Feed owns one WebSocket session to the Twelve Data price stream:
//   - Subscribe dials on first use and sends the subscribe action
//   - Heartbeat sends the application-level heartbeat action
//   - Transport pings go out every PingInterval; any inbound frame, ping or
//     pong extends the read deadline, and missing it marks the session stale
//   - Every inbound frame is delivered, timestamped, on Messages
//
// There is no reconnection. When the session ends, the cause (if any) is
// sent on Errors and then Messages is closed.
package connection
