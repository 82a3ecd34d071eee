// Package connection implements the Connection Manager component.
//
// The Connection Manager:
//   - Owns at most one live transport (TCP or WebSocket) at a time
//   - Reads CRLF-terminated lines on a dedicated reader goroutine
//   - Flushes outgoing lines in order from a single writer queue
//   - Watches inactivity and raises soft and hard timeouts once per idle episode
//   - Reports unexpected loss exactly once per connection through its Handler
//
// Every Connect replaces the previous connection wholesale. Callbacks are
// never delivered for a connection that was closed intentionally or
// replaced, so a slow reader of an old socket cannot leak events into the
// new one.
package connection
