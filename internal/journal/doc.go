// Package journal records every received protocol event for diagnostics.
//
// A Writer is fed from a wildcard bus subscription. Entries are queued
// without blocking the reader goroutine, batched, and flushed to a Sink on
// size or on a timer. PostgresSink stores them in the protocol_events
// table. Nothing is ever read back: the journal plays no part in session
// resumption.
package journal
