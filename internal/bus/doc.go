// Package bus routes events to subscribers by topic.
//
// A Bus is an injected instance, never a process-wide registry. Delivery is
// synchronous on the publishing goroutine: wildcard subscribers first, then
// subscribers of the event's command, each group in registration order.
// Handler panics are recovered and logged so one subscriber cannot break
// delivery to the others.
//
// The bus also tracks a streak of consecutive events that no topic
// subscriber handled. When the streak reaches the configured threshold the
// OnTooManyInvalid callback runs once and the streak starts over; a
// persistent streak of unknown commands usually means the two ends of the
// connection disagree about the protocol.
package bus
