// Package reconnect re-establishes a game session after the connection is
// lost, using the session token the server issued on WELCOME.
//
// An Orchestrator is Idle, AutoReconnecting or ManualReconnecting. Automatic
// reconnection retries on a fixed interval until the server answers
// RECONNECT_OK, rejects the token, or the reconnect window runs out. A
// manual reconnection is a single attempt whose transport error is returned
// to the caller.
package reconnect
