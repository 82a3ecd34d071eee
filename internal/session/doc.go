// Package session composes the client networking core.
//
// A Session owns one event bus, connection manager, codec and reconnection
// orchestrator, is the connection manager's Handler, and applies the
// recovery policies:
//
//   - soft timeout with a known token starts automatic reconnection
//   - unexpected disconnect reconnects when a token is known and reports
//     ConnectionLost otherwise
//   - a manual reconnection whose connection drops before the server
//     accepts the token reports ReconnectFailed
//   - a streak of unroutable events disconnects and reports ProtocolDesync
//   - ERR 107 (nickname taken) disconnects
//   - a resumed session without room or game state refreshes the room list
package session
