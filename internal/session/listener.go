package session

import "github.com/rickgao/rps-client/internal/protocol"

// Listener receives session notifications. Methods run on core goroutines
// and must not block.
type Listener interface {
	// OnReconnected reports a successful session resumption.
	OnReconnected(s protocol.ResumedSession)

	// OnReconnectFailed reports that automatic reconnection gave up, the
	// token was rejected, or a manual attempt lost its connection. The user
	// has to act manually.
	OnReconnectFailed()

	// OnConnectionLost reports an unexpected disconnect with no session
	// token to resume with.
	OnConnectionLost(err error)

	// OnProtocolDesync reports that the session was dropped after too many
	// unroutable server messages.
	OnProtocolDesync()
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are ignored.
type ListenerFuncs struct {
	Reconnected     func(protocol.ResumedSession)
	ReconnectFailed func()
	ConnectionLost  func(error)
	ProtocolDesync  func()
}

func (l ListenerFuncs) OnReconnected(s protocol.ResumedSession) {
	if l.Reconnected != nil {
		l.Reconnected(s)
	}
}

func (l ListenerFuncs) OnReconnectFailed() {
	if l.ReconnectFailed != nil {
		l.ReconnectFailed()
	}
}

func (l ListenerFuncs) OnConnectionLost(err error) {
	if l.ConnectionLost != nil {
		l.ConnectionLost(err)
	}
}

func (l ListenerFuncs) OnProtocolDesync() {
	if l.ProtocolDesync != nil {
		l.ProtocolDesync()
	}
}
