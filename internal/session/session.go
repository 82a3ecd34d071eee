package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/rickgao/rps-client/internal/bus"
	"github.com/rickgao/rps-client/internal/config"
	"github.com/rickgao/rps-client/internal/connection"
	"github.com/rickgao/rps-client/internal/journal"
	"github.com/rickgao/rps-client/internal/protocol"
	"github.com/rickgao/rps-client/internal/reconnect"
)

// Errors
var (
	ErrNoToken = errors.New("no session token")
	ErrClosed  = errors.New("session closed")
)

// Option configures a Session.
type Option func(*options)

type options struct {
	listener Listener
	journal  *journal.Writer
	dial     connection.DialFunc
}

// WithListener sets the notification listener.
func WithListener(l Listener) Option {
	return func(o *options) { o.listener = l }
}

// WithJournal records every received event into w.
func WithJournal(w *journal.Writer) Option {
	return func(o *options) { o.journal = w }
}

// WithDialer overrides the transport dialer.
func WithDialer(dial connection.DialFunc) Option {
	return func(o *options) { o.dial = dial }
}

// Session is the composed client networking core.
type Session struct {
	cfg      *config.ClientConfig
	logger   *slog.Logger
	listener Listener
	journal  *journal.Writer

	bus   *protocol.Bus
	conn  *connection.Manager
	codec *protocol.Codec
	orch  *reconnect.Orchestrator

	subs   []*bus.Subscription
	closed atomic.Bool
}

// New builds a session from cfg. Nothing is dialed until Connect.
func New(cfg *config.ClientConfig, logger *slog.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	o := options{listener: ListenerFuncs{}}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Session{
		cfg:      cfg,
		logger:   logger.With("component", "session"),
		listener: o.listener,
		journal:  o.journal,
	}

	s.bus = bus.New[protocol.Event](BusConfig(cfg), logger)

	var connOpts []connection.Option
	if o.dial != nil {
		connOpts = append(connOpts, connection.WithDialer(o.dial))
	}
	s.conn = connection.NewManager(ConnectionConfig(cfg), s, logger, connOpts...)

	// Journal first so it sees every event before any other subscriber.
	if s.journal != nil {
		s.subs = append(s.subs, s.bus.SubscribeAll(s.record))
	}

	s.codec = protocol.NewCodec(s.bus, s.conn, logger)
	s.orch = reconnect.New(ReconnectConfig(cfg), s.conn, s.codec, s.bus, logger)

	s.orch.OnReconnected(s.handleReconnected)
	s.orch.OnFailed(s.handleReconnectFailed)
	s.bus.OnTooManyInvalid(s.handleDesync)

	s.subs = append(s.subs,
		s.bus.Subscribe(protocol.CmdWelcome, s.handleWelcome),
		s.bus.Subscribe(protocol.CmdErr, s.handleServerError),
	)
	return s
}

// ConnectionConfig maps cfg onto the connection manager configuration.
func ConnectionConfig(cfg *config.ClientConfig) connection.Config {
	return connection.Config{
		Transport:        connection.TransportKind(cfg.Server.Transport),
		WSPath:           cfg.Server.WSPath,
		ConnectTimeout:   cfg.Timeouts.Connect,
		SoftTimeout:      cfg.Timeouts.Soft,
		HardTimeout:      cfg.Timeouts.Hard,
		WatchdogInterval: cfg.Timeouts.WatchdogInterval,
		WriteTimeout:     cfg.Timeouts.Write,
	}
}

// ReconnectConfig maps cfg onto the orchestrator configuration.
func ReconnectConfig(cfg *config.ClientConfig) reconnect.Config {
	return reconnect.Config{
		Interval: cfg.Reconnect.Interval,
		Window:   cfg.Reconnect.Window,
	}
}

// BusConfig maps cfg onto the bus configuration.
func BusConfig(cfg *config.ClientConfig) bus.Config {
	return bus.Config{InvalidThreshold: cfg.Bus.InvalidThreshold}
}

// JournalConfig maps cfg onto the journal writer configuration.
func JournalConfig(cfg *config.ClientConfig) journal.Config {
	return journal.Config{
		BatchSize:     cfg.Journal.BatchSize,
		FlushInterval: cfg.Journal.FlushInterval,
		BufferSize:    cfg.Journal.BufferSize,
	}
}

// Start starts background components. It does not connect.
func (s *Session) Start(ctx context.Context) error {
	if s.journal != nil {
		if err := s.journal.Start(ctx); err != nil {
			return fmt.Errorf("start journal: %w", err)
		}
	}
	return nil
}

// Connect dials the configured server and records it for reconnection.
func (s *Session) Connect(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	host, port := s.cfg.Server.Host, s.cfg.Server.Port
	if err := s.conn.Connect(ctx, host, port); err != nil {
		return fmt.Errorf("connect %s:%d: %w", host, port, err)
	}
	if err := s.orch.SetConnectionInfo(host, port); err != nil {
		return err
	}
	return nil
}

// Disconnect closes the connection intentionally and stops reconnecting.
func (s *Session) Disconnect() {
	s.orch.AbortAutoReconnect()
	s.conn.Disconnect()
}

// ManualReconnect makes one reconnection attempt with the stored token.
func (s *Session) ManualReconnect(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	token := s.Token()
	if token == "" {
		return ErrNoToken
	}
	return s.orch.ManualReconnect(ctx, token)
}

// Token returns the current session token, or "".
func (s *Session) Token() string {
	if t := s.orch.Token(); t != "" {
		return t
	}
	return s.codec.Token()
}

// Codec exposes the outgoing command surface.
func (s *Session) Codec() *protocol.Codec { return s.codec }

// Bus exposes the event bus for application subscriptions.
func (s *Session) Bus() *protocol.Bus { return s.bus }

// Subscribe registers handler for topic on the session bus.
func (s *Session) Subscribe(topic string, handler bus.Handler[protocol.Event]) *bus.Subscription {
	return s.bus.Subscribe(topic, handler)
}

// IsConnected reports whether a live connection exists.
func (s *Session) IsConnected() bool { return s.conn.IsConnected() }

// ReconnectState returns the orchestrator state.
func (s *Session) ReconnectState() reconnect.State { return s.orch.State() }

// ConnectionStats returns connection manager counters.
func (s *Session) ConnectionStats() connection.Stats { return s.conn.Stats() }

// Close shuts the core down. No events are delivered afterwards. The
// journal's final flush is bounded by ctx.
func (s *Session) Close(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.orch.AbortAutoReconnect()
	s.orch.Shutdown()
	s.conn.Disconnect()
	for _, sub := range s.subs {
		sub.Cancel()
	}
	s.codec.Close()
	s.bus.Close()

	if s.journal != nil {
		if err := s.journal.Stop(ctx); err != nil {
			return fmt.Errorf("stop journal: %w", err)
		}
	}
	s.logger.Info("session closed")
	return nil
}

// OnMessage implements connection.Handler.
func (s *Session) OnMessage(line string) {
	if s.closed.Load() {
		return
	}
	s.codec.HandleLine(line)
}

// OnSoftTimeout implements connection.Handler.
func (s *Session) OnSoftTimeout() {
	token := s.Token()
	if s.closed.Load() || token == "" || s.orch.State() != reconnect.StateIdle {
		return
	}
	s.logger.Info("connection idle, reconnecting speculatively")
	s.startAuto(token)
}

// OnHardTimeout implements connection.Handler.
func (s *Session) OnHardTimeout() {
	s.logger.Warn("connection dead, dropping it")
}

// OnDisconnect implements connection.Handler.
func (s *Session) OnDisconnect(err error) {
	if s.closed.Load() {
		return
	}
	if s.orch.ConnectionLost() {
		s.logger.Warn("manual reconnection dropped", "error", err)
		s.listener.OnReconnectFailed()
		return
	}
	token := s.Token()
	if token == "" {
		s.logger.Warn("connection lost", "error", err)
		s.listener.OnConnectionLost(err)
		return
	}
	s.startAuto(token)
}

func (s *Session) startAuto(token string) {
	if err := s.orch.StartAutoReconnect(token); err != nil {
		s.logger.Error("cannot start reconnection", "error", err)
	}
}

func (s *Session) record(ev protocol.Event) {
	var connID string
	if info, ok := s.conn.Info(); ok {
		connID = info.ID
	}
	s.journal.Record(ev, connID)
}

func (s *Session) handleWelcome(ev protocol.Event) {
	s.logger.Info("session established")
	if token := ev.Part(1); token != "" {
		if err := s.orch.SetToken(token); err != nil {
			s.logger.Warn("unusable session token", "error", err)
		}
	}
}

func (s *Session) handleServerError(ev protocol.Event) {
	serr, _ := protocol.Decode(ev).(protocol.ServerError)
	s.logger.Warn("server error", "code", serr.Code, "reason", serr.Reason, "detail", serr.Detail)

	if serr.Code == protocol.ErrCodeNicknameTaken {
		s.conn.Disconnect()
	}
}

func (s *Session) handleDesync() {
	if s.closed.Load() {
		return
	}
	s.logger.Error("too many unroutable messages, dropping connection")
	s.Disconnect()
	s.listener.OnProtocolDesync()
}

func (s *Session) handleReconnected(rs protocol.ResumedSession) {
	if s.closed.Load() {
		return
	}
	if rs.Kind == protocol.ResumeConnected {
		if err := s.codec.List(); err != nil {
			s.logger.Warn("room list refresh failed", "error", err)
		}
	}
	s.listener.OnReconnected(rs)
}

func (s *Session) handleReconnectFailed() {
	if s.closed.Load() {
		return
	}
	s.listener.OnReconnectFailed()
}
