package reconnect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/rps-client/internal/bus"
	"github.com/rickgao/rps-client/internal/connection"
	"github.com/rickgao/rps-client/internal/protocol"
)

// Errors
var (
	ErrIllegalState    = errors.New("illegal reconnect state")
	ErrInvalidArgument = errors.New("invalid argument")
)

// State is the orchestrator's reconnection state.
type State int32

const (
	StateIdle State = iota
	StateAutoReconnecting
	StateManualReconnecting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAutoReconnecting:
		return "auto"
	case StateManualReconnecting:
		return "manual"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Config configures reconnection timing.
type Config struct {
	Interval time.Duration // delay between automatic attempts
	Window   time.Duration // give up automatic reconnection after this long
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 1 * time.Second,
		Window:   45 * time.Second,
	}
}

// withDefaults fills unset fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.Window <= 0 {
		c.Window = d.Window
	}
	return c
}

// Connector opens and closes the transport.
type Connector interface {
	Connect(ctx context.Context, host string, port int) error
	Disconnect()
}

// TokenSender presents a session token to the server.
type TokenSender interface {
	SendReconnect(token string) error
}

// EventSource delivers server events.
type EventSource interface {
	Subscribe(topic string, handler bus.Handler[protocol.Event]) *bus.Subscription
}

// Orchestrator drives automatic and manual reconnection.
type Orchestrator struct {
	cfg    Config
	conn   Connector
	sender TokenSender
	logger *slog.Logger

	state    atomic.Int32
	shutdown atomic.Bool
	attempts atomic.Int64

	// attemptMu serializes attempts.
	attemptMu sync.Mutex

	mu      sync.Mutex
	host    string
	port    int
	hasInfo bool
	token   string
	cancel  context.CancelFunc

	onReconnected func(protocol.ResumedSession)
	onFailed      func()

	subs []*bus.Subscription
}

// New creates an orchestrator and subscribes it to RECONNECT_OK and ERR.
// Unset Config fields take their DefaultConfig values.
func New(cfg Config, conn Connector, sender TokenSender, events EventSource, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		cfg:    cfg.withDefaults(),
		conn:   conn,
		sender: sender,
		logger: logger.With("component", "reconnect"),
	}
	o.subs = []*bus.Subscription{
		events.Subscribe(protocol.CmdReconnectOK, o.handleReconnectOK),
		events.Subscribe(protocol.CmdErr, o.handleError),
	}
	return o
}

// OnReconnected sets the success callback. It runs on the goroutine that
// delivered RECONNECT_OK.
func (o *Orchestrator) OnReconnected(fn func(protocol.ResumedSession)) {
	o.mu.Lock()
	o.onReconnected = fn
	o.mu.Unlock()
}

// OnFailed sets the callback for an automatic reconnection that gave up.
func (o *Orchestrator) OnFailed(fn func()) {
	o.mu.Lock()
	o.onFailed = fn
	o.mu.Unlock()
}

// SetConnectionInfo records where to reconnect to.
func (o *Orchestrator) SetConnectionInfo(host string, port int) error {
	if err := connection.ValidateAddress(host, port); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	o.mu.Lock()
	o.host, o.port, o.hasInfo = host, port, true
	o.mu.Unlock()
	return nil
}

// State returns the current state.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// IsReconnecting reports whether an automatic or manual reconnection is
// in progress.
func (o *Orchestrator) IsReconnecting() bool {
	return o.State() != StateIdle
}

// SetToken records the session token issued by the server. Later
// reconnections default to it.
func (o *Orchestrator) SetToken(token string) error {
	if err := protocol.ValidateToken(token); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	o.mu.Lock()
	o.token = token
	o.mu.Unlock()
	return nil
}

// Token returns the current session token, or "".
func (o *Orchestrator) Token() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.token
}

// Attempts returns the number of attempts since the last automatic start.
func (o *Orchestrator) Attempts() int64 {
	return o.attempts.Load()
}

// StartAutoReconnect begins the automatic attempt loop. The first attempt
// runs immediately. Calling it while not Idle does nothing.
func (o *Orchestrator) StartAutoReconnect(token string) error {
	if err := o.precheck(token); err != nil {
		return err
	}

	o.mu.Lock()
	if !o.state.CompareAndSwap(int32(StateIdle), int32(StateAutoReconnecting)) {
		o.mu.Unlock()
		o.logger.Debug("auto reconnect already running", "state", o.State())
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	o.token = token
	o.attempts.Store(0)
	o.mu.Unlock()

	o.logger.Info("auto reconnect started", "interval", o.cfg.Interval, "window", o.cfg.Window)
	go o.loop(ctx, token, time.Now())
	return nil
}

// ManualReconnect cancels any automatic loop and makes exactly one attempt.
// A transport error is returned and the state goes back to Idle; on success
// the state stays ManualReconnecting until the server answers.
func (o *Orchestrator) ManualReconnect(ctx context.Context, token string) error {
	if err := o.precheck(token); err != nil {
		return err
	}

	o.mu.Lock()
	o.stopLocked()
	o.state.Store(int32(StateManualReconnecting))
	o.token = token
	o.mu.Unlock()

	o.logger.Info("manual reconnect")
	if err := o.attempt(ctx, token); err != nil {
		o.state.CompareAndSwap(int32(StateManualReconnecting), int32(StateIdle))
		return err
	}
	return nil
}

// ConnectionLost ends a pending manual reconnection whose connection
// dropped before the server accepted the token. It reports whether one was
// pending; the state is then Idle. Automatic reconnection is unaffected.
func (o *Orchestrator) ConnectionLost() bool {
	if !o.state.CompareAndSwap(int32(StateManualReconnecting), int32(StateIdle)) {
		return false
	}
	o.logger.Warn("manual reconnect lost its connection")
	return true
}

// AbortAutoReconnect stops any loop and returns to Idle without callbacks.
func (o *Orchestrator) AbortAutoReconnect() {
	o.mu.Lock()
	o.stopLocked()
	prev := State(o.state.Swap(int32(StateIdle)))
	o.mu.Unlock()

	if prev != StateIdle {
		o.logger.Info("reconnect aborted", "state", prev)
	}
}

// Shutdown stops the loop and halts all further transitions.
func (o *Orchestrator) Shutdown() {
	if !o.shutdown.CompareAndSwap(false, true) {
		return
	}
	for _, s := range o.subs {
		s.Cancel()
	}
	o.mu.Lock()
	o.stopLocked()
	o.state.Store(int32(StateIdle))
	o.mu.Unlock()
}

func (o *Orchestrator) precheck(token string) error {
	if o.shutdown.Load() {
		return fmt.Errorf("orchestrator shut down: %w", ErrIllegalState)
	}
	if err := protocol.ValidateToken(token); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.hasInfo {
		return fmt.Errorf("connection info not set: %w", ErrIllegalState)
	}
	return nil
}

// stopLocked cancels the running loop. Callers hold o.mu.
func (o *Orchestrator) stopLocked() {
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

func (o *Orchestrator) loop(ctx context.Context, token string, start time.Time) {
	ticker := time.NewTicker(o.cfg.Interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return
		}
		if time.Since(start) >= o.cfg.Window {
			o.expire(ctx)
			return
		}

		if err := o.attempt(ctx, token); err != nil && ctx.Err() == nil {
			o.logger.Warn("reconnect attempt failed", "attempt", o.attempts.Load(), "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// expire ends an automatic loop whose window ran out.
func (o *Orchestrator) expire(ctx context.Context) {
	o.mu.Lock()
	if ctx.Err() != nil {
		o.mu.Unlock()
		return
	}
	o.stopLocked()
	expired := o.state.CompareAndSwap(int32(StateAutoReconnecting), int32(StateIdle))
	fn := o.onFailed
	o.mu.Unlock()

	if !expired {
		return
	}
	o.logger.Warn("auto reconnect gave up", "attempts", o.attempts.Load(), "window", o.cfg.Window)
	if fn != nil {
		fn()
	}
}

// attempt runs one disconnect, connect, RECONNECT cycle.
func (o *Orchestrator) attempt(ctx context.Context, token string) error {
	o.attemptMu.Lock()
	defer o.attemptMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	o.mu.Lock()
	host, port := o.host, o.port
	o.mu.Unlock()

	n := o.attempts.Add(1)
	o.logger.Info("reconnect attempt", "attempt", n, "host", host, "port", port)

	o.conn.Disconnect()
	if err := o.conn.Connect(ctx, host, port); err != nil {
		return err
	}
	return o.sender.SendReconnect(token)
}

func (o *Orchestrator) handleReconnectOK(ev protocol.Event) {
	if o.shutdown.Load() {
		return
	}

	o.mu.Lock()
	o.stopLocked()
	prev := State(o.state.Swap(int32(StateIdle)))
	fn := o.onReconnected
	o.mu.Unlock()

	session := protocol.ParseResumedSession(ev)
	o.logger.Info("reconnected", "from", prev, "resumed", session.Kind, "attempts", o.attempts.Load())
	if fn != nil {
		fn(session)
	}
}

func (o *Orchestrator) handleError(ev protocol.Event) {
	if o.shutdown.Load() || ev.Part(2) != protocol.ReasonInvalidToken {
		return
	}

	o.mu.Lock()
	prev := State(o.state.Load())
	if prev == StateIdle {
		o.mu.Unlock()
		return
	}
	o.stopLocked()
	o.state.Store(int32(StateIdle))
	fn := o.onFailed
	o.mu.Unlock()

	o.logger.Warn("session token rejected", "state", prev)
	if prev == StateAutoReconnecting && fn != nil {
		fn()
	}
}
