package connection

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/rps-client/internal/queue"
)

// Option configures a Manager.
type Option func(*Manager)

// WithDialer overrides the transport dialer selected by Config.Transport.
func WithDialer(dial DialFunc) Option {
	return func(m *Manager) {
		m.dial = dial
	}
}

// Manager owns the single live connection to the server.
type Manager struct {
	cfg     Config
	handler Handler
	logger  *slog.Logger
	dial    DialFunc

	mu   sync.Mutex
	live *conn

	connects     atomic.Int64
	linesRead    atomic.Int64
	linesWritten atomic.Int64
	dropped      atomic.Int64
}

// conn is one live transport and the goroutines serving it. It is never
// reused: Connect builds a new one.
type conn struct {
	id        string
	addr      string
	transport Transport
	since     time.Time
	outbox    *queue.Queue[string]
	logger    *slog.Logger

	lastActivity atomic.Int64 // unix nanos
	softFired    atomic.Bool
	hardFired    atomic.Bool
	intentional  atomic.Bool

	done       chan struct{}
	closeOnce  sync.Once
	cause      error
	notifyOnce sync.Once
}

// NewManager creates a Connection Manager that reports to handler. Unset
// Config fields take their DefaultConfig values.
func NewManager(cfg Config, handler Handler, logger *slog.Logger, opts ...Option) *Manager {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	if handler == nil {
		handler = HandlerFuncs{}
	}

	m := &Manager{
		cfg:     cfg,
		handler: handler,
		logger:  logger.With("component", "connection"),
	}

	switch cfg.Transport {
	case TransportWebSocket:
		m.dial = WebSocketDialer(cfg.WSPath, cfg.ConnectTimeout)
	default:
		m.dial = DialTCP
	}

	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Connect dials host:port and makes the result the live connection. A
// previous connection is closed intentionally first.
func (m *Manager) Connect(ctx context.Context, host string, port int) error {
	if err := ValidateAddress(host, port); err != nil {
		return err
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	dialCtx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
	defer cancel()

	t, err := m.dial(dialCtx, host, port)
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) {
			return err
		}
		return &TransportError{Op: "dial", Addr: addr, Err: err}
	}

	id := uuid.NewString()
	c := &conn{
		id:        id,
		addr:      addr,
		transport: t,
		since:     time.Now(),
		outbox:    queue.New[string](64),
		logger:    m.logger.With("conn_id", id),
		done:      make(chan struct{}),
	}
	c.touch()

	m.mu.Lock()
	prev := m.live
	m.live = c
	m.mu.Unlock()

	if prev != nil {
		prev.logger.Info("replacing connection")
		prev.close(true, nil)
	}

	m.connects.Add(1)

	go m.readLoop(c)
	go m.writeLoop(c)
	go m.watchdog(c)

	c.logger.Info("connected", "addr", addr, "transport", m.cfg.Transport)
	return nil
}

// Disconnect closes the live connection intentionally. No OnDisconnect is
// delivered for it. Disconnect never waits for the reader, so it is safe to
// call from inside a Handler. It is idempotent.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	c := m.live
	m.live = nil
	m.mu.Unlock()

	if c == nil {
		return
	}
	if c.close(true, nil) {
		c.logger.Info("disconnected")
	}
}

// Send queues line for delivery. It never blocks on the network. Lines sent
// without a live connection are dropped and counted.
func (m *Manager) Send(line string) error {
	m.mu.Lock()
	c := m.live
	m.mu.Unlock()

	if c == nil || c.closed() || !c.outbox.Push(line) {
		m.dropped.Add(1)
		m.logger.Warn("dropping send, not connected", "command", firstField(line))
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports whether a live, open connection exists.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live != nil && !m.live.closed()
}

// Info describes the live connection.
func (m *Manager) Info() (Info, bool) {
	m.mu.Lock()
	c := m.live
	m.mu.Unlock()

	if c == nil || c.closed() {
		return Info{}, false
	}
	return Info{
		ID:           c.id,
		Addr:         c.addr,
		Since:        c.since,
		LastActivity: time.Unix(0, c.lastActivity.Load()),
	}, true
}

// Stats returns current counters.
func (m *Manager) Stats() Stats {
	return Stats{
		Connects:     m.connects.Load(),
		LinesRead:    m.linesRead.Load(),
		LinesWritten: m.linesWritten.Load(),
		DroppedSends: m.dropped.Load(),
	}
}


// readLoop delivers lines until the transport fails or is closed.
func (m *Manager) readLoop(c *conn) {
	for {
		line, err := c.transport.ReadLine()
		if err != nil {
			m.lost(c, &TransportError{Op: "read", Addr: c.addr, Err: err})
			return
		}
		if c.closed() {
			return
		}

		c.touch()
		m.linesRead.Add(1)
		m.handler.OnMessage(line)
	}
}

// writeLoop flushes queued lines in order.
func (m *Manager) writeLoop(c *conn) {
	for {
		line, ok := c.outbox.Pop()
		if !ok || c.closed() {
			return
		}

		deadline := time.Now().Add(m.cfg.WriteTimeout)
		if err := c.transport.WriteLine(line, deadline); err != nil {
			if !c.closed() {
				c.logger.Warn("write failed", "error", err)
			}
			c.close(false, &TransportError{Op: "write", Addr: c.addr, Err: err})
			return
		}
		m.linesWritten.Add(1)
	}
}

// watchdog raises soft and hard timeouts. Both latch until the next line
// arrives. A hard timeout closes the transport as an unexpected loss.
func (m *Manager) watchdog(c *conn) {
	ticker := time.NewTicker(m.cfg.WatchdogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
		}
		if c.closed() {
			return
		}

		idle := time.Since(time.Unix(0, c.lastActivity.Load()))

		if idle >= m.cfg.SoftTimeout && c.softFired.CompareAndSwap(false, true) {
			c.logger.Warn("soft timeout", "idle", idle.Round(time.Millisecond))
			m.handler.OnSoftTimeout()
		}

		if idle >= m.cfg.HardTimeout && c.hardFired.CompareAndSwap(false, true) {
			c.logger.Warn("hard timeout, closing connection", "idle", idle.Round(time.Millisecond))
			m.handler.OnHardTimeout()
			c.close(false, &TransportError{Op: "read", Addr: c.addr, Err: ErrHardTimeout})
			return
		}
	}
}

// lost runs on the reader after the transport fails.
func (m *Manager) lost(c *conn, err error) {
	c.close(false, err)

	m.mu.Lock()
	if m.live == c {
		m.live = nil
	}
	m.mu.Unlock()

	if c.intentional.Load() {
		return
	}

	c.notifyOnce.Do(func() {
		cause := c.cause
		c.logger.Warn("connection lost", "error", cause)
		m.handler.OnDisconnect(cause)
	})
}

func (c *conn) touch() {
	c.lastActivity.Store(time.Now().UnixNano())
	c.softFired.Store(false)
	c.hardFired.Store(false)
}

// close tears the connection down once. It reports whether this call did
// the work. cause is kept for OnDisconnect when the close is unexpected.
func (c *conn) close(intentional bool, cause error) bool {
	closed := false
	c.closeOnce.Do(func() {
		closed = true
		c.intentional.Store(intentional)
		c.cause = cause
		close(c.done)
		c.outbox.Close()
		if err := c.transport.Close(); err != nil {
			c.logger.Debug("transport close", "error", err)
		}
	})
	return closed
}

func (c *conn) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func firstField(line string) string {
	if f := strings.Fields(line); len(f) > 0 {
		return f[0]
	}
	return ""
}
