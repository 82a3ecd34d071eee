package connection

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrHardTimeout     = errors.New("no traffic within hard timeout")
)

// TransportError is a dial, read or write failure on the transport.
type TransportError struct {
	Op   string // "dial", "read" or "write"
	Addr string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// TransportKind selects the wire transport.
type TransportKind string

const (
	TransportTCP       TransportKind = "tcp"
	TransportWebSocket TransportKind = "websocket"
)

// Config configures the Connection Manager.
type Config struct {
	Transport        TransportKind // tcp (default) or websocket
	WSPath           string        // request path for the websocket transport
	ConnectTimeout   time.Duration // bound on dial + handshake
	SoftTimeout      time.Duration // idle time before OnSoftTimeout
	HardTimeout      time.Duration // idle time before OnHardTimeout and forced close
	WatchdogInterval time.Duration // inactivity check cadence
	WriteTimeout     time.Duration // write deadline per line
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Transport:        TransportTCP,
		WSPath:           "/",
		ConnectTimeout:   3 * time.Second,
		SoftTimeout:      6 * time.Second,
		HardTimeout:      45 * time.Second,
		WatchdogInterval: 1 * time.Second,
		WriteTimeout:     5 * time.Second,
	}
}

// withDefaults fills unset fields from DefaultConfig and raises HardTimeout
// to SoftTimeout when it is lower.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Transport == "" {
		c.Transport = d.Transport
	}
	if c.WSPath == "" {
		c.WSPath = d.WSPath
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}
	if c.SoftTimeout <= 0 {
		c.SoftTimeout = d.SoftTimeout
	}
	if c.HardTimeout <= 0 {
		c.HardTimeout = d.HardTimeout
	}
	if c.HardTimeout < c.SoftTimeout {
		c.HardTimeout = c.SoftTimeout
	}
	if c.WatchdogInterval <= 0 {
		c.WatchdogInterval = d.WatchdogInterval
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	return c
}

// Handler observes a connection's lifecycle.
//
// All methods run on manager goroutines: OnMessage on the reader,
// OnSoftTimeout and OnHardTimeout on the watchdog, OnDisconnect on the
// reader after it exits. Handlers may call Disconnect and Connect.
type Handler interface {
	// OnMessage receives one line without its line terminator.
	OnMessage(line string)

	// OnSoftTimeout fires once per idle episode after SoftTimeout.
	OnSoftTimeout()

	// OnHardTimeout fires once per idle episode after HardTimeout. The
	// manager then closes the transport as an unexpected disconnect.
	OnHardTimeout()

	// OnDisconnect fires at most once per connection, and only when the
	// close was not requested through Disconnect or a replacing Connect.
	OnDisconnect(err error)
}

// HandlerFuncs adapts plain functions to Handler. Nil fields are ignored.
type HandlerFuncs struct {
	Message     func(line string)
	SoftTimeout func()
	HardTimeout func()
	Disconnect  func(err error)
}

func (h HandlerFuncs) OnMessage(line string) {
	if h.Message != nil {
		h.Message(line)
	}
}

func (h HandlerFuncs) OnSoftTimeout() {
	if h.SoftTimeout != nil {
		h.SoftTimeout()
	}
}

func (h HandlerFuncs) OnHardTimeout() {
	if h.HardTimeout != nil {
		h.HardTimeout()
	}
}

func (h HandlerFuncs) OnDisconnect(err error) {
	if h.Disconnect != nil {
		h.Disconnect(err)
	}
}

// Stats holds manager counters.
type Stats struct {
	Connects     int64
	LinesRead    int64
	LinesWritten int64
	DroppedSends int64
}

// Info describes the live connection.
type Info struct {
	ID           string
	Addr         string
	Since        time.Time
	LastActivity time.Time
}

// ValidateAddress checks a host and port before dialing.
func ValidateAddress(host string, port int) error {
	if strings.TrimSpace(host) == "" {
		return fmt.Errorf("host is blank: %w", ErrInvalidArgument)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d: %w", port, ErrInvalidArgument)
	}
	return nil
}
