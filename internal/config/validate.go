package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validate checks that all required fields are set and values are valid.
func (c *ClientConfig) Validate() error {
	if strings.TrimSpace(c.Server.Host) == "" {
		return errors.New("server.host is required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	switch c.Server.Transport {
	case "tcp":
	case "websocket":
		if !strings.HasPrefix(c.Server.WSPath, "/") {
			return fmt.Errorf("server.ws_path must start with /, got %q", c.Server.WSPath)
		}
	default:
		return fmt.Errorf("server.transport must be tcp or websocket, got %q", c.Server.Transport)
	}

	durations := []struct {
		name string
		d    time.Duration
	}{
		{"timeouts.connect", c.Timeouts.Connect},
		{"timeouts.soft", c.Timeouts.Soft},
		{"timeouts.hard", c.Timeouts.Hard},
		{"timeouts.write", c.Timeouts.Write},
		{"timeouts.watchdog_interval", c.Timeouts.WatchdogInterval},
		{"reconnect.interval", c.Reconnect.Interval},
		{"reconnect.window", c.Reconnect.Window},
	}
	for _, d := range durations {
		if d.d <= 0 {
			return fmt.Errorf("%s must be > 0, got %v", d.name, d.d)
		}
	}
	if c.Timeouts.Hard < c.Timeouts.Soft {
		return fmt.Errorf("timeouts.hard (%v) cannot be less than timeouts.soft (%v)", c.Timeouts.Hard, c.Timeouts.Soft)
	}

	if c.Bus.InvalidThreshold < 0 {
		return errors.New("bus.invalid_threshold must be >= 0")
	}

	if c.Journal.Enabled {
		if c.Journal.BatchSize < 1 {
			return errors.New("journal.batch_size must be >= 1")
		}
		if c.Journal.BufferSize < 1 {
			return errors.New("journal.buffer_size must be >= 1")
		}
		if c.Journal.FlushInterval <= 0 {
			return errors.New("journal.flush_interval must be > 0")
		}
		if err := c.Journal.Database.validate("journal.database"); err != nil {
			return err
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
