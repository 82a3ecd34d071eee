package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultHost              = "localhost"
	DefaultPort              = 2500
	DefaultTransport         = "tcp"
	DefaultWSPath            = "/"
	DefaultConnectTimeout    = 3 * time.Second
	DefaultSoftTimeout       = 6 * time.Second
	DefaultHardTimeout       = 45 * time.Second
	DefaultWriteTimeout      = 5 * time.Second
	DefaultWatchdogInterval  = 1 * time.Second
	DefaultReconnectInterval = 1 * time.Second
	DefaultReconnectWindow   = 45 * time.Second
	DefaultInvalidThreshold  = 3
	DefaultBatchSize         = 100
	DefaultFlushInterval     = 1 * time.Second
	DefaultBufferSize        = 1024
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 4
	DefaultMinConns          = 1
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

func (c *ClientConfig) applyDefaults() {
	// Server defaults
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.Transport == "" {
		c.Server.Transport = DefaultTransport
	}
	if c.Server.WSPath == "" {
		c.Server.WSPath = DefaultWSPath
	}

	// Timeout defaults
	if c.Timeouts.Connect == 0 {
		c.Timeouts.Connect = DefaultConnectTimeout
	}
	if c.Timeouts.Soft == 0 {
		c.Timeouts.Soft = DefaultSoftTimeout
	}
	if c.Timeouts.Hard == 0 {
		c.Timeouts.Hard = DefaultHardTimeout
	}
	if c.Timeouts.Write == 0 {
		c.Timeouts.Write = DefaultWriteTimeout
	}
	if c.Timeouts.WatchdogInterval == 0 {
		c.Timeouts.WatchdogInterval = DefaultWatchdogInterval
	}

	// Reconnect defaults
	if c.Reconnect.Interval == 0 {
		c.Reconnect.Interval = DefaultReconnectInterval
	}
	if c.Reconnect.Window == 0 {
		c.Reconnect.Window = DefaultReconnectWindow
	}

	if c.Bus.InvalidThreshold == 0 {
		c.Bus.InvalidThreshold = DefaultInvalidThreshold
	}

	// Journal defaults
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = DefaultBatchSize
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = DefaultFlushInterval
	}
	if c.Journal.BufferSize == 0 {
		c.Journal.BufferSize = DefaultBufferSize
	}
	applyDBDefaults(&c.Journal.Database)

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
