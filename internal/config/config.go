package config

import "time"

// ClientConfig is the root configuration for a game client.
type ClientConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Timeouts  TimeoutsConfig  `yaml:"timeouts"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
	Bus       BusConfig       `yaml:"bus"`
	Player    PlayerConfig    `yaml:"player"`
	Journal   JournalConfig   `yaml:"journal"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig locates the game server.
type ServerConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Transport string `yaml:"transport"` // "tcp" or "websocket"
	WSPath    string `yaml:"ws_path"`
}

// TimeoutsConfig holds connection manager timing.
type TimeoutsConfig struct {
	Connect          time.Duration `yaml:"connect"`
	Soft             time.Duration `yaml:"soft"` // idle time before speculative reconnect
	Hard             time.Duration `yaml:"hard"` // idle time before the connection is dropped
	Write            time.Duration `yaml:"write"`
	WatchdogInterval time.Duration `yaml:"watchdog_interval"`
}

// ReconnectConfig holds automatic reconnection timing.
type ReconnectConfig struct {
	Interval time.Duration `yaml:"interval"`
	Window   time.Duration `yaml:"window"`
}

// BusConfig holds event bus settings.
type BusConfig struct {
	InvalidThreshold int `yaml:"invalid_threshold"`
}

// PlayerConfig holds player identity.
type PlayerConfig struct {
	Nickname string `yaml:"nickname"`
}

// JournalConfig holds the optional traffic journal settings.
type JournalConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
	Database      DBConfig      `yaml:"database"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// LoggingConfig holds slog settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}
