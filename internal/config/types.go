package config

import "time"

// runtime configuration for the collaboration server
type Config struct {
	Environment string
	HTTPAddress string
	LogLevel    string

	Database DatabaseConfig
	RedisURL string
	Auth     AuthConfig
	Presence PresenceConfig
	History  HistoryConfig
	Storage  StorageConfig
	WS       WebSocketConfig

	// ulule/limiter formatted rate, e.g. "60-M"
	HandshakeRate string
}

type DatabaseConfig struct {
	Driver   string // postgres or sqlite
	URL      string
	Path     string
	MaxConns int32
}

type AuthConfig struct {
	JWTSecret     string
	SessionSecret string
	SessionCookie string
}

type PresenceConfig struct {
	StaleAfter    time.Duration
	SweepInterval time.Duration
	SyncDelay     time.Duration
}

type HistoryConfig struct {
	Throttle   string // memory, redis or store
	EditWindow time.Duration
}

type StorageConfig struct {
	Workers     int
	QueueSize   int
	MaxInflight int64
	Timeout     time.Duration
}

type WebSocketConfig struct {
	AllowedOrigins    []string
	MessagesPerSecond float64
	MessageBurst      int
}

// returns true when running in production
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}
