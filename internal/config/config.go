package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix = "DOCFLOW"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	ThrottleMemory = "memory"
	ThrottleRedis  = "redis"
	ThrottleStore  = "store"
)

// loads a .env file into the process environment when one exists
func LoadDotEnv(paths ...string) {
	if err := godotenv.Load(paths...); err != nil {
		_ = err // not an error - production environments may not have .env file
	}
}

// returns a viper instance with defaults and env bindings configured
func NewViper() *viper.Viper {
	v := viper.New()
	ApplyDefaults(v)
	return v
}

// configures defaults and env bindings on the provided viper instance
func ApplyDefaults(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("environment", "development")
	v.SetDefault("http.address", ":8080")
	v.SetDefault("log.level", "info")

	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.url", "")
	v.SetDefault("database.path", "docflow.db")
	v.SetDefault("database.max_conns", 5)

	v.SetDefault("redis.url", "")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.session_secret", "")
	v.SetDefault("auth.session_cookie", "sessionid")

	v.SetDefault("presence.stale_after", 10*time.Second)
	v.SetDefault("presence.sweep_interval", 5*time.Second)
	v.SetDefault("presence.sync_delay", 500*time.Millisecond)

	v.SetDefault("history.throttle", ThrottleMemory)
	v.SetDefault("history.edit_window", 300*time.Second)

	v.SetDefault("storage.workers", 4)
	v.SetDefault("storage.queue_size", 256)
	v.SetDefault("storage.max_inflight", 4)
	v.SetDefault("storage.timeout", 5*time.Second)

	v.SetDefault("ws.allowed_origins", []string{})
	v.SetDefault("ws.messages_per_second", 50.0)
	v.SetDefault("ws.message_burst", 100)

	v.SetDefault("ratelimit.handshake", "60-M")
}

// parses runtime configuration from viper
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Environment: v.GetString("environment"),
		HTTPAddress: v.GetString("http.address"),
		LogLevel:    v.GetString("log.level"),
		Database: DatabaseConfig{
			Driver:   strings.ToLower(v.GetString("database.driver")),
			URL:      v.GetString("database.url"),
			Path:     v.GetString("database.path"),
			MaxConns: v.GetInt32("database.max_conns"),
		},
		RedisURL: v.GetString("redis.url"),
		Auth: AuthConfig{
			JWTSecret:     v.GetString("auth.jwt_secret"),
			SessionSecret: v.GetString("auth.session_secret"),
			SessionCookie: v.GetString("auth.session_cookie"),
		},
		Presence: PresenceConfig{
			StaleAfter:    v.GetDuration("presence.stale_after"),
			SweepInterval: v.GetDuration("presence.sweep_interval"),
			SyncDelay:     v.GetDuration("presence.sync_delay"),
		},
		History: HistoryConfig{
			Throttle:   strings.ToLower(v.GetString("history.throttle")),
			EditWindow: v.GetDuration("history.edit_window"),
		},
		Storage: StorageConfig{
			Workers:     v.GetInt("storage.workers"),
			QueueSize:   v.GetInt("storage.queue_size"),
			MaxInflight: v.GetInt64("storage.max_inflight"),
			Timeout:     v.GetDuration("storage.timeout"),
		},
		WS: WebSocketConfig{
			AllowedOrigins:    splitOrigins(v.GetStringSlice("ws.allowed_origins")),
			MessagesPerSecond: v.GetFloat64("ws.messages_per_second"),
			MessageBurst:      v.GetInt("ws.message_burst"),
		},
		HandshakeRate: v.GetString("ratelimit.handshake"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// env values arrive as one comma separated string
func splitOrigins(raw []string) []string {
	var origins []string

	for _, entry := range raw {
		for _, origin := range strings.Split(entry, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
	}

	return origins
}

func (c Config) validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if strings.TrimSpace(c.Database.URL) == "" {
			return fmt.Errorf("database.url is required for the postgres driver")
		}
	case DriverSQLite:
		if strings.TrimSpace(c.Database.Path) == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.Database.Driver)
	}

	switch c.History.Throttle {
	case ThrottleMemory, ThrottleStore:
	case ThrottleRedis:
		if strings.TrimSpace(c.RedisURL) == "" {
			return fmt.Errorf("redis.url is required when history.throttle is redis")
		}
	default:
		return fmt.Errorf("history.throttle must be memory, redis or store, got %q", c.History.Throttle)
	}

	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	if strings.TrimSpace(c.Auth.SessionSecret) == "" {
		return fmt.Errorf("auth.session_secret is required")
	}

	if strings.TrimSpace(c.Auth.SessionCookie) == "" {
		return fmt.Errorf("auth.session_cookie is required")
	}

	if c.Presence.StaleAfter <= 0 || c.Presence.SweepInterval <= 0 {
		return fmt.Errorf("presence.stale_after and presence.sweep_interval must be positive")
	}

	if c.Storage.Workers <= 0 || c.Storage.QueueSize <= 0 || c.Storage.MaxInflight <= 0 {
		return fmt.Errorf("storage.workers, storage.queue_size and storage.max_inflight must be positive")
	}

	return nil
}
