// Package config reads the demo server settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	ProviderRistretto = "ristretto"
	ProviderBigcache  = "bigcache"
	ProviderRedis     = "redis"

	LockerProvider = "provider"
	LockerRedsync  = "redsync"
)

type Redis struct {
	Addr     string `env:"SWR_REDIS_ADDR" env-default:"localhost:6379" env-description:"redis address for the redis provider, genstore and redsync"`
	Password string `env:"SWR_REDIS_PASSWORD" env-description:"redis password"`
	DB       int    `env:"SWR_REDIS_DB" env-default:"0"`
}

type Cache struct {
	Provider  string        `env:"SWR_PROVIDER" env-default:"ristretto" env-description:"ristretto|bigcache|redis"`
	Namespace string        `env:"SWR_NAMESPACE" env-default:"swrdemo"`
	MaxAge    time.Duration `env:"SWR_MAX_AGE" env-default:"30s" env-description:"how long a product stays fresh"`
	StaleTTL  time.Duration `env:"SWR_STALE_TTL" env-default:"10m" env-description:"how long past max age a product may be served stale"`
	LockTTL   time.Duration `env:"SWR_LOCK_TTL" env-default:"30s"`
	Locker    string        `env:"SWR_LOCKER" env-default:"provider" env-description:"provider|redsync"`
}

type Server struct {
	Listen          string        `env:"SWR_LISTEN" env-default:":8080"`
	UpstreamLatency time.Duration `env:"SWR_UPSTREAM_LATENCY" env-default:"300ms" env-description:"simulated latency of the product backend"`
	ShutdownTimeout time.Duration `env:"SWR_SHUTDOWN_TIMEOUT" env-default:"10s"`
	LogLevel        string        `env:"SWR_LOG_LEVEL" env-default:"info" env-description:"debug|info|warn|error"`
}

type Config struct {
	Redis  Redis
	Cache  Cache
	Server Server
}

// Load reads the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Cache.Provider {
	case ProviderRistretto, ProviderBigcache, ProviderRedis:
	default:
		return fmt.Errorf("config: unknown SWR_PROVIDER %q", c.Cache.Provider)
	}
	switch c.Cache.Locker {
	case LockerProvider, LockerRedsync:
	default:
		return fmt.Errorf("config: unknown SWR_LOCKER %q", c.Cache.Locker)
	}
	if c.Cache.Namespace == "" {
		return fmt.Errorf("config: SWR_NAMESPACE must not be empty")
	}
	if c.Cache.MaxAge <= 0 {
		return fmt.Errorf("config: SWR_MAX_AGE must be positive, got %v", c.Cache.MaxAge)
	}
	if c.Cache.StaleTTL < 0 || c.Cache.LockTTL < 0 {
		return fmt.Errorf("config: durations must not be negative")
	}
	return nil
}

// NeedsRedis reports whether any component talks to Redis.
func (c Config) NeedsRedis() bool {
	return c.Cache.Provider == ProviderRedis || c.Cache.Locker == LockerRedsync
}

// Usage describes every variable Load understands.
func Usage() string {
	var cfg Config
	text, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return err.Error()
	}
	return text
}
