package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Storage and locking backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	LockLocal = "local"
	LockRedis = "redis"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Engine   EngineConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `mapstructure:"SERVER_HOST"`
	Port         int           `mapstructure:"SERVER_PORT"`
	ReadTimeout  time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
	IdleTimeout  time.Duration `mapstructure:"SERVER_IDLE_TIMEOUT"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `mapstructure:"POSTGRES_HOST"`
	Port     int    `mapstructure:"POSTGRES_PORT"`
	User     string `mapstructure:"POSTGRES_USER"`
	Password string `mapstructure:"POSTGRES_PASSWORD"`
	DBName   string `mapstructure:"POSTGRES_DB"`
	SSLMode  string `mapstructure:"POSTGRES_SSLMODE"`
	MaxConns int32  `mapstructure:"POSTGRES_MAX_CONNS"`
	MinConns int32  `mapstructure:"POSTGRES_MIN_CONNS"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     int    `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
	PoolSize int    `mapstructure:"REDIS_POOL_SIZE"`
}

// EngineConfig selects backends and limits for the pricing engine.
type EngineConfig struct {
	StoreDriver     string        `mapstructure:"STORE_DRIVER"`      // memory | postgres
	LockDriver      string        `mapstructure:"LOCK_DRIVER"`       // local | redis
	LockTTL         time.Duration `mapstructure:"LOCK_TTL"`          // lease on a redis template lock
	LockWait        time.Duration `mapstructure:"LOCK_WAIT"`         // how long a guard op waits for the lock
	QuoteBatchLimit int           `mapstructure:"QUOTE_BATCH_LIMIT"` // max requests per calc-batch call
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `mapstructure:"LOG_LEVEL"`
}

// DSN returns the PostgreSQL connection string.
func (p *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode,
	)
}

// Addr returns the Redis address in host:port format.
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ServerAddr returns the HTTP listen address in host:port format.
func (s *ServerConfig) ServerAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// NeedsPostgres reports whether the configured backends require a database.
func (c *Config) NeedsPostgres() bool { return c.Engine.StoreDriver == StorePostgres }

// NeedsRedis reports whether the configured backends require Redis.
func (c *Config) NeedsRedis() bool { return c.Engine.LockDriver == LockRedis }

// Load reads configuration from environment variables and .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	setDefaults(v)

	// Try to read .env file. If it doesn't exist (e.g., inside Docker),
	// env vars injected by docker-compose env_file are used instead.
	_ = v.ReadInConfig()

	cfg := &Config{}

	// ── Server ──────────────────────────────────────────
	cfg.Server = ServerConfig{
		Host:         v.GetString("SERVER_HOST"),
		Port:         v.GetInt("SERVER_PORT"),
		ReadTimeout:  v.GetDuration("SERVER_READ_TIMEOUT"),
		WriteTimeout: v.GetDuration("SERVER_WRITE_TIMEOUT"),
		IdleTimeout:  v.GetDuration("SERVER_IDLE_TIMEOUT"),
	}

	// ── Postgres ────────────────────────────────────────
	cfg.Postgres = PostgresConfig{
		Host:     v.GetString("POSTGRES_HOST"),
		Port:     v.GetInt("POSTGRES_PORT"),
		User:     v.GetString("POSTGRES_USER"),
		Password: v.GetString("POSTGRES_PASSWORD"),
		DBName:   v.GetString("POSTGRES_DB"),
		SSLMode:  v.GetString("POSTGRES_SSLMODE"),
		MaxConns: v.GetInt32("POSTGRES_MAX_CONNS"),
		MinConns: v.GetInt32("POSTGRES_MIN_CONNS"),
	}

	// ── Redis ───────────────────────────────────────────
	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
		PoolSize: v.GetInt("REDIS_POOL_SIZE"),
	}

	// ── Engine ──────────────────────────────────────────
	cfg.Engine = EngineConfig{
		StoreDriver:     v.GetString("STORE_DRIVER"),
		LockDriver:      v.GetString("LOCK_DRIVER"),
		LockTTL:         v.GetDuration("LOCK_TTL"),
		LockWait:        v.GetDuration("LOCK_WAIT"),
		QuoteBatchLimit: v.GetInt("QUOTE_BATCH_LIMIT"),
	}

	cfg.Log = LogConfig{Level: v.GetString("LOG_LEVEL")}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_READ_TIMEOUT", "5s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "10s")
	v.SetDefault("SERVER_IDLE_TIMEOUT", "120s")

	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", 5432)
	v.SetDefault("POSTGRES_USER", "shipquote")
	v.SetDefault("POSTGRES_PASSWORD", "shipquote_secret")
	v.SetDefault("POSTGRES_DB", "shipquote_db")
	v.SetDefault("POSTGRES_SSLMODE", "disable")
	v.SetDefault("POSTGRES_MAX_CONNS", 20)
	v.SetDefault("POSTGRES_MIN_CONNS", 2)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 20)

	v.SetDefault("STORE_DRIVER", StoreMemory)
	v.SetDefault("LOCK_DRIVER", LockLocal)
	v.SetDefault("LOCK_TTL", "10s")
	v.SetDefault("LOCK_WAIT", "5s")
	v.SetDefault("QUOTE_BATCH_LIMIT", 200)

	v.SetDefault("LOG_LEVEL", "info")
}

func (c *Config) validate() error {
	switch c.Engine.StoreDriver {
	case StoreMemory, StorePostgres:
	default:
		return fmt.Errorf("config: STORE_DRIVER must be %q or %q, got %q", StoreMemory, StorePostgres, c.Engine.StoreDriver)
	}
	switch c.Engine.LockDriver {
	case LockLocal, LockRedis:
	default:
		return fmt.Errorf("config: LOCK_DRIVER must be %q or %q, got %q", LockLocal, LockRedis, c.Engine.LockDriver)
	}
	if c.Engine.LockTTL <= 0 {
		return fmt.Errorf("config: LOCK_TTL must be positive")
	}
	if c.Engine.QuoteBatchLimit <= 0 {
		return fmt.Errorf("config: QUOTE_BATCH_LIMIT must be positive")
	}
	return nil
}
