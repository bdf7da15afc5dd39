package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type LockScope string

const (
	LockScopeEvent    LockScope = "event"
	LockScopeShowtime LockScope = "showtime"
)

type Config struct {
	Port      string
	LogLevel  string
	LogPretty bool

	StorageDriver string

	DB    DBConfig
	Redis RedisConfig

	CatalogBaseURL string
	CatalogTimeout time.Duration

	LockLease  time.Duration
	LockScope  LockScope
	HoldWindow time.Duration

	RabbitMQURL string
}

type DBConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	MaxOpenConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Load reads .env (when present) and then the process environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() Config {
	cfg := Config{
		Port:          envStr("APP_PORT", "8080"),
		LogLevel:      envStr("LOG_LEVEL", "info"),
		LogPretty:     envBool("LOG_PRETTY", false),
		StorageDriver: strings.ToLower(envStr("STORAGE_DRIVER", "postgres")),
		DB: DBConfig{
			Host:         envStr("DB_HOST", "localhost"),
			Port:         envStr("DB_PORT", "5432"),
			User:         envStr("DB_USER", "postgres"),
			Password:     os.Getenv("DB_PASSWORD"),
			Name:         envStr("DB_NAME", "seat_reservation"),
			MaxOpenConns: envInt("DB_MAX_OPEN_CONNS", 25),
		},
		Redis: RedisConfig{
			Addr:     redisAddr(),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       envInt("REDIS_DB", 0),
		},
		CatalogBaseURL: envStr("CATALOG_BASE_URL", "http://localhost:8081"),
		CatalogTimeout: envDur("CATALOG_TIMEOUT", 3*time.Second),
		LockLease:      envDur("LOCK_LEASE", 10*time.Second),
		LockScope:      LockScope(strings.ToLower(envStr("LOCK_SCOPE", string(LockScopeEvent)))),
		HoldWindow:     envDur("HOLD_WINDOW", 15*time.Minute),
		RabbitMQURL:    os.Getenv("RABBITMQ_URL"),
	}

	if cfg.LockLease <= 0 {
		cfg.LockLease = 10 * time.Second
	}
	if cfg.HoldWindow <= 0 {
		cfg.HoldWindow = 15 * time.Minute
	}
	if cfg.LockScope != LockScopeShowtime {
		cfg.LockScope = LockScopeEvent
	}
	if cfg.DB.MaxOpenConns < 1 {
		cfg.DB.MaxOpenConns = 1
	}
	return cfg
}

func redisAddr() string {
	host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT")
	if host != "" && port != "" {
		return host + ":" + port
	}
	return envStr("REDIS_ADDR", "localhost:6379")
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(k)))
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
