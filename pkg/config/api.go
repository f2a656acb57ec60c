package config

import (
	"strings"
	"time"
)

// Store drivers understood by the API.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// APIConfig holds runtime configuration for the API service.
type APIConfig struct {
	Environment              string
	Addr                     string
	LogLevel                 string
	StoreDriver              string
	DatabaseURL              string
	MigrationsDir            string
	AutoMigrate              bool
	JWTSecret                string
	RedisAddr                string
	RedisPassword            string
	RedisDB                  int
	ChangeChannel            string
	RateLimitPerMinute       int
	RateLimitWritesPerMinute int
	DefaultPageSize          int
	MaxPageSize              int
	LiveViewBuffer           int
	ShutdownTimeout          time.Duration
}

// LoadAPIConfig constructs an APIConfig from environment variables.
func LoadAPIConfig() APIConfig {
	cfg := APIConfig{
		Environment:              GetString("APP_ENV", "development"),
		Addr:                     GetString("API_ADDR", ":4000"),
		LogLevel:                 GetString("LOG_LEVEL", "info"),
		StoreDriver:              strings.ToLower(GetString("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL:              GetString("DATABASE_URL", "postgres://teamboard:teamboard@db:5432/teamboard?sslmode=disable"),
		MigrationsDir:            GetString("DB_MIGRATIONS_DIR", "db/migrations"),
		AutoMigrate:              GetBool("DB_AUTO_MIGRATE", true),
		JWTSecret:                GetString("JWT_SECRET", "supersecuresecret"),
		RedisAddr:                GetString("REDIS_ADDR", ""),
		RedisPassword:            GetString("REDIS_PASSWORD", ""),
		RedisDB:                  GetInt("REDIS_DB", 0),
		ChangeChannel:            GetString("CHANGE_CHANNEL", "teamboard_changes"),
		RateLimitPerMinute:       GetInt("RATE_LIMIT_PER_MINUTE", 600),
		RateLimitWritesPerMinute: GetInt("RATE_LIMIT_WRITES_PER_MINUTE", 120),
		DefaultPageSize:          GetInt("PAGE_SIZE_DEFAULT", 20),
		MaxPageSize:              GetInt("PAGE_SIZE_MAX", 100),
		LiveViewBuffer:           GetInt("LIVE_VIEW_BUFFER", 64),
		ShutdownTimeout:          GetDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 20
	}
	if cfg.MaxPageSize < cfg.DefaultPageSize {
		cfg.MaxPageSize = cfg.DefaultPageSize
	}
	if cfg.LiveViewBuffer <= 0 {
		cfg.LiveViewBuffer = 64
	}
	return cfg
}
