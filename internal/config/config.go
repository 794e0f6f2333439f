package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	JWT      JWTConfig
	App      AppConfig
	RabbitMQ RabbitMQConfig
	Redis    RedisConfig
	Batch    BatchConfig
	Cache    CacheConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port     int
	Env      string
	LogLevel string
	Version  string
}

// RabbitMQConfig holds broker settings for the queued runner
type RabbitMQConfig struct {
	URL      string
	Exchange string
	Queue    string
	Prefetch int
}

// RedisConfig holds settings for the per-run batch lock
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RunnerKind selects how a triggered run is executed.
type RunnerKind string

const (
	RunnerDirect RunnerKind = "direct"
	RunnerQueued RunnerKind = "queued"
)

// BatchConfig holds batch processing settings
type BatchConfig struct {
	ChunkSize     int
	Workers       int
	Runner        RunnerKind
	Async         bool
	LockTTL       time.Duration
	StaleAfter    time.Duration
	SweepSchedule string
}

// CacheConfig holds in-process cache settings
type CacheConfig struct {
	CountryConfigTTL time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading configuration from environment")
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	dbMaxConns, err := strconv.Atoi(getEnv("DB_MAX_CONNS", "25"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}
	dbMinConns, err := strconv.Atoi(getEnv("DB_MIN_CONNS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "payroll"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: int32(dbMaxConns),
		MinConns: int32(dbMinConns),
	}

	// Redis configuration
	redisPort, err := strconv.Atoi(getEnv("REDIS_PORT", "6379"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_PORT: %w", err)
	}
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	config.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", ""),
		Port:     redisPort,
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:     appPort,
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Version:  getEnv("APP_VERSION", "v1.0.0"),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	// RabbitMQ configuration
	prefetch, err := strconv.Atoi(getEnv("RABBITMQ_PREFETCH", "1"))
	if err != nil {
		return nil, fmt.Errorf("invalid RABBITMQ_PREFETCH: %w", err)
	}

	config.RabbitMQ = RabbitMQConfig{
		URL:      getEnv("RABBITMQ_URL", ""),
		Exchange: getEnv("RABBITMQ_EXCHANGE", "payroll_events"),
		Queue:    getEnv("RABBITMQ_QUEUE", "payroll.run.calculate"),
		Prefetch: prefetch,
	}

	// Batch configuration
	chunkSize, err := strconv.Atoi(getEnv("BATCH_CHUNK_SIZE", "1000"))
	if err != nil {
		return nil, fmt.Errorf("invalid BATCH_CHUNK_SIZE: %w", err)
	}
	workers, err := strconv.Atoi(getEnv("BATCH_WORKERS", "8"))
	if err != nil {
		return nil, fmt.Errorf("invalid BATCH_WORKERS: %w", err)
	}
	async, err := strconv.ParseBool(getEnv("BATCH_ASYNC", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid BATCH_ASYNC: %w", err)
	}
	lockTTL, err := time.ParseDuration(getEnv("BATCH_LOCK_TTL", "30m"))
	if err != nil {
		return nil, fmt.Errorf("invalid BATCH_LOCK_TTL: %w", err)
	}
	staleAfter, err := time.ParseDuration(getEnv("BATCH_STALE_AFTER", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid BATCH_STALE_AFTER: %w", err)
	}

	config.Batch = BatchConfig{
		ChunkSize:     chunkSize,
		Workers:       workers,
		Runner:        RunnerKind(getEnv("BATCH_RUNNER", string(RunnerDirect))),
		Async:         async,
		LockTTL:       lockTTL,
		StaleAfter:    staleAfter,
		SweepSchedule: getEnv("BATCH_SWEEP_SCHEDULE", "*/5 * * * *"),
	}

	// Cache configuration
	countryTTL, err := time.ParseDuration(getEnv("CACHE_COUNTRY_CONFIG_TTL", "10m"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_COUNTRY_CONFIG_TTL: %w", err)
	}

	config.Cache = CacheConfig{
		CountryConfigTTL: countryTTL,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Batch.ChunkSize <= 0 {
		return fmt.Errorf("BATCH_CHUNK_SIZE must be positive")
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("BATCH_WORKERS must be positive")
	}
	switch c.Batch.Runner {
	case RunnerDirect:
	case RunnerQueued:
		if c.RabbitMQ.URL == "" {
			return fmt.Errorf("RABBITMQ_URL is required when BATCH_RUNNER=queued")
		}
	default:
		return fmt.Errorf("BATCH_RUNNER must be %q or %q", RunnerDirect, RunnerQueued)
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// RedisAddr returns host:port, or "" when redis is not configured.
func (c *Config) RedisAddr() string {
	if c.Redis.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
