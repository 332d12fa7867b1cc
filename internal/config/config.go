package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Postgres    PostgresConfig
	Redis       RedisConfig
	Cache       CacheConfig
	Remote      RemoteConfig
	Notify      NotifyConfig
	Checkout    CheckoutConfig
	RateLimit   RateLimitConfig
	Idempotency IdempotencyConfig
	Log         LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type PostgresConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
	MaxConns int32
}

// DSN returns the pgx connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	ListTTL   time.Duration
	DetailTTL time.Duration
}

// CacheConfig holds the staleness windows of the per-session entity caches.
type CacheConfig struct {
	ListStaleTime   time.Duration
	DetailStaleTime time.Duration
}

type RemoteConfig struct {
	MaxAttempts int
	RetryDelay  time.Duration
}

type NotifyConfig struct {
	BufferSize      int
	PubNubEnabled   bool
	PubNubPublish   string
	PubNubSubscribe string
	PubNubSecret    string
}

type CheckoutConfig struct {
	Enabled bool
	AMQPURL string
	Queue   string
}

type RateLimitConfig struct {
	ToggleLimit  int64
	ToggleWindow time.Duration
}

type IdempotencyConfig struct {
	TTL     time.Duration
	LockTTL time.Duration
}

type LogConfig struct {
	Level slog.Level
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	serverPort, err := envInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	serverCfg := ServerConfig{
		Host: envString("SERVER_HOST", "localhost"),
		Port: serverPort,
	}

	postgresPort, err := envInt("POSTGRES_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	postgresMaxConns, err := envInt("POSTGRES_MAX_CONNS", 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	postgresUser := os.Getenv("POSTGRES_USER")
	if postgresUser == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_USER", op)
	}

	postgresPassword := os.Getenv("POSTGRES_PASSWORD")
	if postgresPassword == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_PASSWORD", op)
	}

	postgresDB := os.Getenv("POSTGRES_DB")
	if postgresDB == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_DB", op)
	}

	postgresCfg := PostgresConfig{
		User:     postgresUser,
		Password: postgresPassword,
		Name:     postgresDB,
		Host:     envString("POSTGRES_HOST", "localhost"),
		Port:     postgresPort,
		SSLMode:  envString("POSTGRES_SSLMODE", "disable"),
		MaxConns: int32(postgresMaxConns),
	}

	redisDB, err := envInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	redisListTTL, err := envDuration("REDIS_LIST_TTL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	redisDetailTTL, err := envDuration("REDIS_DETAIL_TTL", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	redisCfg := RedisConfig{
		Addr:      envString("REDIS_ADDR", "localhost:6380"),
		Password:  os.Getenv("REDIS_PASSWORD"),
		DB:        redisDB,
		ListTTL:   redisListTTL,
		DetailTTL: redisDetailTTL,
	}

	listStale, err := envDuration("CACHE_LIST_STALE_TIME", 2*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	detailStale, err := envDuration("CACHE_DETAIL_STALE_TIME", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	maxAttempts, err := envInt("REMOTE_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	retryDelay, err := envDuration("REMOTE_RETRY_DELAY", 200*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	bufferSize, err := envInt("NOTIFY_BUFFER_SIZE", 32)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	notifyCfg := NotifyConfig{
		BufferSize:      bufferSize,
		PubNubPublish:   os.Getenv("PUBNUB_PUBLISH_KEY"),
		PubNubSubscribe: os.Getenv("PUBNUB_SUBSCRIBE_KEY"),
		PubNubSecret:    os.Getenv("PUBNUB_SECRET_KEY"),
	}
	notifyCfg.PubNubEnabled = notifyCfg.PubNubPublish != "" && notifyCfg.PubNubSubscribe != ""

	checkoutCfg := CheckoutConfig{
		AMQPURL: os.Getenv("AMQP_URL"),
		Queue:   envString("CHECKOUT_QUEUE", "booking.checkout"),
	}
	checkoutCfg.Enabled = checkoutCfg.AMQPURL != ""

	toggleLimit, err := envInt("FAVORITE_TOGGLE_LIMIT", 30)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	toggleWindow, err := envDuration("FAVORITE_TOGGLE_WINDOW", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	idemTTL, err := envDuration("IDEMPOTENCY_TTL", 2*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	idemLockTTL, err := envDuration("IDEMPOTENCY_LOCK_TTL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(envString("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("%s: invalid LOG_LEVEL: %w", op, err)
	}

	return &Config{
		Server:   serverCfg,
		Postgres: postgresCfg,
		Redis:    redisCfg,
		Cache: CacheConfig{
			ListStaleTime:   listStale,
			DetailStaleTime: detailStale,
		},
		Remote: RemoteConfig{
			MaxAttempts: maxAttempts,
			RetryDelay:  retryDelay,
		},
		Notify:   notifyCfg,
		Checkout: checkoutCfg,
		RateLimit: RateLimitConfig{
			ToggleLimit:  int64(toggleLimit),
			ToggleWindow: toggleWindow,
		},
		Idempotency: IdempotencyConfig{
			TTL:     idemTTL,
			LockTTL: idemLockTTL,
		},
		Log: LogConfig{Level: level},
	}, nil
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
