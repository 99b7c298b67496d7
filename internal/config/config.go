package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App         AppConfig
	Server      ServerConfig
	Postgres    PostgresConfig
	Redis       RedisConfig
	Auth        AuthConfig
	RabbitMQ    RabbitMQConfig
	Booking     BookingConfig
	RateLimit   RateLimitConfig
	Idempotency IdempotencyConfig
}

type AppConfig struct {
	Env      string
	LogLevel string
}

// Development reports whether the process runs with developer defaults
// (human readable logs, gin debug mode).
func (a AppConfig) Development() bool {
	return a.Env == "" || a.Env == "dev" || a.Env == "development" || a.Env == "local"
}

type ServerConfig struct {
	Host string
	Port int
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type PostgresConfig struct {
	// URL, when set through DATABASE_URL, wins over the discrete fields.
	URL      string
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
	MaxConns int32
}

func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:     "/" + p.Name,
		RawQuery: "sslmode=" + url.QueryEscape(p.SSLMode),
	}
	return u.String()
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
}

type RabbitMQConfig struct {
	// URL is optional. Broker notifications are off when it is empty.
	URL string
}

type BookingConfig struct {
	MaxRetries int
}

type RateLimitConfig struct {
	PerMinute int
}

type IdempotencyConfig struct {
	TTL time.Duration
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

	postgresCfg, err := postgresFromEnv()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	redisDB, err := envInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	redisCfg := RedisConfig{
		Addr:     envString("REDIS_ADDR", "localhost:6380"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       redisDB,
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("%s: missing JWT_SECRET", op)
	}

	tokenTTL, err := envDuration("JWT_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	authCfg := AuthConfig{
		JWTSecret: jwtSecret,
		Issuer:    envString("JWT_ISSUER", "culturetix"),
		TokenTTL:  tokenTTL,
	}

	maxRetries, err := envInt("BOOKING_MAX_RETRIES", 5)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if maxRetries < 0 {
		return nil, fmt.Errorf("%s: BOOKING_MAX_RETRIES must not be negative", op)
	}

	perMinute, err := envInt("RATE_LIMIT_PER_MIN", 30)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	idemTTL, err := envDuration("IDEMPOTENCY_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Config{
		App: AppConfig{
			Env:      strings.ToLower(envString("APP_ENV", "development")),
			LogLevel: envString("LOG_LEVEL", "info"),
		},
		Server:      serverCfg,
		Postgres:    postgresCfg,
		Redis:       redisCfg,
		Auth:        authCfg,
		RabbitMQ:    RabbitMQConfig{URL: os.Getenv("RABBITMQ_URL")},
		Booking:     BookingConfig{MaxRetries: maxRetries},
		RateLimit:   RateLimitConfig{PerMinute: perMinute},
		Idempotency: IdempotencyConfig{TTL: idemTTL},
	}, nil
}

func postgresFromEnv() (PostgresConfig, error) {
	maxConns, err := envInt("POSTGRES_MAX_CONNS", 0)
	if err != nil {
		return PostgresConfig{}, err
	}

	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return PostgresConfig{URL: dsn, MaxConns: int32(maxConns)}, nil
	}

	port, err := envInt("POSTGRES_PORT", 5432)
	if err != nil {
		return PostgresConfig{}, err
	}

	cfg := PostgresConfig{
		User:     os.Getenv("POSTGRES_USER"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		Name:     os.Getenv("POSTGRES_DB"),
		Host:     envString("POSTGRES_HOST", "localhost"),
		Port:     port,
		SSLMode:  envString("POSTGRES_SSLMODE", "disable"),
		MaxConns: int32(maxConns),
	}

	switch {
	case cfg.User == "":
		return PostgresConfig{}, fmt.Errorf("missing POSTGRES_USER")
	case cfg.Password == "":
		return PostgresConfig{}, fmt.Errorf("missing POSTGRES_PASSWORD")
	case cfg.Name == "":
		return PostgresConfig{}, fmt.Errorf("missing POSTGRES_DB")
	}

	return cfg, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
