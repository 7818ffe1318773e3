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

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Server    ServerConfig
	Storage   string
	Postgres  PostgresConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Notifier  NotifierConfig
	Payment   PaymentConfig
	Limits    LimitsConfig
	Scheduler SchedulerConfig
	Tracing   TracingConfig
	LogLevel  slog.Level
}

type ServerConfig struct {
	Host string
	Port int
}

// RedisConfig is optional: with an empty Addr the service runs without the
// cache, the rate limiter, idempotency keys and cross-instance invalidation.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PostgresConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
	MaxConns int32
	// Migrate applies the embedded schema at startup.
	Migrate bool
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type NotifierConfig struct {
	// Kind is one of log, rabbitmq or kafka.
	Kind         string
	RabbitMQURL  string
	KafkaBrokers []string
	KafkaTopic   string
}

type PaymentConfig struct {
	Secret string
}

type LimitsConfig struct {
	RateLimit      int
	RateWindow     time.Duration
	IdempotencyTTL time.Duration
}

type SchedulerConfig struct {
	ReconcileInterval time.Duration
	ExpireInterval    time.Duration
	RegistrationTTL   time.Duration
}

type TracingConfig struct {
	Endpoint    string
	ServiceName string
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	serverPort, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	serverCfg := ServerConfig{
		Host: env("SERVER_HOST", "localhost"),
		Port: serverPort,
	}

	storage := strings.ToLower(env("STORAGE", StoragePostgres))
	if storage != StoragePostgres && storage != StorageMemory {
		return nil, fmt.Errorf("%s: invalid STORAGE %q", op, storage)
	}

	var postgresCfg PostgresConfig
	if storage == StoragePostgres {
		postgresCfg, err = postgresConfig()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	redisDB, err := intEnv("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	redisCfg := RedisConfig{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       redisDB,
	}

	tokenTTL, err := durationEnv("JWT_TTL", 12*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	authCfg := AuthConfig{
		JWTSecret: os.Getenv("JWT_SECRET"),
		TokenTTL:  tokenTTL,
	}
	if authCfg.JWTSecret == "" {
		return nil, fmt.Errorf("%s: missing JWT_SECRET", op)
	}

	notifierCfg := NotifierConfig{
		Kind:        strings.ToLower(env("NOTIFIER", "log")),
		RabbitMQURL: os.Getenv("RABBITMQ_URL"),
		KafkaTopic:  env("KAFKA_TOPIC", "inngo.events"),
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		notifierCfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	switch notifierCfg.Kind {
	case "log":
	case "rabbitmq":
		if notifierCfg.RabbitMQURL == "" {
			return nil, fmt.Errorf("%s: missing RABBITMQ_URL", op)
		}
	case "kafka":
		if len(notifierCfg.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("%s: missing KAFKA_BROKERS", op)
		}
	default:
		return nil, fmt.Errorf("%s: invalid NOTIFIER %q", op, notifierCfg.Kind)
	}

	paymentCfg := PaymentConfig{Secret: os.Getenv("PAYMENT_SECRET")}
	if paymentCfg.Secret == "" {
		return nil, fmt.Errorf("%s: missing PAYMENT_SECRET", op)
	}

	rateLimit, err := intEnv("RATE_LIMIT", 10)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rateWindow, err := durationEnv("RATE_WINDOW", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	idemTTL, err := durationEnv("IDEMPOTENCY_TTL", 2*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	reconcileEvery, err := durationEnv("RECONCILE_INTERVAL", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	expireEvery, err := durationEnv("EXPIRE_INTERVAL", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	registrationTTL, err := durationEnv("REGISTRATION_TTL", 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(env("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("%s: invalid LOG_LEVEL: %w", op, err)
	}

	return &Config{
		Server:   serverCfg,
		Storage:  storage,
		Postgres: postgresCfg,
		Redis:    redisCfg,
		Auth:     authCfg,
		Notifier: notifierCfg,
		Payment:  paymentCfg,
		Limits: LimitsConfig{
			RateLimit:      rateLimit,
			RateWindow:     rateWindow,
			IdempotencyTTL: idemTTL,
		},
		Scheduler: SchedulerConfig{
			ReconcileInterval: reconcileEvery,
			ExpireInterval:    expireEvery,
			RegistrationTTL:   registrationTTL,
		},
		Tracing: TracingConfig{
			Endpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			ServiceName: env("OTEL_SERVICE_NAME", "inn-go"),
		},
		LogLevel: level,
	}, nil
}

func postgresConfig() (PostgresConfig, error) {
	postgresPort, err := intEnv("POSTGRES_PORT", 5432)
	if err != nil {
		return PostgresConfig{}, err
	}

	maxConns, err := intEnv("POSTGRES_MAX_CONNS", 0)
	if err != nil {
		return PostgresConfig{}, err
	}

	migrate, err := strconv.ParseBool(env("POSTGRES_MIGRATE", "false"))
	if err != nil {
		return PostgresConfig{}, fmt.Errorf("invalid POSTGRES_MIGRATE: %w", err)
	}

	postgresUser := os.Getenv("POSTGRES_USER")
	if postgresUser == "" {
		return PostgresConfig{}, fmt.Errorf("missing POSTGRES_USER")
	}

	postgresPassword := os.Getenv("POSTGRES_PASSWORD")
	if postgresPassword == "" {
		return PostgresConfig{}, fmt.Errorf("missing POSTGRES_PASSWORD")
	}

	postgresDB := os.Getenv("POSTGRES_DB")
	if postgresDB == "" {
		return PostgresConfig{}, fmt.Errorf("missing POSTGRES_DB")
	}

	return PostgresConfig{
		User:     postgresUser,
		Password: postgresPassword,
		Name:     postgresDB,
		Host:     env("POSTGRES_HOST", "localhost"),
		Port:     postgresPort,
		SSLMode:  env("POSTGRES_SSLMODE", "disable"),
		MaxConns: int32(maxConns),
		Migrate:  migrate,
	}, nil
}

// DSN is the pgx connection string for the configured database.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
		c.SSLMode,
	)
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
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

func durationEnv(key string, def time.Duration) (time.Duration, error) {
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
