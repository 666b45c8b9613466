package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	awspkg "github.com/shopswift/storefront/pkg/aws"
)

const (
	EventSinkLog   = "log"
	EventSinkSNS   = "sns"
	EventSinkKafka = "kafka"
	EventSinkSQS   = "sqs"
)

// Config holds all configuration for the storefront API.
type Config struct {
	Env            string
	Port           string
	RequestTimeout time.Duration

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string

	RedisURL string
	CartTTL  time.Duration

	JWTSecret           string
	TrustGatewayHeaders bool
	AllowedOrigins      []string
	RateLimitPerMinute  int
	RateLimitBurst      int

	EventSink        string
	OrderSNSTopicARN string
	OrderQueueURL    string
	KafkaBrokers     []string
	KafkaOrderTopic  string

	CloudWatchEnabled   bool
	CloudWatchNamespace string
	CloudWatchLogGroup  string
}

// SecretSource resolves JSON secrets by name.
type SecretSource interface {
	GetSecretMap(ctx context.Context, name string) (map[string]string, error)
}

// Load reads .env (if present) and the environment. With AWS_USE_SECRETS=true
// database credentials and the JWT secret are overridden from Secrets Manager.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := fromEnv()

	if os.Getenv("AWS_USE_SECRETS") == "true" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		awsCfg, err := awspkg.LoadAWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		if err := cfg.applySecrets(ctx, awspkg.NewSecretsClient(awsCfg)); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromEnv() *Config {
	return &Config{
		Env:            getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		CartTTL:  time.Duration(getEnvInt("CART_TTL_DAYS", 30)) * 24 * time.Hour,

		JWTSecret:           os.Getenv("JWT_SECRET"),
		TrustGatewayHeaders: os.Getenv("TRUST_GATEWAY_HEADERS") == "true",
		AllowedOrigins:      splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		RateLimitPerMinute:  getEnvInt("RATE_LIMIT_PER_MINUTE", 100),
		RateLimitBurst:      getEnvInt("RATE_LIMIT_BURST", 50),

		EventSink:        strings.ToLower(getEnv("EVENT_SINK", EventSinkLog)),
		OrderSNSTopicARN: os.Getenv("ORDER_SNS_TOPIC_ARN"),
		OrderQueueURL:    os.Getenv("ORDER_QUEUE_URL"),
		KafkaBrokers:     splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaOrderTopic:  getEnv("KAFKA_ORDER_TOPIC", "order-events"),

		CloudWatchEnabled:   os.Getenv("CLOUDWATCH_ENABLED") == "true",
		CloudWatchNamespace: getEnv("CLOUDWATCH_NAMESPACE", "Storefront"),
		CloudWatchLogGroup:  getEnv("CLOUDWATCH_LOG_GROUP", "/storefront/api"),
	}
}

func (c *Config) applySecrets(ctx context.Context, secrets SecretSource) error {
	db, err := secrets.GetSecretMap(ctx, "storefront/DB_CREDENTIALS")
	if err != nil {
		return fmt.Errorf("load db credentials: %w", err)
	}
	override(&c.PostgresUser, db["POSTGRES_USER"])
	override(&c.PostgresPassword, db["POSTGRES_PASSWORD"])
	override(&c.PostgresDB, db["POSTGRES_DB"])
	override(&c.PostgresHost, db["POSTGRES_HOST"])
	override(&c.PostgresPort, db["POSTGRES_PORT"])

	if jwtSecret, err := secrets.GetSecretMap(ctx, "storefront/JWT_SECRET"); err == nil {
		override(&c.JWTSecret, jwtSecret["JWT_SECRET"])
	}
	return nil
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if c.PostgresUser == "" || c.PostgresPassword == "" || c.PostgresDB == "" || c.PostgresHost == "" {
		return fmt.Errorf("database config incomplete")
	}
	if c.JWTSecret == "" && !c.TrustGatewayHeaders {
		return fmt.Errorf("JWT_SECRET is required unless TRUST_GATEWAY_HEADERS=true")
	}
	for _, origin := range c.AllowedOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("ALLOWED_ORIGINS entry %q must be * or start with http:// or https://", origin)
		}
	}
	if c.CartTTL <= 0 {
		return fmt.Errorf("CART_TTL_DAYS must be positive")
	}
	switch c.EventSink {
	case EventSinkLog:
	case EventSinkSNS:
		if c.OrderSNSTopicARN == "" {
			return fmt.Errorf("ORDER_SNS_TOPIC_ARN is required for the sns event sink")
		}
	case EventSinkSQS:
		if c.OrderQueueURL == "" {
			return fmt.Errorf("ORDER_QUEUE_URL is required for the sqs event sink")
		}
	case EventSinkKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required for the kafka event sink")
		}
	default:
		return fmt.Errorf("unknown EVENT_SINK %q", c.EventSink)
	}
	return nil
}

// PostgresDSN builds the pgx keyword/value DSN.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresPort, c.PostgresSSLMode, c.PostgresTimeZone)
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
