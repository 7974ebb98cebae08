package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	aws_pkg "github.com/shopcart/storefront/pkg/aws"
)

// Order store backends.
const (
	OrderStorePostgres = "postgres"
	OrderStoreDynamoDB = "dynamodb"
)

// Event bus backends.
const (
	EventBusSNS   = "sns"
	EventBusKafka = "kafka"
)

// Config holds all configuration for the checkout service.
type Config struct {
	Port string
	Env  string

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string

	OrderStore         string
	DynamoOrderTable   string
	DynamoAddressTable string
	RedisURL           string

	StripeSecretKey      string
	StripePublishableKey string
	StripeWebhookSecret  string
	JWTSecret            string

	EventBus            string
	OrderSNSTopicARN    string
	KafkaBrokers        []string
	KafkaOrderTopic     string
	ShippingSQSQueueURL string

	CORSAllowedOrigins string
	RateLimitRPS       float64
	RateLimitBurst     int

	CloudWatchLogGroup string
	MetricsEnabled     bool
	MetricsNamespace   string
}

// LoadConfig reads configuration from environment variables (and .env when
// present) with optional Secrets Manager override.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", "8092"),
		Env:                  getEnv("ENV", "production"),
		PostgresUser:         os.Getenv("POSTGRES_USER"),
		PostgresPassword:     os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:           os.Getenv("POSTGRES_DB"),
		PostgresHost:         os.Getenv("POSTGRES_HOST"),
		PostgresPort:         getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:      getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone:     getEnv("POSTGRES_TIMEZONE", "UTC"),
		OrderStore:           strings.ToLower(getEnv("ORDER_STORE", OrderStorePostgres)),
		DynamoOrderTable:     getEnv("DDB_TABLE_ORDERS", "Orders"),
		DynamoAddressTable:   getEnv("DDB_TABLE_ADDRESSES", "Addresses"),
		RedisURL:             os.Getenv("REDIS_URL"),
		StripeSecretKey:      os.Getenv("STRIPE_SECRET_KEY"),
		StripePublishableKey: os.Getenv("STRIPE_PUBLISHABLE_KEY"),
		StripeWebhookSecret:  os.Getenv("STRIPE_WEBHOOK_SECRET"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		EventBus:             strings.ToLower(getEnv("EVENT_BUS", EventBusSNS)),
		OrderSNSTopicARN:     os.Getenv("ORDER_SNS_TOPIC_ARN"),
		KafkaBrokers:         splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaOrderTopic:      getEnv("KAFKA_ORDER_TOPIC", "order-events"),
		ShippingSQSQueueURL:  os.Getenv("SHIPPING_SQS_QUEUE_URL"),
		CORSAllowedOrigins:   getEnv("CORS_ALLOWED_ORIGINS", "*"),
		RateLimitRPS:         getEnvFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:       getEnvInt("RATE_LIMIT_BURST", 20),
		CloudWatchLogGroup:   os.Getenv("CLOUDWATCH_LOG_GROUP"),
		MetricsEnabled:       os.Getenv("CLOUDWATCH_METRICS_ENABLED") == "true",
		MetricsNamespace:     getEnv("CLOUDWATCH_METRICS_NAMESPACE", "Storefront"),
	}

	// Override secrets from Secrets Manager when running on AWS
	if os.Getenv("AWS_USE_SECRETS") == "true" {
		if awsCfg, err := aws_pkg.LoadAWSConfig(context.Background()); err == nil {
			sm := aws_pkg.NewSecretsClient(awsCfg)
			if m, err := sm.GetSecretMap(context.Background(), getEnv("STRIPE_SECRET_NAME", "checkout/STRIPE")); err == nil {
				cfg.applySecrets(m)
			}
			if m, err := sm.GetSecretMap(context.Background(), getEnv("DB_SECRET_NAME", "checkout/DB_CREDENTIALS")); err == nil {
				cfg.applySecrets(m)
			}
		}
	}

	return cfg, cfg.validate()
}

// applySecrets copies the non-empty values of known keys from a secret document.
func (c *Config) applySecrets(m map[string]string) {
	for key, dst := range map[string]*string{
		"STRIPE_SECRET_KEY":      &c.StripeSecretKey,
		"STRIPE_PUBLISHABLE_KEY": &c.StripePublishableKey,
		"STRIPE_WEBHOOK_SECRET":  &c.StripeWebhookSecret,
		"JWT_SECRET":             &c.JWTSecret,
		"POSTGRES_USER":          &c.PostgresUser,
		"POSTGRES_PASSWORD":      &c.PostgresPassword,
		"POSTGRES_DB":            &c.PostgresDB,
		"POSTGRES_HOST":          &c.PostgresHost,
		"POSTGRES_PORT":          &c.PostgresPort,
	} {
		if v, ok := m[key]; ok && v != "" {
			*dst = v
		}
	}
}

func (c *Config) validate() error {
	if c.StripeSecretKey == "" {
		return fmt.Errorf("STRIPE_SECRET_KEY is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.OrderStore {
	case OrderStorePostgres:
		if c.PostgresUser == "" || c.PostgresPassword == "" || c.PostgresDB == "" || c.PostgresHost == "" {
			return fmt.Errorf("database config incomplete")
		}
	case OrderStoreDynamoDB:
		if c.DynamoOrderTable == "" || c.DynamoAddressTable == "" {
			return fmt.Errorf("DDB_TABLE_ORDERS and DDB_TABLE_ADDRESSES are required when ORDER_STORE=dynamodb")
		}
	default:
		return fmt.Errorf("unknown ORDER_STORE %q", c.OrderStore)
	}
	switch c.EventBus {
	case EventBusSNS:
	case EventBusKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when EVENT_BUS=kafka")
		}
	default:
		return fmt.Errorf("unknown EVENT_BUS %q", c.EventBus)
	}
	return nil
}

// EventTopic is the destination order events are published to on the configured bus.
func (c *Config) EventTopic() string {
	if c.EventBus == EventBusKafka {
		return c.KafkaOrderTopic
	}
	return c.OrderSNSTopicARN
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil && v > 0 {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
