package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	BrokerNone  = "none"
	BrokerKafka = "kafka"
	BrokerAMQP  = "amqp"
)

type Config struct {
	AppEnv     string
	ServerPort int
	LogLevel   string

	DBDriver    string
	DatabaseURL string

	SessionSecret []byte
	SessionTTL    time.Duration

	GatewayURL       string
	GatewayKeyID     string
	GatewayKeySecret string
	Currency         string
	GatewayTimeout   time.Duration

	FrontendOrigin string

	EventBroker  string
	KafkaBrokers []string
	AMQPURL      string
	AMQPExchange string
}

func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	cfg := &Config{
		AppEnv:     EnvDefault("APP_ENV", "development"),
		ServerPort: EnvIntDefault("SERVER_PORT", 8080),
		LogLevel:   EnvDefault("LOG_LEVEL", "info"),

		DBDriver:    strings.ToLower(EnvDefault("DB_DRIVER", DriverMySQL)),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		SessionSecret: []byte(os.Getenv("SESSION_SECRET")),
		SessionTTL:    time.Duration(EnvIntDefault("SESSION_TTL_HOURS", 24)) * time.Hour,

		GatewayURL:       EnvDefault("GATEWAY_URL", "https://api.razorpay.com"),
		GatewayKeyID:     os.Getenv("GATEWAY_KEY_ID"),
		GatewayKeySecret: os.Getenv("GATEWAY_KEY_SECRET"),
		Currency:         EnvDefault("GATEWAY_CURRENCY", "INR"),
		GatewayTimeout:   time.Duration(EnvIntDefault("GATEWAY_TIMEOUT_SECONDS", 10)) * time.Second,

		FrontendOrigin: EnvDefault("FRONTEND_ORIGIN", "http://localhost:5173"),

		EventBroker:  strings.ToLower(EnvDefault("EVENT_BROKER", BrokerNone)),
		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),
		AMQPURL:      os.Getenv("AMQP_URL"),
		AMQPExchange: EnvDefault("AMQP_EXCHANGE", "shop.events"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every missing or unsupported setting at once.
func (c *Config) Validate() error {
	var errs []error
	missing := func(v, name string) {
		if v == "" {
			errs = append(errs, fmt.Errorf("missing required env %s", name))
		}
	}

	missing(c.DatabaseURL, "DATABASE_URL")
	missing(string(c.SessionSecret), "SESSION_SECRET")
	missing(c.GatewayKeyID, "GATEWAY_KEY_ID")
	missing(c.GatewayKeySecret, "GATEWAY_KEY_SECRET")

	switch c.DBDriver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver))
	}

	switch c.EventBroker {
	case BrokerNone:
	case BrokerKafka:
		if len(c.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("missing required env KAFKA_BROKERS"))
		}
	case BrokerAMQP:
		missing(c.AMQPURL, "AMQP_URL")
	default:
		errs = append(errs, fmt.Errorf("unsupported EVENT_BROKER %q", c.EventBroker))
	}

	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
