package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:test?mode=memory")
	t.Setenv("SESSION_SECRET", "session-secret")
	t.Setenv("GATEWAY_KEY_ID", "rzp_test_key")
	t.Setenv("GATEWAY_KEY_SECRET", "gateway-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, DriverMySQL, cfg.DBDriver)
	assert.Equal(t, "INR", cfg.Currency)
	assert.Equal(t, 10*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, BrokerNone, cfg.EventBroker)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_ReportsAllMissingSecrets(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("GATEWAY_KEY_ID", "")
	t.Setenv("GATEWAY_KEY_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	for _, name := range []string{"DATABASE_URL", "SESSION_SECRET", "GATEWAY_KEY_ID", "GATEWAY_KEY_SECRET"} {
		assert.Contains(t, err.Error(), name)
	}
}

func TestValidate_Brokers(t *testing.T) {
	base := Config{
		DatabaseURL:      "dsn",
		SessionSecret:    []byte("s"),
		GatewayKeyID:     "k",
		GatewayKeySecret: "s",
		DBDriver:         DriverPostgres,
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "none", mutate: func(c *Config) { c.EventBroker = BrokerNone }},
		{name: "kafka without brokers", mutate: func(c *Config) { c.EventBroker = BrokerKafka }, wantErr: "KAFKA_BROKERS"},
		{name: "kafka with brokers", mutate: func(c *Config) {
			c.EventBroker = BrokerKafka
			c.KafkaBrokers = []string{"kafka:9092"}
		}},
		{name: "amqp without url", mutate: func(c *Config) { c.EventBroker = BrokerAMQP }, wantErr: "AMQP_URL"},
		{name: "unknown broker", mutate: func(c *Config) { c.EventBroker = "nats" }, wantErr: "EVENT_BROKER"},
		{name: "unknown driver", mutate: func(c *Config) {
			c.EventBroker = BrokerNone
			c.DBDriver = "oracle"
		}, wantErr: "DB_DRIVER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCSV(t *testing.T) {
	assert.Nil(t, CSV(""))
	assert.Equal(t, []string{"a:1", "b:2"}, CSV(" a:1, ,b:2 "))
}

func TestEnvIntDefault(t *testing.T) {
	t.Setenv("SOME_INT", "not-a-number")
	assert.Equal(t, 7, EnvIntDefault("SOME_INT", 7))
	t.Setenv("SOME_INT", "42")
	assert.Equal(t, 42, EnvIntDefault("SOME_INT", 7))
}

func TestOpenDB_SQLite(t *testing.T) {
	cfg := &Config{DBDriver: DriverSQLite, DatabaseURL: "file:opendb_test?mode=memory&cache=shared"}
	db, err := OpenDB(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, db.Migrator().HasTable("checkout_attempts"))
	assert.True(t, db.Migrator().HasTable("sessions"))
}
