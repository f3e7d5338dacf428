package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 10*time.Minute, cfg.Verification.CodeTTL)
	assert.Equal(t, 10*time.Second, cfg.Bridge.Timeout)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.False(t, cfg.IsProd())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("API_KEY", "k")
	t.Setenv("DATABASE_URL", "postgres://localhost/agencyops")
	t.Setenv("BRIDGE_WEBHOOK_URL", "https://bridge.example.com/hook")
	t.Setenv("BRIDGE_TIMEOUT", "3s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.IsProd())
	assert.Equal(t, "https://bridge.example.com/hook", cfg.Bridge.WebhookURL)
	assert.Equal(t, 3*time.Second, cfg.Bridge.Timeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestFromEnvRejectsInvalidValues(t *testing.T) {
	t.Setenv("APP_ENV", "staging")
	t.Setenv("BRIDGE_TIMEOUT", "soon")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APP_ENV")
	assert.Contains(t, err.Error(), "BRIDGE_TIMEOUT")
}

func TestProdRequiresAPIKey(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("API_KEY", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/agencyops")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API_KEY")
}
