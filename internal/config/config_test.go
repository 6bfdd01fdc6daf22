package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)

	assert.Equal(t, "pcmiler", cfg.ActiveProvider)
	assert.Equal(t, 12*time.Second, cfg.ProviderTimeout)
	assert.Empty(t, cfg.GoogleAPIKey)
	assert.Empty(t, cfg.PCMilerClientID)
	assert.Empty(t, cfg.MileMakerAPIKey)

	assert.Equal(t, CacheBackendMemory, cfg.CacheBackend)
	assert.Equal(t, 30*24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 64, cfg.CacheLocalSizeMB)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 0, cfg.RedisDB)

	assert.Equal(t, 5, cfg.BatchConcurrency)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchFlushInterval)

	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "lane-requests", cfg.KafkaSourceTopic)
	assert.Equal(t, "lane-distances", cfg.KafkaSinkTopic)
	assert.Equal(t, "freight-mileage", cfg.KafkaGroupID)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("MILEAGE_PROVIDER", "google")
	t.Setenv("PROVIDER_TIMEOUT", "15s")
	t.Setenv("GOOGLE_MAPS_API_KEY", "g-key")
	t.Setenv("PCMILER_CLIENT_ID", "pc-id")
	t.Setenv("PCMILER_CLIENT_SECRET", "pc-secret")
	t.Setenv("MILEMAKER_API_KEY", "mm-key")
	t.Setenv("CACHE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/mileage")
	t.Setenv("CACHE_TTL", "24h")
	t.Setenv("CACHE_LOCAL_SIZE_MB", "0")
	t.Setenv("BATCH_CONCURRENCY", "3")
	t.Setenv("BATCH_SIZE", "20")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "google", cfg.ActiveProvider)
	assert.Equal(t, 15*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, "g-key", cfg.GoogleAPIKey)
	assert.Equal(t, "pc-id", cfg.PCMilerClientID)
	assert.Equal(t, "pc-secret", cfg.PCMilerClientSecret)
	assert.Equal(t, "mm-key", cfg.MileMakerAPIKey)
	assert.Equal(t, CacheBackendPostgres, cfg.CacheBackend)
	assert.Equal(t, "postgres://localhost/mileage", cfg.DatabaseURL)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 0, cfg.CacheLocalSizeMB)
	assert.Equal(t, 3, cfg.BatchConcurrency)
	assert.Equal(t, 20, cfg.BatchSize)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_UnknownProvider(t *testing.T) {
	t.Setenv("MILEAGE_PROVIDER", "mapquest")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MILEAGE_PROVIDER")
}

func TestLoad_InvalidProviderTimeout(t *testing.T) {
	t.Setenv("PROVIDER_TIMEOUT", "bad")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PROVIDER_TIMEOUT")
}

func TestLoad_ZeroProviderTimeout(t *testing.T) {
	t.Setenv("PROVIDER_TIMEOUT", "0s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PROVIDER_TIMEOUT")
}

func TestLoad_InvalidCacheTTL(t *testing.T) {
	t.Setenv("CACHE_TTL", "-1h")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CACHE_TTL")
}

func TestLoad_PostgresWithoutDatabaseURL(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "postgres")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_UnknownCacheBackend(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "memcached")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CACHE_BACKEND")
}

func TestLoad_ZeroBatchConcurrency(t *testing.T) {
	t.Setenv("BATCH_CONCURRENCY", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_CONCURRENCY")
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	t.Setenv("BATCH_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_InvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "-2")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_DB")
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}
