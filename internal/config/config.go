package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Cache backends.
const (
	CacheBackendMemory   = "memory"
	CacheBackendPostgres = "postgres"
	CacheBackendRedis    = "redis"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Routing providers.
	ActiveProvider      string
	ProviderTimeout     time.Duration
	GoogleAPIKey        string
	PCMilerClientID     string
	PCMilerClientSecret string
	MileMakerAPIKey     string

	// Distance cache.
	CacheBackend     string
	CacheTTL         time.Duration
	CacheLocalSizeMB int
	DatabaseURL      string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int

	// Batch resolution.
	BatchConcurrency   int
	BatchSize          int
	BatchFlushInterval time.Duration

	// Lane pipeline.
	KafkaEnabled     bool
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	providerTimeout, err := parsePositiveDuration("PROVIDER_TIMEOUT", "12s")
	if err != nil {
		return nil, err
	}

	cacheTTL, err := parsePositiveDuration("CACHE_TTL", "720h")
	if err != nil {
		return nil, err
	}

	localSize, err := parseNonNegativeInt("CACHE_LOCAL_SIZE_MB", 64)
	if err != nil {
		return nil, err
	}

	redisDB, err := parseNonNegativeInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	concurrency, err := parseNonNegativeInt("BATCH_CONCURRENCY", 5)
	if err != nil {
		return nil, err
	}
	if concurrency == 0 {
		return nil, errors.New("BATCH_CONCURRENCY must be at least 1")
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ActiveProvider:      sharedcfg.EnvOrDefault("MILEAGE_PROVIDER", "pcmiler"),
		ProviderTimeout:     providerTimeout,
		GoogleAPIKey:        os.Getenv("GOOGLE_MAPS_API_KEY"),
		PCMilerClientID:     os.Getenv("PCMILER_CLIENT_ID"),
		PCMilerClientSecret: os.Getenv("PCMILER_CLIENT_SECRET"),
		MileMakerAPIKey:     os.Getenv("MILEMAKER_API_KEY"),

		CacheBackend:     sharedcfg.EnvOrDefault("CACHE_BACKEND", CacheBackendMemory),
		CacheTTL:         cacheTTL,
		CacheLocalSizeMB: localSize,
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisAddr:        sharedcfg.EnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          redisDB,

		BatchConcurrency:   concurrency,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		KafkaEnabled:     os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:     sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic: sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "lane-requests"),
		KafkaSinkTopic:   sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "lane-distances"),
		KafkaGroupID:     sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "freight-mileage"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.ActiveProvider {
	case "pcmiler", "milemaker", "google":
	default:
		return fmt.Errorf("MILEAGE_PROVIDER %q is not one of pcmiler, milemaker, google", c.ActiveProvider)
	}

	switch c.CacheBackend {
	case CacheBackendMemory, CacheBackendRedis:
	case CacheBackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("CACHE_BACKEND is postgres but DATABASE_URL is not set")
		}
	default:
		return fmt.Errorf("CACHE_BACKEND %q is not one of memory, postgres, redis", c.CacheBackend)
	}

	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if c.KafkaSourceTopic == "" || c.KafkaSinkTopic == "" {
			return errors.New("KAFKA_SOURCE_TOPIC and KAFKA_SINK_TOPIC are required when KAFKA_ENABLED is true")
		}
	}
	return nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseNonNegativeInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
