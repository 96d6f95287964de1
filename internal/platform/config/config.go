// Package config loads service configuration from defaults, an optional YAML
// file and environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration of the checkpoint service.
type Config struct {
	Server      Server            `yaml:"server"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Postgres    PostgresConfig    `yaml:"postgres"`
	Redis       RedisConfig       `yaml:"redis"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Log         LogConfig         `yaml:"log"`
	Tracing     TracingConfig     `yaml:"tracing"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `yaml:"addr"`
	ServiceID       string        `yaml:"service_id"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
}

// RecognitionConfig addresses the two recognition backends.
type RecognitionConfig struct {
	IdentityAddr    string        `yaml:"identity_addr"`
	IdentityTimeout time.Duration `yaml:"identity_timeout"`
	PlateAddr       string        `yaml:"plate_addr"`
	PlateTimeout    time.Duration `yaml:"plate_timeout"`
}

// PostgresConfig configures the document store. An empty URL selects the
// in-memory store.
type PostgresConfig struct {
	URL          string        `yaml:"url"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	ConnLifetime time.Duration `yaml:"conn_lifetime"`
}

// RedisConfig configures the read cache. An empty URL disables it.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
}

// KafkaConfig configures the event publisher.
type KafkaConfig struct {
	Enabled           bool     `yaml:"enabled"`
	Brokers           []string `yaml:"brokers"`
	ClientID          string   `yaml:"client_id"`
	RegistrationTopic string   `yaml:"registration_topic"`
	NotificationTopic string   `yaml:"notification_topic"`
	ErrorTopic        string   `yaml:"error_topic"`
	CreateTopics      bool     `yaml:"create_topics"`
	Partitions        int      `yaml:"partitions"`
	ReplicationFactor int      `yaml:"replication_factor"`
}

// LogConfig selects log level and output format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig points span export at an OTLP/HTTP collector. An empty
// endpoint keeps tracing in-process only.
type TracingConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Default returns the configuration used when nothing else is provided.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			ServiceID:       "checkpoint",
			ShutdownTimeout: 10 * time.Second,
			MaxUploadBytes:  32 << 20,
		},
		Recognition: RecognitionConfig{
			IdentityAddr:    "localhost:50052",
			IdentityTimeout: 60 * time.Second,
			PlateAddr:       "localhost:50051",
			PlateTimeout:    30 * time.Second,
		},
		Postgres: PostgresConfig{
			MaxOpenConns: 10,
			MaxIdleConns: 5,
			ConnLifetime: 30 * time.Minute,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			CacheTTL:     5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Enabled:           true,
			Brokers:           []string{"localhost:9092"},
			ClientID:          "checkpoint",
			RegistrationTopic: "checkpoint.registrations",
			NotificationTopic: "checkpoint.notifications",
			ErrorTopic:        "checkpoint.errors",
			Partitions:        1,
			ReplicationFactor: 1,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			SampleRatio: 1,
		},
	}
}

// Load builds configuration from defaults, the YAML file at path (skipped when
// path is empty) and environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Addr = envOrDefault("CHECKPOINT_ADDR", cfg.Server.Addr)
	cfg.Server.ServiceID = envOrDefault("SERVICE_ID", cfg.Server.ServiceID)
	cfg.Server.ShutdownTimeout = envDuration("SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
	cfg.Server.MaxUploadBytes = int64(envInt("MAX_UPLOAD_BYTES", int(cfg.Server.MaxUploadBytes)))

	cfg.Recognition.IdentityAddr = envOrDefault("CIN_SERVICE_ADDR", cfg.Recognition.IdentityAddr)
	cfg.Recognition.IdentityTimeout = envDuration("CIN_SERVICE_TIMEOUT", cfg.Recognition.IdentityTimeout)
	cfg.Recognition.PlateAddr = envOrDefault("PLATE_SERVICE_ADDR", cfg.Recognition.PlateAddr)
	cfg.Recognition.PlateTimeout = envDuration("PLATE_SERVICE_TIMEOUT", cfg.Recognition.PlateTimeout)

	cfg.Postgres.URL = envOrDefault("DATABASE_URL", cfg.Postgres.URL)
	cfg.Postgres.MaxOpenConns = envInt("DB_MAX_OPEN_CONNS", cfg.Postgres.MaxOpenConns)
	cfg.Postgres.MaxIdleConns = envInt("DB_MAX_IDLE_CONNS", cfg.Postgres.MaxIdleConns)

	cfg.Redis.URL = envOrDefault("REDIS_URL", cfg.Redis.URL)
	cfg.Redis.PoolSize = envInt("REDIS_POOL_SIZE", cfg.Redis.PoolSize)
	cfg.Redis.CacheTTL = envDuration("REDIS_CACHE_TTL", cfg.Redis.CacheTTL)

	cfg.Kafka.Enabled = envBool("KAFKA_ENABLED", cfg.Kafka.Enabled)
	cfg.Kafka.Brokers = envCSV("KAFKA_BROKERS", cfg.Kafka.Brokers)
	cfg.Kafka.ClientID = envOrDefault("KAFKA_CLIENT_ID", cfg.Kafka.ClientID)
	cfg.Kafka.RegistrationTopic = envOrDefault("KAFKA_REGISTRATION_TOPIC", cfg.Kafka.RegistrationTopic)
	cfg.Kafka.NotificationTopic = envOrDefault("KAFKA_NOTIFICATION_TOPIC", cfg.Kafka.NotificationTopic)
	cfg.Kafka.ErrorTopic = envOrDefault("KAFKA_ERROR_TOPIC", cfg.Kafka.ErrorTopic)
	cfg.Kafka.CreateTopics = envBool("KAFKA_CREATE_TOPICS", cfg.Kafka.CreateTopics)

	cfg.Log.Level = envOrDefault("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envOrDefault("LOG_FORMAT", cfg.Log.Format)

	cfg.Tracing.Endpoint = envOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Tracing.Endpoint)
	cfg.Tracing.SampleRatio = envFloat("OTEL_TRACES_SAMPLE_RATIO", cfg.Tracing.SampleRatio)
}

// Validate rejects configurations the service cannot start with.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server addr is required")
	}
	if c.Recognition.IdentityAddr == "" || c.Recognition.PlateAddr == "" {
		return fmt.Errorf("both recognition service addresses are required")
	}
	if c.Recognition.IdentityTimeout <= 0 || c.Recognition.PlateTimeout <= 0 {
		return fmt.Errorf("recognition timeouts must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka enabled but no brokers configured")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing sample ratio must be between 0 and 1")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envCSV(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
