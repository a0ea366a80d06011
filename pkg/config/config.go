// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, RPC, Catalog, Postgres, Kafka, Redis, Search, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Catalog sources accepted by CatalogConfig.Source.
const (
	SourceSample   = "sample"
	SourcePostgres = "postgres"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	RPC       RPCConfig       `yaml:"rpc"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Search    SearchConfig    `yaml:"search"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// RPCConfig controls the JSON-over-TCP RPC listener. Port 0 disables it.
type RPCConfig struct {
	Port int `yaml:"port"`
}

// CatalogConfig selects where the item collection comes from.
type CatalogConfig struct {
	Source      string        `yaml:"source"`
	SampleSize  int           `yaml:"sampleSize"`
	SampleSeed  int64         `yaml:"sampleSeed"`
	LoadTimeout time.Duration `yaml:"loadTimeout"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	SearchEvents string `yaml:"searchEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// SearchConfig controls how results are returned to callers.
type SearchConfig struct {
	// MaxItems caps the items serialized per response; 0 returns them all.
	// Facet counts always reflect the full match set.
	MaxItems int `yaml:"maxItems"`
}

// Analytics transports accepted by AnalyticsConfig.Transport.
const (
	TransportKafka = "kafka"
	TransportLocal = "local"
)

// AnalyticsConfig controls search event collection. With the kafka
// transport events are published in batches and aggregated by a consumer;
// local records them straight into the in-process aggregator.
type AnalyticsConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Transport        string        `yaml:"transport"`
	BufferSize       int           `yaml:"bufferSize"`
	BatchSize        int           `yaml:"batchSize"`
	FlushInterval    time.Duration `yaml:"flushInterval"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports configuration values that cannot work.
func (c *Config) Validate() error {
	switch c.Catalog.Source {
	case SourceSample, SourcePostgres:
	default:
		return fmt.Errorf("catalog.source must be %q or %q, got %q", SourceSample, SourcePostgres, c.Catalog.Source)
	}
	if c.Catalog.SampleSize < 0 {
		return fmt.Errorf("catalog.sampleSize must not be negative, got %d", c.Catalog.SampleSize)
	}
	if c.Analytics.Enabled {
		switch c.Analytics.Transport {
		case TransportKafka:
			if len(c.Kafka.Brokers) == 0 {
				return fmt.Errorf("analytics over kafka needs at least one broker")
			}
		case TransportLocal:
		default:
			return fmt.Errorf("analytics.transport must be %q or %q, got %q", TransportKafka, TransportLocal, c.Analytics.Transport)
		}
	}
	if c.Search.MaxItems < 0 {
		return fmt.Errorf("search.maxItems must not be negative, got %d", c.Search.MaxItems)
	}
	return nil
}

// defaultConfig returns a Config with defaults suited to local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		RPC: RPCConfig{
			Port: 9000,
		},
		Catalog: CatalogConfig{
			Source:      SourceSample,
			SampleSize:  50000,
			SampleSeed:  1,
			LoadTimeout: 30 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "catalog",
			User:            "catalog",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "catalog-search-group",
			Topics: KafkaTopics{
				SearchEvents: "catalog-search-events",
			},
		},
		Redis: RedisConfig{
			Enabled:  true,
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Analytics: AnalyticsConfig{
			Enabled:          false,
			Transport:        TransportKafka,
			BufferSize:       10000,
			BatchSize:        100,
			FlushInterval:    time.Second,
			SnapshotInterval: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads FCS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FCS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FCS_RPC_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.RPC.Port = port
		}
	}
	if v := os.Getenv("FCS_CATALOG_SOURCE"); v != "" {
		cfg.Catalog.Source = strings.ToLower(v)
	}
	if v := os.Getenv("FCS_CATALOG_SAMPLE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Catalog.SampleSize = n
		}
	}
	if v := os.Getenv("FCS_CATALOG_SAMPLE_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Catalog.SampleSeed = n
		}
	}
	if v := os.Getenv("FCS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("FCS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("FCS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("FCS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("FCS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("FCS_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("FCS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("FCS_REDIS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = b
		}
	}
	if v := os.Getenv("FCS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("FCS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("FCS_ANALYTICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Analytics.Enabled = b
		}
	}
	if v := os.Getenv("FCS_ANALYTICS_TRANSPORT"); v != "" {
		cfg.Analytics.Transport = strings.ToLower(v)
	}
	if v := os.Getenv("FCS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FCS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
