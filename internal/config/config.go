package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	EnvPrefix  = "STOREFRONT_"
	FileEnvVar = "CONFIG_FILE"

	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		LogLevel string `koanf:"log_level"`
		LogFile  string `koanf:"log_file"`
	} `koanf:"app"`

	HTTP struct {
		Addr            string        `koanf:"addr"`
		ReadTimeout     time.Duration `koanf:"read_timeout"`
		WriteTimeout    time.Duration `koanf:"write_timeout"`
		IdleTimeout     time.Duration `koanf:"idle_timeout"`
		ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	} `koanf:"http"`

	Storage struct {
		Driver string `koanf:"driver"`
	} `koanf:"storage"`

	Postgres struct {
		URL      string `koanf:"url"`
		MaxConns int32  `koanf:"max_conns"`
		Migrate  bool   `koanf:"migrate"`
	} `koanf:"postgres"`

	Redis struct {
		Addr           string        `koanf:"addr"`
		Password       string        `koanf:"password"`
		DB             int           `koanf:"db"`
		IdempotencyTTL time.Duration `koanf:"idempotency_ttl"`
		// IdempotencyLockTTL caps how long an abandoned in-flight key blocks retries.
		IdempotencyLockTTL time.Duration `koanf:"idempotency_lock_ttl"`
	} `koanf:"redis"`

	Kafka struct {
		Brokers []string `koanf:"brokers"`
		Topic   string   `koanf:"topic"`
	} `koanf:"kafka"`

	Outbox struct {
		RelayID    string        `koanf:"relay_id"`
		BatchSize  int           `koanf:"batch_size"`
		Interval   time.Duration `koanf:"interval"`
		Lease      time.Duration `koanf:"lease"`
		MaxRetries int           `koanf:"max_retries"`
	} `koanf:"outbox"`

	Tracing struct {
		Endpoint string `koanf:"endpoint"`
	} `koanf:"tracing"`
}

func defaults() map[string]any {
	host, _ := os.Hostname()
	return map[string]any{
		"app.name":              "storefront",
		"app.log_level":         "info",
		"http.addr":             ":8080",
		"http.read_timeout":     10 * time.Second,
		"http.write_timeout":    15 * time.Second,
		"http.idle_timeout":     60 * time.Second,
		"http.shutdown_timeout": 10 * time.Second,
		"storage.driver":        DriverPostgres,
		"postgres.max_conns":    10,
		"postgres.migrate":      true,
		"redis.idempotency_ttl": 24 * time.Hour,
		"kafka.topic":           "storefront.events",
		"outbox.relay_id":       "relay-" + host,
		"outbox.batch_size":     100,
		"outbox.interval":       500 * time.Millisecond,
		"outbox.lease":          5 * time.Second,
		"outbox.max_retries":    5,
	}
}

// Load layers defaults, the YAML file named by CONFIG_FILE (if set) and
// STOREFRONT_* environment variables, in that order. Nested keys use a double
// underscore: STOREFRONT_POSTGRES__URL sets postgres.url.
func Load() (Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path := os.Getenv(FileEnvVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr required"))
	}
	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Postgres.URL == "" {
			errs = append(errs, errors.New("postgres.url required when storage.driver is postgres"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("storage.driver must be %q or %q, got %q", DriverPostgres, DriverMemory, c.Storage.Driver))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic required when kafka.brokers is set"))
	}
	if c.Redis.Addr != "" && (c.Redis.IdempotencyTTL <= 0 || c.Redis.IdempotencyLockTTL <= 0) {
		errs = append(errs, errors.New("redis.idempotency_ttl and redis.idempotency_lock_ttl must be positive"))
	}
	if c.Outbox.BatchSize <= 0 {
		errs = append(errs, errors.New("outbox.batch_size must be positive"))
	}
	if c.Outbox.Interval <= 0 || c.Outbox.Lease <= 0 {
		errs = append(errs, errors.New("outbox.interval and outbox.lease must be positive"))
	}
	return errors.Join(errs...)
}
