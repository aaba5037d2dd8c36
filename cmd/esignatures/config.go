package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/squideyes/esignatures/signature"
)

// EnvPrefix prefixes every environment override, e.g. ESIG_WEBHOOK_SECRET.
const EnvPrefix = "ESIG"

var (
	errNoSecret = errors.New("webhook.secret is required")
	errNoToken  = errors.New("provider.token is required")
)

// Config is the process configuration shared by every command.
type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Provider ProviderConfig `mapstructure:"provider"`
	Store    StoreConfig    `mapstructure:"store"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Bus      BusConfig      `mapstructure:"bus"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Relay    RelayConfig    `mapstructure:"relay"`
	Log      LogConfig      `mapstructure:"log"`
}

// HTTPConfig configures the callback listener.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// WebhookConfig holds the callback credentials.
type WebhookConfig struct {
	Secret      string `mapstructure:"secret"`
	AdminSecret string `mapstructure:"admin_secret"`
	SigningKey  string `mapstructure:"signing_key"`
}

// ProviderConfig configures the submission client.
type ProviderConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StoreConfig selects the queue backend: memory or redis.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

// RedisConfig is shared by the redis store and the redis bus.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// BusConfig selects the message bus: memory, redis or kafka.
type BusConfig struct {
	Driver   string `mapstructure:"driver"`
	Stream   string `mapstructure:"stream"`
	TTLHours int    `mapstructure:"ttl_hours"`
}

// KafkaConfig configures the kafka bus.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// RelayConfig tunes the relay engine.
type RelayConfig struct {
	Concurrency  int           `mapstructure:"concurrency"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	PublishRate  float64       `mapstructure:"publish_rate"`
	PublishBurst int           `mapstructure:"publish_burst"`
}

// LogConfig sets the log level: debug, info, warn or error.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// loadConfig reads the optional file at path, then applies ESIG_*
// environment overrides on top of the defaults.
func loadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key so environment overrides reach Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", "15s")

	v.SetDefault("webhook.secret", "")
	v.SetDefault("webhook.admin_secret", "")
	v.SetDefault("webhook.signing_key", "")

	v.SetDefault("provider.base_url", "https://esignatures.io/api")
	v.SetDefault("provider.token", "")
	v.SetDefault("provider.timeout", "30s")

	v.SetDefault("store.driver", "memory")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("bus.driver", "memory")
	v.SetDefault("bus.stream", "esignatures:events")
	v.SetDefault("bus.ttl_hours", 48)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "esignatures.events")

	v.SetDefault("relay.concurrency", 10)
	v.SetDefault("relay.poll_interval", "1s")
	v.SetDefault("relay.max_attempts", 6)
	v.SetDefault("relay.publish_rate", 0)
	v.SetDefault("relay.publish_burst", 10)

	v.SetDefault("log.level", "info")
}

// Validate rejects unusable secrets and unknown drivers, then checks
// numeric bounds.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("store.driver %q: must be memory or redis", c.Store.Driver)
	}
	switch c.Bus.Driver {
	case "memory", "redis", "kafka":
	default:
		return fmt.Errorf("bus.driver %q: must be memory, redis or kafka", c.Bus.Driver)
	}
	if err := signature.CheckSecret(c.Webhook.Secret); err != nil {
		return fmt.Errorf("webhook.secret: %w", err)
	}
	if err := signature.CheckSecret(c.Webhook.AdminSecret); err != nil {
		return fmt.Errorf("webhook.admin_secret: %w", err)
	}
	if c.Bus.TTLHours < 0 {
		return errors.New("bus.ttl_hours must not be negative")
	}
	if c.Relay.Concurrency < 1 {
		return errors.New("relay.concurrency must be at least 1")
	}
	if c.Relay.MaxAttempts < 1 {
		return errors.New("relay.max_attempts must be at least 1")
	}
	if c.Relay.PublishRate < 0 {
		return errors.New("relay.publish_rate must not be negative")
	}
	if c.Relay.PollInterval <= 0 {
		return errors.New("relay.poll_interval must be positive")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level %q: must be debug, info, warn or error", s)
	}
	return level, nil
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}
