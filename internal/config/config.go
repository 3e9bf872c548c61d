// Package config loads runtime configuration for the API, worker and CLI:
// built-in defaults, then an optional YAML file, then environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sunsafe/sunsafe/internal/database"
	"github.com/sunsafe/sunsafe/internal/notify"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Alert publisher backends.
const (
	PublisherLog     = notify.PublisherLog
	PublisherPubSub  = notify.PublisherPubSub
	PublisherWebhook = notify.PublisherWebhook
	PublisherKafka   = notify.PublisherKafka
)

// Config aggregates runtime configuration.
type Config struct {
	App       AppConfig       `yaml:"app"`
	HTTP      HTTPConfig      `yaml:"http"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Database  database.Config `yaml:"database"`
	Valkey    ValkeyConfig    `yaml:"valkey"`
	PubSub    PubSubConfig    `yaml:"pubsub"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Auth      AuthConfig      `yaml:"auth"`
	Recompute RecomputeConfig `yaml:"recompute"`
	Flags     FlagsConfig     `yaml:"flags"`
}

// AppConfig identifies the running service.
type AppConfig struct {
	Env             string        `yaml:"env"`
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// HTTPConfig controls server timeouts and rate limits.
type HTTPConfig struct {
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`

	// EstimatePerMinute limits the public estimate endpoints per client IP.
	EstimatePerMinute int `yaml:"estimatePerMinute"`
	StandardPerMinute int `yaml:"standardPerMinute"`
}

// TelemetryConfig controls OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	OTLPEndpoint string  `yaml:"otlpEndpoint"`
	SampleRatio  float64 `yaml:"sampleRatio"`
}

// ValkeyConfig configures the location fix cache. An empty Addr keeps fixes
// in memory.
type ValkeyConfig struct {
	Addr      string        `yaml:"addr"`
	KeyPrefix string        `yaml:"keyPrefix"`
	FixTTL    time.Duration `yaml:"fixTtl"`
}

// PubSubConfig configures Google Cloud Pub/Sub.
type PubSubConfig struct {
	ProjectID       string `yaml:"projectId"`
	AlertTopic      string `yaml:"alertTopic"`
	JobSubscription string `yaml:"jobSubscription"`
	MaxOutstanding  int    `yaml:"maxOutstanding"`
	NumGoroutines   int    `yaml:"numGoroutines"`
}

// KafkaConfig configures the Kafka alert publisher.
type KafkaConfig struct {
	Brokers    []string `yaml:"brokers"`
	AlertTopic string   `yaml:"alertTopic"`
}

// AlertsConfig selects and tunes the alert publisher.
type AlertsConfig struct {
	Publisher      string        `yaml:"publisher"`
	WebhookURL     string        `yaml:"webhookUrl"`
	PublishTimeout time.Duration `yaml:"publishTimeout"`
}

// AuthConfig configures bearer token validation.
type AuthConfig struct {
	SigningKey string `yaml:"signingKey"`
	Issuer     string `yaml:"issuer"`
	Audience   string `yaml:"audience"`
}

// RecomputeConfig tunes the monitor.
type RecomputeConfig struct {
	Settle        time.Duration `yaml:"settle"`
	SweepInterval time.Duration `yaml:"sweepInterval"`
	SweepTimeout  time.Duration `yaml:"sweepTimeout"`
}

// FlagsConfig tunes the feature flag cache.
type FlagsConfig struct {
	CacheTTL time.Duration `yaml:"cacheTtl"`
}

// DevSigningKey is used when no signing key is configured outside production.
const DevSigningKey = "local-dev-signing-key-change-in-production"

// Default returns the built-in configuration.
func Default() *Config {
	db := database.DefaultConfig()
	db.Host = ""

	return &Config{
		App: AppConfig{
			Env:             "development",
			Port:            "8080",
			ShutdownTimeout: 30 * time.Second,
		},
		HTTP: HTTPConfig{
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
			EstimatePerMinute: 30,
			StandardPerMinute: 100,
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: "localhost:4317",
			SampleRatio:  1,
		},
		Database: db,
		Valkey: ValkeyConfig{
			KeyPrefix: "sunsafe:fix",
			FixTTL:    6 * time.Hour,
		},
		PubSub: PubSubConfig{
			AlertTopic:      "uv-alerts",
			JobSubscription: "uv-jobs-worker",
			MaxOutstanding:  10,
			NumGoroutines:   2,
		},
		Kafka: KafkaConfig{
			AlertTopic: "uv-alerts",
		},
		Alerts: AlertsConfig{
			Publisher:      PublisherLog,
			PublishTimeout: 10 * time.Second,
		},
		Auth: AuthConfig{
			SigningKey: DevSigningKey,
			Issuer:     "https://api.sunsafe.app",
			Audience:   "sunsafe-api",
		},
		Recompute: RecomputeConfig{
			Settle:        300 * time.Millisecond,
			SweepInterval: 10 * time.Minute,
			SweepTimeout:  time.Minute,
		},
		Flags: FlagsConfig{
			CacheTTL: time.Minute,
		},
	}
}

// Load reads configuration from CONFIG_PATH (when set) and the environment.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.App.Env, "APP_ENV")
	setString(&cfg.App.Port, "APP_PORT")

	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		cfg.Telemetry.Enabled = v == "true"
	}
	setString(&cfg.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setFloat(&cfg.Telemetry.SampleRatio, "OTEL_TRACES_SAMPLER_ARG")

	cfg.Database.ApplyEnv()

	setString(&cfg.Valkey.Addr, "VALKEY_ADDR")
	setDuration(&cfg.Valkey.FixTTL, "VALKEY_FIX_TTL")

	setString(&cfg.PubSub.ProjectID, "PUBSUB_PROJECT_ID")
	setString(&cfg.PubSub.AlertTopic, "PUBSUB_ALERT_TOPIC")
	setString(&cfg.PubSub.JobSubscription, "PUBSUB_JOB_SUBSCRIPTION")

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
	setString(&cfg.Kafka.AlertTopic, "KAFKA_ALERT_TOPIC")

	setString(&cfg.Alerts.Publisher, "ALERT_PUBLISHER")
	setString(&cfg.Alerts.WebhookURL, "ALERT_WEBHOOK_URL")

	setString(&cfg.Auth.SigningKey, "JWT_SIGNING_KEY")

	setDuration(&cfg.Recompute.Settle, "RECOMPUTE_SETTLE")
	setDuration(&cfg.Recompute.SweepInterval, "SWEEP_INTERVAL")
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	var problems []string

	if c.App.Port == "" {
		problems = append(problems, "app.port is required")
	}
	if c.Recompute.Settle <= 0 {
		problems = append(problems, "recompute.settle must be positive")
	}
	if c.Recompute.SweepInterval <= 0 {
		problems = append(problems, "recompute.sweepInterval must be positive")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		problems = append(problems, "telemetry.sampleRatio must be within [0, 1]")
	}
	if c.Auth.SigningKey == "" {
		problems = append(problems, "auth.signingKey is required")
	}
	if c.IsProduction() && c.Auth.SigningKey == DevSigningKey {
		problems = append(problems, "auth.signingKey must be set in production")
	}

	switch c.Alerts.Publisher {
	case PublisherLog:
	case PublisherPubSub:
		if c.PubSub.ProjectID == "" || c.PubSub.AlertTopic == "" {
			problems = append(problems, "pubsub.projectId and pubsub.alertTopic are required for the pubsub publisher")
		}
	case PublisherWebhook:
		if c.Alerts.WebhookURL == "" {
			problems = append(problems, "alerts.webhookUrl is required for the webhook publisher")
		}
	case PublisherKafka:
		if len(c.Kafka.Brokers) == 0 || c.Kafka.AlertTopic == "" {
			problems = append(problems, "kafka.brokers and kafka.alertTopic are required for the kafka publisher")
		}
	default:
		problems = append(problems, fmt.Sprintf("alerts.publisher %q is not one of log, pubsub, webhook, kafka", c.Alerts.Publisher))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
