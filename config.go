package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Targets are endpoint specs in the form "host:port/protocol".
	Targets []string `yaml:"targets" envconfig:"TARGETS" default:"1.1.1.1:53/tcp"`

	Probe     ProbeConfig     `yaml:"probe"`
	Engine    EngineConfig    `yaml:"engine"`
	Export    ExportConfig    `yaml:"export"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	TaskQueue TaskQueueConfig `yaml:"task_queue"`
	Alerting  AlertingConfig  `yaml:"alerting"`
	Sentry    SentryConfig    `yaml:"sentry"`
}

type ProbeConfig struct {
	Interval time.Duration `yaml:"interval" envconfig:"PROBE_INTERVAL" default:"1ms"`
	Timeout  time.Duration `yaml:"timeout" envconfig:"PROBE_TIMEOUT" default:"25ms"`
	// MaxConcurrent bounds in-flight probes within one sweep of the
	// target list.
	MaxConcurrent int64 `yaml:"max_concurrent" envconfig:"PROBE_MAX_CONCURRENT" default:"10"`
}

type EngineConfig struct {
	// PacketLossThreshold is the per-second loss fraction above which a
	// second counts towards an outage episode.
	PacketLossThreshold float64 `yaml:"packet_loss_threshold" envconfig:"PACKET_LOSS_THRESHOLD" default:"0.3"`
	// MaxSeconds caps the retained second-resolution buckets per target.
	MaxSeconds int `yaml:"max_seconds" envconfig:"MAX_SECONDS" default:"3600"`
	// AlertWindowSeconds is the rolling window the processor inspects
	// when deciding whether a target is degraded.
	AlertWindowSeconds int `yaml:"alert_window_seconds" envconfig:"ALERT_WINDOW_SECONDS" default:"10"`
}

type ExportConfig struct {
	WriteInterval time.Duration `yaml:"write_interval" envconfig:"WRITE_INTERVAL" default:"10s"`
	SessionDir    string        `yaml:"session_dir" envconfig:"SESSION_DIR" default:"."`
	CSV           bool          `yaml:"csv" envconfig:"EXPORT_CSV"`
	JSON          bool          `yaml:"json" envconfig:"EXPORT_JSON"`
	Charts        bool          `yaml:"charts" envconfig:"EXPORT_CHARTS"`
}

type ServerConfig struct {
	Enabled  bool       `yaml:"enabled" envconfig:"SERVER_ENABLED" default:"true"`
	Host     string     `yaml:"host" envconfig:"SERVER_HOST"`
	Port     int        `yaml:"port" envconfig:"SERVER_PORT" default:"5000"`
	ApiKey   string     `yaml:"api_key" envconfig:"SERVER_API_KEY"`
	LogLevel slog.Level `yaml:"log_level" envconfig:"LOG_LEVEL"`
}

type DatabaseConfig struct {
	Path string `yaml:"path" envconfig:"DATABASE_PATH" default:"kestrel.db"`
}

type TaskQueueConfig struct {
	Results struct {
		ProducerAddress string `yaml:"producer_address" envconfig:"RESULTS_PRODUCER_ADDRESS" default:"mem://probe_results"`
		ConsumerAddress string `yaml:"consumer_address" envconfig:"RESULTS_CONSUMER_ADDRESS" default:"mem://probe_results"`
	} `yaml:"results"`
	Processor struct {
		ProducerAddress string `yaml:"producer_address" envconfig:"PROCESSOR_PRODUCER_ADDRESS" default:"mem://processor_tasks"`
		ConsumerAddress string `yaml:"consumer_address" envconfig:"PROCESSOR_CONSUMER_ADDRESS" default:"mem://processor_tasks"`
	} `yaml:"processor"`
	Alerter struct {
		ProducerAddress string `yaml:"producer_address" envconfig:"ALERTER_PRODUCER_ADDRESS" default:"mem://alerter_tasks"`
		ConsumerAddress string `yaml:"consumer_address" envconfig:"ALERTER_CONSUMER_ADDRESS" default:"mem://alerter_tasks"`
	} `yaml:"alerter"`
}

type WebhookConfig struct {
	Enabled    bool              `yaml:"enabled" envconfig:"WEBHOOK_ENABLED"`
	Url        string            `yaml:"url" envconfig:"WEBHOOK_URL"`
	HmacSecret string            `yaml:"hmac_secret" envconfig:"WEBHOOK_HMAC_SECRET"`
	Headers    map[string]string `yaml:"headers"`
}

type EmailConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"EMAIL_ENABLED"`
	ApiKey  string `yaml:"api_key" envconfig:"BREVO_API_KEY"`
	From    string `yaml:"from" envconfig:"EMAIL_FROM"`
	To      string `yaml:"to" envconfig:"EMAIL_TO"`
}

type AlertingConfig struct {
	Cooldown time.Duration `yaml:"cooldown" envconfig:"ALERT_COOLDOWN" default:"5m"`
	Webhook  WebhookConfig `yaml:"webhook"`
	Email    EmailConfig   `yaml:"email"`
}

type SentryConfig struct {
	Dsn              string  `yaml:"dsn" envconfig:"SENTRY_DSN"`
	ErrorSampleRate  float64 `yaml:"error_sample_rate" envconfig:"SENTRY_ERROR_SAMPLE_RATE" default:"1.0"`
	TracesSampleRate float64 `yaml:"traces_sample_rate" envconfig:"SENTRY_TRACES_SAMPLE_RATE" default:"1.0"`
	Debug            bool    `yaml:"debug" envconfig:"SENTRY_DEBUG" default:"false"`
}

// LoadConfig builds the configuration: envconfig first (struct tag defaults
// plus environment overrides), then the YAML file layered on top when it
// exists. A missing config file is not an error.
func LoadConfig(path string) (Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return Config{}, fmt.Errorf("processing environment config: %w", err)
	}

	configFile, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config, nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(configFile, &config); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config file: %w", err)
	}

	return config, nil
}

func (c Config) Validate() error {
	if c.Probe.Interval <= 0 {
		return fmt.Errorf("probe interval must be positive")
	}
	if c.Probe.Timeout <= 0 {
		return fmt.Errorf("probe timeout must be positive")
	}
	if c.Engine.PacketLossThreshold < 0 || c.Engine.PacketLossThreshold > 1 {
		return fmt.Errorf("packet loss threshold must be within [0,1]")
	}
	if c.Engine.MaxSeconds < 1 {
		return fmt.Errorf("max seconds must be at least 1")
	}
	if c.Export.WriteInterval <= 0 {
		return fmt.Errorf("write interval must be positive")
	}
	if c.Alerting.Email.Enabled && (c.Alerting.Email.ApiKey == "" || c.Alerting.Email.To == "") {
		return fmt.Errorf("email alerting requires an API key and a recipient")
	}
	if c.Alerting.Webhook.Enabled && c.Alerting.Webhook.Url == "" {
		return fmt.Errorf("webhook alerting requires a URL")
	}
	return nil
}
