package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/cre-extract/internal/confidence"
	"github.com/sells-group/cre-extract/internal/resilience"
	"github.com/sells-group/cre-extract/internal/storage"
	"github.com/sells-group/cre-extract/internal/store"
	"github.com/sells-group/cre-extract/internal/worker"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig       `yaml:"store" mapstructure:"store"`
	Storage    StorageConfig     `yaml:"storage" mapstructure:"storage"`
	Anthropic  AnthropicConfig   `yaml:"anthropic" mapstructure:"anthropic"`
	Extract    ExtractConfig     `yaml:"extract" mapstructure:"extract"`
	Worker     worker.Config     `yaml:"worker" mapstructure:"worker"`
	Redaction  RedactionConfig   `yaml:"redaction" mapstructure:"redaction"`
	Confidence confidence.Config `yaml:"confidence" mapstructure:"confidence"`
	Log        LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string           `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string           `yaml:"database_url" mapstructure:"database_url"`
	Pool        store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// StorageConfig configures where document bytes are fetched from.
type StorageConfig struct {
	// Backend selects the storage implementation: "fs" or "s3".
	Backend string           `yaml:"backend" mapstructure:"backend"`
	Dir     string           `yaml:"dir" mapstructure:"dir"`
	S3      storage.S3Config `yaml:"s3" mapstructure:"s3"`
}

// AnthropicConfig holds Anthropic API credentials and client-side rate limits.
type AnthropicConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	RateLimitRPM   int    `yaml:"rate_limit_rpm" mapstructure:"rate_limit_rpm"`
	RateLimitBurst int    `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
}

// ExtractConfig configures the field extractor.
type ExtractConfig struct {
	Model     string                 `yaml:"model" mapstructure:"model"`
	MaxTokens int64                  `yaml:"max_tokens" mapstructure:"max_tokens"`
	Industry  string                 `yaml:"industry" mapstructure:"industry"`
	Retry     resilience.RetryConfig `yaml:"retry" mapstructure:"retry"`
}

// RedactionConfig configures PII redaction of parsed document text.
type RedactionConfig struct {
	// Mode is one of "mask", "hash", or "none".
	Mode           string   `yaml:"mode" mapstructure:"mode"`
	AllowedDomains []string `yaml:"allowed_domains" mapstructure:"allowed_domains"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks configuration for the given run mode. Modes map to the
// top-level commands: "worker" and "process" need the full stack, "migrate"
// and "queue" only need the database.
func (c *Config) Validate(mode string) error {
	var problems []string

	requireDB := func() {
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	}

	switch mode {
	case "migrate", "queue":
		requireDB()
	case "worker", "process":
		requireDB()
		if c.Anthropic.Key == "" {
			problems = append(problems, "anthropic.key is required")
		}
		switch c.Storage.Backend {
		case "fs":
			if c.Storage.Dir == "" {
				problems = append(problems, "storage.dir is required for the fs backend")
			}
		case "s3":
			if c.Storage.S3.Endpoint == "" {
				problems = append(problems, "storage.s3.endpoint is required for the s3 backend")
			}
			if c.Storage.S3.Bucket == "" {
				problems = append(problems, "storage.s3.bucket is required for the s3 backend")
			}
		default:
			problems = append(problems, "storage.backend must be fs or s3")
		}
		switch c.Redaction.Mode {
		case "mask", "hash", "none":
		default:
			problems = append(problems, "redaction.mode must be mask, hash, or none")
		}
		if mode == "worker" {
			if c.Worker.Concurrency < 1 || c.Worker.Concurrency > 50 {
				problems = append(problems, "worker.concurrency must be between 1 and 50")
			}
			if c.Worker.MaxAttempts < 1 {
				problems = append(problems, "worker.max_attempts must be >= 1")
			}
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CREX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.pool.max_conns", 10)
	v.SetDefault("store.pool.min_conns", 2)
	v.SetDefault("storage.backend", "fs")
	v.SetDefault("storage.dir", "./documents")
	v.SetDefault("storage.s3.use_ssl", true)
	v.SetDefault("anthropic.rate_limit_rpm", 50)
	v.SetDefault("anthropic.rate_limit_burst", 5)
	v.SetDefault("extract.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("extract.max_tokens", 4096)
	v.SetDefault("extract.industry", "commercial_real_estate")
	v.SetDefault("extract.retry.max_attempts", 3)
	v.SetDefault("extract.retry.initial_backoff", 500*time.Millisecond)
	v.SetDefault("extract.retry.max_backoff", 30*time.Second)
	v.SetDefault("extract.retry.multiplier", 2.0)
	v.SetDefault("extract.retry.jitter_fraction", 0.25)
	v.SetDefault("worker.concurrency", 5)
	v.SetDefault("worker.poll_interval", 5*time.Second)
	v.SetDefault("worker.max_attempts", 3)
	v.SetDefault("worker.retry_delay", 5*time.Minute)
	v.SetDefault("worker.stale_timeout", 15*time.Minute)
	v.SetDefault("worker.shutdown_grace", 60*time.Second)
	v.SetDefault("redaction.mode", "mask")
	v.SetDefault("confidence.cap_rate_tolerance", 0.005)
	v.SetDefault("confidence.occupancy_high_watermark", 0.98)
	v.SetDefault("confidence.max_noi_growth", 0.30)
	v.SetDefault("confidence.critical_coverage_floor", 0.80)
	v.SetDefault("confidence.cap_rate_mismatch_penalty", 0.70)
	v.SetDefault("confidence.occupancy_high_penalty", 0.85)
	v.SetDefault("confidence.occupancy_impossible_penalty", 0.50)
	v.SetDefault("confidence.noi_growth_penalty", 0.75)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
