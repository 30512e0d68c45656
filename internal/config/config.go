package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	API     APIConfig     `yaml:"api" mapstructure:"api"`
	Harvest HarvestConfig `yaml:"harvest" mapstructure:"harvest"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Export  ExportConfig  `yaml:"export" mapstructure:"export"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// APIConfig configures the FIPE API client.
type APIConfig struct {
	BaseURL          string  `yaml:"base_url" mapstructure:"base_url"`
	RequestDelayMs   int     `yaml:"request_delay_ms" mapstructure:"request_delay_ms"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffSecs   int     `yaml:"max_backoff_secs" mapstructure:"max_backoff_secs"`
	BackoffMultiple  float64 `yaml:"backoff_multiple" mapstructure:"backoff_multiple"`
	UserAgent        string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// RequestDelay returns the pacing interval as a duration.
func (c APIConfig) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelayMs) * time.Millisecond
}

// Timeout returns the per-request timeout as a duration.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// InitialBackoff returns the first retry delay as a duration.
func (c APIConfig) InitialBackoff() time.Duration {
	return time.Duration(c.InitialBackoffMs) * time.Millisecond
}

// MaxBackoff returns the retry delay ceiling as a duration.
func (c APIConfig) MaxBackoff() time.Duration {
	return time.Duration(c.MaxBackoffSecs) * time.Second
}

// HarvestConfig configures task execution.
type HarvestConfig struct {
	Workers       int    `yaml:"workers" mapstructure:"workers"`
	BrandStrategy string `yaml:"brand_strategy" mapstructure:"brand_strategy"`
}

// OutputConfig configures snapshot persistence.
type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// StoreConfig configures the run ledger backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ExportConfig configures the PostgreSQL catalog export.
type ExportConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("api.base_url", "https://veiculos.fipe.org.br/api/veiculos/")
	v.SetDefault("api.request_delay_ms", 500)
	v.SetDefault("api.timeout_secs", 30)
	v.SetDefault("api.max_attempts", 5)
	v.SetDefault("api.initial_backoff_ms", 1000)
	v.SetDefault("api.max_backoff_secs", 60)
	v.SetDefault("api.backoff_multiple", 2.0)
	v.SetDefault("harvest.workers", 4)
	v.SetDefault("harvest.brand_strategy", "latest")
	v.SetDefault("output.dir", "./data")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "./data/runs.db")
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
