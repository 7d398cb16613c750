// Package config loads keyword-cli settings from config.yaml and KEYWORD_*
// environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/keyword-cli/internal/model"
	"github.com/sells-group/keyword-cli/internal/scorer"
)

// Config holds the full application configuration.
type Config struct {
	KRA       KRAConfig       `yaml:"kra" mapstructure:"kra"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Retry     RetryConfig     `yaml:"retry" mapstructure:"retry"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// KRAConfig holds keyword research defaults applied to every run.
type KRAConfig struct {
	Brand       string             `yaml:"brand" mapstructure:"brand"`
	Product     string             `yaml:"product" mapstructure:"product"`
	Locale      string             `yaml:"locale" mapstructure:"locale"`
	TopClusters int                `yaml:"top_clusters" mapstructure:"top_clusters"`
	MaxRows     int                `yaml:"max_rows" mapstructure:"max_rows"`
	ClusteringK int                `yaml:"clustering_k" mapstructure:"clustering_k"`
	MemberLimit int                `yaml:"member_limit" mapstructure:"member_limit"`
	DataDir     string             `yaml:"data_dir" mapstructure:"data_dir"`
	OutputDir   string             `yaml:"output_dir" mapstructure:"output_dir"`
	Seed        uint64             `yaml:"seed" mapstructure:"seed"`
	BatchSize   int                `yaml:"batch_size" mapstructure:"batch_size"`
	MaxIter     int                `yaml:"max_iter" mapstructure:"max_iter"`
	Weights     map[string]float64 `yaml:"weights" mapstructure:"weights"`
}

// Request builds a run request for filePath from the configured defaults.
func (k KRAConfig) Request(filePath string) model.RunRequest {
	w := make(model.Weights, len(k.Weights))
	for key, v := range k.Weights {
		w[key] = v
	}
	return model.RunRequest{
		Brand:       k.Brand,
		Product:     k.Product,
		Locale:      k.Locale,
		FilePath:    filePath,
		ClusteringK: k.ClusteringK,
		TopClusters: k.TopClusters,
		MaxRows:     k.MaxRows,
		MemberLimit: k.MemberLimit,
		Weights:     w,
	}
}

// AnthropicConfig holds Anthropic API settings for topic generation.
type AnthropicConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// StoreConfig selects the run store.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	RunsPerMinute  int      `yaml:"runs_per_minute" mapstructure:"runs_per_minute"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// BatchConfig configures concurrent batch runs.
type BatchConfig struct {
	MaxConcurrentRuns int `yaml:"max_concurrent_runs" mapstructure:"max_concurrent_runs"`
	TopicsPerMinute   int `yaml:"topics_per_minute" mapstructure:"topics_per_minute"`
}

// RetryConfig configures retries of the topic generation call.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
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
	v.SetEnvPrefix("KEYWORD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("kra.brand", "Aspose")
	v.SetDefault("kra.product", "Aspose.Cells")
	v.SetDefault("kra.locale", "en-US")
	v.SetDefault("kra.top_clusters", 10)
	v.SetDefault("kra.max_rows", 50000)
	v.SetDefault("kra.clustering_k", 0)
	v.SetDefault("kra.member_limit", 12)
	v.SetDefault("kra.data_dir", "data")
	v.SetDefault("kra.output_dir", "out")
	v.SetDefault("kra.seed", 42)
	v.SetDefault("kra.batch_size", 2048)
	v.SetDefault("kra.max_iter", 100)
	for key, w := range scorer.DefaultWeights() {
		v.SetDefault("kra.weights."+key, w)
	}
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.temperature", 0.2)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "keyword.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.runs_per_minute", 30)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("batch.max_concurrent_runs", 4)
	v.SetDefault("batch.topics_per_minute", 50)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 10000)
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

// Validate checks the settings a command mode depends on. Mode is one of
// "run", "batch" or "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	if strings.TrimSpace(c.KRA.Product) == "" {
		errs = append(errs, "kra.product is required")
	}
	if c.KRA.MaxRows <= 0 {
		errs = append(errs, "kra.max_rows must be > 0")
	}
	if c.KRA.TopClusters <= 0 {
		errs = append(errs, "kra.top_clusters must be > 0")
	}
	if c.KRA.ClusteringK < 0 {
		errs = append(errs, "kra.clustering_k must be >= 0")
	}
	if err := scorer.ValidateWeights(c.KRA.Weights); err != nil {
		errs = append(errs, err.Error())
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q must be sqlite or postgres", c.Store.Driver))
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required for postgres")
	}

	switch mode {
	case "run":
	case "batch":
		if c.Batch.MaxConcurrentRuns < 1 {
			errs = append(errs, "batch.max_concurrent_runs must be >= 1")
		}
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server.port %d out of range", c.Server.Port))
		}
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
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
