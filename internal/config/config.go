package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/newthinker/backtrack/internal/core"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig              `mapstructure:"server"`
	Log        LogConfig                 `mapstructure:"log"`
	Database   DatabaseConfig            `mapstructure:"database"`
	Goals      GoalsConfig               `mapstructure:"goals"`
	MarketData MarketDataConfig          `mapstructure:"market_data"`
	Cache      CacheConfig               `mapstructure:"cache"`
	Cron       CronConfig                `mapstructure:"cron"`
	LLM        LLMConfig                 `mapstructure:"llm"`
	Notifiers  map[string]NotifierConfig `mapstructure:"notifiers"`
	Archive    ArchiveConfig             `mapstructure:"archive"`
	Metrics    MetricsConfig             `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	APIKey       string `mapstructure:"api_key"`
	TemplatesDir string `mapstructure:"templates_dir"`
	JobTTLHours  int    `mapstructure:"job_ttl_hours"`
	MaxJobs      int    `mapstructure:"max_jobs"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Encoding    string `mapstructure:"encoding"` // "json" or "console"
	Development bool   `mapstructure:"development"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // "postgres" or "sqlite"
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// GoalsConfig holds goal-progress engine settings.
type GoalsConfig struct {
	RefreshConcurrency int `mapstructure:"refresh_concurrency"`
}

type MarketDataConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	RatePerSecond  float64       `mapstructure:"rate_per_second"`
	Burst          int           `mapstructure:"burst"`
	DefaultLimit   int           `mapstructure:"default_limit"`
	BinanceBaseURL string        `mapstructure:"binance_base_url"`
	YahooBaseURL   string        `mapstructure:"yahoo_base_url"`
}

type CacheConfig struct {
	Type  string        `mapstructure:"type"` // "memory" or "redis"
	TTL   time.Duration `mapstructure:"ttl"`
	Redis RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CronConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	GoalRefresh string `mapstructure:"goal_refresh"`
}

type LLMConfig struct {
	Provider string       `mapstructure:"provider"`
	Claude   ClaudeConfig `mapstructure:"claude"`
	OpenAI   OpenAIConfig `mapstructure:"openai"`
	Ollama   OllamaConfig `mapstructure:"ollama"`
}

type ClaudeConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OllamaConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
}

type NotifierConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Telegram notifier fields
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	// Webhook notifier fields
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

type ArchiveConfig struct {
	Type string   `mapstructure:"type"` // "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file, layered over Defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides, e.g. BACKTRACK_DATABASE_DSN
	v.SetEnvPrefix("BACKTRACK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			JobTTLHours: 1,
			MaxJobs:     100,
		},
		Log: LogConfig{
			Level:    "info",
			Encoding: "json",
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "backtrack.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			AutoMigrate:     true,
		},
		Goals: GoalsConfig{
			RefreshConcurrency: 1,
		},
		MarketData: MarketDataConfig{
			Timeout:       10 * time.Second,
			RatePerSecond: 5,
			Burst:         10,
			DefaultLimit:  500,
		},
		Cache: CacheConfig{
			Type: "memory",
			TTL:  60 * time.Second,
		},
		Cron: CronConfig{
			Enabled:     false,
			GoalRefresh: "0 0 * * * *",
		},
		Archive: ArchiveConfig{
			Type: "localfs",
			Path: "./archive",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("database driver must be postgres or sqlite, got %q", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("database dsn required"))
	}

	if c.Goals.RefreshConcurrency < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("goals.refresh_concurrency must be at least 1, got %d", c.Goals.RefreshConcurrency))
	}

	if c.MarketData.DefaultLimit < 1 || c.MarketData.DefaultLimit > 1000 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("market_data.default_limit must be between 1 and 1000, got %d", c.MarketData.DefaultLimit))
	}

	switch c.Cache.Type {
	case "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("cache.redis.addr required when cache type is redis"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("cache type must be memory or redis, got %q", c.Cache.Type))
	}

	if c.Cron.Enabled && c.Cron.GoalRefresh == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("cron.goal_refresh required when cron is enabled"))
	}

	// LLM validation - if provider set, check config exists
	if c.LLM.Provider != "" {
		switch c.LLM.Provider {
		case "claude":
			if c.LLM.Claude.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("claude api_key required when provider is claude"))
			}
		case "openai":
			if c.LLM.OpenAI.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("openai api_key required when provider is openai"))
			}
		case "ollama":
			if c.LLM.Ollama.Endpoint == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("ollama endpoint required when provider is ollama"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
		}
	}

	if c.Archive.Type == "s3" && c.Archive.S3.Bucket == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("archive.s3.bucket required when archive type is s3"))
	}

	return nil
}
