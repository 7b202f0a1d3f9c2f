package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Market   MarketConfig   `mapstructure:"market"`
	Analyst  AnalystConfig  `mapstructure:"analyst"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// MarketConfig holds the simulated market feed configuration
type MarketConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
	InitDelay    time.Duration `mapstructure:"init_delay"`
	PriceFloor   float64       `mapstructure:"price_floor"`
	Seed         uint64        `mapstructure:"seed"` // 0 = random
}

// AnalystConfig holds the AI analyst (OpenAI-compatible API) configuration
type AnalystConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Model             string        `mapstructure:"model"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	MaxRetries        int           `mapstructure:"max_retries"`
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// StorageConfig holds the session journal configuration
type StorageConfig struct {
	DBPath   string `mapstructure:"db_path"`
	MaxTicks int    `mapstructure:"max_ticks"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	setDefaults(v)

	// GRIDPULSE_ANALYST_API_KEY overrides analyst.api_key
	v.SetEnvPrefix("GRIDPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Market defaults
	v.SetDefault("market.tick_interval", "5s")
	v.SetDefault("market.init_delay", "1s")
	v.SetDefault("market.price_floor", 20.0)
	v.SetDefault("market.seed", 0)

	// Analyst defaults
	v.SetDefault("analyst.enabled", false)
	v.SetDefault("analyst.api_key", "")
	v.SetDefault("analyst.base_url", "https://api.openai.com/v1")
	v.SetDefault("analyst.model", "gpt-4o-mini")
	v.SetDefault("analyst.timeout", "30s")
	v.SetDefault("analyst.requests_per_second", 1.0)
	v.SetDefault("analyst.max_retries", 2)

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Storage defaults
	v.SetDefault("storage.db_path", ":memory:")
	v.SetDefault("storage.max_ticks", 10000)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Market config
	if c.Market.TickInterval < 100*time.Millisecond {
		return fmt.Errorf("market.tick_interval must be at least 100ms")
	}
	if c.Market.InitDelay < 0 {
		return fmt.Errorf("market.init_delay must not be negative")
	}
	if c.Market.PriceFloor <= 0 {
		return fmt.Errorf("market.price_floor must be positive")
	}

	// Validate Analyst config
	if c.Analyst.Enabled {
		if c.Analyst.BaseURL == "" {
			return fmt.Errorf("analyst.base_url is required when analyst is enabled")
		}
		if c.Analyst.Model == "" {
			return fmt.Errorf("analyst.model is required when analyst is enabled")
		}
	}
	if c.Analyst.Timeout < 0 {
		return fmt.Errorf("analyst.timeout must not be negative")
	}
	if c.Analyst.RequestsPerSecond < 0 {
		return fmt.Errorf("analyst.requests_per_second must not be negative")
	}
	if c.Analyst.MaxRetries < 0 {
		return fmt.Errorf("analyst.max_retries must not be negative")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate Storage config
	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}
	if c.Storage.MaxTicks < 1 {
		return fmt.Errorf("storage.max_ticks must be at least 1")
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
