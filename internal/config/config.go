// Package config loads runtime configuration from an optional YAML file and
// STOREFORGE_* environment variables, with environment taking precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/storeforge/storeforge/internal/store"
)

// Config is the full runtime configuration.
type Config struct {
	Anthropic  AnthropicConfig  `mapstructure:"anthropic"`
	BrightData BrightDataConfig `mapstructure:"brightdata"`
	Store      StoreConfig      `mapstructure:"store"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Server     ServerConfig     `mapstructure:"server"`
	Scrape     ScrapeConfig     `mapstructure:"scrape"`
	Retry      RetryConfig      `mapstructure:"retry"`
}

type AnthropicConfig struct {
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

type BrightDataConfig struct {
	Token        string        `mapstructure:"token"`
	Dataset      string        `mapstructure:"dataset"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxPolls     int           `mapstructure:"max_polls"`
}

// StoreConfig bounds the generated store structure.
type StoreConfig struct {
	Marketplace         string `mapstructure:"marketplace"`
	MinPages            int    `mapstructure:"min_pages"`
	MaxPages            int    `mapstructure:"max_pages"`
	MaxTilesPerPage     int    `mapstructure:"max_tiles_per_page"`
	MaxBackgroundVideos int    `mapstructure:"max_background_videos"`
	MinBriefingLen      int    `mapstructure:"min_briefing_len"`
	MaxProductsInPrompt int    `mapstructure:"max_products_in_prompt"`
}

type StorageConfig struct {
	Backend string `mapstructure:"backend"` // sqlite, postgres, ndjson, none
	DSN     string `mapstructure:"dsn"`
}

type ServerConfig struct {
	Port        int `mapstructure:"port"`
	MetricsPort int `mapstructure:"metrics_port"`
}

type ScrapeConfig struct {
	Fingerprint string  `mapstructure:"fingerprint"`
	ProxyFile   string  `mapstructure:"proxy_file"`
	RPS         float64 `mapstructure:"rps"`
	Jitter      float64 `mapstructure:"jitter"`
}

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseWait    time.Duration `mapstructure:"base_wait"`
	MaxWait     time.Duration `mapstructure:"max_wait"`
}

// Limits converts the store section into the pipeline's limit set.
func (c StoreConfig) Limits() store.Limits {
	return store.Limits{
		MinPages:            c.MinPages,
		MaxPages:            c.MaxPages,
		MaxTilesPerPage:     c.MaxTilesPerPage,
		MaxBackgroundVideos: c.MaxBackgroundVideos,
		MinBriefingLen:      c.MinBriefingLen,
		MaxProductsInPrompt: c.MaxProductsInPrompt,
	}
}

// Load reads configuration from path (optional, "" means no file) plus the
// environment.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("STOREFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	limits := store.DefaultLimits()

	// Keys without a meaningful default still need to be registered so
	// AutomaticEnv surfaces them to Unmarshal.
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.base_url", "https://api.anthropic.com/v1")
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("anthropic.max_tokens", 8000)

	v.SetDefault("brightdata.token", "")
	v.SetDefault("brightdata.dataset", "gd_l7q7dkf244hwjntr0")
	v.SetDefault("brightdata.poll_interval", 3*time.Second)
	v.SetDefault("brightdata.max_polls", 30)

	v.SetDefault("store.marketplace", "de")
	v.SetDefault("store.min_pages", limits.MinPages)
	v.SetDefault("store.max_pages", limits.MaxPages)
	v.SetDefault("store.max_tiles_per_page", limits.MaxTilesPerPage)
	v.SetDefault("store.max_background_videos", limits.MaxBackgroundVideos)
	v.SetDefault("store.min_briefing_len", limits.MinBriefingLen)
	v.SetDefault("store.max_products_in_prompt", limits.MaxProductsInPrompt)

	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.dsn", "storeforge.db")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.metrics_port", 9090)

	v.SetDefault("scrape.fingerprint", "chrome")
	v.SetDefault("scrape.proxy_file", "")
	v.SetDefault("scrape.rps", 0.5)
	v.SetDefault("scrape.jitter", 0.3)

	v.SetDefault("retry.max_attempts", 4)
	v.SetDefault("retry.base_wait", time.Second)
	v.SetDefault("retry.max_wait", 30*time.Second)
}
