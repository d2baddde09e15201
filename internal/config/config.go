package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all configuration for the playground server
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Security   SecurityConfig   `mapstructure:"security"`
	Pricing    PricingConfig    `mapstructure:"pricing"`
	Actions    ActionsConfig    `mapstructure:"actions"`
	Evaluation EvaluationConfig `mapstructure:"evaluation"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Address      string `mapstructure:"address"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// LLMConfig holds language model settings
type LLMConfig struct {
	DefaultProvider string              `mapstructure:"default_provider"`
	Providers       map[string]Provider `mapstructure:"providers"`
}

// Provider holds individual LLM provider configuration
type Provider struct {
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	Model     string `mapstructure:"model"`
	Timeout   int    `mapstructure:"timeout"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// StorageConfig holds database settings
type StorageConfig struct {
	DataDir    string `mapstructure:"data_dir"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// SecurityConfig holds security settings
type SecurityConfig struct {
	JWTSecret     string   `mapstructure:"jwt_secret"`
	AdminPassword string   `mapstructure:"admin_password"`
	AllowOrigins  []string `mapstructure:"allow_origins"`
}

// PricingConfig points at the per-model rate table
type PricingConfig struct {
	Path string `mapstructure:"path"`
}

// ActionsConfig holds per-action settings
type ActionsConfig struct {
	Weather WeatherActionConfig `mapstructure:"weather"`
}

// WeatherActionConfig holds weather action settings
type WeatherActionConfig struct {
	GeocodingURL string `mapstructure:"geocoding_url"`
	ForecastURL  string `mapstructure:"forecast_url"`
	Timeout      int    `mapstructure:"timeout"`
}

// EvaluationConfig holds evaluation run retention settings
type EvaluationConfig struct {
	RetentionDays int `mapstructure:"retention_days"`
	PruneInterval int `mapstructure:"prune_interval"` // minutes
}

// RateLimitConfig holds per-client rate limit settings for /api/generate
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// Load loads configuration from file, env, and defaults
func Load(configPath, dataDir string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if dataDir == "" {
		dataDir = getDefaultDataDir()
	}
	v.SetDefault("storage.data_dir", dataDir)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(dataDir)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(&cfg)

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = filepath.Join(cfg.Storage.DataDir, "playground.db")
	}

	return &cfg, nil
}

// DefaultProvider returns the configured default provider entry
func (c *Config) DefaultProvider() (Provider, error) {
	p, ok := c.LLM.Providers[c.LLM.DefaultProvider]
	if !ok {
		return Provider{}, fmt.Errorf("default provider %q not configured", c.LLM.DefaultProvider)
	}
	return p, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "127.0.0.1")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 120)

	v.SetDefault("llm.default_provider", "openai")
	v.SetDefault("llm.providers.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.providers.openai.model", "gpt-4-0125-preview")
	v.SetDefault("llm.providers.openai.timeout", 60)
	v.SetDefault("llm.providers.anthropic.base_url", "https://api.anthropic.com")
	v.SetDefault("llm.providers.anthropic.model", "claude-3-opus-20240229")
	v.SetDefault("llm.providers.anthropic.timeout", 60)
	v.SetDefault("llm.providers.anthropic.max_tokens", 1024)
	v.SetDefault("llm.providers.grok.base_url", "https://api.grok.x.ai/v1")
	v.SetDefault("llm.providers.grok.model", "grok-1")
	v.SetDefault("llm.providers.grok.timeout", 60)
	v.SetDefault("llm.providers.ollama.base_url", "http://localhost:11434")
	v.SetDefault("llm.providers.ollama.model", "mistral")
	v.SetDefault("llm.providers.ollama.timeout", 120)

	v.SetDefault("security.allow_origins", []string{"http://localhost:3000"})

	v.SetDefault("actions.weather.geocoding_url", "https://geocoding-api.open-meteo.com/v1/search")
	v.SetDefault("actions.weather.forecast_url", "https://api.open-meteo.com/v1/forecast")
	v.SetDefault("actions.weather.timeout", 10)

	v.SetDefault("evaluation.retention_days", 30)
	v.SetDefault("evaluation.prune_interval", 60)

	v.SetDefault("rate_limit.rps", 5)
	v.SetDefault("rate_limit.burst", 10)
}

// applyEnvOverrides fills provider keys from the conventional env vars when
// the config file leaves them empty.
func applyEnvOverrides(cfg *Config) {
	envKeys := map[string][]string{
		"openai":    {"OPENAI_API_KEY"},
		"anthropic": {"ANTHROPIC_API_KEY"},
		"grok":      {"GROK_API_KEY", "XAI_API_KEY"},
	}
	for name, keys := range envKeys {
		p, ok := cfg.LLM.Providers[name]
		if !ok || p.APIKey != "" {
			continue
		}
		if val := GetEnvWithFallback(keys...); val != "" {
			p.APIKey = val
			cfg.LLM.Providers[name] = p
		}
	}
	if secret := os.Getenv("PLAYGROUND_JWT_SECRET"); secret != "" {
		cfg.Security.JWTSecret = secret
	}
}

func getDefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".playground"
	}
	return filepath.Join(home, ".playground")
}
