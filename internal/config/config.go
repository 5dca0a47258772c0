package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all daybook configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Engine    EngineConfig    `mapstructure:"engine"`
}

type ServerConfig struct {
	Bind string `mapstructure:"bind"`
	Port int    `mapstructure:"port"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type EmbeddingConfig struct {
	// Provider selects the embedding source: "openai" or "fallback".
	Provider       string `mapstructure:"provider"`
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	Dimensions     int    `mapstructure:"dimensions"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type EngineConfig struct {
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	TemporalWindowDays  int     `mapstructure:"temporal_window_days"`
	InsightWindowDays   int     `mapstructure:"insight_window_days"`
}

// Load reads configuration from ~/.daybook/config.json, overlaid with
// DAYBOOK_* environment variables. A missing file yields defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}
	return load(filepath.Join(home, ".daybook"))
}

// LoadFromPath reads configuration from a specific directory. Used by tests.
func LoadFromPath(dir string) (*Config, error) {
	return load(dir)
}

func load(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(dir)
	v.SetEnvPrefix("DAYBOOK")
	// Nested keys map dots to underscores: server.port -> DAYBOOK_SERVER_PORT.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// No config file — defaults apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.bind", "127.0.0.1")
	v.SetDefault("server.port", 37707)

	v.SetDefault("database.path", "") // resolved at runtime via store.DefaultDBPath

	v.SetDefault("embedding.provider", "fallback")
	v.SetDefault("embedding.base_url", "https://api.openai.com")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.dimensions", 1536)
	v.SetDefault("embedding.timeout_seconds", 15)

	v.SetDefault("engine.similarity_threshold", 0.6)
	v.SetDefault("engine.temporal_window_days", 3)
	v.SetDefault("engine.insight_window_days", 30)
}

func validate(cfg *Config) error {
	switch cfg.Embedding.Provider {
	case "openai", "fallback":
	default:
		return fmt.Errorf("embedding.provider must be 'openai' or 'fallback', got %q", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Engine.SimilarityThreshold < 0 || cfg.Engine.SimilarityThreshold > 1 {
		return fmt.Errorf("engine.similarity_threshold %v out of range [0,1]", cfg.Engine.SimilarityThreshold)
	}
	return nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
