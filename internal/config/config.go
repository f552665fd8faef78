// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (./config.yaml or ~/.matchmeal/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: OpenAI-compatible endpoint, fast/heavy model tiers, embedder model
//   - Storage: PostgreSQL connection
//   - Data: bulk food-table directory for startup indexing
//   - Server: listen address, vision service URL
//
// Security: sensitive data (passwords, API keys) is never logged; MarshalJSON
// masks it explicitly.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates the OpenAI API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates a model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidMaxToolTurns indicates the tool-loop cap is out of range.
	ErrInvalidMaxToolTurns = errors.New("invalid max tool turns")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidServerAddr indicates the HTTP listen address is invalid.
	ErrInvalidServerAddr = errors.New("invalid server address")
)

// Default model tiers. The fast model handles tool selection and casual chat;
// the heavy model handles analysis, recommendation and meal planning.
const (
	DefaultFastModel     = "gpt-4o-mini"
	DefaultHeavyModel    = "gpt-5-mini"
	DefaultEmbedderModel = "text-embedding-3-small"

	// DefaultMaxToolTurns bounds the agentic tool-calling loop. Meal-plan
	// requests legitimately call the food-search tool many times, so the cap
	// is generous; it exists to stop a model from looping indefinitely.
	DefaultMaxToolTurns = 25

	// MaxAllowedToolTurns is the absolute upper bound for the loop cap.
	MaxAllowedToolTurns = 100
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
type Config struct {
	// AI configuration
	FastModel     string `mapstructure:"fast_model" json:"fast_model"`
	HeavyModel    string `mapstructure:"heavy_model" json:"heavy_model"`
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`
	MaxToolTurns  int    `mapstructure:"max_tool_turns" json:"max_tool_turns"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Food data configuration
	FoodDataDir string `mapstructure:"food_data_dir" json:"food_data_dir"`

	// Server configuration
	ServerAddr string `mapstructure:"server_addr" json:"server_addr"`
	VisionURL  string `mapstructure:"vision_url" json:"vision_url"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}
	configDir := filepath.Join(home, ".matchmeal")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath(configDir)

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults plus env are enough.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{".", configDir})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	viper.SetDefault("fast_model", DefaultFastModel)
	viper.SetDefault("heavy_model", DefaultHeavyModel)
	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("max_tool_turns", DefaultMaxToolTurns)

	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "matchmeal")
	viper.SetDefault("postgres_password", "matchmeal_dev_password")
	viper.SetDefault("postgres_db_name", "matchmeal")
	viper.SetDefault("postgres_ssl_mode", "disable")

	viper.SetDefault("food_data_dir", "data/foods")
	viper.SetDefault("server_addr", ":8000")
	viper.SetDefault("vision_url", "http://localhost:8600")
}

// bindEnvVariables binds environment variables.
// Secrets are only ever read from the environment, never from the file.
func bindEnvVariables() {
	viper.SetEnvPrefix("MATCHMEAL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Explicit binds for secrets shared with the rest of the deployment.
	_ = viper.BindEnv("postgres_password", "MATCHMEAL_POSTGRES_PASSWORD", "RDS_PASSWORD")
	_ = viper.BindEnv("postgres_user", "MATCHMEAL_POSTGRES_USER", "RDS_USERNAME")
}

// Validate checks all configuration values and fails fast on the first
// violation. Returns sentinel errors wrapped with context.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}
	if strings.TrimSpace(c.FastModel) == "" {
		return fmt.Errorf("%w: fast_model is empty", ErrInvalidModelName)
	}
	if strings.TrimSpace(c.HeavyModel) == "" {
		return fmt.Errorf("%w: heavy_model is empty", ErrInvalidModelName)
	}
	if strings.TrimSpace(c.EmbedderModel) == "" {
		return fmt.Errorf("%w: embedder_model is empty", ErrInvalidEmbedderModel)
	}
	if c.MaxToolTurns <= 0 || c.MaxToolTurns > MaxAllowedToolTurns {
		return fmt.Errorf("%w: must be in [1, %d], got %d",
			ErrInvalidMaxToolTurns, MaxAllowedToolTurns, c.MaxToolTurns)
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if strings.TrimSpace(c.ServerAddr) == "" {
		return fmt.Errorf("%w: server_addr is empty", ErrInvalidServerAddr)
	}
	return nil
}

// ValidateServe performs additional checks required for server mode.
// The OpenAI API key is read directly by the genkit plugin, so the only
// contract here is that it exists.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if os.Getenv("OPENAI_API_KEY") == "" {
		return fmt.Errorf("%w: OPENAI_API_KEY environment variable not set", ErrMissingAPIKey)
	}
	return nil
}

// MarshalJSON masks sensitive fields so the config can be logged safely.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config // avoid recursion
	a := alias(c)
	if a.PostgresPassword != "" {
		a.PostgresPassword = "***"
	}
	return json.Marshal(a)
}
