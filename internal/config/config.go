package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Validation ValidationConfig `mapstructure:"validation"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Logger     LoggerConfig     `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds report store configuration.
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ExtractionConfig holds extraction pipeline configuration.
type ExtractionConfig struct {
	Workers    int  `mapstructure:"workers"`
	AIFallback bool `mapstructure:"ai_fallback"`
}

// ValidationConfig holds rule engine configuration.
type ValidationConfig struct {
	Tolerance float64 `mapstructure:"tolerance"`
}

// OpenAIConfig holds the fallback extractor's API configuration.
type OpenAIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoggerConfig holds logger configuration.
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	viper.SetDefault("database.path", "data/invoice_qc.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	viper.SetDefault("extraction.workers", 4)
	viper.SetDefault("extraction.ai_fallback", false)

	viper.SetDefault("validation.tolerance", 0.02)

	viper.SetDefault("openai.model", "gpt-4o-mini")
	viper.SetDefault("openai.timeout", 60*time.Second)

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds sensitive credentials to environment variables.
func bindEnvVars() {
	viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Extraction.AIFallback && c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required when extraction.ai_fallback is enabled")
	}
	if c.Validation.Tolerance < 0 {
		return fmt.Errorf("validation.tolerance must not be negative")
	}
	if c.Extraction.Workers < 1 {
		return fmt.Errorf("extraction.workers must be at least 1")
	}
	return nil
}
