package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"ragicflow/internal/ragic"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	LogLevel string `mapstructure:"log_level"`

	RagicAPIKey     string `mapstructure:"ragic_api_key"`
	RagicServerName string `mapstructure:"ragic_server_name"`
	RagicSheetURL   string `mapstructure:"ragic_sheet_url"`

	// PublicURL is where Ragic reaches the callback server, e.g. https://flows.example.com.
	PublicURL          string        `mapstructure:"public_url"`
	HTTPTimeoutSeconds int64         `mapstructure:"http_timeout_seconds"`
	HTTPTimeout        time.Duration `mapstructure:"-"`

	StoreType string `mapstructure:"store_type"`
	StorePath string `mapstructure:"store_path"`
}

// Load reads .env, then the optional config file, then environment variables.
// Environment variables win.
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()

	v.SetDefault("app_name", "ragicflow")
	v.SetDefault("log_level", "info")
	v.SetDefault("ragic_api_key", "")
	v.SetDefault("ragic_server_name", "")
	v.SetDefault("ragic_sheet_url", "")
	v.SetDefault("public_url", "")
	v.SetDefault("http_timeout_seconds", 30)
	v.SetDefault("store_type", "bbolt")
	v.SetDefault("store_path", "./data/ragicflow.db")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.HTTPTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid http_timeout_seconds (must be positive seconds)")
	}
	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSeconds) * time.Second
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")

	return &cfg, nil
}

// Credentials returns the action node credentials.
func (c *Config) Credentials() ragic.Credentials {
	return ragic.Credentials{APIKey: c.RagicAPIKey, ServerName: c.RagicServerName}
}

// TriggerCredentials returns the trigger credentials for sheetURL, falling
// back to the configured sheet.
func (c *Config) TriggerCredentials(sheetURL string) ragic.TriggerCredentials {
	if sheetURL == "" {
		sheetURL = c.RagicSheetURL
	}
	return ragic.TriggerCredentials{APIKey: c.RagicAPIKey, SheetURL: sheetURL}
}
