package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Backend  BackendConfig  `mapstructure:"backend" toml:"backend"`
	Database DatabaseConfig `mapstructure:"database" toml:"database"`
	Server   ServerConfig   `mapstructure:"server" toml:"server"`
	Log      LogConfig      `mapstructure:"log" toml:"log"`
	Forms    FormsConfig    `mapstructure:"forms" toml:"forms"`
}

// BackendConfig points the form clients at the lookup service.
type BackendConfig struct {
	BaseURL string `mapstructure:"base_url" toml:"base_url"`
}

// DatabaseConfig holds sqlite settings for the lookup service.
type DatabaseConfig struct {
	Path       string `mapstructure:"path" toml:"path"`
	Migrations string `mapstructure:"migrations" toml:"migrations"`
}

// ServerConfig holds lookup service listener settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr" toml:"addr"`
}

// LogConfig holds logger settings. File, when set, receives all output.
// Without one the interactive form does not log.
type LogConfig struct {
	Level  string `mapstructure:"level" toml:"level"`
	Format string `mapstructure:"format" toml:"format"`
	File   string `mapstructure:"file" toml:"file"`
}

// FormsConfig locates the form definitions file.
type FormsConfig struct {
	Path string `mapstructure:"path" toml:"path"`
}

// Load reads configuration from file and env. Env var overrides use prefix CROPFORM_.
func Load() (Config, error) {
	v := viper.New()
	home := os.Getenv("HOME")

	// default values
	v.SetDefault("backend.base_url", "http://127.0.0.1:8080")
	v.SetDefault("database.path", filepath.Join(home, ".local", "share", "cropform", "cropform.db"))
	v.SetDefault("database.migrations", "internal/database/migrations")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("forms.path", filepath.Join(home, ".config", "cropform", "forms.toml"))

	v.SetConfigType("toml")

	cfgPath := os.Getenv("CROPFORM_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(home, ".config", "cropform"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("CROPFORM")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// a missing default file is fine; a broken or missing explicit one is not
		var notFound viper.ConfigFileNotFoundError
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Save writes the provided config to disk, creating the config directory if needed.
func Save(cfg Config) error {
	path := os.Getenv("CROPFORM_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "cropform", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("backend.base_url", cfg.Backend.BaseURL)
	v.Set("database.path", cfg.Database.Path)
	v.Set("database.migrations", cfg.Database.Migrations)
	v.Set("server.addr", cfg.Server.Addr)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.format", cfg.Log.Format)
	v.Set("log.file", cfg.Log.File)
	v.Set("forms.path", cfg.Forms.Path)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
