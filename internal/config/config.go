// Package config loads and validates remotefiles configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/remotefiles/internal/hash/sha256"
	"github.com/JakeFAU/remotefiles/internal/retrieval"
	"github.com/JakeFAU/remotefiles/internal/storage"
)

// EnvPrefix prefixes environment overrides, e.g. REMOTEFILES_HTTP_TIMEOUT_SECONDS.
const EnvPrefix = "REMOTEFILES"

// DefaultConfigName is the config file base name searched for when no path is given.
const DefaultConfigName = "remotefiles"

// Config captures all knobs loaded via Viper.
type Config struct {
	Files   []retrieval.Entry `mapstructure:"files"`
	HTTP    HTTPConfig        `mapstructure:"http"`
	Logging LoggingConfig     `mapstructure:"logging"`
	Metrics MetricsConfig     `mapstructure:"metrics"`
	Storage StorageConfig     `mapstructure:"storage"`
}

// HTTPConfig configures the fetcher.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	MaxBodyBytes   int    `mapstructure:"max_body_bytes"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// StorageConfig sets object metadata for remote destinations.
type StorageConfig struct {
	GCSContentType string `mapstructure:"gcs_content_type"`
}

// Load builds a Config from disk/environment. With an empty path the default
// search locations are tried, and finding nothing yields an empty file list.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName(DefaultConfigName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", DefaultConfigName))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.user_agent", "remotefiles/0.1")
	v.SetDefault("http.max_body_bytes", 0)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("storage.gcs_content_type", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxBodyBytes < 0 {
		return fmt.Errorf("http.max_body_bytes must be >= 0")
	}
	seen := make(map[string]int, len(c.Files))
	for i, f := range c.Files {
		if strings.TrimSpace(f.Source) == "" {
			return fmt.Errorf("files[%d].source is required", i)
		}
		if strings.TrimSpace(f.LocalFilePath) == "" {
			return fmt.Errorf("files[%d].localFilePath is required", i)
		}
		if f.SHA256 != "" && !sha256.ValidDigest(f.SHA256) {
			return fmt.Errorf("files[%d].sha256 %q is not a hex sha256 digest", i, f.SHA256)
		}
		key := destinationKey(f.LocalFilePath)
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("files[%d].localFilePath %q duplicates files[%d]", i, f.LocalFilePath, prev)
		}
		seen[key] = i
	}
	return nil
}

// RequestTimeout converts the configured timeout into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

func destinationKey(dest string) string {
	if storage.IsGCS(dest) {
		return dest
	}
	return filepath.Clean(dest)
}
