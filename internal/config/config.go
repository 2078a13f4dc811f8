package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the kasbon analytics service.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Delivery DeliveryConfig `mapstructure:"delivery"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string `mapstructure:"port"`

	// MaxUploadBytes caps the size of an uploaded dataset file.
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
}

// StorageConfig holds local artifact locations and retention.
type StorageConfig struct {
	// UploadsDir is where uploaded dataset files are spooled.
	UploadsDir string `mapstructure:"uploads_dir"`

	// OutputDir is the root for per-run report and chart artifacts.
	OutputDir string `mapstructure:"output_dir"`

	// JobTTL is how long finished jobs stay queryable/downloadable.
	JobTTL time.Duration `mapstructure:"job_ttl"`
}

// DeliveryConfig holds optional GCS delivery settings.
// An empty bucket disables delivery.
type DeliveryConfig struct {
	Bucket          string `mapstructure:"bucket"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from an optional config file and KASBON_* env
// variables, falling back to defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.max_upload_bytes", int64(25*1024*1024))
	v.SetDefault("storage.uploads_dir", "uploads")
	v.SetDefault("storage.output_dir", "reports")
	v.SetDefault("storage.job_ttl", 24*time.Hour)
	v.SetDefault("delivery.bucket", "")
	v.SetDefault("delivery.credentials_file", "")
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix("KASBON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Server.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("server.max_upload_bytes must be positive, got %d", cfg.Server.MaxUploadBytes)
	}
	if cfg.Storage.JobTTL <= 0 {
		return nil, fmt.Errorf("storage.job_ttl must be positive, got %s", cfg.Storage.JobTTL)
	}

	return &cfg, nil
}
