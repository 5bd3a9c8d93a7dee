// Package config loads the file-share server settings from defaults, an
// optional config file and FILESHARE_* environment variables.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the server reads.
const EnvPrefix = "FILESHARE"

// Config holds every tunable of the server. The zero value is not usable;
// start from Default or Load.
type Config struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	UploadDir string `mapstructure:"upload_dir"`
	StaticDir string `mapstructure:"static_dir"`

	ChunkSize      int   `mapstructure:"chunk_size"`
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"` // 0 = no limit
	MaxConnections int   `mapstructure:"max_connections"`

	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CacheMaxAge     time.Duration `mapstructure:"cache_max_age"`

	MetricsPath string `mapstructure:"metrics_path"` // empty disables /metrics

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

var defaults = map[string]any{
	"host":             "0.0.0.0",
	"port":             15973,
	"upload_dir":       "uploads",
	"static_dir":       ".",
	"chunk_size":       8 * 1024,
	"max_upload_bytes": int64(0),
	"max_connections":  256,
	"idle_timeout":     30 * time.Second,
	"shutdown_timeout": 5 * time.Second,
	"cache_max_age":    time.Hour,
	"metrics_path":     "/metrics",
	"log_level":        "info",
	"log_format":       "text",
}

// Default returns the built-in settings without consulting the environment.
func Default() Config {
	return Config{
		Host:            defaults["host"].(string),
		Port:            defaults["port"].(int),
		UploadDir:       defaults["upload_dir"].(string),
		StaticDir:       defaults["static_dir"].(string),
		ChunkSize:       defaults["chunk_size"].(int),
		MaxUploadBytes:  defaults["max_upload_bytes"].(int64),
		MaxConnections:  defaults["max_connections"].(int),
		IdleTimeout:     defaults["idle_timeout"].(time.Duration),
		ShutdownTimeout: defaults["shutdown_timeout"].(time.Duration),
		CacheMaxAge:     defaults["cache_max_age"].(time.Duration),
		MetricsPath:     defaults["metrics_path"].(string),
		LogLevel:        defaults["log_level"].(string),
		LogFormat:       defaults["log_format"].(string),
	}
}

// Load resolves the configuration. Precedence, highest first: environment
// (FILESHARE_PORT, ...), the file named by FILESHARE_CONFIG, defaults.
// The result is validated before it is returned.
func Load() (Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if path := os.Getenv(EnvPrefix + "_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ListenAddr is the host:port the server binds to.
func (c Config) ListenAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate reports every invalid field at once. A non-nil error is always
// a ValidationErrors.
func (c Config) Validate() error {
	v := NewValidator()

	v.ValidatePort("port", c.Port)
	v.ValidateRequired("upload_dir", c.UploadDir)
	v.ValidateRequired("static_dir", c.StaticDir)
	v.ValidatePositive("chunk_size", int64(c.ChunkSize))
	v.ValidatePositive("max_connections", int64(c.MaxConnections))
	if c.MaxUploadBytes < 0 {
		v.AddError("max_upload_bytes", "must not be negative")
	}
	v.ValidatePositiveDuration("idle_timeout", c.IdleTimeout)
	v.ValidatePositiveDuration("shutdown_timeout", c.ShutdownTimeout)
	if c.CacheMaxAge < 0 {
		v.AddError("cache_max_age", "must not be negative")
	}
	if c.MetricsPath != "" && !strings.HasPrefix(c.MetricsPath, "/") {
		v.AddError("metrics_path", "must start with / (or be empty to disable)")
	}
	v.ValidateEnum("log_level", strings.ToLower(c.LogLevel), []string{"debug", "info", "warn", "error"})
	v.ValidateEnum("log_format", strings.ToLower(c.LogFormat), []string{"text", "json"})

	return v.Err()
}
