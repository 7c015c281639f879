// Package config provides configuration management for distrans using
// Viper. It supports configuration from defaults, files, environment
// variables, and CLI flags, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultChunkLength  = 60 * time.Second
	defaultMaxOpenConns = 6
	defaultMaxIdleConns = 3
)

// Config holds all configuration for a distrans run.
type Config struct {
	Clients     []string       `mapstructure:"clients"`
	Length      Duration       `mapstructure:"length"`
	TmpDir      string         `mapstructure:"tmp_dir"`
	Keep        bool           `mapstructure:"keep"`
	StatusAddr  string         `mapstructure:"status_addr"`
	// MinFreeSpace is the free-space floor WarnIfTight checks the local temp
	// filesystem against before splitting. Supports human-readable values
	// like "2GB", "500MB", or a raw byte count.
	MinFreeSpace ByteSize       `mapstructure:"min_free_space"`
	FFmpeg       FFmpegConfig   `mapstructure:"ffmpeg"`
	Database     DatabaseConfig `mapstructure:"database"`
	Logging      LoggingConfig  `mapstructure:"logging"`
}

// FFmpegConfig holds ffmpeg/ffprobe binary configuration.
type FFmpegConfig struct {
	BinaryPath string `mapstructure:"binary_path"` // Path to ffmpeg binary (empty = auto-detect on PATH)
	ProbePath  string `mapstructure:"probe_path"`  // Path to ffprobe binary (empty = auto-detect on PATH)
}

// DatabaseConfig holds the run-ledger database connection configuration.
// The ledger is sqlite-only: a single-shot CLI has no business running a
// networked database server just to append audit rows.
type DatabaseConfig struct {
	Path         string        `mapstructure:"path"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	LogLevel     string        `mapstructure:"log_level"` // silent, error, warn, info
	ConnMaxIdle  time.Duration `mapstructure:"conn_max_idle_time"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration and are
// prefixed with DISTRANS_, using underscores for nesting.
// Example: DISTRANS_DATABASE_PATH=/var/lib/distrans/history.db.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(".distrans")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
		v.AddConfigPath("/etc/distrans")
	}

	v.SetEnvPrefix("DISTRANS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Duration and ByteSize decode through their UnmarshalText methods.
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file to ensure defaults
// are in place.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("length", defaultChunkLength.String())
	v.SetDefault("tmp_dir", "")
	v.SetDefault("keep", false)
	v.SetDefault("status_addr", "")
	v.SetDefault("min_free_space", "2GB")

	v.SetDefault("ffmpeg.binary_path", "")
	v.SetDefault("ffmpeg.probe_path", "")

	v.SetDefault("database.path", "distrans-history.db")
	v.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaultMaxIdleConns)
	v.SetDefault("database.conn_max_idle_time", 30*time.Minute)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)
}

// Validate checks the configuration for errors. Clients is deliberately not
// required here: the run command accepts hosts as a positional CLI flag,
// falling back to Clients only when the flag is omitted, so an empty list
// at config-load time is not yet an error.
func (c *Config) Validate() error {
	if c.Length.Duration() <= 0 {
		return fmt.Errorf("length: must be a positive duration")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	return nil
}
