// Package config loads the blockcache command configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/hupe1980/blockcache"
)

// Config is the configuration of the blockcache command.
//
// Sources, highest precedence first:
//  1. Command line flags bound with BindFlag
//  2. Environment variables (BLOCKCACHE_*)
//  3. Configuration file (YAML)
//  4. Defaults
type Config struct {
	// Dir holds the partition files.
	Dir string `mapstructure:"dir"`
	// Partitions is the number of partition files.
	Partitions int `mapstructure:"partitions"`
	// BlocksPerPartition must be a power of two.
	BlocksPerPartition int `mapstructure:"blocks_per_partition"`
	// BlockSize accepts human-readable sizes such as "32KiB".
	BlockSize string `mapstructure:"block_size"`
	// EvictionSamples is the number of blocks sampled per eviction round.
	EvictionSamples int `mapstructure:"eviction_samples"`
	// EvictionEntries is the maximum number of entries removed per round.
	EvictionEntries int `mapstructure:"eviction_entries"`

	Logging LoggingConfig `mapstructure:"logging"`
	Server  ServerConfig  `mapstructure:"server"`
	Scrub   ScrubConfig   `mapstructure:"scrub"`
	Origin  OriginConfig  `mapstructure:"origin"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`
	// Format is text or json.
	Format string `mapstructure:"format"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	// Addr is the listen address of the HTTP API and /metrics.
	Addr string `mapstructure:"addr"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ScrubConfig configures background verification.
type ScrubConfig struct {
	// Interval between scrubs in serve mode. Zero disables scrubbing.
	Interval time.Duration `mapstructure:"interval"`
	// IOLimit caps verification and origin reads, e.g. "64MiB". Empty is unlimited.
	IOLimit string `mapstructure:"io_limit"`
}

// OriginConfig selects the blob store artifacts are read through from.
type OriginConfig struct {
	// Type is "", "local", "s3" or "minio". Empty disables the origin.
	Type      string `mapstructure:"type"`
	Path      string `mapstructure:"path"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Secure    bool   `mapstructure:"secure"`
}

// Default returns the default configuration.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero fields with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Dir == "" {
		cfg.Dir = "./blockcache-data"
	}
	if cfg.Partitions == 0 {
		cfg.Partitions = 4
	}
	if cfg.BlocksPerPartition == 0 {
		cfg.BlocksPerPartition = blockcache.DefaultBlocksPerPartition
	}
	if cfg.BlockSize == "" {
		cfg.BlockSize = "32KiB"
	}
	if cfg.EvictionSamples == 0 {
		cfg.EvictionSamples = blockcache.DefaultEvictionSamples
	}
	if cfg.EvictionEntries == 0 {
		cfg.EvictionEntries = blockcache.DefaultEvictionEntries
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":9400"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
}

// Validate checks the configuration for errors.
func Validate(cfg *Config) error {
	var errs []error
	if cfg.Partitions <= 0 {
		errs = append(errs, fmt.Errorf("partitions must be positive, got %d", cfg.Partitions))
	}
	if _, err := cfg.BlockSizeBytes(); err != nil {
		errs = append(errs, err)
	}
	if _, err := cfg.IOLimitBytes(); err != nil {
		errs = append(errs, err)
	}
	if _, err := cfg.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be text or json, got %q", cfg.Logging.Format))
	}
	if cfg.Scrub.Interval < 0 {
		errs = append(errs, fmt.Errorf("scrub.interval must not be negative"))
	}
	switch cfg.Origin.Type {
	case "":
	case "local":
		if cfg.Origin.Path == "" {
			errs = append(errs, errors.New("origin.path is required for a local origin"))
		}
	case "s3", "minio":
		if cfg.Origin.Bucket == "" {
			errs = append(errs, fmt.Errorf("origin.bucket is required for a %s origin", cfg.Origin.Type))
		}
		if cfg.Origin.Type == "minio" && cfg.Origin.Endpoint == "" {
			errs = append(errs, errors.New("origin.endpoint is required for a minio origin"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown origin.type %q", cfg.Origin.Type))
	}
	return errors.Join(errs...)
}

// BlockSizeBytes parses BlockSize.
func (c *Config) BlockSizeBytes() (int, error) {
	n, err := humanize.ParseBytes(c.BlockSize)
	if err != nil {
		return 0, fmt.Errorf("invalid block_size %q: %w", c.BlockSize, err)
	}
	if n == 0 || n > blockcache.MaxBlockSize {
		return 0, fmt.Errorf("block_size %s out of range", c.BlockSize)
	}
	return int(n), nil
}

// IOLimitBytes parses Scrub.IOLimit. Zero means unlimited.
func (c *Config) IOLimitBytes() (int64, error) {
	if c.Scrub.IOLimit == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(c.Scrub.IOLimit)
	if err != nil {
		return 0, fmt.Errorf("invalid scrub.io_limit %q: %w", c.Scrub.IOLimit, err)
	}
	return int64(n), nil
}

// LogLevel parses Logging.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return 0, fmt.Errorf("invalid logging.level %q", c.Logging.Level)
	}
	return level, nil
}

// Loader reads configuration through viper. Flags can be bound before Load.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a Loader for the given config file path. An empty path
// looks for blockcache.yaml in the working directory.
func NewLoader(configPath string) *Loader {
	v := viper.New()
	setupViper(v, configPath)
	return &Loader{v: v}
}

// Viper exposes the underlying instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load reads, defaults and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	if _, err := readConfigFile(l.v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Load is a shorthand for NewLoader(configPath).Load().
func Load(configPath string) (*Config, error) {
	return NewLoader(configPath).Load()
}

// envKeys lists every key so that environment variables are honored by
// Unmarshal even when the key is absent from the config file.
var envKeys = []string{
	"dir", "partitions", "blocks_per_partition", "block_size",
	"eviction_samples", "eviction_entries",
	"logging.level", "logging.format",
	"server.addr", "server.shutdown_timeout",
	"scrub.interval", "scrub.io_limit",
	"origin.type", "origin.path", "origin.bucket", "origin.prefix", "origin.region",
	"origin.endpoint", "origin.access_key", "origin.secret_key", "origin.secure",
}

// setupViper configures environment variables and the config file location.
func setupViper(v *viper.Viper, configPath string) {
	// BLOCKCACHE_LOGGING_LEVEL=debug
	v.SetEnvPrefix("BLOCKCACHE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range envKeys {
		_ = v.BindEnv(k)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(".")
	v.SetConfigName("blockcache")
	v.SetConfigType("yaml")
}

// readConfigFile reports whether a config file was read. A missing file is not an error.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}
