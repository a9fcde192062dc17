// Package config loads driftlog's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/julianstephens/driftlog/internal/constants"
)

// Quota estimators.
const (
	EstimatorStore      = "store"
	EstimatorFilesystem = "filesystem"
	EstimatorNone       = "none"
)

func init() {
	// Report validation errors by their config file keys.
	validation.ErrorTag = "yaml"
}

// Config represents the application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Quota    QuotaConfig    `yaml:"quota"`
	Log      LogConfig      `yaml:"log"`

	// Dir is the directory the config was resolved against.
	Dir string `yaml:"-"`
}

// DatabaseConfig selects the persistent store.
//
// DSN, when set, must be a PostgreSQL connection string without an embedded
// password; otherwise Path names the SQLite file.
type DatabaseConfig struct {
	Path          string `yaml:"path"`
	DSN           string `yaml:"dsn"`
	CapacityBytes int64  `yaml:"capacity_bytes"`
}

// ArchiveConfig holds retention windows and where archive bundles go.
type ArchiveConfig struct {
	Days                   int      `yaml:"days"`
	CleanThresholdDays     int      `yaml:"clean_threshold_days"`
	EmergencyRetentionDays int      `yaml:"emergency_retention_days"`
	Dir                    string   `yaml:"dir"`
	Compress               bool     `yaml:"compress"`
	S3                     S3Config `yaml:"s3"`
}

// S3Config mirrors archive bundles to an S3-compatible bucket when Bucket is set.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// Enabled reports whether an S3 sink is configured.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// QuotaConfig controls how storage usage is estimated.
type QuotaConfig struct {
	Estimator string        `yaml:"estimator"`
	Timeout   time.Duration `yaml:"timeout"`
}

// LogConfig controls the log file.
type LogConfig struct {
	Debug bool `yaml:"debug"`
}

// NewDefaultConfig returns the configuration used when no file exists.
func NewDefaultConfig(dir string) *Config {
	return &Config{
		Dir: dir,
		Database: DatabaseConfig{
			Path: filepath.Join(dir, constants.AppName+".db"),
		},
		Archive: ArchiveConfig{
			Days:                   constants.DefaultArchiveDays,
			CleanThresholdDays:     constants.DefaultCleanThresholdDays,
			EmergencyRetentionDays: constants.EmergencyRetentionDays,
			Dir:                    filepath.Join(dir, constants.ArchiveDirName),
			Compress:               true,
		},
		Quota: QuotaConfig{
			Estimator: EstimatorStore,
			Timeout:   constants.QuotaProbeTimeout,
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Archive.Validate(); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	if err := c.Quota.Validate(); err != nil {
		return fmt.Errorf("quota: %w", err)
	}
	return nil
}

// Validate validates the database configuration.
func (c *DatabaseConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(c.DSN == "", validation.Required)),
		validation.Field(&c.CapacityBytes, validation.Min(int64(0))),
	)
}

// Validate validates the archive configuration.
func (c *ArchiveConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Days, validation.Required, validation.Min(constants.MinArchiveDays), validation.Max(constants.MaxArchiveDays)),
		validation.Field(&c.CleanThresholdDays, validation.Required, validation.Min(1)),
		validation.Field(&c.EmergencyRetentionDays, validation.Required, validation.Min(1)),
		validation.Field(&c.Dir, validation.Required),
	); err != nil {
		return err
	}
	return c.S3.Validate()
}

// Validate validates the S3 configuration. An empty bucket disables the sink.
func (c *S3Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Region, validation.When(c.Enabled(), validation.Required)),
		validation.Field(&c.SecretAccessKey, validation.When(c.AccessKeyID != "", validation.Required)),
		validation.Field(&c.AccessKeyID, validation.When(c.SecretAccessKey != "", validation.Required)),
	)
}

// Validate validates the quota configuration.
func (c *QuotaConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Estimator, validation.Required, validation.In(EstimatorStore, EstimatorFilesystem, EstimatorNone)),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Millisecond)),
	)
}

// Load reads the config file at path with ${VAR} expansion. A missing file
// yields the defaults for path's directory.
func Load(path string) (*Config, error) {
	path, err := ExpandHome(path)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	cfg := NewDefaultConfig(dir)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	for _, p := range []*string{&cfg.Database.Path, &cfg.Archive.Dir} {
		if *p == "" {
			continue
		}
		if *p, err = ExpandHome(*p); err != nil {
			return nil, err
		}
		if !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	path, err := ExpandHome(path)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// LoadEnv loads a .env file from dir, if present, without overriding
// variables already set in the environment.
func LoadEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
