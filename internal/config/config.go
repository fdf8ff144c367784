// Package config loads and validates the bundler's YAML configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/withObsrvr/prefix-bundler/internal/logging"
)

// Config is the top-level configuration document.
type Config struct {
	AWS     AWSConfig      `yaml:"aws"`
	Bundle  BundleConfig   `yaml:"bundle"`
	Options OptionsConfig  `yaml:"options"`
	Logging logging.Config `yaml:"logging"`
	Metrics MetricsConfig  `yaml:"metrics"`
}

// AWSConfig selects the storage backend and the buckets the run operates on.
type AWSConfig struct {
	SourceBucket      string `yaml:"source_bucket"`
	DestinationBucket string `yaml:"destination_bucket"`
	Region            string `yaml:"region"`
	Endpoint          string `yaml:"endpoint"`
	Backend           string `yaml:"backend"`    // "s3" | "local"
	LocalRoot         string `yaml:"local_root"` // base dir for the local backend
}

// BundleConfig describes what to fetch and what to produce.
type BundleConfig struct {
	SourcePrefixes    []string `yaml:"source_prefixes"`
	OutputName        string   `yaml:"output_name"`
	DestinationPrefix string   `yaml:"destination_prefix"`
	LocalDir          string   `yaml:"local_dir"`
}

// OptionsConfig holds run behavior toggles.
type OptionsConfig struct {
	CompressionLevel int   `yaml:"compression_level"`
	OverwriteRemote  bool  `yaml:"overwrite_remote"`
	DeleteLocalAfter *bool `yaml:"delete_local_after"`
}

// MetricsConfig configures the optional Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// Load reads, defaults, and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.AWS.Backend == "" {
		c.AWS.Backend = "s3"
	}
	if c.AWS.Region == "" {
		c.AWS.Region = os.Getenv("AWS_REGION")
	}
	if c.Bundle.LocalDir == "" {
		c.Bundle.LocalDir = "output"
	}
	if c.Options.CompressionLevel == 0 {
		c.Options.CompressionLevel = 9
	}
	if c.Options.DeleteLocalAfter == nil {
		t := true
		c.Options.DeleteLocalAfter = &t
	}
	if c.Metrics.Address == "" {
		c.Metrics.Address = ":9100"
	}
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.AWS.SourceBucket == "" {
		return fmt.Errorf("missing required field: aws.source_bucket")
	}
	if c.AWS.DestinationBucket == "" {
		return fmt.Errorf("missing required field: aws.destination_bucket")
	}
	switch c.AWS.Backend {
	case "s3":
	case "local":
		if c.AWS.LocalRoot == "" {
			return fmt.Errorf("aws.local_root required for local backend")
		}
	default:
		return fmt.Errorf("unknown backend: %s", c.AWS.Backend)
	}
	if len(c.Bundle.SourcePrefixes) == 0 {
		return fmt.Errorf("missing required field: bundle.source_prefixes")
	}
	for i, p := range c.Bundle.SourcePrefixes {
		if p == "" {
			return fmt.Errorf("bundle.source_prefixes[%d] is empty", i)
		}
	}
	if c.Bundle.OutputName == "" {
		return fmt.Errorf("missing required field: bundle.output_name")
	}
	if strings.ContainsRune(c.Bundle.OutputName, '/') {
		return fmt.Errorf("bundle.output_name must be a bare file name: %s", c.Bundle.OutputName)
	}
	if c.Options.CompressionLevel < 1 || c.Options.CompressionLevel > 9 {
		return fmt.Errorf("options.compression_level must be 1-9, got %d", c.Options.CompressionLevel)
	}
	return nil
}

// DeleteLocal reports whether local files should be removed after a run.
func (c *Config) DeleteLocal() bool {
	return c.Options.DeleteLocalAfter == nil || *c.Options.DeleteLocalAfter
}

// LoadCredentials loads a .env file if present and verifies the AWS
// credentials the s3 backend needs. The local backend needs none.
func (c *Config) LoadCredentials() error {
	if c.AWS.Backend != "s3" {
		return nil
	}

	if err := godotenv.Load(); err != nil {
		slog.Warn(".env file not found, using environment variables only")
	}

	var missing []string
	for _, key := range []string{"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY"} {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required AWS credentials: %s", strings.Join(missing, ", "))
	}
	return nil
}
