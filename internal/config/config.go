package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/atlas/internal/stats"
	"github.com/miradorstack/atlas/internal/utils"
)

// Config captures the settings of the pipeline binary and its gRPC service.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Server   ServerConfig   `yaml:"server"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Store    StoreConfig    `yaml:"store"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// PipelineConfig controls evaluation.
type PipelineConfig struct {
	Seed               int64  `yaml:"seed"`
	Profile            string `yaml:"profile"`
	Thresholds         string `yaml:"thresholds"`
	Workers            int    `yaml:"workers"`
	Strict             bool   `yaml:"strict"`
	BootstrapResamples int    `yaml:"bootstrapResamples"`
}

// ServerConfig controls gRPC listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// MetricsConfig controls batch metric export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// StoreConfig controls the optional SQLite audit copy of the record stream.
type StoreConfig struct {
	SQLitePath string `yaml:"sqlitePath"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("ATLAS_CONFIG")
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, utils.MissingInput("load config", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", JSON: false},
		Pipeline: PipelineConfig{
			Seed:               stats.DefaultSeed,
			Profile:            "default",
			Workers:            1,
			BootstrapResamples: stats.DefaultBootstrapResamples,
		},
		Server: ServerConfig{
			Address:         ":50051",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ATLAS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ATLAS_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("ATLAS_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Pipeline.Seed = seed
		}
	}
	if v := os.Getenv("ATLAS_PROFILE"); v != "" {
		cfg.Pipeline.Profile = v
	}
	if v := os.Getenv("ATLAS_THRESHOLDS"); v != "" {
		cfg.Pipeline.Thresholds = v
	}
	if v := os.Getenv("ATLAS_WORKERS"); v != "" {
		if workers, err := strconv.Atoi(v); err == nil && workers > 0 {
			cfg.Pipeline.Workers = workers
		}
	}
	if v := os.Getenv("ATLAS_STRICT"); v != "" {
		cfg.Pipeline.Strict = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("ATLAS_BOOTSTRAP_RESAMPLES"); v != "" {
		if b, err := strconv.Atoi(v); err == nil && b > 0 {
			cfg.Pipeline.BootstrapResamples = b
		}
	}
	if v := os.Getenv("ATLAS_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("ATLAS_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("ATLAS_GRACEFUL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.GracefulTimeout = d
		}
	}
	if v := os.Getenv("ATLAS_METRICS_TEXTFILE"); v != "" {
		cfg.Metrics.Textfile = v
	}
	if v := os.Getenv("ATLAS_SQLITE_PATH"); v != "" {
		cfg.Store.SQLitePath = v
	}
}
