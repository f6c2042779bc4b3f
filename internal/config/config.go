package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel       string `yaml:"logLevel" env:"DAPIGATE_LOG_LEVEL"`
	LogFormat      string `yaml:"logFormat" env:"DAPIGATE_LOG_FORMAT"`
	MetricsAddress string `yaml:"metricsAddress" env:"DAPIGATE_METRICS_ADDRESS"`

	Probe    ProbeConfig              `yaml:"probe"`
	Cache    CacheConfig              `yaml:"cache"`
	Networks map[string]NetworkConfig `yaml:"networks"`
}

type ProbeConfig struct {
	Timeout     time.Duration `yaml:"timeout" env:"DAPIGATE_PROBE_TIMEOUT"`
	Concurrency int           `yaml:"concurrency" env:"DAPIGATE_PROBE_CONCURRENCY"`
}

type CacheConfig struct {
	ConfigTTL time.Duration `yaml:"configTTL" env:"DAPIGATE_CONFIG_TTL"`
	HealthTTL time.Duration `yaml:"healthTTL" env:"DAPIGATE_HEALTH_TTL"`
}

// NetworkConfig overrides where a network's candidate endpoints come from.
// At most one of the fields is honored, in the order listed.
type NetworkConfig struct {
	ConfigURL string `yaml:"configURL"`
	Resource  string `yaml:"resource"`
	EnvVar    string `yaml:"envVar"`
}

// Load reads the yaml config at path, applies environment overrides, then
// fills defaults. An empty path yields a pure default configuration.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal yaml: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env overrides: %w", err)
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "console"
	}
	if cfg.Probe.Timeout <= 0 {
		cfg.Probe.Timeout = 5 * time.Second
	}
	if cfg.Probe.Concurrency <= 0 {
		cfg.Probe.Concurrency = 5
	}
	if cfg.Cache.ConfigTTL <= 0 {
		cfg.Cache.ConfigTTL = 5 * time.Minute
	}
	if cfg.Cache.HealthTTL <= 0 {
		cfg.Cache.HealthTTL = time.Minute
	}

	return &cfg, nil
}

// Network returns the override block for a network, zero-valued when absent.
func (cfg *Config) Network(name string) NetworkConfig {
	return cfg.Networks[name]
}
