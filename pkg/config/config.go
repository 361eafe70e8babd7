// Package config loads the scheduler process's YAML configuration file,
// the same gopkg.in/yaml.v3 library cuemby/warren uses for its own
// manifest files (cmd/warren/apply.go).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/cuemby/warren-scheduler/pkg/log"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration with YAML support for "10s"-style strings,
// which yaml.v3 does not parse into int64-backed types on its own.
type Duration time.Duration

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the scheduler daemon's process configuration.
type Config struct {
	DataDir      string    `yaml:"data_dir"`
	PassInterval Duration  `yaml:"pass_interval"`
	HTTPAddr     string    `yaml:"http_addr"`
	GRPCAddr     string    `yaml:"grpc_addr"`
	LogLevel     log.Level `yaml:"log_level"`
	LogJSON      bool      `yaml:"log_json"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		DataDir:      "./data",
		PassInterval: Duration(10 * time.Second),
		HTTPAddr:     ":8080",
		GRPCAddr:     ":8081",
		LogLevel:     log.InfoLevel,
		LogJSON:      false,
	}
}

// Load reads and parses a YAML config file, filling in defaults for any
// field the file omits.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
