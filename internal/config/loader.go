package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	defaultMaxDriftRatePPB       = 1000
	defaultClockErrorBoundSource = "chrony-udp"
	defaultChronyAddr            = "127.0.0.1:323"
	defaultClockboundShmPath     = "/var/run/clockbound/shm0"
	defaultVMClockShmPath        = "/dev/vmclock0"
	defaultHTTPBindAddr          = "127.0.0.1:8080"
	defaultSSHBindAddr           = "127.0.0.1:2222"
)

// LoadConfig reads and validates the YAML config at configPath, filling in
// defaults for anything left unset. An empty configPath is valid: the
// daemon can run entirely off flag defaults.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		cfg := &Config{}
		setDefaults(cfg)
		return cfg, nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadConfigFromBytes(data)
}

// LoadConfigFromBytes parses, validates, and defaults a config document
// already read into memory.
func LoadConfigFromBytes(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	setDefaults(&cfg)
	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	switch cfg.Runner.ClockErrorBoundSource {
	case "", "chrony-udp", "chronyc":
	default:
		return fmt.Errorf("unsupported clock_error_bound_source %q, supported: chrony-udp, chronyc", cfg.Runner.ClockErrorBoundSource)
	}

	if cfg.Server.SSH.Enable && cfg.Server.SSH.ServerKey == "" {
		return fmt.Errorf("server.ssh.server_key is required when server.ssh.enable is true")
	}

	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Runner.MaxDriftRatePPB == 0 {
		cfg.Runner.MaxDriftRatePPB = defaultMaxDriftRatePPB
	}
	if cfg.Runner.ClockErrorBoundSource == "" {
		cfg.Runner.ClockErrorBoundSource = defaultClockErrorBoundSource
	}
	if cfg.Runner.ChronyAddr == "" {
		cfg.Runner.ChronyAddr = defaultChronyAddr
	}
	if cfg.Runner.ClockboundShmPath == "" {
		cfg.Runner.ClockboundShmPath = defaultClockboundShmPath
	}
	if cfg.Runner.VMClockShmPath == "" {
		cfg.Runner.VMClockShmPath = defaultVMClockShmPath
	}
	if cfg.Server.HTTP.Enable && cfg.Server.HTTP.BindAddr == "" {
		cfg.Server.HTTP.BindAddr = defaultHTTPBindAddr
	}
	if cfg.Server.SSH.Enable && cfg.Server.SSH.BindAddr == "" {
		cfg.Server.SSH.BindAddr = defaultSSHBindAddr
	}
}
