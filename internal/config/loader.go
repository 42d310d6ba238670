package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and parses configuration from a file (or a directory
// containing config.yaml).
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}

	if info.IsDir() {
		absPath = filepath.Join(absPath, "config.yaml")
		if _, err := os.Stat(absPath); err != nil {
			return nil, fmt.Errorf("directory provided but config.yaml not found: %s", absPath)
		}
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	// Apply environment variable interpolation before parsing.
	interpolated := interpolateEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(interpolated), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	applyDefaults(&cfg)

	// Integrity check: if a .checksums manifest sits beside the config,
	// the file must match it.
	if err := verifyConfigHash(absPath); err != nil {
		return nil, err
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// DiscoverConfigPath finds the config file by checking standard locations.
// Priority order: $ESPCLEAN_CONFIG, ~/.config/espclean, /etc/espclean, ./config.yaml
func DiscoverConfigPath() (string, error) {
	if path := os.Getenv("ESPCLEAN_CONFIG"); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		userConfigDir := filepath.Join(homeDir, ".config", "espclean")
		if _, err := os.Stat(userConfigDir); err == nil {
			return userConfigDir, nil
		}
	}

	systemConfigDir := "/etc/espclean"
	if _, err := os.Stat(systemConfigDir); err == nil {
		return systemConfigDir, nil
	}

	legacyConfigPath := "./config.yaml"
	if _, err := os.Stat(legacyConfigPath); err == nil {
		return legacyConfigPath, nil
	}

	return "", fmt.Errorf("no config found (checked: $ESPCLEAN_CONFIG, ~/.config/espclean, /etc/espclean, ./config.yaml)")
}

func verifyConfigHash(configPath string) error {
	dir := filepath.Dir(configPath)
	checksums, err := LoadChecksums(dir)
	if err != nil {
		// No .checksums means integrity locking is not in use for this dir.
		return nil
	}

	basename := filepath.Base(configPath)
	expectedHash, ok := checksums.Hashes[basename]
	if !ok {
		return fmt.Errorf("config file %s has no hash in checksums at %s\n"+
			"Run: espclean config lock --config %s", basename, dir, configPath)
	}

	if err := VerifyFileHash(configPath, expectedHash); err != nil {
		return fmt.Errorf("config verification failed for %s: %w\n"+
			"This indicates tampering or unauthorized modification.\n"+
			"If you edited this file intentionally, run: espclean config lock --config %s", configPath, err, configPath)
	}
	return nil
}

// applyDefaults merges default values into cfg where not explicitly set.
func applyDefaults(cfg *Config) {
	defaults := Defaults()

	if cfg.Service.Name == "" {
		cfg.Service.Name = defaults.Service.Name
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = defaults.Service.LogLevel
	}
	if cfg.Service.LogFormat == "" {
		cfg.Service.LogFormat = defaults.Service.LogFormat
	}
	if cfg.State.Path == "" {
		cfg.State.Path = defaults.State.Path
	}
	if cfg.Tool.Timeout == 0 {
		cfg.Tool.Timeout = defaults.Tool.Timeout
	}
	if cfg.Tool.PollInterval == 0 {
		cfg.Tool.PollInterval = defaults.Tool.PollInterval
	}
	if cfg.Tool.GracePeriod == 0 {
		cfg.Tool.GracePeriod = defaults.Tool.GracePeriod
	}
	if !cfg.API.Enabled && cfg.API.Listen == "" {
		cfg.API = defaults.API
	}
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Undefined variables are left as-is (caught by validation where required).
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}

// validate performs basic validation on the configuration.
func validate(cfg *Config) error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Service.LogLevel] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}

	if cfg.State.Path == "" {
		return fmt.Errorf("state.path is required")
	}

	if cfg.Tool.Path == "" {
		return fmt.Errorf("tool.path is required")
	}
	if envVarPattern.MatchString(cfg.Tool.Path) {
		matches := envVarPattern.FindStringSubmatch(cfg.Tool.Path)
		return fmt.Errorf("tool.path: environment variable ${%s} is not set", matches[1])
	}
	if cfg.Tool.Game == "" {
		return fmt.Errorf("tool.game is required")
	}
	if cfg.Tool.Timeout <= 0 {
		return fmt.Errorf("tool.timeout must be positive")
	}
	if cfg.Tool.PollInterval <= 0 {
		return fmt.Errorf("tool.poll_interval must be positive")
	}
	if cfg.Tool.PollInterval >= cfg.Tool.Timeout {
		return fmt.Errorf("tool.poll_interval must be shorter than tool.timeout")
	}
	if cfg.Tool.GracePeriod <= 0 {
		return fmt.Errorf("tool.grace_period must be positive")
	}

	if cfg.LoadOrder.Path == "" {
		return fmt.Errorf("load_order.path is required")
	}

	if cfg.API.Enabled {
		if cfg.API.Listen == "" {
			return fmt.Errorf("api.listen is required when API is enabled")
		}
		if envVarPattern.MatchString(cfg.API.Auth.APIKey) {
			matches := envVarPattern.FindStringSubmatch(cfg.API.Auth.APIKey)
			return fmt.Errorf("api.auth.api_key: environment variable ${%s} is not set", matches[1])
		}
	}

	return nil
}
