package config

import "time"

// Config represents the complete espclean configuration.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	State     StateConfig     `yaml:"state"`
	Tool      ToolConfig      `yaml:"tool"`
	LoadOrder LoadOrderConfig `yaml:"load_order"`
	API       APIConfig       `yaml:"api,omitempty"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// StateConfig defines state storage settings.
type StateConfig struct {
	Path string `yaml:"path"`
}

// ToolConfig defines the external cleaning tool binding.
type ToolConfig struct {
	// Path is the cleaning tool executable. A game-specific executable
	// (SSEEdit.exe, FO4Edit.exe, ...) is launched without a game flag;
	// a generic xEdit.exe gets -{game} on the command line.
	Path string `yaml:"path"`
	// Game is the short game-mode code (tes4, fo3, fnv, tes5, sse, fo4, ...).
	Game string `yaml:"game"`
	// Timeout bounds one plugin's cleaning session wall-clock time.
	Timeout time.Duration `yaml:"timeout"`
	// PollInterval is the watchdog sampling interval.
	PollInterval time.Duration `yaml:"poll_interval"`
	// GracePeriod is how long a graceful close request gets before force-kill.
	GracePeriod time.Duration `yaml:"grace_period"`
	// AllowPartialForms enables the tool's experimental partial-forms flags.
	AllowPartialForms bool `yaml:"allow_partial_forms"`
	// PreserveLogs keeps the tool's log files after classification (debug).
	PreserveLogs bool `yaml:"preserve_logs"`
}

// LoadOrderConfig defines where the ordered plugin list comes from.
type LoadOrderConfig struct {
	Path string `yaml:"path"`
}

// APIConfig defines HTTP API server settings.
type APIConfig struct {
	Enabled bool          `yaml:"enabled"`
	Listen  string        `yaml:"listen"`
	Auth    APIAuthConfig `yaml:"auth"`
}

// APIAuthConfig defines API authentication settings.
type APIAuthConfig struct {
	APIKey string `yaml:"api_key"`
}

// ChecksumManifest is the parsed .checksums file guarding config integrity.
type ChecksumManifest struct {
	Version     int               `yaml:"version"`
	GeneratedAt string            `yaml:"generated_at"`
	Hashes      map[string]string `yaml:"hashes"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "espclean",
			LogLevel:  "info",
			LogFormat: "json",
		},
		State: StateConfig{
			Path: "./data/espclean.db",
		},
		Tool: ToolConfig{
			Timeout:      300 * time.Second,
			PollInterval: 3 * time.Second,
			GracePeriod:  5 * time.Second,
		},
		API: APIConfig{
			Enabled: false,
			Listen:  "127.0.0.1:8089",
		},
	}
}
