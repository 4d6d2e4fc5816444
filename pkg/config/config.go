// Package config handles configuration for flow-runner.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the service configuration (config.yaml).
type Config struct {
	// DataDir holds the database, screenshots and logs.
	DataDir string `yaml:"dataDir"`
	// Database overrides the sqlite file path.
	Database string `yaml:"database"`
	// Listen is the HTTP bind address of the API server.
	Listen string `yaml:"listen"`

	Auth      AuthConfig      `yaml:"auth"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Browser   BrowserConfig   `yaml:"browser"`
	Challenge ChallengeConfig `yaml:"challenge"`
	Execution ExecutionConfig `yaml:"execution"`
}

// AuthConfig controls API authentication.
type AuthConfig struct {
	SecretKey          string `yaml:"secretKey"`          // HMAC signing key, generated when empty
	TokenExpiryMinutes int    `yaml:"tokenExpiryMinutes"` // Access token lifetime
	Disabled           bool   `yaml:"disabled"`           // Skip auth entirely (development)
}

// SchedulerConfig controls cron-based triggering.
type SchedulerConfig struct {
	Timezone string `yaml:"timezone"`
}

// BrowserConfig holds browser provisioning defaults.
type BrowserConfig struct {
	DefaultType        string `yaml:"defaultType"`        // chromium, chrome, msedge, firefox
	DebugPort          int    `yaml:"debugPort"`          // Default remote debugging port
	SharedSessionLimit int    `yaml:"sharedSessionLimit"` // Concurrent executions on one attached browser
}

// ChallengeConfig controls anti-bot challenge handling.
type ChallengeConfig struct {
	Enabled          *bool   `yaml:"enabled"`
	CheckProbability float64 `yaml:"checkProbability"`
	MaxWaitSeconds   int     `yaml:"maxWaitSeconds"`
}

// ExecutionConfig bounds flow executions.
type ExecutionConfig struct {
	ProcessTimeoutSeconds int    `yaml:"processTimeoutSeconds"`
	ScreenshotDir         string `yaml:"screenshotDir"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen: ":8000",
		Auth: AuthConfig{
			TokenExpiryMinutes: 60,
		},
		Scheduler: SchedulerConfig{
			Timezone: "Asia/Shanghai",
		},
		Browser: BrowserConfig{
			DefaultType:        "chromium",
			DebugPort:          9222,
			SharedSessionLimit: 3,
		},
		Challenge: ChallengeConfig{
			CheckProbability: 0.3,
			MaxWaitSeconds:   45,
		},
		Execution: ExecutionConfig{
			ProcessTimeoutSeconds: 300,
		},
	}
}

// Load loads configuration from a file, applying defaults for absent fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir looks for config.yaml or config.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	// Try config.yaml first
	configPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	// Try config.yml
	configPath = filepath.Join(dir, "config.yml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	// No config file found, return defaults
	return Default(), nil
}

// ResolvedDataDir returns the data directory, defaulting to <home>/data.
func (c *Config) ResolvedDataDir() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	return filepath.Join(GetHome(), "data")
}

// DatabasePath returns the sqlite file path.
func (c *Config) DatabasePath() string {
	if c.Database != "" {
		return c.Database
	}
	return filepath.Join(c.ResolvedDataDir(), "flow-runner.db")
}

// ScreenshotDir returns the directory step screenshots are written to.
func (c *Config) ScreenshotDir() string {
	if c.Execution.ScreenshotDir != "" {
		return c.Execution.ScreenshotDir
	}
	return filepath.Join(c.ResolvedDataDir(), "screenshots")
}

// LogPath returns the service log file path.
func (c *Config) LogPath() string {
	return filepath.Join(c.ResolvedDataDir(), "flow-runner.log")
}

// ChallengeEnabled reports whether challenge handling is on. Absent means on.
func (c *Config) ChallengeEnabled() bool {
	return c.Challenge.Enabled == nil || *c.Challenge.Enabled
}
