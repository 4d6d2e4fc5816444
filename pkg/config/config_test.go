package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	content := `
dataDir: /var/lib/flow-runner
listen: ":9001"
auth:
  secretKey: super-secret
  tokenExpiryMinutes: 120
scheduler:
  timezone: UTC
browser:
  defaultType: msedge
  debugPort: 9333
  sharedSessionLimit: 5
challenge:
  enabled: false
  checkProbability: 0.5
execution:
  processTimeoutSeconds: 600
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DataDir != "/var/lib/flow-runner" {
		t.Errorf("expected dataDir /var/lib/flow-runner, got %s", cfg.DataDir)
	}
	if cfg.Listen != ":9001" {
		t.Errorf("expected listen :9001, got %s", cfg.Listen)
	}
	if cfg.Auth.SecretKey != "super-secret" || cfg.Auth.TokenExpiryMinutes != 120 {
		t.Errorf("unexpected auth config: %+v", cfg.Auth)
	}
	if cfg.Scheduler.Timezone != "UTC" {
		t.Errorf("expected timezone UTC, got %s", cfg.Scheduler.Timezone)
	}
	if cfg.Browser.DefaultType != "msedge" || cfg.Browser.DebugPort != 9333 || cfg.Browser.SharedSessionLimit != 5 {
		t.Errorf("unexpected browser config: %+v", cfg.Browser)
	}
	if cfg.ChallengeEnabled() {
		t.Errorf("challenge should be disabled")
	}
	if cfg.Challenge.CheckProbability != 0.5 {
		t.Errorf("expected checkProbability 0.5, got %g", cfg.Challenge.CheckProbability)
	}
	if cfg.Execution.ProcessTimeoutSeconds != 600 {
		t.Errorf("expected processTimeoutSeconds 600, got %d", cfg.Execution.ProcessTimeoutSeconds)
	}
}

func TestLoad_NonExistentFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	content := `listen: [invalid yaml`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoad_EmptyConfigKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(configPath, []byte(``), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Listen != ":8000" {
		t.Errorf("expected default listen :8000, got %s", cfg.Listen)
	}
	if cfg.Browser.DefaultType != "chromium" || cfg.Browser.DebugPort != 9222 {
		t.Errorf("unexpected browser defaults: %+v", cfg.Browser)
	}
	if cfg.Browser.SharedSessionLimit != 3 {
		t.Errorf("expected shared session limit 3, got %d", cfg.Browser.SharedSessionLimit)
	}
	if !cfg.ChallengeEnabled() {
		t.Errorf("challenge should default to enabled")
	}
	if cfg.Challenge.CheckProbability != 0.3 {
		t.Errorf("expected default checkProbability 0.3, got %g", cfg.Challenge.CheckProbability)
	}
	if cfg.Execution.ProcessTimeoutSeconds != 300 {
		t.Errorf("expected default process timeout 300, got %d", cfg.Execution.ProcessTimeoutSeconds)
	}
	if cfg.Auth.TokenExpiryMinutes != 60 {
		t.Errorf("expected default token expiry 60, got %d", cfg.Auth.TokenExpiryMinutes)
	}
	if cfg.Scheduler.Timezone != "Asia/Shanghai" {
		t.Errorf("expected default timezone Asia/Shanghai, got %s", cfg.Scheduler.Timezone)
	}
}

func TestLoad_PartialOverride(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	content := `
browser:
  debugPort: 9444
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Browser.DebugPort != 9444 {
		t.Errorf("expected debugPort 9444, got %d", cfg.Browser.DebugPort)
	}
	if cfg.Browser.DefaultType != "chromium" {
		t.Errorf("sibling defaults should survive, got %q", cfg.Browser.DefaultType)
	}
}

func TestLoadFromDir_ConfigYaml(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	content := `listen: ":7000"`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Listen != ":7000" {
		t.Errorf("expected listen :7000, got %s", cfg.Listen)
	}
}

func TestLoadFromDir_ConfigYml(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")

	content := `listen: ":7001"`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Listen != ":7001" {
		t.Errorf("expected listen :7001, got %s", cfg.Listen)
	}
}

func TestLoadFromDir_NoConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Should return defaults
	if cfg.Listen != ":8000" {
		t.Errorf("expected default listen, got %s", cfg.Listen)
	}
}

func TestLoadFromDir_PrefersYamlOverYml(t *testing.T) {
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`listen: ":1111"`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yml"), []byte(`listen: ":2222"`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Should prefer config.yaml
	if cfg.Listen != ":1111" {
		t.Errorf("expected listen :1111 (from config.yaml), got %s", cfg.Listen)
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "/data"

	if got := cfg.DatabasePath(); got != filepath.Join("/data", "flow-runner.db") {
		t.Errorf("database path = %q", got)
	}
	if got := cfg.ScreenshotDir(); got != filepath.Join("/data", "screenshots") {
		t.Errorf("screenshot dir = %q", got)
	}

	cfg.Database = "/elsewhere/db.sqlite"
	if got := cfg.DatabasePath(); got != "/elsewhere/db.sqlite" {
		t.Errorf("database override = %q", got)
	}
	cfg.Execution.ScreenshotDir = "/shots"
	if got := cfg.ScreenshotDir(); got != "/shots" {
		t.Errorf("screenshot override = %q", got)
	}
}
