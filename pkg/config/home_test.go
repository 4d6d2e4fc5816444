package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetHome_EnvVar(t *testing.T) {
	ResetHome()
	t.Setenv("FLOW_RUNNER_HOME", "/custom/path")

	got := GetHome()
	if got != "/custom/path" {
		t.Errorf("GetHome() = %q, want %q", got, "/custom/path")
	}
}

func TestGetHome_FallbackToCwd(t *testing.T) {
	ResetHome()
	t.Setenv("FLOW_RUNNER_HOME", "")

	got := GetHome()
	cwd, _ := os.Getwd()

	// When not in a bin/ directory and no env var, should fall back to cwd
	// (unless the test binary happens to be in a bin/ directory)
	if got == "" {
		t.Error("GetHome() returned empty string")
	}
	_ = cwd // cwd is valid fallback
}

func TestGetHome_Cached(t *testing.T) {
	ResetHome()
	t.Setenv("FLOW_RUNNER_HOME", "/first")

	first := GetHome()

	// Changing the env must not affect the cached value
	t.Setenv("FLOW_RUNNER_HOME", "/second")
	second := GetHome()

	if first != second {
		t.Errorf("GetHome() not cached: first=%q, second=%q", first, second)
	}
}

func TestResolvedDataDir_DefaultUnderHome(t *testing.T) {
	ResetHome()
	t.Setenv("FLOW_RUNNER_HOME", "/test/home")

	cfg := Default()
	got := cfg.ResolvedDataDir()
	want := filepath.Join("/test/home", "data")
	if got != want {
		t.Errorf("ResolvedDataDir() = %q, want %q", got, want)
	}
}

func TestResolvedDataDir_ExplicitWins(t *testing.T) {
	ResetHome()
	t.Setenv("FLOW_RUNNER_HOME", "/test/home")

	cfg := Default()
	cfg.DataDir = "/explicit/data"
	if got := cfg.ResolvedDataDir(); got != "/explicit/data" {
		t.Errorf("ResolvedDataDir() = %q, want /explicit/data", got)
	}
}
