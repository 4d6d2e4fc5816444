package browser

import (
	"context"
	"testing"
	"time"
)

func TestLauncherFor_SameInstancePerPort(t *testing.T) {
	m := NewManager()

	a := m.LauncherFor(9222)
	b := m.LauncherFor(9222)
	if a != b {
		t.Error("expected the same launcher for the same port")
	}

	c := m.LauncherFor(9333)
	if c == a {
		t.Error("expected a distinct launcher for a different port")
	}
	if c.Port != 9333 {
		t.Errorf("launcher port = %d, want 9333", c.Port)
	}
}

func TestSharedFor_SameInstancePerPort(t *testing.T) {
	m := NewManager()

	a := m.SharedFor(9222)
	b := m.SharedFor(9222)
	if a != b {
		t.Error("expected the same limiter for the same port")
	}
	if a.Port() != 9222 {
		t.Errorf("limiter port = %d, want 9222", a.Port())
	}
}

func TestSharedSession_LimitsConcurrency(t *testing.T) {
	m := NewManager()
	shared := m.SharedFor(9222)

	if shared.Limit() != 3 {
		t.Fatalf("limit = %d, want 3", shared.Limit())
	}
	for i := 0; i < 3; i++ {
		if !shared.TryAcquire() {
			t.Fatalf("slot %d should be free", i)
		}
	}
	if shared.TryAcquire() {
		t.Error("fourth slot should be denied")
	}

	shared.Release()
	if !shared.TryAcquire() {
		t.Error("released slot should be reusable")
	}
}

func TestSharedSession_AcquireHonorsContext(t *testing.T) {
	m := NewManager()
	m.SharedSessionLimit = 1
	shared := m.SharedFor(9222)

	if err := shared.Acquire(context.Background()); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := shared.Acquire(ctx); err == nil {
		t.Error("expected acquire to fail once the context expires")
	}
}

func TestSharedSession_ZeroLimitDefaultsToOne(t *testing.T) {
	m := NewManager()
	m.SharedSessionLimit = 0
	shared := m.SharedFor(9400)

	if shared.Limit() != 1 {
		t.Errorf("limit = %d, want 1", shared.Limit())
	}
}

func TestNormalizeKind(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "chromium", false},
		{"chromium", "chromium", false},
		{"chrome", "chrome", false},
		{"edge", "edge", false},
		{"msedge", "edge", false},
		{"firefox", "firefox", false},
		{"custom", "custom", false},
		{"safari", "", true},
		{"Chrome", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeKind(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("NormalizeKind(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeKind(%q): unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
