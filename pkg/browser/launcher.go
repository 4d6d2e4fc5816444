// Package browser provisions the browser a flow execution drives: ephemeral
// playwright-launched instances, attachment to a long-lived instance over
// its remote debugging port, and the launcher that starts such an instance
// with a dedicated automation profile.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/navigator-hub/flow-runner/pkg/config"
	"github.com/navigator-hub/flow-runner/pkg/core"
	"github.com/navigator-hub/flow-runner/pkg/logger"
)

const (
	// startupTimeout bounds how long a launched browser may take to expose
	// a working debugging endpoint.
	startupTimeout = 30 * time.Second

	// stopGrace is how long Stop waits after a terminate signal before
	// killing the process.
	stopGrace = 5 * time.Second

	// probeTimeout bounds one readiness probe request.
	probeTimeout = 2 * time.Second
)

// PortInUse reports whether something is already listening on the local
// port. A successful bind means the port is free.
func PortInUse(port int) bool {
	ln, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
	if err != nil {
		return true
	}
	ln.Close()
	return false
}

// EndpointReady reports whether the remote debugging endpoint on the port
// answers a version-info request.
func EndpointReady(port int) bool {
	_, err := EndpointVersion(port)
	return err == nil
}

// EndpointVersion fetches the browser identity string from the debugging
// endpoint.
func EndpointVersion(port int) (string, error) {
	client := &http.Client{Timeout: probeTimeout}
	resp, err := client.Get(fmt.Sprintf("http://localhost:%d/json/version", port))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}

	var info struct {
		Browser string `json:"Browser"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("invalid version info: %w", err)
	}
	return info.Browser, nil
}

// FindExecutable resolves the path of the requested browser. An explicit
// path wins when it exists; otherwise well-known install locations for the
// current OS are tried.
func FindExecutable(kind, customPath string) (string, error) {
	if customPath != "" {
		if _, err := os.Stat(customPath); err == nil {
			return customPath, nil
		}
	}
	for _, candidate := range wellKnownPaths(kind) {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", core.ErrBrowserNotFound.WithCause(fmt.Errorf("%s", kind))
}

// wellKnownPaths returns install locations for the browser kind on the
// current OS, most common first.
func wellKnownPaths(kind string) []string {
	home, _ := os.UserHomeDir()

	switch runtime.GOOS {
	case "windows":
		switch kind {
		case "chrome", "chromium":
			return []string{
				`C:\Program Files\Google\Chrome\Application\chrome.exe`,
				`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
				filepath.Join(home, `AppData\Local\Google\Chrome\Application\chrome.exe`),
			}
		case "edge", "msedge":
			return []string{
				`C:\Program Files\Microsoft\Edge\Application\msedge.exe`,
				`C:\Program Files (x86)\Microsoft\Edge\Application\msedge.exe`,
				filepath.Join(home, `AppData\Local\Microsoft\Edge\Application\msedge.exe`),
			}
		}
	case "darwin":
		switch kind {
		case "chrome", "chromium":
			return []string{`/Applications/Google Chrome.app/Contents/MacOS/Google Chrome`}
		case "edge", "msedge":
			return []string{`/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge`}
		}
	default:
		switch kind {
		case "chrome", "chromium":
			return []string{
				"/usr/bin/google-chrome",
				"/usr/bin/google-chrome-stable",
				"/usr/bin/chromium",
				"/usr/bin/chromium-browser",
				"/snap/bin/chromium",
			}
		case "edge", "msedge":
			return []string{"/usr/bin/microsoft-edge", "/usr/bin/microsoft-edge-stable"}
		}
	}
	return nil
}

// defaultUserDataDir returns the operator's real browser profile directory
// for the kind, or empty when none exists. Login state copied from here
// carries over into the automation profile.
func defaultUserDataDir(kind string) string {
	home, _ := os.UserHomeDir()

	var candidates []string
	switch kind {
	case "chrome", "chromium":
		candidates = []string{
			filepath.Join(home, `AppData`, `Local`, `Google`, `Chrome`, `User Data`),
			filepath.Join(home, ".config", "google-chrome"),
			filepath.Join(home, "Library", "Application Support", "Google", "Chrome"),
		}
	case "edge", "msedge":
		candidates = []string{
			filepath.Join(home, `AppData`, `Local`, `Microsoft`, `Edge`, `User Data`),
			filepath.Join(home, ".config", "microsoft-edge"),
			filepath.Join(home, "Library", "Application Support", "Microsoft Edge"),
		}
	default:
		return ""
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
	}
	return ""
}

// skipProfileEntry reports whether a profile file must not be copied.
// Lock files and temp files belong to the running browser that owns the
// source profile.
func skipProfileEntry(name string) bool {
	if strings.HasSuffix(name, "-lock") || strings.HasSuffix(name, ".tmp") {
		return true
	}
	switch name {
	case "lockfile", "SingletonLock", "SingletonSocket", "SingletonCookie":
		return true
	}
	return false
}

// copyProfile copies a browser profile tree, skipping lock/temp files and
// symlinks.
func copyProfile(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if skipProfileEntry(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !d.Type().IsRegular() {
			// Sockets and symlinks are runtime state, not configuration.
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			// Files can be locked by a running browser; skip them.
			return nil
		}
		return os.WriteFile(target, data, 0o644)
	})
}

// DefaultProfileDir returns the dedicated automation profile location under
// the runner home.
func DefaultProfileDir() string {
	return filepath.Join(config.GetHome(), "data", "browser-profile")
}

// prepareProfile returns a usable automation profile directory: the
// existing one when already provisioned, otherwise a one-time copy of the
// operator's real profile (so logins carry over), otherwise a fresh empty
// directory.
func prepareProfile(kind, dir string) string {
	// Presence of the Default subprofile marks a provisioned copy.
	if _, err := os.Stat(filepath.Join(dir, "Default")); err == nil {
		logger.Info("Using automation browser profile: %s", dir)
		return dir
	}

	source := defaultUserDataDir(kind)
	if source == "" {
		logger.Info("No operator browser profile found, creating empty automation profile: %s", dir)
		os.MkdirAll(dir, 0o755)
		return dir
	}

	logger.Info("First use: copying browser profile %s -> %s", source, dir)
	if err := copyProfile(source, dir); err != nil {
		logger.Warn("Profile copy failed (%v), starting with empty profile", err)
		os.MkdirAll(dir, 0o755)
	}
	return dir
}

// LaunchSpec describes a persistent browser to start on a debug port.
type LaunchSpec struct {
	Kind           string // chromium, chrome, edge, custom
	ExecutablePath string
	ProfileDir     string // empty means the dedicated automation profile
	Headless       bool
}

// Launcher starts and stops one persistent browser bound to a debug port.
// A Launcher only controls processes it started itself; an endpoint that
// was already listening is left alone.
type Launcher struct {
	Port int

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewLauncher returns a launcher for the port.
func NewLauncher(port int) *Launcher {
	return &Launcher{Port: port}
}

// Start launches the browser with remote debugging enabled and waits for
// the endpoint to become ready. A port that is already in use is assumed
// to be a running browser and reported as success.
func (l *Launcher) Start(ctx context.Context, spec LaunchSpec) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if PortInUse(l.Port) {
		logger.Info("Port %d already in use, assuming browser is running", l.Port)
		return nil
	}

	executable, err := FindExecutable(spec.Kind, spec.ExecutablePath)
	if err != nil {
		return err
	}

	profile := spec.ProfileDir
	if profile == "" {
		profile = prepareProfile(spec.Kind, DefaultProfileDir())
	}

	args := []string{
		fmt.Sprintf("--remote-debugging-port=%d", l.Port),
		"--user-data-dir=" + profile,
		"--no-first-run",
		"--no-default-browser-check",
	}
	if spec.Headless {
		args = append(args, "--headless=new")
	}

	logger.Info("Starting %s on port %d", spec.Kind, l.Port)
	logger.Debug("Browser command: %s %s", executable, strings.Join(args, " "))

	cmd := exec.Command(executable, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start browser process: %w", err)
	}
	l.cmd = cmd
	logger.Info("Browser process started, PID %d", cmd.Process.Pid)

	if err := l.awaitReady(ctx); err != nil {
		l.stopLocked()
		return err
	}
	return nil
}

// awaitReady polls the debugging endpoint until it answers, then pauses
// briefly for stability.
func (l *Launcher) awaitReady(ctx context.Context) error {
	timeout := time.After(startupTimeout)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	portFound := false
	for {
		select {
		case <-ticker.C:
			if !portFound {
				if !PortInUse(l.Port) {
					continue
				}
				portFound = true
				logger.Info("Browser port %d is active", l.Port)
			}
			if EndpointReady(l.Port) {
				logger.Info("Debugging endpoint ready on port %d", l.Port)
				time.Sleep(time.Second)
				return nil
			}
		case <-timeout:
			return core.ErrEndpointUnresponsive.WithCause(fmt.Errorf("port %d not ready within %s", l.Port, startupTimeout))
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Stop terminates a browser this launcher started: graceful signal first,
// kill after the grace period.
func (l *Launcher) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopLocked()
}

func (l *Launcher) stopLocked() error {
	if l.cmd == nil || l.cmd.Process == nil {
		return nil
	}
	logger.Info("Stopping browser on port %d", l.Port)

	done := make(chan error, 1)
	go func() { done <- l.cmd.Wait() }()

	if err := l.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		l.cmd.Process.Kill()
	}
	select {
	case <-done:
	case <-time.After(stopGrace):
		logger.Warn("Browser did not terminate gracefully, killing")
		l.cmd.Process.Kill()
		<-done
	}

	l.cmd = nil
	return nil
}

// Started reports whether this launcher started a browser process that has
// not been stopped. It does not probe the endpoint; use EndpointReady for
// liveness.
func (l *Launcher) Started() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cmd != nil
}
