package browser

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/navigator-hub/flow-runner/pkg/core"
	"github.com/navigator-hub/flow-runner/pkg/logger"
)

// DefaultDebugPort is the remote debugging port used when none is
// configured.
const DefaultDebugPort = 9222

// Manager owns the playwright driver and the per-port launchers and
// shared-session limiters. One Manager serves a whole process.
type Manager struct {
	// SharedSessionLimit caps concurrent executions attached to one
	// browser. Applied when a port's limiter is first requested.
	SharedSessionLimit int64

	mu        sync.Mutex
	pw        *playwright.Playwright
	launchers map[int]*Launcher
	shared    map[int]*SharedSession
}

// NewManager returns a manager with default limits.
func NewManager() *Manager {
	return &Manager{
		SharedSessionLimit: 3,
		launchers:          make(map[int]*Launcher),
		shared:             make(map[int]*SharedSession),
	}
}

// driver returns the playwright handle, installing and starting the driver
// on first use.
func (m *Manager) driver() (*playwright.Playwright, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pw != nil {
		return m.pw, nil
	}

	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(runOpts); err != nil {
		return nil, fmt.Errorf("failed to install playwright driver: %w", err)
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright driver: %w", err)
	}
	m.pw = pw
	return pw, nil
}

// LauncherFor returns the launcher bound to the port, creating it on first
// request. The same port always yields the same launcher.
func (m *Manager) LauncherFor(port int) *Launcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	launcher, ok := m.launchers[port]
	if !ok {
		launcher = NewLauncher(port)
		m.launchers[port] = launcher
	}
	return launcher
}

// SharedFor returns the shared-session limiter for the port, creating it
// with the manager's limit on first request.
func (m *Manager) SharedFor(port int) *SharedSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	shared, ok := m.shared[port]
	if !ok {
		shared = newSharedSession(port, m.SharedSessionLimit)
		m.shared[port] = shared
	}
	return shared
}

// Open provisions the browser session the options describe.
func (m *Manager) Open(ctx context.Context, opts Options) (*Session, error) {
	kind, err := NormalizeKind(opts.Kind)
	if err != nil {
		return nil, err
	}
	opts.Kind = kind

	if opts.Attach {
		return m.attach(ctx, opts)
	}
	return m.launch(opts)
}

// StopEndpoint shuts down the browser behind a debug port: directly when
// this process launched it, otherwise by asking the browser to close over
// its debugging protocol.
func (m *Manager) StopEndpoint(port int) error {
	m.mu.Lock()
	launcher := m.launchers[port]
	m.mu.Unlock()

	if launcher != nil && launcher.Started() {
		return launcher.Stop()
	}
	if !EndpointReady(port) {
		return core.ErrEndpointUnresponsive.WithCause(fmt.Errorf("port %d", port))
	}

	pw, err := m.driver()
	if err != nil {
		return err
	}
	browser, err := pw.Chromium.ConnectOverCDP(fmt.Sprintf("http://localhost:%d", port))
	if err != nil {
		return core.NewExecutionError(core.KindDebugConnectionError,
			"failed to connect to browser on port %d", port).WithCause(err)
	}
	session, err := browser.NewBrowserCDPSession()
	if err != nil {
		browser.Close()
		return fmt.Errorf("failed to open browser-level session: %w", err)
	}

	// The connection drops as the browser exits, so the send result alone
	// is not trustworthy; confirm against the port.
	_, sendErr := session.Send("Browser.close", nil)
	browser.Close()

	deadline := time.Now().Add(stopGrace)
	for time.Now().Before(deadline) {
		if !PortInUse(port) {
			logger.Info("Browser on port %d stopped", port)
			return nil
		}
		time.Sleep(250 * time.Millisecond)
	}
	if sendErr != nil {
		return fmt.Errorf("failed to stop browser on port %d: %w", port, sendErr)
	}
	return fmt.Errorf("browser on port %d is still running", port)
}

// Shutdown stops the playwright driver. Persistent browsers started by
// launchers are deliberately left running; stop those with StopEndpoint.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pw == nil {
		return nil
	}
	err := m.pw.Stop()
	m.pw = nil
	return err
}
