package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/navigator-hub/flow-runner/pkg/core"
	"github.com/navigator-hub/flow-runner/pkg/logger"
)

// Browser identity presented by ephemeral sessions. Matches a desktop
// Chrome closely enough to pass casual automation checks.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// stealthScript runs before every page load in ephemeral sessions and
// hides the most common automation markers.
const stealthScript = `Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });`

// NormalizeKind validates a browser type and maps aliases onto the
// canonical names.
func NormalizeKind(kind string) (string, error) {
	switch kind {
	case "", "chromium":
		return "chromium", nil
	case "chrome":
		return "chrome", nil
	case "edge", "msedge":
		return "edge", nil
	case "firefox":
		return "firefox", nil
	case "custom":
		return "custom", nil
	}
	return "", core.NewExecutionError(core.KindValidationError, "unsupported browser type %q", kind)
}

// Options selects the browser a session runs against.
type Options struct {
	// Kind is one of chromium, chrome, edge, firefox, custom.
	Kind string
	// ExecutablePath points at the browser binary for the custom kind, or
	// overrides discovery when attaching starts a browser.
	ExecutablePath string
	Headless       bool

	// Attach connects to a running browser over its debug port instead of
	// launching a private one; the browser is started on demand.
	Attach     bool
	DebugPort  int
	ProfileDir string

	// OwnTab makes an attached session open a dedicated tab instead of
	// driving the browser's current one. Concurrent executions against the
	// same browser need this to stay out of each other's way.
	OwnTab bool
}

// Session is one browser attachment for one flow execution. Close releases
// exactly what the session created: an ephemeral session tears down its
// private browser, an attached session closes only tabs it opened and then
// disconnects.
type Session struct {
	attached bool
	ownsPage bool
	browser  playwright.Browser
	context  playwright.BrowserContext
	adapter  *pwPage
}

// Page returns the driving surface for the step executor.
func (s *Session) Page() core.Page {
	return s.adapter
}

// Close releases the session. Errors are logged, not returned; cleanup is
// best effort on an execution path that is already finishing.
func (s *Session) Close() {
	if s == nil {
		return
	}
	if s.attached {
		for _, page := range s.adapter.opened {
			if err := page.Close(); err != nil {
				logger.Debug("Closing opened tab: %v", err)
			}
		}
		if s.ownsPage {
			if err := s.adapter.current.Close(); err != nil {
				logger.Debug("Closing session page: %v", err)
			}
		}
		// Disconnects from the browser without closing it.
		if err := s.browser.Close(); err != nil {
			logger.Debug("Disconnecting from browser: %v", err)
		}
		return
	}
	if err := s.context.Close(); err != nil {
		logger.Debug("Closing browser context: %v", err)
	}
	if err := s.browser.Close(); err != nil {
		logger.Debug("Closing browser: %v", err)
	}
}

// launch starts a private browser instance for one execution.
func (m *Manager) launch(opts Options) (*Session, error) {
	pw, err := m.driver()
	if err != nil {
		return nil, err
	}

	browserType := pw.Chromium
	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	}
	switch opts.Kind {
	case "chromium":
	case "firefox":
		browserType = pw.Firefox
	case "chrome":
		launchOpts.Channel = playwright.String("chrome")
	case "edge":
		launchOpts.Channel = playwright.String("msedge")
	case "custom":
		executable, err := FindExecutable(opts.Kind, opts.ExecutablePath)
		if err != nil {
			return nil, err
		}
		launchOpts.ExecutablePath = playwright.String(executable)
	}

	logger.Info("Launching %s (headless=%v)", opts.Kind, opts.Headless)
	browser, err := browserType.Launch(launchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch %s browser: %w", opts.Kind, err)
	}

	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport:  &playwright.Size{Width: 1280, Height: 720},
		UserAgent: playwright.String(defaultUserAgent),
	})
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	if err := browserCtx.AddInitScript(playwright.Script{Content: playwright.String(stealthScript)}); err != nil {
		logger.Warn("Could not install init script: %v", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browserCtx.Close()
		browser.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	return &Session{
		browser: browser,
		context: browserCtx,
		adapter: newPage(browserCtx, page),
	}, nil
}

// attach connects to the browser listening on the debug port, starting one
// when nothing is there yet.
func (m *Manager) attach(ctx context.Context, opts Options) (*Session, error) {
	if opts.Kind == "firefox" {
		return nil, core.NewExecutionError(core.KindValidationError,
			"attached mode requires a Chromium-based browser")
	}
	port := opts.DebugPort
	if port == 0 {
		port = DefaultDebugPort
	}

	autoStarted := false
	launcher := m.LauncherFor(port)
	if !EndpointReady(port) {
		logger.Info("No browser on port %d, starting one", port)
		if err := launcher.Start(ctx, LaunchSpec{
			Kind:           opts.Kind,
			ExecutablePath: opts.ExecutablePath,
			ProfileDir:     opts.ProfileDir,
			Headless:       opts.Headless,
		}); err != nil {
			return nil, err
		}
		autoStarted = launcher.Started()
	}

	if !EndpointReady(port) {
		// Give a freshly reported endpoint a moment before giving up.
		time.Sleep(5 * time.Second)
		if !EndpointReady(port) {
			return nil, core.ErrEndpointUnresponsive.WithCause(fmt.Errorf("port %d", port))
		}
	}

	pw, err := m.driver()
	if err != nil {
		return nil, err
	}
	browser, err := pw.Chromium.ConnectOverCDP(
		fmt.Sprintf("http://localhost:%d", port),
		playwright.BrowserTypeConnectOverCDPOptions{Timeout: playwright.Float(60000)},
	)
	if err != nil {
		if autoStarted {
			launcher.Stop()
		}
		return nil, core.NewExecutionError(core.KindDebugConnectionError,
			"failed to connect to browser on port %d", port).WithCause(err)
	}
	logger.Info("Connected to browser on port %d", port)

	var browserCtx playwright.BrowserContext
	if contexts := browser.Contexts(); len(contexts) > 0 {
		browserCtx = contexts[0]
		logger.Debug("Reusing existing browser context")
	} else {
		browserCtx, err = browser.NewContext()
		if err != nil {
			browser.Close()
			return nil, fmt.Errorf("failed to create browser context: %w", err)
		}
	}

	var page playwright.Page
	ownsPage := false
	if !opts.OwnTab {
		if pages := browserCtx.Pages(); len(pages) > 0 {
			page = pages[0]
			logger.Info("Reusing existing page: %s", page.URL())
		}
	}
	if page == nil {
		page, err = browserCtx.NewPage()
		if err != nil {
			browser.Close()
			return nil, fmt.Errorf("failed to open page: %w", err)
		}
		ownsPage = true
	}

	return &Session{
		attached: true,
		ownsPage: ownsPage,
		browser:  browser,
		context:  browserCtx,
		adapter:  newPage(browserCtx, page),
	}, nil
}
