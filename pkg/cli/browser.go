package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/navigator-hub/flow-runner/pkg/browser"
	"github.com/navigator-hub/flow-runner/pkg/config"
)

var browserCommand = &cli.Command{
	Name:  "browser",
	Usage: "Manage the long-lived browser behind a debug port",
	Description: `Start, inspect and stop the browser that attached executions share.
A browser started here keeps running after the command exits; executions
connect to it with --attach and reuse its logins and cookies.

Examples:
  flow-runner browser start
  flow-runner browser start --browser edge --port 9223
  flow-runner browser status
  flow-runner browser stop`,
	Subcommands: []*cli.Command{
		browserStartCommand,
		browserStatusCommand,
		browserStopCommand,
	},
}

var browserStartCommand = &cli.Command{
	Name:  "start",
	Usage: "Start a browser with remote debugging enabled",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "port",
			Usage: "Remote debugging port (default: from config)",
		},
		&cli.StringFlag{
			Name:  "browser",
			Usage: "Browser to start (chromium, chrome, edge, custom; default: from config)",
		},
		&cli.StringFlag{
			Name:  "browser-path",
			Usage: "Browser executable path (required for custom)",
		},
		&cli.StringFlag{
			Name:  "profile-dir",
			Usage: "Profile directory (default: the dedicated automation profile)",
		},
		&cli.BoolFlag{
			Name:  "headless",
			Usage: "Start without a window",
		},
	},
	Action: runBrowserStart,
}

var browserStatusCommand = &cli.Command{
	Name:  "status",
	Usage: "Report whether the debug-port browser is running",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "port",
			Usage: "Remote debugging port (default: from config)",
		},
	},
	Action: runBrowserStatus,
}

var browserStopCommand = &cli.Command{
	Name:  "stop",
	Usage: "Stop the debug-port browser",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "port",
			Usage: "Remote debugging port (default: from config)",
		},
	},
	Action: runBrowserStop,
}

func runBrowserStart(c *cli.Context) error {
	port, kind, err := browserSettings(c)
	if err != nil {
		return err
	}

	if browser.EndpointReady(port) {
		version, _ := browser.EndpointVersion(port)
		printSuccess("Browser already running on port %d (%s)", port, version)
		return nil
	}

	printStep("Starting %s on port %d", kind, port)
	manager := browser.NewManager()
	launcher := manager.LauncherFor(port)
	if err := launcher.Start(c.Context, browser.LaunchSpec{
		Kind:           kind,
		ExecutablePath: c.String("browser-path"),
		ProfileDir:     c.String("profile-dir"),
		Headless:       c.Bool("headless"),
	}); err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}

	if version, err := browser.EndpointVersion(port); err == nil {
		printSuccess("%s ready on port %d", version, port)
	} else {
		printSuccess("Browser ready on port %d", port)
	}
	fmt.Printf("\n  Attach executions with: flow-runner run <id> <flow-json> --attach --debug-port %d\n", port)
	return nil
}

func runBrowserStatus(c *cli.Context) error {
	port, _, err := browserSettings(c)
	if err != nil {
		return err
	}

	version, err := browser.EndpointVersion(port)
	if err == nil {
		printSuccess("%s on port %d", version, port)
		return nil
	}
	if browser.PortInUse(port) {
		printWarning("Port %d is in use but does not answer debugging requests", port)
	} else {
		printFailure("No browser on port %d", port)
	}
	return cli.Exit("", 1)
}

func runBrowserStop(c *cli.Context) error {
	port, _, err := browserSettings(c)
	if err != nil {
		return err
	}

	if !browser.PortInUse(port) {
		printWarning("No browser on port %d", port)
		return nil
	}

	printStep("Stopping browser on port %d", port)
	manager := browser.NewManager()
	defer manager.Shutdown()
	if err := manager.StopEndpoint(port); err != nil {
		return fmt.Errorf("failed to stop browser: %w", err)
	}
	printSuccess("Browser on port %d stopped", port)
	return nil
}

// browserSettings resolves the port and browser kind for a browser
// command from flags and configuration.
func browserSettings(c *cli.Context) (int, string, error) {
	cfg, err := config.LoadFromDir(config.GetHome())
	if err != nil {
		return 0, "", fmt.Errorf("failed to load config: %w", err)
	}
	port, kind := resolveBrowserSettings(c.Int("port"), c.String("browser"), cfg)
	return port, kind, nil
}

// resolveBrowserSettings applies the flag-over-config-over-default
// precedence for the debug port and browser kind.
func resolveBrowserSettings(port int, kind string, cfg *config.Config) (int, string) {
	if port <= 0 {
		port = cfg.Browser.DebugPort
	}
	if port <= 0 {
		port = browser.DefaultDebugPort
	}
	if kind == "" {
		kind = cfg.Browser.DefaultType
	}
	if kind == "" {
		kind = "chromium"
	}
	return port, kind
}
