package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/navigator-hub/flow-runner/pkg/browser"
	"github.com/navigator-hub/flow-runner/pkg/challenge"
	"github.com/navigator-hub/flow-runner/pkg/config"
	"github.com/navigator-hub/flow-runner/pkg/core"
	"github.com/navigator-hub/flow-runner/pkg/executor"
	"github.com/navigator-hub/flow-runner/pkg/flow"
)

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "Execute one flow and print the result as JSON",
	ArgsUsage: "<flow-id> <flow-json>",
	Description: `Execute a single flow in this process. The flow definition is given as a
JSON object; the aggregate result is printed to stdout as one JSON line.
Log output goes to stderr so stdout stays machine-readable.

This is the command the serve process spawns for every execution. It also
works standalone for trying a flow out:

Examples:
  flow-runner run 1 "$(cat flow.json)"
  flow-runner run 1 "$(cat flow.json)" --headed --browser firefox
  flow-runner run 1 "$(cat flow.json)" --attach --debug-port 9222`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "headless",
			Usage: "Run the browser without a window (default)",
		},
		&cli.BoolFlag{
			Name:  "headed",
			Usage: "Run the browser with a visible window",
		},
		&cli.StringFlag{
			Name:  "browser",
			Usage: "Browser to drive (chromium, chrome, edge, firefox, custom)",
			Value: "chromium",
		},
		&cli.StringFlag{
			Name:  "browser-path",
			Usage: "Browser executable path (required for custom)",
		},
		&cli.BoolFlag{
			Name:  "attach",
			Usage: "Attach to a running browser over its debug port instead of launching one",
		},
		&cli.IntFlag{
			Name:  "debug-port",
			Usage: "Remote debugging port for attached mode",
			Value: browser.DefaultDebugPort,
		},
		&cli.StringFlag{
			Name:  "profile-dir",
			Usage: "Browser profile directory for attached mode",
		},
		&cli.BoolFlag{
			Name:  "own-tab",
			Usage: "Drive a dedicated tab instead of the browser's current one",
		},
		&cli.StringFlag{
			Name:  "screenshot-dir",
			Usage: "Directory step screenshots are written to",
		},
	},
	Action: runFlowAction,
}

func runFlowAction(c *cli.Context) error {
	if c.NArg() < 2 {
		return fmt.Errorf("flow id and flow definition are required")
	}
	flowID := c.Args().Get(0)
	dsl := c.Args().Get(1)

	steps, err := flow.Parse(dsl)
	if err != nil {
		return emitFailure("cannot parse flow definition", err)
	}

	cfg, err := config.LoadFromDir(config.GetHome())
	if err != nil {
		return emitFailure("cannot load configuration", err)
	}
	screenshotDir := c.String("screenshot-dir")
	if screenshotDir == "" {
		screenshotDir = cfg.ScreenshotDir()
	}

	// SIGTERM from the supervisor lands here; the executor stops at the
	// next step boundary and the partial result still reaches stdout.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	manager := browser.NewManager()
	defer manager.Shutdown()

	session, err := manager.Open(ctx, browser.Options{
		Kind:           c.String("browser"),
		ExecutablePath: c.String("browser-path"),
		Headless:       resolveHeadless(c.Bool("headless"), c.Bool("headed")),
		Attach:         c.Bool("attach"),
		DebugPort:      c.Int("debug-port"),
		ProfileDir:     c.String("profile-dir"),
		OwnTab:         c.Bool("own-tab"),
	})
	if err != nil {
		return emitFailure("cannot open browser session", err)
	}
	defer session.Close()

	exec := executor.New(session.Page(), executor.Config{
		FlowID:        flowID,
		ScreenshotDir: screenshotDir,
		Challenge:     challengeHandler(cfg),
	})
	result := exec.Run(ctx, steps)

	data, err := json.Marshal(result)
	if err != nil {
		return emitFailure("cannot encode result", err)
	}
	fmt.Println(string(data))
	return nil
}

// resolveHeadless decides the browser display mode. Headless is the
// default; an explicit --headless wins over --headed.
func resolveHeadless(headless, headed bool) bool {
	return headless || !headed
}

// challengeHandler builds the challenge handler from configuration, or nil
// when handling is disabled.
func challengeHandler(cfg *config.Config) *challenge.Handler {
	if !cfg.ChallengeEnabled() {
		return nil
	}
	return challenge.New(challenge.Config{
		Enabled:            true,
		CheckProbability:   cfg.Challenge.CheckProbability,
		MaxWait:            time.Duration(cfg.Challenge.MaxWaitSeconds) * time.Second,
		CheckAfterNavigate: true,
	})
}

// emitFailure reports a run that died before producing a result: a JSON
// line on stderr mirroring the result contract, then a silent non-zero
// exit so the supervising process records the failure.
func emitFailure(action string, err error) error {
	fmt.Fprintln(os.Stderr, string(failurePayload(action, err)))
	return cli.Exit("", 1)
}

// failurePayload builds the stderr document for a failed run.
func failurePayload(action string, err error) []byte {
	data, _ := json.Marshal(map[string]string{
		"status":  string(core.StatusFailed),
		"message": fmt.Sprintf("%s: %v", action, err),
		"detail":  err.Error(),
	})
	return data
}
