// Package cli provides the command-line interface for flow-runner.
package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/navigator-hub/flow-runner/pkg/logger"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "home",
		Usage:   "Home directory holding config.yaml and the data dir",
		EnvVars: []string{"FLOW_RUNNER_HOME"},
	},
	&cli.BoolFlag{
		Name:    "debug",
		Usage:   "Enable debug logging",
		EnvVars: []string{"FLOW_RUNNER_DEBUG"},
	},
	&cli.BoolFlag{
		Name:  "no-ansi",
		Usage: "Disable ANSI colors",
	},
}

// Execute runs the CLI.
func Execute() {
	app := &cli.App{
		Name:    "flow-runner",
		Usage:   "Run, schedule and serve browser automation flows",
		Version: Version,
		Description: `Flow Runner executes JSON-defined browser flows with a real browser
and serves the management API, scheduler and execution history around them.

Examples:
  flow-runner serve
  flow-runner run 42 "$(cat flow.json)" --headed
  flow-runner browser start --port 9222`,
		Flags: GlobalFlags,
		Commands: []*cli.Command{
			serveCommand,
			runCommand,
			browserCommand,
		},
		Before: setupGlobals,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setupGlobals applies the global flags before any command runs.
func setupGlobals(c *cli.Context) error {
	if c.Bool("no-ansi") {
		color.NoColor = true
	}
	if c.Bool("debug") {
		logger.SetDebug(true)
	}
	if home := c.String("home"); home != "" {
		// config.GetHome resolves through the environment; flag wins over
		// an inherited value.
		os.Setenv("FLOW_RUNNER_HOME", home)
	}
	return nil
}

var (
	stepColor = color.New(color.FgCyan)
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	failColor = color.New(color.FgRed)
)

// printStep prints an in-progress status line.
func printStep(format string, v ...any) {
	fmt.Printf("  %s %s\n", stepColor.Sprint("⏳"), fmt.Sprintf(format, v...))
}

// printSuccess prints a completed status line.
func printSuccess(format string, v ...any) {
	fmt.Printf("  %s %s\n", okColor.Sprint("✓"), fmt.Sprintf(format, v...))
}

// printWarning prints a non-fatal problem.
func printWarning(format string, v ...any) {
	fmt.Printf("  %s %s\n", warnColor.Sprint("⚠"), fmt.Sprintf(format, v...))
}

// printFailure prints a failed status line.
func printFailure(format string, v ...any) {
	fmt.Printf("  %s %s\n", failColor.Sprint("✗"), fmt.Sprintf(format, v...))
}
