package process

import (
	"os"
	"os/exec"
	"strconv"

	"github.com/navigator-hub/flow-runner/pkg/browser"
)

// Spec carries everything the supervisor needs to launch one execution.
type Spec struct {
	FlowID string
	DSL    string

	Headless    bool
	BrowserKind string
	BrowserPath string

	// Attached mode: drive an already-running browser over its debug port.
	Attach     bool
	DebugPort  int
	ProfileDir string

	ScreenshotDir string
}

// BuildArgs returns the child argument vector for one execution.
func BuildArgs(spec Spec) []string {
	args := []string{"run", spec.FlowID, spec.DSL}
	if spec.Headless {
		args = append(args, "--headless")
	} else {
		args = append(args, "--headed")
	}
	kind := spec.BrowserKind
	if kind == "" {
		kind = "chromium"
	}
	args = append(args, "--browser", kind)
	if spec.BrowserPath != "" {
		args = append(args, "--browser-path", spec.BrowserPath)
	}
	if spec.Attach {
		port := spec.DebugPort
		if port <= 0 {
			port = browser.DefaultDebugPort
		}
		args = append(args, "--attach", "--debug-port", strconv.Itoa(port))
		if spec.ProfileDir != "" {
			args = append(args, "--profile-dir", spec.ProfileDir)
		}
		// Each supervised execution drives its own tab so concurrent runs
		// on the shared browser cannot interfere.
		args = append(args, "--own-tab")
	}
	if spec.ScreenshotDir != "" {
		args = append(args, "--screenshot-dir", spec.ScreenshotDir)
	}
	return args
}

// DefaultCommand re-invokes the current binary with the run subcommand.
func DefaultCommand(spec Spec) (*exec.Cmd, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, err
	}
	return exec.Command(self, BuildArgs(spec)...), nil
}
