package storage

import (
	"strconv"

	"github.com/navigator-hub/flow-runner/pkg/process"
)

// ExecutionSpec builds the supervisor spec for running this flow.
func (f *Flow) ExecutionSpec(screenshotDir string) process.Spec {
	spec := process.Spec{
		FlowID:        strconv.FormatUint(uint64(f.ID), 10),
		DSL:           f.DSL,
		Headless:      f.Headless,
		BrowserKind:   f.BrowserKind,
		Attach:        f.UseAttachedMode,
		DebugPort:     f.DebugPort,
		ScreenshotDir: screenshotDir,
	}
	if f.BrowserPath != nil {
		spec.BrowserPath = *f.BrowserPath
	}
	if f.ProfileDir != nil {
		spec.ProfileDir = *f.ProfileDir
	}
	return spec
}
