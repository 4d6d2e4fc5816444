// Package core provides the execution model types for flow-runner.
package core

import (
	"fmt"
	"path/filepath"
	"time"
)

// ScreenshotName returns the default file name for a screenshot step that
// did not specify a path.
func ScreenshotName(flowID string, stepIndex int) string {
	return fmt.Sprintf("flow_%s_step_%d.png", flowID, stepIndex)
}

// ErrorScreenshotName returns the file name for the full-page capture taken
// when a step fails. The timestamp keeps repeated runs from overwriting
// each other's evidence.
func ErrorScreenshotName(flowID string, stepIndex int, startedAt time.Time) string {
	return fmt.Sprintf("error_flow_%s_step_%d_%d.png", flowID, stepIndex, startedAt.Unix())
}

// ArtifactPath places an artifact name under the configured directory.
// An empty directory means the process working directory.
func ArtifactPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}
