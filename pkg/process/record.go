package process

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/navigator-hub/flow-runner/pkg/core"
)

// Record is one persisted execution outcome.
type Record struct {
	FlowID          string
	Status          core.FlowStatus
	StartedAt       time.Time
	FinishedAt      time.Time
	DurationMs      int64
	Log             string
	ResultPayload   string
	ErrorMessage    string
	ScreenshotFiles []string
	ErrorKinds      []string
}

// Sink receives finished execution records. Implementations must tolerate
// being called from the supervisor's background goroutines.
type Sink interface {
	SaveExecution(rec Record) error
}

// buildRecord turns one finished child invocation into its history record.
// exitErr is nil when the child exited zero.
func buildRecord(flowID string, startedAt, finishedAt time.Time, stdout, stderr string, exitErr error) Record {
	rec := Record{
		FlowID:     flowID,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		DurationMs: finishedAt.Sub(startedAt).Milliseconds(),
		Log:        stdout,
	}
	if rec.Log == "" {
		rec.Log = stderr
	}

	if exitErr != nil {
		rec.Status = core.FlowFailed
		rec.ErrorMessage = stderr
		if rec.ErrorMessage == "" {
			rec.ErrorMessage = "Execution failed"
		}
		return rec
	}

	var result core.ExecutionResult
	if err := json.Unmarshal([]byte(strings.TrimSpace(stdout)), &result); err != nil {
		rec.Status = core.FlowFailed
		rec.ErrorMessage = "Invalid JSON output"
		return rec
	}

	rec.ResultPayload = stdout
	rec.ScreenshotFiles = result.ScreenshotFiles()
	if result.Status == core.StatusSuccess {
		rec.Status = core.FlowSuccess
		return rec
	}

	// Partial executions count as failed in history.
	rec.Status = core.FlowFailed
	rec.ErrorMessage = summarizeFailure(&result)
	rec.ErrorKinds = result.ErrorKinds()
	return rec
}

// summarizeFailure condenses the failed steps into the operator-facing
// error message.
func summarizeFailure(result *core.ExecutionResult) string {
	failed := result.FailedSteps()
	if len(failed) == 0 {
		if result.Message != "" {
			return result.Message
		}
		return "执行失败"
	}

	parts := make([]string, 0, len(failed))
	for _, step := range failed {
		num := step.Index + 1
		text := step.Error
		tag := ""
		if kind, rest, ok := core.SplitKindPrefix(text); ok {
			tag = "[" + kind + "]"
			text = rest
		}
		main := firstErrorLine(text)
		if step.Description != "" {
			parts = append(parts, fmt.Sprintf("步骤 %d: %s - %s %s", num, step.Description, tag, main))
		} else {
			parts = append(parts, fmt.Sprintf("步骤 %d (%s): %s %s", num, step.Kind, tag, main))
		}
	}
	return strings.Join(parts, " | ")
}

// firstErrorLine keeps only the leading message of a step error, dropping
// the appended diagnostics.
func firstErrorLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	if i := strings.IndexByte(text, '|'); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}
