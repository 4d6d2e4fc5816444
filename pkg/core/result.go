package core

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"
)

// StepResult captures the outcome of executing a single step. The JSON field
// names are the wire format the child process emits on stdout.
type StepResult struct {
	Index       int            `json:"step_index"`
	Kind        string         `json:"step_type"`
	Success     bool           `json:"success"`
	DurationMs  int64          `json:"duration_ms"`
	Message     string         `json:"message"`
	Description string         `json:"description"`
	Extracted   map[string]any `json:"extracted_data,omitempty"`
	Screenshot  string         `json:"screenshot_path,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// ExecutionResult is the complete outcome of one flow run. It is the JSON
// document the child process prints as its final stdout line.
type ExecutionResult struct {
	Status          ExecutionStatus `json:"status"`
	StepsExecuted   int             `json:"steps_executed"`
	StepsFailed     int             `json:"steps_failed"`
	TotalDurationMs int64           `json:"total_duration_ms"`
	Message         string          `json:"message"`
	StepResults     []StepResult    `json:"step_results"`
	Variables       map[string]any  `json:"variables"`
	ErrorMessage    string          `json:"error_message,omitempty"`
}

// Finalize fills the derived fields once all steps have run.
func (r *ExecutionResult) Finalize(startedAt, completedAt time.Time) {
	r.TotalDurationMs = completedAt.Sub(startedAt).Milliseconds()
	r.StepsExecuted = len(r.StepResults)
	r.StepsFailed = 0
	for _, s := range r.StepResults {
		if !s.Success {
			r.StepsFailed++
		}
	}
	r.Status = ComputeStatus(r.StepsExecuted, r.StepsFailed)
	r.Message = fmt.Sprintf("Executed %d steps, %d failed", r.StepsExecuted, r.StepsFailed)
	if r.StepsFailed > 0 {
		r.ErrorMessage = fmt.Sprintf("%d steps failed", r.StepsFailed)
	}
}

// FailedSteps returns the failed results in execution order.
func (r *ExecutionResult) FailedSteps() []StepResult {
	var failed []StepResult
	for _, s := range r.StepResults {
		if !s.Success {
			failed = append(failed, s)
		}
	}
	return failed
}

// ErrorKinds returns the de-duplicated classified kinds across failed steps,
// extracted from the "[KIND] message" error prefix. Sorted for stable storage.
func (r *ExecutionResult) ErrorKinds() []string {
	seen := map[string]bool{}
	for _, s := range r.FailedSteps() {
		if kind, _, ok := SplitKindPrefix(s.Error); ok {
			seen[kind] = true
		}
	}
	kinds := make([]string, 0, len(seen))
	for k := range seen {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// ScreenshotFiles returns the base names of every screenshot the run produced.
func (r *ExecutionResult) ScreenshotFiles() []string {
	var files []string
	for _, s := range r.StepResults {
		if s.Screenshot != "" {
			files = append(files, filepath.Base(s.Screenshot))
		}
	}
	return files
}
