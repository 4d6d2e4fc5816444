package core

import (
	"encoding/json"
	"testing"
	"time"
)

func step(index int, kind string, success bool) StepResult {
	return StepResult{Index: index, Kind: kind, Success: success}
}

func TestFinalize(t *testing.T) {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(2500 * time.Millisecond)

	tests := []struct {
		name        string
		steps       []StepResult
		wantStatus  ExecutionStatus
		wantFailed  int
		wantMessage string
		wantErrMsg  string
	}{
		{
			name:        "all passed",
			steps:       []StepResult{step(0, "navigate", true), step(1, "click", true)},
			wantStatus:  StatusSuccess,
			wantFailed:  0,
			wantMessage: "Executed 2 steps, 0 failed",
		},
		{
			name:        "some failed",
			steps:       []StepResult{step(0, "navigate", true), step(1, "click", false), step(2, "extract", true)},
			wantStatus:  StatusPartial,
			wantFailed:  1,
			wantMessage: "Executed 3 steps, 1 failed",
			wantErrMsg:  "1 steps failed",
		},
		{
			name:        "all failed",
			steps:       []StepResult{step(0, "navigate", false), step(1, "click", false)},
			wantStatus:  StatusFailed,
			wantFailed:  2,
			wantMessage: "Executed 2 steps, 2 failed",
			wantErrMsg:  "2 steps failed",
		},
		{
			name:        "no steps",
			steps:       nil,
			wantStatus:  StatusSuccess,
			wantFailed:  0,
			wantMessage: "Executed 0 steps, 0 failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &ExecutionResult{StepResults: tt.steps}
			r.Finalize(start, end)
			if r.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", r.Status, tt.wantStatus)
			}
			if r.StepsExecuted != len(tt.steps) {
				t.Errorf("steps executed = %d, want %d", r.StepsExecuted, len(tt.steps))
			}
			if r.StepsFailed != tt.wantFailed {
				t.Errorf("steps failed = %d, want %d", r.StepsFailed, tt.wantFailed)
			}
			if r.Message != tt.wantMessage {
				t.Errorf("message = %q, want %q", r.Message, tt.wantMessage)
			}
			if r.ErrorMessage != tt.wantErrMsg {
				t.Errorf("error message = %q, want %q", r.ErrorMessage, tt.wantErrMsg)
			}
			if r.TotalDurationMs != 2500 {
				t.Errorf("duration = %d, want 2500", r.TotalDurationMs)
			}
		})
	}
}

func TestErrorKinds(t *testing.T) {
	r := &ExecutionResult{StepResults: []StepResult{
		{Index: 0, Success: false, Error: "[TIMEOUT] step 1 timed out"},
		{Index: 1, Success: true},
		{Index: 2, Success: false, Error: "[ELEMENT_NOT_FOUND] no element"},
		{Index: 3, Success: false, Error: "[TIMEOUT] step 4 timed out"},
		{Index: 4, Success: false, Error: "no prefix at all"},
	}}
	got := r.ErrorKinds()
	want := []string{"ELEMENT_NOT_FOUND", "TIMEOUT"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("kinds[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestScreenshotFiles(t *testing.T) {
	r := &ExecutionResult{StepResults: []StepResult{
		{Index: 0, Screenshot: "/data/screenshots/flow_3_step_0.png"},
		{Index: 1},
		{Index: 2, Screenshot: "error_flow_3_step_2_1717236000.png"},
	}}
	got := r.ScreenshotFiles()
	want := []string{"flow_3_step_0.png", "error_flow_3_step_2_1717236000.png"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExecutionResultWireShape(t *testing.T) {
	r := &ExecutionResult{
		StepResults: []StepResult{{Index: 0, Kind: "navigate", Success: true, Message: "Navigated"}},
		Variables:   map[string]any{},
	}
	r.Finalize(time.Now(), time.Now().Add(time.Second))

	raw, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"status", "steps_executed", "steps_failed", "total_duration_ms", "message", "step_results", "variables"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("output document missing key %q", key)
		}
	}
	if _, ok := doc["error_message"]; ok {
		t.Errorf("error_message should be omitted when empty")
	}
	stepDoc := doc["step_results"].([]any)[0].(map[string]any)
	for _, key := range []string{"step_index", "step_type", "success", "duration_ms", "message", "description"} {
		if _, ok := stepDoc[key]; !ok {
			t.Errorf("step document missing key %q", key)
		}
	}
}

func TestFailedSteps(t *testing.T) {
	r := &ExecutionResult{StepResults: []StepResult{
		step(0, "navigate", true),
		step(1, "click", false),
		step(2, "input", false),
	}}
	failed := r.FailedSteps()
	if len(failed) != 2 {
		t.Fatalf("got %d failed steps, want 2", len(failed))
	}
	if failed[0].Index != 1 || failed[1].Index != 2 {
		t.Errorf("failed steps out of order: %v", failed)
	}
}
