package core

import "testing"

func TestComputeStatus(t *testing.T) {
	tests := []struct {
		name     string
		executed int
		failed   int
		want     ExecutionStatus
	}{
		{"all passed", 5, 0, StatusSuccess},
		{"none executed", 0, 0, StatusSuccess},
		{"one of many failed", 5, 1, StatusPartial},
		{"most failed", 5, 4, StatusPartial},
		{"all failed", 5, 5, StatusFailed},
		{"single step failed", 1, 1, StatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeStatus(tt.executed, tt.failed); got != tt.want {
				t.Errorf("ComputeStatus(%d, %d) = %s, want %s", tt.executed, tt.failed, got, tt.want)
			}
		})
	}
}

func TestFlowStatusIsTerminal(t *testing.T) {
	tests := []struct {
		status FlowStatus
		want   bool
	}{
		{FlowIdle, false},
		{FlowRunning, false},
		{FlowSuccess, true},
		{FlowFailed, true},
	}
	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.want {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}
