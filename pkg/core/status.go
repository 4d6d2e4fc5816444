package core

// ExecutionStatus is the aggregate outcome of one flow execution.
type ExecutionStatus string

const (
	StatusSuccess ExecutionStatus = "success"
	StatusPartial ExecutionStatus = "partial"
	StatusFailed  ExecutionStatus = "failed"
)

// ComputeStatus derives the aggregate status from step counts.
// partial means some but not all executed steps failed.
func ComputeStatus(executed, failed int) ExecutionStatus {
	if failed == 0 {
		return StatusSuccess
	}
	if failed < executed {
		return StatusPartial
	}
	return StatusFailed
}

// FlowStatus is the last known state of a configured flow.
type FlowStatus string

const (
	FlowIdle    FlowStatus = "idle"
	FlowRunning FlowStatus = "running"
	FlowSuccess FlowStatus = "success"
	FlowFailed  FlowStatus = "failed"
)

// IsTerminal returns true if the status is a final state.
func (s FlowStatus) IsTerminal() bool {
	return s == FlowSuccess || s == FlowFailed
}
