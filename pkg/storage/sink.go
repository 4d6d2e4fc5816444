package storage

import (
	"fmt"
	"strconv"

	"github.com/navigator-hub/flow-runner/pkg/process"
)

// Sink persists supervisor execution records and keeps the owning flow's
// last status current.
type Sink struct {
	store *Store
}

var _ process.Sink = (*Sink)(nil)

// NewSink wraps the store for the supervisor.
func NewSink(store *Store) *Sink {
	return &Sink{store: store}
}

// SaveExecution implements process.Sink.
func (s *Sink) SaveExecution(rec process.Record) error {
	flowID, err := strconv.ParseUint(rec.FlowID, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid flow id %q: %w", rec.FlowID, err)
	}
	finished := rec.FinishedAt
	duration := rec.DurationMs
	row := &ExecutionRecord{
		FlowID:          uint(flowID),
		Status:          rec.Status,
		StartedAt:       rec.StartedAt,
		FinishedAt:      &finished,
		DurationMs:      &duration,
		Log:             rec.Log,
		ResultPayload:   rec.ResultPayload,
		ErrorMessage:    rec.ErrorMessage,
		ScreenshotFiles: StringList(rec.ScreenshotFiles),
		ErrorKinds:      StringList(rec.ErrorKinds),
	}
	if err := s.store.SaveRecord(row); err != nil {
		return err
	}
	return s.store.SetFlowStatus(uint(flowID), rec.Status)
}
