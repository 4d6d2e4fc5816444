// Package process supervises flow executions: each run is a child process
// with a bounded lifetime, at most one live execution per flow, and an
// outcome record persisted on every path.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/navigator-hub/flow-runner/pkg/browser"
	"github.com/navigator-hub/flow-runner/pkg/core"
	"github.com/navigator-hub/flow-runner/pkg/logger"
)

// Trigger and Stop outcome statuses.
const (
	StatusStarted = "started"
	StatusRunning = "running"
	StatusStopped = "stopped"
	StatusIdle    = "idle"
	StatusFailed  = "failed"
)

// Result is the immediate outcome of a Trigger or Stop call.
type Result struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

const (
	defaultTimeout = 5 * time.Minute
	stopGrace      = 5 * time.Second
)

// execution tracks one supervised child.
type execution struct {
	flowID    string
	startedAt time.Time
	cmd       *exec.Cmd // nil until started; guarded by Supervisor.mu
	slot      *browser.SharedSession
	ctx       context.Context
	cancel    context.CancelFunc

	exitOnce sync.Once
	exited   chan struct{} // closed once the child can no longer be running
}

func (e *execution) markExited() {
	e.exitOnce.Do(func() { close(e.exited) })
}

func (e *execution) finished() bool {
	select {
	case <-e.exited:
		return true
	default:
		return false
	}
}

// Config configures a Supervisor.
type Config struct {
	// Timeout bounds one child execution. Zero means the 5 minute default.
	Timeout time.Duration

	// Sink persists finished executions. Nil discards them.
	Sink Sink

	// Shared provides the per-port concurrency limiters for attached runs.
	// Nil disables slot limiting.
	Shared *browser.Manager

	// NewCommand builds the child invocation. Nil means DefaultCommand.
	NewCommand func(Spec) (*exec.Cmd, error)
}

// Supervisor runs flow executions as child processes.
type Supervisor struct {
	mu    sync.Mutex
	procs map[string]*execution

	timeout    time.Duration
	sink       Sink
	shared     *browser.Manager
	newCommand func(Spec) (*exec.Cmd, error)
}

// New creates a supervisor.
func New(cfg Config) *Supervisor {
	s := &Supervisor{
		procs:      map[string]*execution{},
		timeout:    cfg.Timeout,
		sink:       cfg.Sink,
		shared:     cfg.Shared,
		newCommand: cfg.NewCommand,
	}
	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}
	if s.newCommand == nil {
		s.newCommand = DefaultCommand
	}
	return s
}

// Trigger starts one execution of the flow unless one is already live.
// It returns as soon as the execution is registered; completion is
// handled in the background.
func (s *Supervisor) Trigger(spec Spec) Result {
	s.mu.Lock()
	if entry, ok := s.procs[spec.FlowID]; ok {
		if !entry.finished() {
			s.mu.Unlock()
			return Result{Status: StatusRunning, Message: "Flow is already running"}
		}
		delete(s.procs, spec.FlowID)
	}

	cmd, err := s.newCommand(spec)
	if err != nil {
		s.mu.Unlock()
		logger.Error("Cannot build command for flow %s: %v", spec.FlowID, err)
		return Result{Status: StatusFailed, Message: fmt.Sprintf("Execution error: %v", err)}
	}

	ctx, cancel := context.WithCancel(context.Background())
	entry := &execution{
		flowID:    spec.FlowID,
		startedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
		exited:    make(chan struct{}),
	}
	s.procs[spec.FlowID] = entry
	s.mu.Unlock()

	logger.Info("Triggering flow %s in a separate process", spec.FlowID)
	go s.supervise(entry, spec, cmd)

	return Result{Status: StatusStarted, Message: "Flow execution started in background"}
}

// supervise owns one execution start to finish: browser slot, child
// process, outcome record, registry cleanup.
func (s *Supervisor) supervise(entry *execution, spec Spec, cmd *exec.Cmd) {
	defer func() {
		entry.markExited()
		if entry.slot != nil {
			entry.slot.Release()
		}
		s.remove(entry)
		entry.cancel()
	}()

	if spec.Attach && s.shared != nil {
		port := spec.DebugPort
		if port <= 0 {
			port = browser.DefaultDebugPort
		}
		slot := s.shared.SharedFor(port)
		if err := slot.Acquire(entry.ctx); err != nil {
			s.persist(failureRecord(entry, "execution manually stopped while waiting for a browser slot"))
			return
		}
		entry.slot = slot
	}
	if entry.ctx.Err() != nil {
		s.persist(failureRecord(entry, "execution manually stopped before start"))
		return
	}

	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	if err := cmd.Start(); err != nil {
		logger.Error("Flow %s failed to start: %v", entry.flowID, err)
		s.persist(failureRecord(entry, fmt.Sprintf("Execution error: %v", err)))
		return
	}
	s.setCmd(entry, cmd)
	logger.Info("Started process for flow %s, PID %d", entry.flowID, cmd.Process.Pid)

	waitErr := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		entry.markExited()
		waitErr <- err
	}()

	var exitErr error
	timedOut := false
	select {
	case exitErr = <-waitErr:
	case <-time.After(s.timeout):
		timedOut = true
		logger.Warn("Flow %s exceeded the %s execution limit, killing", entry.flowID, s.timeout)
		s.terminate(entry, cmd)
		<-waitErr
	}

	if timedOut {
		s.persist(failureRecord(entry, fmt.Sprintf("Process timeout after %d seconds", int(s.timeout.Seconds()))))
		return
	}
	rec := buildRecord(entry.flowID, entry.startedAt, time.Now(), out.String(), errOut.String(), exitErr)
	s.persist(rec)
	logger.Info("Flow %s execution completed with status %s", entry.flowID, rec.Status)
}

// Stop terminates the flow's running execution, if any.
func (s *Supervisor) Stop(flowID string) Result {
	s.mu.Lock()
	entry, ok := s.procs[flowID]
	if ok && entry.finished() {
		ok = false
	}
	var cmd *exec.Cmd
	if ok {
		cmd = entry.cmd
	}
	s.mu.Unlock()

	if !ok {
		return Result{Status: StatusIdle, Message: "Flow is not running"}
	}

	entry.cancel()
	if cmd == nil {
		// Still queued on a browser slot; cancellation is enough.
		return Result{Status: StatusStopped, Message: "Flow execution stopped"}
	}
	if s.terminate(entry, cmd) {
		logger.Info("Successfully stopped flow %s", flowID)
		return Result{Status: StatusStopped, Message: "Flow execution stopped"}
	}
	return Result{Status: StatusFailed, Message: "Failed to stop flow execution"}
}

// IsRunning reports whether the flow has a live execution.
func (s *Supervisor) IsRunning(flowID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.procs[flowID]
	if !ok {
		return false
	}
	if entry.finished() {
		delete(s.procs, flowID)
		return false
	}
	return true
}

// ListRunning returns the IDs of flows with live executions.
func (s *Supervisor) ListRunning() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.procs))
	for id, entry := range s.procs {
		if entry.finished() {
			delete(s.procs, id)
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// terminate asks the child to exit, escalating to kill after the grace
// period. Returns false only when the process could not be brought down.
func (s *Supervisor) terminate(entry *execution, cmd *exec.Cmd) bool {
	if cmd == nil || cmd.Process == nil {
		return true
	}
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return true
		}
		if killErr := cmd.Process.Kill(); killErr != nil && !errors.Is(killErr, os.ErrProcessDone) {
			logger.Error("Error stopping process for flow %s: %v", entry.flowID, killErr)
			return false
		}
		<-entry.exited
		return true
	}
	select {
	case <-entry.exited:
		logger.Info("Process for flow %s terminated gracefully", entry.flowID)
	case <-time.After(stopGrace):
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			logger.Error("Error stopping process for flow %s: %v", entry.flowID, err)
			return false
		}
		<-entry.exited
		logger.Warn("Process for flow %s was force killed", entry.flowID)
	}
	return true
}

func (s *Supervisor) setCmd(entry *execution, cmd *exec.Cmd) {
	s.mu.Lock()
	entry.cmd = cmd
	s.mu.Unlock()
}

func (s *Supervisor) remove(entry *execution) {
	s.mu.Lock()
	if s.procs[entry.flowID] == entry {
		delete(s.procs, entry.flowID)
	}
	s.mu.Unlock()
}

func (s *Supervisor) persist(rec Record) {
	if s.sink == nil {
		return
	}
	if err := s.sink.SaveExecution(rec); err != nil {
		logger.Error("Failed to save execution history for flow %s: %v", rec.FlowID, err)
	}
}

// failureRecord builds the minimal record for executions that never
// produced child output.
func failureRecord(entry *execution, message string) Record {
	now := time.Now()
	return Record{
		FlowID:       entry.flowID,
		Status:       core.FlowFailed,
		StartedAt:    entry.startedAt,
		FinishedAt:   now,
		DurationMs:   now.Sub(entry.startedAt).Milliseconds(),
		ErrorMessage: message,
	}
}
