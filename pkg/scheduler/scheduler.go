// Package scheduler runs active flows on their cron expressions.
package scheduler

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/navigator-hub/flow-runner/pkg/logger"
	"github.com/navigator-hub/flow-runner/pkg/process"
	"github.com/navigator-hub/flow-runner/pkg/storage"
)

// Runner starts one flow execution and reports the immediate outcome.
// *process.Supervisor satisfies it.
type Runner interface {
	Trigger(spec process.Spec) process.Result
}

// ValidateCron checks that expr is a standard 5-field cron expression.
func ValidateCron(expr string) error {
	if len(strings.Fields(expr)) != 5 {
		return fmt.Errorf("cron expression must include 5 fields: min hour day month weekday")
	}
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// Scheduler keeps one cron job per scheduled flow and replaces the whole
// job set whenever flows change.
type Scheduler struct {
	cron          *cron.Cron
	runner        Runner
	screenshotDir string

	mu   sync.Mutex
	jobs map[uint]cron.EntryID
}

// New builds a scheduler ticking in the given timezone.
func New(timezone string, runner Runner, screenshotDir string) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", timezone, err)
	}
	return &Scheduler{
		cron:          cron.New(cron.WithLocation(loc)),
		runner:        runner,
		screenshotDir: screenshotDir,
		jobs:          make(map[uint]cron.EntryID),
	}, nil
}

// Start begins firing jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info("Scheduler started")
}

// Stop halts the cron loop. Jobs already running are left to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	logger.Info("Scheduler stopped")
}

// Reload replaces every scheduled job with one job per given flow. Flows
// without a valid cron expression are skipped and logged. It returns the
// number of flows scheduled.
func (s *Scheduler) Reload(flows []storage.Flow) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.jobs {
		s.cron.Remove(id)
	}
	s.jobs = make(map[uint]cron.EntryID, len(flows))

	scheduled := 0
	for _, flow := range flows {
		if flow.CronExpression == nil {
			continue
		}
		expr := *flow.CronExpression
		if err := ValidateCron(expr); err != nil {
			logger.Error("Flow %d has an invalid schedule: %v", flow.ID, err)
			continue
		}
		name := flow.Name
		spec := flow.ExecutionSpec(s.screenshotDir)
		id, err := s.cron.AddFunc(expr, func() {
			s.run(name, spec)
		})
		if err != nil {
			logger.Error("Cannot schedule flow %d: %v", flow.ID, err)
			continue
		}
		s.jobs[flow.ID] = id
		scheduled++
	}
	logger.Info("Scheduler loaded %d scheduled flow(s)", scheduled)
	return scheduled
}

// Jobs reports how many flows currently hold a cron entry.
func (s *Scheduler) Jobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// run fires one scheduled execution. A flow that is still running from a
// previous tick is skipped, not treated as an error.
func (s *Scheduler) run(name string, spec process.Spec) {
	res := s.runner.Trigger(spec)
	switch res.Status {
	case process.StatusStarted:
		logger.Info("Scheduled execution of %s started", name)
	case process.StatusRunning:
		logger.Info("Scheduled execution of %s skipped: %s", name, res.Message)
	default:
		logger.Error("Scheduled execution of %s failed: %s", name, res.Message)
	}
}
