// Package executor runs parsed flows against a live page, recovering every
// step failure into a classified result so one broken selector never takes
// down the run.
package executor

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/navigator-hub/flow-runner/pkg/challenge"
	"github.com/navigator-hub/flow-runner/pkg/core"
	"github.com/navigator-hub/flow-runner/pkg/flow"
	"github.com/navigator-hub/flow-runner/pkg/logger"
)

// Config carries the per-execution settings.
type Config struct {
	FlowID        string
	ScreenshotDir string

	// Challenge handles bot-verification pages between steps. Nil disables
	// checking.
	Challenge *challenge.Handler

	// Variables seeds the execution scope.
	Variables map[string]any
}

// Executor drives one flow execution over a page.
type Executor struct {
	page   core.Page
	cfg    Config
	vars   flow.Variables
	result *core.ExecutionResult

	// Injection points for tests.
	sleep func(context.Context, time.Duration)
	randf func() float64
}

// New creates an executor for one run.
func New(page core.Page, cfg Config) *Executor {
	vars := flow.Variables{}
	for name, value := range cfg.Variables {
		vars.Set(name, value)
	}
	return &Executor{
		page:  page,
		cfg:   cfg,
		vars:  vars,
		sleep: sleepCtx,
		randf: rand.Float64,
	}
}

// Run executes the steps in order and returns the aggregate result. Every
// step is attempted; failures are recorded, not propagated. Cancelling the
// context stops execution at the next step boundary.
func (e *Executor) Run(ctx context.Context, steps []flow.Step) *core.ExecutionResult {
	started := time.Now()
	e.result = &core.ExecutionResult{}

	for _, step := range steps {
		if ctx.Err() != nil {
			logger.Warn("Execution cancelled, remaining steps skipped")
			break
		}
		e.executeStep(ctx, step)
	}

	e.result.Variables = map[string]any(e.vars)
	e.result.Finalize(started, time.Now())
	logger.Info("Execution finished: %s (%d steps, %d failed, %dms)",
		e.result.Status, e.result.StepsExecuted, e.result.StepsFailed, e.result.TotalDurationMs)
	return e.result
}

// executeStep dispatches one step. Flow-control steps run their children
// through this same path and leave no result of their own; every other step
// appends exactly one StepResult.
func (e *Executor) executeStep(ctx context.Context, step flow.Step) {
	switch st := step.(type) {
	case *flow.LoopStep:
		e.runLoop(ctx, st)
	case *flow.LoopArrayStep:
		e.runLoopArray(ctx, st)
	case *flow.IfElseStep:
		e.runIfElse(ctx, st)
	default:
		e.runRecorded(ctx, step)
	}
}

// runRecorded executes a leaf step and appends its result.
func (e *Executor) runRecorded(ctx context.Context, step flow.Step) {
	index := len(e.result.StepResults)
	res := core.StepResult{
		Index:       index,
		Kind:        string(step.Kind()),
		Description: step.Description(),
	}

	started := time.Now()
	logger.Info("Step %d: %s", index, step.Describe())

	message, extracted, err := e.runStepRecovered(ctx, index, step, &res)
	res.DurationMs = time.Since(started).Milliseconds()

	if err != nil {
		e.recordFailure(&res, step, started, err)
	} else {
		res.Success = true
		res.Message = message
		if len(extracted) > 0 {
			res.Extracted = extracted
			for name, value := range extracted {
				e.vars.Set(name, value)
			}
		}
	}
	e.result.StepResults = append(e.result.StepResults, res)

	if err == nil {
		e.maybeHandleChallenge(ctx, step.Kind() == flow.StepNavigate)
	}
}

// runStepRecovered turns a panicking driver call into a step failure
// instead of ending the run.
func (e *Executor) runStepRecovered(ctx context.Context, index int, step flow.Step, res *core.StepResult) (message string, extracted map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("step panicked: %v", r)
		}
	}()
	return e.runStep(ctx, index, step, res)
}

// recordFailure fills a failed result: full-page evidence screenshot first,
// then the classified "[KIND] detail" error with joined diagnostics.
func (e *Executor) recordFailure(res *core.StepResult, step flow.Step, started time.Time, err error) {
	logger.Error("Step %d failed: %v", res.Index, err)

	if shot := e.captureErrorScreenshot(res.Index, started); shot != "" {
		res.Screenshot = shot
	}

	kind := core.ClassifyError(err)
	detail := err.Error()
	if _, rest, ok := core.SplitKindPrefix(detail); ok {
		detail = rest
	}
	parts := []string{detail}
	if url := e.page.URL(); url != "" {
		parts = append(parts, "URL: "+url)
	}
	if selector := flow.TargetSelector(step); selector != "" {
		selector = e.vars.Interpolate(selector)
		parts = append(parts, "Selector: "+selector)
		if count, probeErr := e.page.Count(selector); probeErr == nil {
			if count == 0 {
				parts = append(parts, "Element not found")
			} else {
				parts = append(parts, fmt.Sprintf("Found %d element(s)", count))
			}
		}
	}
	if desc := step.Description(); desc != "" {
		parts = append(parts, "Step: "+desc)
	}
	res.Error = core.FormatStepError(kind, strings.Join(parts, " | "))
}

// captureErrorScreenshot writes the evidence capture for a failed step and
// returns its path, or empty when the page cannot be captured.
func (e *Executor) captureErrorScreenshot(index int, started time.Time) string {
	name := core.ErrorScreenshotName(e.cfg.FlowID, index, started)
	path := core.ArtifactPath(e.cfg.ScreenshotDir, name)
	if e.cfg.ScreenshotDir != "" {
		os.MkdirAll(e.cfg.ScreenshotDir, 0o755)
	}
	if err := e.page.Screenshot(path, true); err != nil {
		logger.Debug("Error screenshot failed: %v", err)
		return ""
	}
	return path
}

// recordControlFailure appends a failed result for a flow-control step
// whose own logic (not a child) failed.
func (e *Executor) recordControlFailure(step flow.Step, err error) {
	res := core.StepResult{
		Index:       len(e.result.StepResults),
		Kind:        string(step.Kind()),
		Description: step.Description(),
	}
	e.recordFailure(&res, step, time.Now(), err)
	e.result.StepResults = append(e.result.StepResults, res)
}

func (e *Executor) runLoop(ctx context.Context, st *flow.LoopStep) {
	for i := 0; i < st.Times; i++ {
		if ctx.Err() != nil {
			return
		}
		logger.Debug("Loop iteration %d/%d", i+1, st.Times)
		for _, child := range st.Steps {
			e.executeStep(ctx, child)
		}
	}
}

func (e *Executor) runLoopArray(ctx context.Context, st *flow.LoopArrayStep) {
	value, ok := e.vars.Get(st.Variable)
	if !ok {
		e.recordControlFailure(st, core.NewExecutionError(core.KindValidationError,
			"loop_array variable '%s' is not defined", st.Variable))
		return
	}
	items, ok := flow.AsList(value)
	if !ok {
		e.recordControlFailure(st, core.NewExecutionError(core.KindValidationError,
			"loop_array variable '%s' is not an array", st.Variable))
		return
	}

	itemVar := st.ItemVariable
	if itemVar == "" {
		itemVar = "item"
	}
	for i, item := range items {
		if ctx.Err() != nil {
			return
		}
		logger.Debug("Loop item %d/%d", i+1, len(items))
		e.vars.Set(itemVar, item)
		if st.IndexVariable != "" {
			e.vars.Set(st.IndexVariable, i)
		}
		for _, child := range st.Steps {
			e.executeStep(ctx, child)
		}
	}
}

func (e *Executor) runIfElse(ctx context.Context, st *flow.IfElseStep) {
	branch := st.Else
	if e.evalCondition(st.Condition) {
		logger.Debug("Condition true: %s", st.Condition.Describe())
		branch = st.Then
	} else {
		logger.Debug("Condition false: %s", st.Condition.Describe())
	}
	for _, child := range branch {
		if ctx.Err() != nil {
			return
		}
		e.executeStep(ctx, child)
	}
}

// maybeHandleChallenge consults the challenge handler after a successful
// step: always considered after navigation, probabilistically elsewhere.
func (e *Executor) maybeHandleChallenge(ctx context.Context, afterNavigate bool) {
	h := e.cfg.Challenge
	if h == nil || !h.ShouldCheck(afterNavigate) {
		return
	}
	result := h.Handle(ctx, e.page)
	if result.Detected {
		logger.Info("Challenge %s: handled=%v in %s", result.Kind, result.Handled, result.Elapsed)
	}
}

// sleepCtx pauses for d or until the context ends.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
