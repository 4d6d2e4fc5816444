package executor

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/navigator-hub/flow-runner/pkg/core"
	"github.com/navigator-hub/flow-runner/pkg/flow"
	"github.com/navigator-hub/flow-runner/pkg/logger"
)

// Per-kind default timeouts, in milliseconds.
const (
	defaultClickTimeout    = 5000
	defaultTryClickTimeout = 3000
	defaultHoverTimeout    = 5000
	defaultWaitForTimeout  = 10000
)

// conditionProbeTimeout bounds element reads during if_else evaluation.
const conditionProbeTimeout = 5 * time.Second

// timeoutMs converts a step's millisecond timeout field, substituting the
// kind's default when unset.
func timeoutMs(ms, fallback int) time.Duration {
	if ms <= 0 {
		ms = fallback
	}
	return time.Duration(ms) * time.Millisecond
}

// runStep performs one leaf step and returns its success message plus any
// extracted variables. Errors are recovered by the caller.
func (e *Executor) runStep(ctx context.Context, index int, step flow.Step, res *core.StepResult) (string, map[string]any, error) {
	switch st := step.(type) {
	case *flow.NavigateStep:
		url := e.vars.Interpolate(st.URL)
		waitUntil := st.WaitUntil
		if waitUntil == "" {
			waitUntil = "load"
		}
		if err := e.page.Goto(url, waitUntil, 0); err != nil {
			return "", nil, err
		}
		return "Navigated to " + url, nil, nil

	case *flow.ClickStep:
		selector := e.vars.Interpolate(st.Selector)
		if err := e.page.Click(selector, timeoutMs(st.Timeout, defaultClickTimeout)); err != nil {
			return "", nil, err
		}
		return "Clicked " + selector, nil, nil

	case *flow.InputStep:
		selector := e.vars.Interpolate(st.Selector)
		value := e.vars.Interpolate(st.Value)
		if st.ClearFirst() {
			if err := e.page.Fill(selector, "", 0); err != nil {
				return "", nil, err
			}
		}
		if err := e.page.Fill(selector, value, 0); err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("Input '%s' into %s", value, selector), nil, nil

	case *flow.SelectStep:
		selector := e.vars.Interpolate(st.Selector)
		value := e.vars.Interpolate(st.Value)
		if err := e.page.SelectOption(selector, value, 0); err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("Selected '%s' in %s", value, selector), nil, nil

	case *flow.CheckboxStep:
		selector := e.vars.Interpolate(st.Selector)
		if err := e.page.SetChecked(selector, st.Checked, 0); err != nil {
			return "", nil, err
		}
		if st.Checked {
			return "Checked " + selector, nil, nil
		}
		return "Unchecked " + selector, nil, nil

	case *flow.ScrollStep:
		if st.Selector != "" {
			selector := e.vars.Interpolate(st.Selector)
			if err := e.page.ScrollIntoView(selector, 0); err != nil {
				return "", nil, err
			}
			return "Scrolled to " + selector, nil, nil
		}
		if err := e.page.ScrollBy(st.X, st.Y); err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("Scrolled by (%d, %d)", st.X, st.Y), nil, nil

	case *flow.HoverStep:
		selector := e.vars.Interpolate(st.Selector)
		if err := e.page.Hover(selector, timeoutMs(st.Timeout, defaultHoverTimeout)); err != nil {
			return "", nil, err
		}
		return "Hovered over " + selector, nil, nil

	case *flow.PressKeyStep:
		selector := e.vars.Interpolate(st.Selector)
		if err := e.page.Press(selector, st.Key, 0); err != nil {
			return "", nil, err
		}
		if selector != "" {
			return fmt.Sprintf("Pressed %s on %s", st.Key, selector), nil, nil
		}
		return "Pressed " + st.Key, nil, nil

	case *flow.TryClickStep:
		selector := e.vars.Interpolate(st.Selector)
		count, err := e.page.Count(selector)
		if err != nil {
			return "", nil, err
		}
		if count == 0 {
			return fmt.Sprintf("Element %s not found, skipped", selector), nil, nil
		}
		if err := e.page.Click(selector, timeoutMs(st.Timeout, defaultTryClickTimeout)); err != nil {
			return "", nil, err
		}
		return "Clicked " + selector, nil, nil

	case *flow.WaitForStep:
		selector := e.vars.Interpolate(st.Selector)
		state := st.State
		if state == "" {
			state = core.StateVisible
		}
		if err := e.page.WaitFor(selector, state, timeoutMs(st.Timeout, defaultWaitForTimeout)); err != nil {
			return "", nil, err
		}
		return "Waited for " + selector, nil, nil

	case *flow.WaitTimeStep:
		e.sleep(ctx, time.Duration(st.Duration*float64(time.Millisecond)))
		if err := ctx.Err(); err != nil {
			return "", nil, core.ErrExecutionStopped.WithCause(err)
		}
		return fmt.Sprintf("Waited %gms", st.Duration), nil, nil

	case *flow.RandomWaitStep:
		span := st.Max - st.Min
		if span < 0 {
			span = 0
		}
		waited := st.Min + e.randf()*span
		e.sleep(ctx, time.Duration(waited*float64(time.Millisecond)))
		if err := ctx.Err(); err != nil {
			return "", nil, core.ErrExecutionStopped.WithCause(err)
		}
		return fmt.Sprintf("Waited %.0fms", waited), nil, nil

	case *flow.ExtractStep:
		selector := e.vars.Interpolate(st.Selector)
		var value string
		var err error
		if st.Attribute != "" {
			value, err = e.page.Attribute(selector, st.Attribute, 0)
		} else {
			value, err = e.page.TextContent(selector, 0)
		}
		if err != nil {
			return "", nil, err
		}
		extracted := map[string]any{st.Variable: value}
		return fmt.Sprintf("Extracted '%s' from %s", value, selector), extracted, nil

	case *flow.ExtractListStep:
		selector := e.vars.Interpolate(st.Selector)
		var values []string
		var err error
		if st.Attribute != "" {
			values, err = e.page.AllAttributes(selector, st.Attribute)
		} else {
			values, err = e.page.AllTextContents(selector)
		}
		if err != nil {
			return "", nil, err
		}
		extracted := map[string]any{st.Variable: values}
		return fmt.Sprintf("Extracted %d items from %s", len(values), selector), extracted, nil

	case *flow.SetVariableStep:
		value := e.vars.Interpolate(st.Value)
		extracted := map[string]any{st.Variable: value}
		return fmt.Sprintf("Set '%s' to '%s'", st.Variable, value), extracted, nil

	case *flow.ElementExistsStep:
		selector := e.vars.Interpolate(st.Selector)
		count, err := e.page.Count(selector)
		if err != nil {
			return "", nil, err
		}
		exists := strconv.FormatBool(count > 0)
		extracted := map[string]any{st.Variable: exists}
		return fmt.Sprintf("Element %s exists: %s", selector, exists), extracted, nil

	case *flow.AssertTextStep:
		selector := e.vars.Interpolate(st.Selector)
		expected := e.vars.Interpolate(st.Expected)
		text, err := e.page.TextContent(selector, 0)
		if err != nil {
			return "", nil, err
		}
		if !strings.Contains(text, expected) {
			return "", nil, core.NewExecutionError(core.KindAssertionFailed,
				"text of %s is '%s', expected to contain '%s'", selector, strings.TrimSpace(text), expected)
		}
		return fmt.Sprintf("Asserted %s contains '%s'", selector, expected), nil, nil

	case *flow.AssertVisibleStep:
		selector := e.vars.Interpolate(st.Selector)
		if err := e.page.WaitFor(selector, core.StateVisible, timeoutMs(st.Timeout, defaultWaitForTimeout)); err != nil {
			return "", nil, core.NewExecutionError(core.KindAssertionFailed,
				"element %s did not become visible", selector).WithCause(err)
		}
		return fmt.Sprintf("Asserted %s is visible", selector), nil, nil

	case *flow.EvaluateStep:
		script := e.vars.Interpolate(st.Script)
		value, err := e.page.Evaluate(script)
		if err != nil {
			return "", nil, err
		}
		if st.Variable != "" {
			return "Evaluated script", map[string]any{st.Variable: value}, nil
		}
		return "Evaluated script", nil, nil

	case *flow.ScreenshotStep:
		name := e.vars.Interpolate(st.Path)
		if name == "" {
			name = core.ScreenshotName(e.cfg.FlowID, index)
		}
		path := core.ArtifactPath(e.cfg.ScreenshotDir, name)
		if e.cfg.ScreenshotDir != "" {
			os.MkdirAll(e.cfg.ScreenshotDir, 0o755)
		}
		if err := e.page.Screenshot(path, st.FullPage); err != nil {
			return "", nil, err
		}
		res.Screenshot = path
		return "Screenshot saved to " + name, nil, nil

	case *flow.NewTabStep:
		url := e.vars.Interpolate(st.URL)
		if err := e.page.OpenTab(url, 0); err != nil {
			return "", nil, err
		}
		if url != "" {
			return "Opened new tab at " + url, nil, nil
		}
		return "Opened new tab", nil, nil

	case *flow.SwitchTabStep:
		if err := e.page.SwitchTab(st.Index); err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("Switched to tab %d", st.Index), nil, nil

	case *flow.CloseTabStep:
		if st.Index != nil {
			if err := e.page.SwitchTab(*st.Index); err != nil {
				return "", nil, err
			}
		}
		if err := e.page.CloseTab(); err != nil {
			return "", nil, err
		}
		if st.Index != nil {
			return fmt.Sprintf("Closed tab %d", *st.Index), nil, nil
		}
		return "Closed tab", nil, nil
	}

	return "", nil, core.NewExecutionError(core.KindValidationError,
		"no handler for step type '%s'", step.Kind())
}

// evalCondition resolves an if_else predicate. Page probe errors count as
// false so a flaky element check picks the else branch instead of failing.
func (e *Executor) evalCondition(c flow.Condition) bool {
	if c.OnVariable() {
		value, ok := e.vars.Get(c.Variable)
		switch c.Kind {
		case flow.CondVariableExists:
			return ok
		case flow.CondVariableEquals:
			return ok && flow.Stringify(value) == e.conditionValue(c)
		case flow.CondVariableContains:
			return ok && strings.Contains(flow.Stringify(value), e.conditionValue(c))
		case flow.CondVariableGreater, flow.CondVariableLess:
			if !ok {
				return false
			}
			left, leftOk := flow.ToNumber(value)
			right, rightOk := flow.ToNumber(c.Value)
			if !leftOk || !rightOk {
				return false
			}
			if c.Kind == flow.CondVariableGreater {
				return left > right
			}
			return left < right
		}
		return false
	}

	selector := e.vars.Interpolate(c.Selector)
	switch c.Kind {
	case flow.CondElementExists:
		count, err := e.page.Count(selector)
		if err != nil {
			logger.Debug("Condition probe failed: %v", err)
			return false
		}
		return count > 0
	case flow.CondElementVisible:
		visible, err := e.page.Visible(selector)
		if err != nil {
			logger.Debug("Condition probe failed: %v", err)
			return false
		}
		return visible
	case flow.CondElementTextEquals, flow.CondElementTextContains:
		text, err := e.page.TextContent(selector, conditionProbeTimeout)
		if err != nil {
			logger.Debug("Condition probe failed: %v", err)
			return false
		}
		if c.Kind == flow.CondElementTextEquals {
			return strings.TrimSpace(text) == e.conditionValue(c)
		}
		return strings.Contains(text, e.conditionValue(c))
	}
	return false
}

// conditionValue renders the comparison value, interpolating variable
// references in string values.
func (e *Executor) conditionValue(c flow.Condition) string {
	return e.vars.Interpolate(flow.Stringify(c.Value))
}
