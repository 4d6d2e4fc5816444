// Package flow handles parsing and representation of automation DSL documents.
package flow

import "fmt"

// StepKind identifies the type of an automation step.
type StepKind string

// Step kind constants.
const (
	// Navigation & Interaction
	StepNavigate StepKind = "navigate"
	StepClick    StepKind = "click"
	StepInput    StepKind = "input"
	StepSelect   StepKind = "select"
	StepCheckbox StepKind = "checkbox"
	StepScroll   StepKind = "scroll"
	StepHover    StepKind = "hover"
	StepPressKey StepKind = "press_key"
	StepTryClick StepKind = "try_click"

	// Waiting
	StepWaitFor    StepKind = "wait_for"
	StepWaitTime   StepKind = "wait_time"
	StepRandomWait StepKind = "random_wait"

	// Data extraction & variables
	StepExtract       StepKind = "extract"
	StepExtractList   StepKind = "extract_list"
	StepSetVariable   StepKind = "set_variable"
	StepElementExists StepKind = "element_exists"

	// Assertions
	StepAssertText    StepKind = "assert_text"
	StepAssertVisible StepKind = "assert_visible"

	// Scripting & media
	StepEvaluate   StepKind = "evaluate"
	StepScreenshot StepKind = "screenshot"

	// Tabs
	StepNewTab    StepKind = "new_tab"
	StepSwitchTab StepKind = "switch_tab"
	StepCloseTab  StepKind = "close_tab"

	// Flow control
	StepLoop      StepKind = "loop"
	StepLoopArray StepKind = "loop_array"
	StepIfElse    StepKind = "if_else"
)

// Step is the interface for all automation steps.
type Step interface {
	Kind() StepKind
	Description() string
	Describe() string
}

// BaseStep contains common fields for all steps.
type BaseStep struct {
	StepKind        StepKind `json:"-"`
	StepDescription string   `json:"description"`
}

// Kind returns the step kind.
func (b *BaseStep) Kind() StepKind { return b.StepKind }

// Description returns the author-provided description, may be empty.
func (b *BaseStep) Description() string { return b.StepDescription }

// Describe returns a human-readable description.
func (b *BaseStep) Describe() string { return string(b.StepKind) }

// ============================================
// Navigation & Interaction Steps
// ============================================

// NavigateStep opens a URL in the current page.
type NavigateStep struct {
	BaseStep
	URL       string `json:"url"`
	WaitUntil string `json:"wait_until"`
}

// ClickStep clicks an element.
type ClickStep struct {
	BaseStep
	Selector string `json:"selector"`
	Timeout  int    `json:"timeout"`
}

// InputStep types text into an element.
type InputStep struct {
	BaseStep
	Selector string `json:"selector"`
	Value    string `json:"value"`
	Clear    *bool  `json:"clear"`
}

// ClearFirst reports whether the field is cleared before typing.
// Absent means yes.
func (s *InputStep) ClearFirst() bool { return s.Clear == nil || *s.Clear }

// SelectStep chooses a dropdown option by value.
type SelectStep struct {
	BaseStep
	Selector string `json:"selector"`
	Value    string `json:"value"`
}

// CheckboxStep checks or unchecks a checkbox.
type CheckboxStep struct {
	BaseStep
	Selector string `json:"selector"`
	Checked  bool   `json:"checked"`
}

// ScrollStep scrolls an element into view or the window by offsets.
type ScrollStep struct {
	BaseStep
	Selector string `json:"selector"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
}

// HoverStep moves the pointer over an element.
type HoverStep struct {
	BaseStep
	Selector string `json:"selector"`
	Timeout  int    `json:"timeout"`
}

// PressKeyStep presses a keyboard key, optionally on a specific element.
type PressKeyStep struct {
	BaseStep
	Key      string `json:"key"`
	Selector string `json:"selector"`
}

// TryClickStep clicks an element if present; a missing element is not a
// failure.
type TryClickStep struct {
	BaseStep
	Selector string `json:"selector"`
	Timeout  int    `json:"timeout"`
}

// ============================================
// Waiting Steps
// ============================================

// WaitForStep waits for an element to reach a state.
type WaitForStep struct {
	BaseStep
	Selector string `json:"selector"`
	Timeout  int    `json:"timeout"`
	State    string `json:"state"`
}

// WaitTimeStep pauses for a fixed duration in milliseconds.
type WaitTimeStep struct {
	BaseStep
	Duration float64 `json:"duration"`
}

// RandomWaitStep pauses for a random duration between min and max
// milliseconds.
type RandomWaitStep struct {
	BaseStep
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ============================================
// Data Extraction & Variable Steps
// ============================================

// ExtractStep reads text or an attribute from an element into a variable.
type ExtractStep struct {
	BaseStep
	Selector  string `json:"selector"`
	Variable  string `json:"variable"`
	Attribute string `json:"attribute"`
}

// ExtractListStep reads text or an attribute from every matching element
// into a variable holding a list.
type ExtractListStep struct {
	BaseStep
	Selector  string `json:"selector"`
	Variable  string `json:"variable"`
	Attribute string `json:"attribute"`
}

// SetVariableStep assigns a literal (possibly interpolated) value.
type SetVariableStep struct {
	BaseStep
	Variable string `json:"variable"`
	Value    string `json:"value"`
}

// ElementExistsStep stores "true"/"false" depending on element presence.
// Never fails on absence.
type ElementExistsStep struct {
	BaseStep
	Selector string `json:"selector"`
	Variable string `json:"variable"`
}

// ============================================
// Assertion Steps
// ============================================

// AssertTextStep fails unless the element's text contains the expected
// value.
type AssertTextStep struct {
	BaseStep
	Selector string `json:"selector"`
	Expected string `json:"expected"`
}

// AssertVisibleStep fails unless the element becomes visible in time.
type AssertVisibleStep struct {
	BaseStep
	Selector string `json:"selector"`
	Timeout  int    `json:"timeout"`
}

// ============================================
// Scripting & Media Steps
// ============================================

// EvaluateStep runs JavaScript in the page, optionally storing the result.
type EvaluateStep struct {
	BaseStep
	Script   string `json:"script"`
	Variable string `json:"variable"`
}

// ScreenshotStep captures the page to a file.
type ScreenshotStep struct {
	BaseStep
	Path     string `json:"path"`
	FullPage bool   `json:"full_page"`
}

// ============================================
// Tab Steps
// ============================================

// NewTabStep opens a tab and makes it current.
type NewTabStep struct {
	BaseStep
	URL string `json:"url"`
}

// SwitchTabStep makes the tab at the given index current.
type SwitchTabStep struct {
	BaseStep
	Index int `json:"index"`
}

// CloseTabStep closes a tab. Nil index means the current tab.
type CloseTabStep struct {
	BaseStep
	Index *int `json:"index"`
}

// ============================================
// Flow Control Steps
// ============================================

// LoopStep repeats its children a fixed number of times.
type LoopStep struct {
	BaseStep
	Times int    `json:"times"`
	Steps []Step `json:"-"`
}

// LoopArrayStep repeats its children once per element of an array variable,
// binding the item (and optionally the index) to variables each iteration.
type LoopArrayStep struct {
	BaseStep
	Variable      string `json:"variable"`
	ItemVariable  string `json:"item_variable"`
	IndexVariable string `json:"index_variable"`
	Steps         []Step `json:"-"`
}

// IfElseStep evaluates a condition and runs exactly one branch. A missing
// branch is a no-op.
type IfElseStep struct {
	BaseStep
	Condition Condition `json:"condition"`
	Then      []Step    `json:"-"`
	Else      []Step    `json:"-"`
}

// TargetSelector returns the selector a step operates on, empty for steps
// without one. Used for failure diagnostics.
func TargetSelector(s Step) string {
	switch st := s.(type) {
	case *ClickStep:
		return st.Selector
	case *InputStep:
		return st.Selector
	case *SelectStep:
		return st.Selector
	case *CheckboxStep:
		return st.Selector
	case *ScrollStep:
		return st.Selector
	case *HoverStep:
		return st.Selector
	case *PressKeyStep:
		return st.Selector
	case *TryClickStep:
		return st.Selector
	case *WaitForStep:
		return st.Selector
	case *ExtractStep:
		return st.Selector
	case *ExtractListStep:
		return st.Selector
	case *ElementExistsStep:
		return st.Selector
	case *AssertTextStep:
		return st.Selector
	case *AssertVisibleStep:
		return st.Selector
	default:
		return ""
	}
}

// ============================================
// Describe() implementations for detailed output
// ============================================

// Describe returns a human-readable description of the navigate step.
func (s *NavigateStep) Describe() string {
	return "navigate: " + s.URL
}

// Describe returns a human-readable description of the click step.
func (s *ClickStep) Describe() string {
	return "click: " + s.Selector
}

// Describe returns a human-readable description of the input step.
func (s *InputStep) Describe() string {
	return "input: " + s.Selector
}

// Describe returns a human-readable description of the select step.
func (s *SelectStep) Describe() string {
	return fmt.Sprintf("select: %s = %q", s.Selector, s.Value)
}

// Describe returns a human-readable description of the checkbox step.
func (s *CheckboxStep) Describe() string {
	if s.Checked {
		return "checkbox: check " + s.Selector
	}
	return "checkbox: uncheck " + s.Selector
}

// Describe returns a human-readable description of the scroll step.
func (s *ScrollStep) Describe() string {
	if s.Selector != "" {
		return "scroll: " + s.Selector
	}
	return fmt.Sprintf("scroll: by (%d, %d)", s.X, s.Y)
}

// Describe returns a human-readable description of the wait_for step.
func (s *WaitForStep) Describe() string {
	return "wait_for: " + s.Selector
}

// Describe returns a human-readable description of the wait_time step.
func (s *WaitTimeStep) Describe() string {
	return fmt.Sprintf("wait_time: %gms", s.Duration)
}

// Describe returns a human-readable description of the random_wait step.
func (s *RandomWaitStep) Describe() string {
	return fmt.Sprintf("random_wait: %g-%gms", s.Min, s.Max)
}

// Describe returns a human-readable description of the extract step.
func (s *ExtractStep) Describe() string {
	return fmt.Sprintf("extract: %s -> {{%s}}", s.Selector, s.Variable)
}

// Describe returns a human-readable description of the extract_list step.
func (s *ExtractListStep) Describe() string {
	return fmt.Sprintf("extract_list: %s -> {{%s}}", s.Selector, s.Variable)
}

// Describe returns a human-readable description of the set_variable step.
func (s *SetVariableStep) Describe() string {
	return fmt.Sprintf("set_variable: {{%s}}", s.Variable)
}

// Describe returns a human-readable description of the assert_text step.
func (s *AssertTextStep) Describe() string {
	return fmt.Sprintf("assert_text: %s contains %q", s.Selector, s.Expected)
}

// Describe returns a human-readable description of the assert_visible step.
func (s *AssertVisibleStep) Describe() string {
	return "assert_visible: " + s.Selector
}

// Describe returns a human-readable description of the press_key step.
func (s *PressKeyStep) Describe() string {
	return "press_key: " + s.Key
}

// Describe returns a human-readable description of the try_click step.
func (s *TryClickStep) Describe() string {
	return "try_click: " + s.Selector
}

// Describe returns a human-readable description of the evaluate step.
func (s *EvaluateStep) Describe() string {
	return "evaluate"
}

// Describe returns a human-readable description of the screenshot step.
func (s *ScreenshotStep) Describe() string {
	if s.Path != "" {
		return "screenshot: " + s.Path
	}
	return "screenshot"
}

// Describe returns a human-readable description of the new_tab step.
func (s *NewTabStep) Describe() string {
	if s.URL != "" {
		return "new_tab: " + s.URL
	}
	return "new_tab"
}

// Describe returns a human-readable description of the switch_tab step.
func (s *SwitchTabStep) Describe() string {
	return fmt.Sprintf("switch_tab: %d", s.Index)
}

// Describe returns a human-readable description of the loop step.
func (s *LoopStep) Describe() string {
	return fmt.Sprintf("loop: %d times, %d steps", s.Times, len(s.Steps))
}

// Describe returns a human-readable description of the loop_array step.
func (s *LoopArrayStep) Describe() string {
	return fmt.Sprintf("loop_array: {{%s}}, %d steps", s.Variable, len(s.Steps))
}

// Describe returns a human-readable description of the if_else step.
func (s *IfElseStep) Describe() string {
	return "if_else: " + s.Condition.Describe()
}
