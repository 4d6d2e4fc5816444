package flow

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseError represents a DSL parsing error. Position is the 1-based index
// of the offending step, 0 for document-level faults.
type ParseError struct {
	Position int
	Message  string
}

func (e *ParseError) Error() string {
	if e.Position > 0 {
		return fmt.Sprintf("error parsing step %d: %s", e.Position, e.Message)
	}
	return e.Message
}

// stepKinds lists every supported kind in declaration order.
var stepKinds = []StepKind{
	StepNavigate, StepClick, StepInput, StepSelect, StepCheckbox,
	StepScroll, StepHover, StepPressKey, StepTryClick,
	StepWaitFor, StepWaitTime, StepRandomWait,
	StepExtract, StepExtractList, StepSetVariable, StepElementExists,
	StepAssertText, StepAssertVisible,
	StepEvaluate, StepScreenshot,
	StepNewTab, StepSwitchTab, StepCloseTab,
	StepLoop, StepLoopArray, StepIfElse,
}

// requiredFields maps each kind to the parameters that must be present and
// non-blank. Kinds with purely semantic requirements (scroll) have none.
var requiredFields = map[StepKind][]string{
	StepNavigate:      {"url"},
	StepClick:         {"selector"},
	StepInput:         {"selector", "value"},
	StepSelect:        {"selector", "value"},
	StepCheckbox:      {"selector", "checked"},
	StepScroll:        {},
	StepHover:         {"selector"},
	StepPressKey:      {"key"},
	StepTryClick:      {"selector"},
	StepWaitFor:       {"selector"},
	StepWaitTime:      {"duration"},
	StepRandomWait:    {"min", "max"},
	StepExtract:       {"selector", "variable"},
	StepExtractList:   {"selector", "variable"},
	StepSetVariable:   {"variable", "value"},
	StepElementExists: {"selector", "variable"},
	StepAssertText:    {"selector", "expected"},
	StepAssertVisible: {"selector"},
	StepEvaluate:      {"script"},
	StepScreenshot:    {},
	StepNewTab:        {},
	StepSwitchTab:     {"index"},
	StepCloseTab:      {},
	StepLoop:          {"times", "steps"},
	StepLoopArray:     {"variable", "item_variable", "steps"},
	StepIfElse:        {"condition"},
}

// Parse parses an automation DSL document into validated steps.
func Parse(dslJSON string) ([]Step, error) {
	var doc any
	if err := json.Unmarshal([]byte(dslJSON), &doc); err != nil {
		return nil, &ParseError{Message: "invalid JSON: " + err.Error()}
	}
	root, ok := doc.(map[string]any)
	if !ok {
		return nil, &ParseError{Message: "DSL must be a JSON object"}
	}
	rawSteps, ok := root["steps"]
	if !ok {
		return nil, &ParseError{Message: "DSL must contain 'steps' array"}
	}
	items, ok := rawSteps.([]any)
	if !ok {
		return nil, &ParseError{Message: "'steps' must be an array"}
	}

	// Second decode keeps the raw bytes of each step for typed decoding.
	var rawDoc struct {
		Steps []json.RawMessage `json:"steps"`
	}
	if err := json.Unmarshal([]byte(dslJSON), &rawDoc); err != nil {
		return nil, &ParseError{Message: "invalid JSON: " + err.Error()}
	}

	steps := make([]Step, 0, len(items))
	for idx, item := range items {
		step, err := parseStep(item, rawDoc.Steps[idx])
		if err != nil {
			return nil, &ParseError{Position: idx + 1, Message: err.Error()}
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func parseStep(item any, raw json.RawMessage) (Step, error) {
	stepMap, ok := item.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("step must be a JSON object")
	}
	typeVal, ok := stepMap["type"]
	if !ok {
		return nil, fmt.Errorf("step must have 'type' field")
	}
	kindStr, _ := typeVal.(string)
	kind := StepKind(kindStr)
	if !isStepKind(kind) {
		return nil, fmt.Errorf("unknown step type '%v', supported types: %s",
			typeVal, supportedKindList())
	}
	if err := validateStep(kind, stepMap); err != nil {
		return nil, err
	}
	return decodeStep(kind, stepMap, raw)
}

func isStepKind(kind StepKind) bool {
	for _, k := range stepKinds {
		if k == kind {
			return true
		}
	}
	return false
}

func supportedKindList() string {
	names := make([]string, len(stepKinds))
	for i, k := range stepKinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

// validateStep checks required parameters and kind-specific semantics
// against the raw step document.
func validateStep(kind StepKind, stepMap map[string]any) error {
	for _, field := range requiredFields[kind] {
		v, ok := stepMap[field]
		if !ok || v == nil {
			return fmt.Errorf("%s step requires '%s' parameter", kind, field)
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s step requires '%s' parameter", kind, field)
		}
	}

	switch kind {
	case StepWaitTime:
		d, ok := stepMap["duration"].(float64)
		if !ok {
			return fmt.Errorf("wait_time step requires numeric 'duration'")
		}
		if d <= 0 {
			return fmt.Errorf("wait_time duration must be greater than zero")
		}

	case StepRandomWait:
		minMs, okMin := stepMap["min"].(float64)
		maxMs, okMax := stepMap["max"].(float64)
		if !okMin {
			return fmt.Errorf("random_wait step requires numeric 'min'")
		}
		if !okMax {
			return fmt.Errorf("random_wait step requires numeric 'max'")
		}
		if minMs < 0 {
			return fmt.Errorf("random_wait min must not be negative")
		}
		if maxMs <= 0 {
			return fmt.Errorf("random_wait max must be greater than zero")
		}
		if minMs > maxMs {
			return fmt.Errorf("random_wait min must not exceed max")
		}

	case StepScroll:
		if !hasAnyValue(stepMap["selector"], stepMap["x"], stepMap["y"]) {
			return fmt.Errorf("scroll step requires selector or x/y parameter")
		}

	case StepSwitchTab:
		idx, ok := stepMap["index"].(float64)
		if !ok {
			return fmt.Errorf("switch_tab step requires numeric 'index'")
		}
		if idx < 0 {
			return fmt.Errorf("switch_tab index must not be negative")
		}

	case StepLoop:
		times, ok := stepMap["times"].(float64)
		if !ok {
			return fmt.Errorf("loop step requires numeric 'times'")
		}
		if times <= 0 {
			return fmt.Errorf("loop times must be greater than zero")
		}
		if err := requireStepsArray("loop", stepMap); err != nil {
			return err
		}

	case StepLoopArray:
		if err := requireStepsArray("loop_array", stepMap); err != nil {
			return err
		}

	case StepIfElse:
		if _, ok := stepMap["condition"].(map[string]any); !ok {
			return fmt.Errorf("if_else 'condition' must be a JSON object")
		}
		for _, key := range []string{"then_steps", "else_steps"} {
			if v, present := stepMap[key]; present && v != nil {
				if _, ok := v.([]any); !ok {
					return fmt.Errorf("if_else '%s' must be an array", key)
				}
			}
		}
	}
	return nil
}

func requireStepsArray(kind string, stepMap map[string]any) error {
	items, ok := stepMap["steps"].([]any)
	if !ok || len(items) == 0 {
		return fmt.Errorf("%s step requires non-empty 'steps' array", kind)
	}
	return nil
}

// hasAnyValue reports whether at least one argument carries a usable value.
func hasAnyValue(values ...any) bool {
	for _, v := range values {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		return true
	}
	return false
}

func decodeStep(kind StepKind, stepMap map[string]any, raw json.RawMessage) (Step, error) {
	switch kind {
	case StepNavigate:
		var s NavigateStep
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		s.StepKind = kind
		return &s, nil

	case StepClick:
		var s ClickStep
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		s.StepKind = kind
		return &s, nil

	case StepInput:
		var s InputStep
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		s.StepKind = kind
		return &s, nil

	case StepSelect:
		var s SelectStep
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		s.StepKind = kind
		return &s, nil

	case StepCheckbox:
		var s CheckboxStep
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		s.StepKind = kind
		return &s, nil

	case StepScroll:
		var s ScrollStep
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		s.StepKind = kind
		return &s, nil

	case StepHover:
		var s HoverStep
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		s.StepKind = kind
		return &s, nil

	case StepPressKey:
		var s PressKeyStep
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		s.StepKind = kind
		return &s, nil

	case StepTryClick:
		var s TryClickStep
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		s.StepKind = kind
		return &s, nil

	case StepWaitFor:
		var s WaitForStep
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		s.StepKind = kind
		return &s, nil

	case StepWaitTime:
		var s WaitTimeStep
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		s.StepKind = kind
		return &s, nil

	case StepRandomWait:
		var s RandomWaitStep
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		s.StepKind = kind
		return &s, nil

	case StepExtract:
		var s ExtractStep
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		s.StepKind = kind
		return &s, nil

	case StepExtractList:
		var s ExtractListStep
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		s.StepKind = kind
		return &s, nil

	case StepSetVariable:
		var s SetVariableStep
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		s.StepKind = kind
		return &s, nil

	case StepElementExists:
		var s ElementExistsStep
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		s.StepKind = kind
		return &s, nil

	case StepAssertText:
		var s AssertTextStep
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		s.StepKind = kind
		return &s, nil

	case StepAssertVisible:
		var s AssertVisibleStep
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		s.StepKind = kind
		return &s, nil

	case StepEvaluate:
		var s EvaluateStep
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		s.StepKind = kind
		return &s, nil

	case StepScreenshot:
		var s ScreenshotStep
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		s.StepKind = kind
		return &s, nil

	case StepNewTab:
		var s NewTabStep
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		s.StepKind = kind
		return &s, nil

	case StepSwitchTab:
		var s SwitchTabStep
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		s.StepKind = kind
		return &s, nil

	case StepCloseTab:
		var s CloseTabStep
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		s.StepKind = kind
		return &s, nil

	case StepLoop:
		return parseLoopStep(stepMap, raw)

	case StepLoopArray:
		return parseLoopArrayStep(stepMap, raw)

	case StepIfElse:
		return parseIfElseStep(stepMap, raw)

	default:
		return nil, fmt.Errorf("unknown step type '%s'", kind)
	}
}

// parseLoopStep handles loop with nested steps.
func parseLoopStep(stepMap map[string]any, raw json.RawMessage) (Step, error) {
	var rawStruct struct {
		Description string            `json:"description"`
		Times       float64           `json:"times"`
		Steps       []json.RawMessage `json:"steps"`
	}
	if err := json.Unmarshal(raw, &rawStruct); err != nil {
		return nil, err
	}

	s := &LoopStep{
		BaseStep: BaseStep{StepKind: StepLoop, StepDescription: rawStruct.Description},
		Times:    int(rawStruct.Times),
	}

	items := stepMap["steps"].([]any)
	children, err := parseChildren("loop", items, rawStruct.Steps)
	if err != nil {
		return nil, err
	}
	s.Steps = children
	return s, nil
}

// parseLoopArrayStep handles loop_array with nested steps.
func parseLoopArrayStep(stepMap map[string]any, raw json.RawMessage) (Step, error) {
	var rawStruct struct {
		Description   string            `json:"description"`
		Variable      string            `json:"variable"`
		ItemVariable  string            `json:"item_variable"`
		IndexVariable string            `json:"index_variable"`
		Steps         []json.RawMessage `json:"steps"`
	}
	if err := json.Unmarshal(raw, &rawStruct); err != nil {
		return nil, err
	}

	s := &LoopArrayStep{
		BaseStep:      BaseStep{StepKind: StepLoopArray, StepDescription: rawStruct.Description},
		Variable:      rawStruct.Variable,
		ItemVariable:  rawStruct.ItemVariable,
		IndexVariable: rawStruct.IndexVariable,
	}

	items := stepMap["steps"].([]any)
	children, err := parseChildren("loop_array", items, rawStruct.Steps)
	if err != nil {
		return nil, err
	}
	s.Steps = children
	return s, nil
}

// parseIfElseStep handles if_else with its condition and branches.
func parseIfElseStep(stepMap map[string]any, raw json.RawMessage) (Step, error) {
	var rawStruct struct {
		Description string            `json:"description"`
		Condition   Condition         `json:"condition"`
		Then        []json.RawMessage `json:"then_steps"`
		Else        []json.RawMessage `json:"else_steps"`
	}
	if err := json.Unmarshal(raw, &rawStruct); err != nil {
		return nil, err
	}
	if err := rawStruct.Condition.Validate(); err != nil {
		return nil, err
	}

	s := &IfElseStep{
		BaseStep:  BaseStep{StepKind: StepIfElse, StepDescription: rawStruct.Description},
		Condition: rawStruct.Condition,
	}

	if items := optionalList(stepMap, "then_steps"); items != nil {
		children, err := parseChildren("if_else then_steps", items, rawStruct.Then)
		if err != nil {
			return nil, err
		}
		s.Then = children
	}
	if items := optionalList(stepMap, "else_steps"); items != nil {
		children, err := parseChildren("if_else else_steps", items, rawStruct.Else)
		if err != nil {
			return nil, err
		}
		s.Else = children
	}
	return s, nil
}

func parseChildren(label string, items []any, raws []json.RawMessage) ([]Step, error) {
	steps := make([]Step, 0, len(items))
	for i, item := range items {
		step, err := parseStep(item, raws[i])
		if err != nil {
			return nil, fmt.Errorf("%s child %d: %v", label, i+1, err)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func optionalList(stepMap map[string]any, key string) []any {
	v, present := stepMap[key]
	if !present || v == nil {
		return nil
	}
	items, _ := v.([]any)
	return items
}
