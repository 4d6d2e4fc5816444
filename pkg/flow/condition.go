package flow

import "fmt"

// ConditionKind identifies the type of an if_else condition.
type ConditionKind string

// Condition kind constants.
const (
	CondVariableExists   ConditionKind = "variable_exists"
	CondVariableEquals   ConditionKind = "variable_equals"
	CondVariableContains ConditionKind = "variable_contains"
	CondVariableGreater  ConditionKind = "variable_greater"
	CondVariableLess     ConditionKind = "variable_less"

	CondElementExists       ConditionKind = "element_exists"
	CondElementVisible      ConditionKind = "element_visible"
	CondElementTextEquals   ConditionKind = "element_text_equals"
	CondElementTextContains ConditionKind = "element_text_contains"
)

// Condition is the predicate of an if_else step. Variable conditions read
// the execution scope, element conditions probe the live page.
type Condition struct {
	Kind     ConditionKind `json:"type"`
	Variable string        `json:"variable,omitempty"`
	Selector string        `json:"selector,omitempty"`
	Value    any           `json:"value,omitempty"`
}

// NeedsValue reports whether the condition kind compares against a value.
func (c Condition) NeedsValue() bool {
	switch c.Kind {
	case CondVariableEquals, CondVariableContains, CondVariableGreater, CondVariableLess,
		CondElementTextEquals, CondElementTextContains:
		return true
	}
	return false
}

// OnVariable reports whether the condition reads a scope variable.
func (c Condition) OnVariable() bool {
	switch c.Kind {
	case CondVariableExists, CondVariableEquals, CondVariableContains,
		CondVariableGreater, CondVariableLess:
		return true
	}
	return false
}

// Validate checks the condition is structurally complete.
func (c Condition) Validate() error {
	switch c.Kind {
	case CondVariableExists, CondVariableEquals, CondVariableContains,
		CondVariableGreater, CondVariableLess:
		if c.Variable == "" {
			return fmt.Errorf("condition '%s' requires 'variable' parameter", c.Kind)
		}
	case CondElementExists, CondElementVisible, CondElementTextEquals, CondElementTextContains:
		if c.Selector == "" {
			return fmt.Errorf("condition '%s' requires 'selector' parameter", c.Kind)
		}
	case "":
		return fmt.Errorf("condition must have 'type' field")
	default:
		return fmt.Errorf("unknown condition type '%s'", c.Kind)
	}
	if c.NeedsValue() && c.Value == nil {
		return fmt.Errorf("condition '%s' requires 'value' parameter", c.Kind)
	}
	return nil
}

// Describe returns a human-readable description of the condition.
func (c Condition) Describe() string {
	switch {
	case c.Kind == CondVariableExists:
		return fmt.Sprintf("{{%s}} exists", c.Variable)
	case c.OnVariable():
		return fmt.Sprintf("{{%s}} %s %v", c.Variable, c.Kind, c.Value)
	case c.NeedsValue():
		return fmt.Sprintf("%s %s %v", c.Selector, c.Kind, c.Value)
	default:
		return fmt.Sprintf("%s %s", c.Selector, c.Kind)
	}
}
