package flow

import (
	"fmt"
	"strconv"
	"strings"
)

// Variables is the mutable scope of one flow execution. Values come from
// extraction steps, set_variable, evaluate results and loop bindings.
type Variables map[string]any

// Set assigns a variable.
func (v Variables) Set(name string, value any) {
	v[name] = value
}

// Get looks up a variable.
func (v Variables) Get(name string) (any, bool) {
	value, ok := v[name]
	return value, ok
}

// Interpolate replaces every {{name}} reference with the named variable's
// value. References to unknown variables are left intact. Names are matched
// literally, no whitespace trimming.
func (v Variables) Interpolate(text string) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	var b strings.Builder
	for {
		start := strings.Index(text, "{{")
		if start < 0 {
			b.WriteString(text)
			break
		}
		rest := text[start+2:]
		end := strings.Index(rest, "}}")
		if end < 0 {
			b.WriteString(text)
			break
		}
		name := rest[:end]
		b.WriteString(text[:start])
		if value, ok := v[name]; ok {
			b.WriteString(Stringify(value))
		} else {
			b.WriteString(text[start : start+2+end+2])
		}
		text = text[start+2+end+2:]
	}
	return b.String()
}

// Stringify renders a variable value the way interpolation does.
func Stringify(value any) string {
	switch val := value.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// ToNumber coerces a variable value to a float for numeric comparison.
func ToNumber(value any) (float64, bool) {
	switch val := value.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// AsList coerces a variable value to a slice for loop_array iteration.
func AsList(value any) ([]any, bool) {
	switch val := value.(type) {
	case []any:
		return val, true
	case []string:
		items := make([]any, len(val))
		for i, s := range val {
			items[i] = s
		}
		return items, true
	default:
		return nil, false
	}
}
