package executor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/navigator-hub/flow-runner/pkg/browser/mock"
	"github.com/navigator-hub/flow-runner/pkg/core"
	"github.com/navigator-hub/flow-runner/pkg/flow"
)

// runOne executes a single step and returns its result.
func runOne(t *testing.T, page *mock.Page, cfg Config, step flow.Step) core.StepResult {
	t.Helper()
	e := newTestExecutor(page, cfg)
	res := e.Run(context.Background(), []flow.Step{step})
	if len(res.StepResults) != 1 {
		t.Fatalf("got %d results, want 1", len(res.StepResults))
	}
	return res.StepResults[0]
}

func TestInput_ClearsByDefault(t *testing.T) {
	page := mock.New()
	page.Elements["#q"] = &mock.Element{}

	sr := runOne(t, page, Config{FlowID: "demo"}, &flow.InputStep{
		BaseStep: base(flow.StepInput), Selector: "#q", Value: "hello",
	})

	if !sr.Success || sr.Message != "Input 'hello' into #q" {
		t.Errorf("result = %+v", sr)
	}
	want := []string{"fill #q ", "fill #q hello"}
	if !reflect.DeepEqual(page.Calls, want) {
		t.Errorf("calls = %v, want %v", page.Calls, want)
	}
}

func TestInput_NoClear(t *testing.T) {
	page := mock.New()
	page.Elements["#q"] = &mock.Element{}
	clear := false

	sr := runOne(t, page, Config{FlowID: "demo"}, &flow.InputStep{
		BaseStep: base(flow.StepInput), Selector: "#q", Value: "hello", Clear: &clear,
	})

	if !sr.Success {
		t.Fatalf("step failed: %s", sr.Error)
	}
	if len(page.Calls) != 1 || page.Calls[0] != "fill #q hello" {
		t.Errorf("calls = %v", page.Calls)
	}
}

func TestCheckbox_CheckAndUncheck(t *testing.T) {
	tests := []struct {
		name    string
		checked bool
		want    string
	}{
		{"check", true, "Checked #agree"},
		{"uncheck", false, "Unchecked #agree"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := mock.New()
			page.Elements["#agree"] = &mock.Element{Checked: !tt.checked}

			sr := runOne(t, page, Config{FlowID: "demo"}, &flow.CheckboxStep{
				BaseStep: base(flow.StepCheckbox), Selector: "#agree", Checked: tt.checked,
			})

			if !sr.Success || sr.Message != tt.want {
				t.Errorf("result = %+v", sr)
			}
			if page.Elements["#agree"].Checked != tt.checked {
				t.Errorf("checkbox state = %v, want %v", page.Elements["#agree"].Checked, tt.checked)
			}
		})
	}
}

func TestSelect_Option(t *testing.T) {
	page := mock.New()
	page.Elements["#color"] = &mock.Element{}

	sr := runOne(t, page, Config{FlowID: "demo"}, &flow.SelectStep{
		BaseStep: base(flow.StepSelect), Selector: "#color", Value: "blue",
	})

	if !sr.Success || sr.Message != "Selected 'blue' in #color" {
		t.Errorf("result = %+v", sr)
	}
}

func TestScroll_ToSelector(t *testing.T) {
	page := mock.New()
	page.Elements["#item"] = &mock.Element{}

	sr := runOne(t, page, Config{FlowID: "demo"}, &flow.ScrollStep{
		BaseStep: base(flow.StepScroll), Selector: "#item",
	})

	if !sr.Success || sr.Message != "Scrolled to #item" {
		t.Errorf("result = %+v", sr)
	}
	if page.Calls[0] != "scrollintoview #item" {
		t.Errorf("calls = %v", page.Calls)
	}
}

func TestScroll_ByOffset(t *testing.T) {
	page := mock.New()

	sr := runOne(t, page, Config{FlowID: "demo"}, &flow.ScrollStep{
		BaseStep: base(flow.StepScroll), Y: 600,
	})

	if !sr.Success || sr.Message != "Scrolled by (0, 600)" {
		t.Errorf("result = %+v", sr)
	}
	if page.Calls[0] != "scrollby 0,600" {
		t.Errorf("calls = %v", page.Calls)
	}
}

func TestPressKey_Keyboard(t *testing.T) {
	page := mock.New()

	sr := runOne(t, page, Config{FlowID: "demo"}, &flow.PressKeyStep{
		BaseStep: base(flow.StepPressKey), Key: "Enter",
	})

	if !sr.Success || sr.Message != "Pressed Enter" {
		t.Errorf("result = %+v", sr)
	}
}

func TestPressKey_OnElement(t *testing.T) {
	page := mock.New()
	page.Elements["#search"] = &mock.Element{}

	sr := runOne(t, page, Config{FlowID: "demo"}, &flow.PressKeyStep{
		BaseStep: base(flow.StepPressKey), Key: "Enter", Selector: "#search",
	})

	if !sr.Success || sr.Message != "Pressed Enter on #search" {
		t.Errorf("result = %+v", sr)
	}
}

func TestHover_Element(t *testing.T) {
	page := mock.New()
	page.Elements["#menu"] = &mock.Element{}

	sr := runOne(t, page, Config{FlowID: "demo"}, &flow.HoverStep{
		BaseStep: base(flow.StepHover), Selector: "#menu",
	})

	if !sr.Success || sr.Message != "Hovered over #menu" {
		t.Errorf("result = %+v", sr)
	}
}

func TestTryClick_SkipsMissingElement(t *testing.T) {
	page := mock.New()

	sr := runOne(t, page, Config{FlowID: "demo"}, &flow.TryClickStep{
		BaseStep: base(flow.StepTryClick), Selector: "#maybe",
	})

	if !sr.Success || sr.Message != "Element #maybe not found, skipped" {
		t.Errorf("result = %+v", sr)
	}
	if len(page.Calls) != 0 {
		t.Errorf("skipped try_click should not click, calls: %v", page.Calls)
	}
}

func TestTryClick_ClicksWhenPresent(t *testing.T) {
	page := mock.New()
	page.Elements["#maybe"] = &mock.Element{}

	sr := runOne(t, page, Config{FlowID: "demo"}, &flow.TryClickStep{
		BaseStep: base(flow.StepTryClick), Selector: "#maybe",
	})

	if !sr.Success || sr.Message != "Clicked #maybe" {
		t.Errorf("result = %+v", sr)
	}
}

func TestWaitFor_DefaultsToVisible(t *testing.T) {
	page := mock.New()
	page.Elements["#el"] = &mock.Element{Visible: true}

	sr := runOne(t, page, Config{FlowID: "demo"}, &flow.WaitForStep{
		BaseStep: base(flow.StepWaitFor), Selector: "#el",
	})

	if !sr.Success || sr.Message != "Waited for #el" {
		t.Errorf("result = %+v", sr)
	}
	if page.Calls[0] != "waitfor #el visible" {
		t.Errorf("calls = %v", page.Calls)
	}
}

func TestWaitFor_ExplicitState(t *testing.T) {
	page := mock.New()

	sr := runOne(t, page, Config{FlowID: "demo"}, &flow.WaitForStep{
		BaseStep: base(flow.StepWaitFor), Selector: "#spinner", State: core.StateHidden,
	})

	if !sr.Success {
		t.Fatalf("step failed: %s", sr.Error)
	}
	if page.Calls[0] != "waitfor #spinner hidden" {
		t.Errorf("calls = %v", page.Calls)
	}
}

func TestWaitFor_Timeout(t *testing.T) {
	page := mock.New()

	sr := runOne(t, page, Config{FlowID: "demo"}, &flow.WaitForStep{
		BaseStep: base(flow.StepWaitFor), Selector: "#never",
	})

	if sr.Success {
		t.Fatal("wait for an absent element should fail")
	}
	if !strings.HasPrefix(sr.Error, "[TIMEOUT] ") {
		t.Errorf("error = %q", sr.Error)
	}
}

func TestWaitTime_SleepsAndReports(t *testing.T) {
	page := mock.New()
	e := New(page, Config{FlowID: "demo"})
	var slept []time.Duration
	e.sleep = func(_ context.Context, d time.Duration) { slept = append(slept, d) }

	res := e.Run(context.Background(), []flow.Step{
		&flow.WaitTimeStep{BaseStep: base(flow.StepWaitTime), Duration: 250},
	})

	sr := res.StepResults[0]
	if !sr.Success || sr.Message != "Waited 250ms" {
		t.Errorf("result = %+v", sr)
	}
	if len(slept) != 1 || slept[0] != 250*time.Millisecond {
		t.Errorf("slept = %v", slept)
	}
}

func TestRandomWait_DeterministicSpan(t *testing.T) {
	page := mock.New()
	e := New(page, Config{FlowID: "demo"})
	var slept []time.Duration
	e.sleep = func(_ context.Context, d time.Duration) { slept = append(slept, d) }
	e.randf = func() float64 { return 0.5 }

	res := e.Run(context.Background(), []flow.Step{
		&flow.RandomWaitStep{BaseStep: base(flow.StepRandomWait), Min: 100, Max: 300},
	})

	sr := res.StepResults[0]
	if !sr.Success || sr.Message != "Waited 200ms" {
		t.Errorf("result = %+v", sr)
	}
	if len(slept) != 1 || slept[0] != 200*time.Millisecond {
		t.Errorf("slept = %v", slept)
	}
}

func TestRandomWait_InvertedBoundsUseMin(t *testing.T) {
	page := mock.New()
	e := New(page, Config{FlowID: "demo"})
	e.sleep = func(context.Context, time.Duration) {}
	e.randf = func() float64 { return 0.5 }

	res := e.Run(context.Background(), []flow.Step{
		&flow.RandomWaitStep{BaseStep: base(flow.StepRandomWait), Min: 500, Max: 100},
	})

	if res.StepResults[0].Message != "Waited 500ms" {
		t.Errorf("message = %q", res.StepResults[0].Message)
	}
}

func TestExtract_TextAndAttribute(t *testing.T) {
	tests := []struct {
		name      string
		attribute string
		want      string
	}{
		{"text", "", "hello"},
		{"attribute", "href", "/next"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := mock.New()
			page.Elements["#el"] = &mock.Element{
				Text:  "hello",
				Attrs: map[string]string{"href": "/next"},
			}

			sr := runOne(t, page, Config{FlowID: "demo"}, &flow.ExtractStep{
				BaseStep: base(flow.StepExtract), Selector: "#el", Variable: "v", Attribute: tt.attribute,
			})

			wantMsg := "Extracted '" + tt.want + "' from #el"
			if !sr.Success || sr.Message != wantMsg {
				t.Errorf("result = %+v", sr)
			}
			if sr.Extracted["v"] != tt.want {
				t.Errorf("extracted = %v", sr.Extracted)
			}
		})
	}
}

func TestExtract_MissingElementFails(t *testing.T) {
	page := mock.New()

	sr := runOne(t, page, Config{FlowID: "demo"}, &flow.ExtractStep{
		BaseStep: base(flow.StepExtract), Selector: "#gone", Variable: "v",
	})

	if sr.Success {
		t.Fatal("extract from a missing element should fail")
	}
	if !strings.HasPrefix(sr.Error, "[ELEMENT_NOT_FOUND] ") {
		t.Errorf("error = %q", sr.Error)
	}
}

func TestExtractList_Texts(t *testing.T) {
	page := mock.New()
	page.Elements[".item"] = &mock.Element{Texts: []string{"a", "b", "c"}}

	sr := runOne(t, page, Config{FlowID: "demo"}, &flow.ExtractListStep{
		BaseStep: base(flow.StepExtractList), Selector: ".item", Variable: "items",
	})

	if !sr.Success || sr.Message != "Extracted 3 items from .item" {
		t.Errorf("result = %+v", sr)
	}
	got, _ := sr.Extracted["items"].([]string)
	if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("extracted = %v", sr.Extracted)
	}
}

func TestExtractList_NoMatchesIsEmpty(t *testing.T) {
	page := mock.New()

	sr := runOne(t, page, Config{FlowID: "demo"}, &flow.ExtractListStep{
		BaseStep: base(flow.StepExtractList), Selector: ".item", Variable: "items",
	})

	if !sr.Success || sr.Message != "Extracted 0 items from .item" {
		t.Errorf("result = %+v", sr)
	}
}

func TestSetVariable_InterpolatesValue(t *testing.T) {
	page := mock.New()

	sr := runOne(t, page, Config{
		FlowID:    "demo",
		Variables: map[string]any{"n": 7},
	}, &flow.SetVariableStep{
		BaseStep: base(flow.StepSetVariable), Variable: "msg", Value: "row-{{n}}",
	})

	if !sr.Success || sr.Message != "Set 'msg' to 'row-7'" {
		t.Errorf("result = %+v", sr)
	}
	if sr.Extracted["msg"] != "row-7" {
		t.Errorf("extracted = %v", sr.Extracted)
	}
}

func TestElementExists_SetsBoolString(t *testing.T) {
	tests := []struct {
		name    string
		present bool
		want    string
	}{
		{"present", true, "true"},
		{"absent", false, "false"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := mock.New()
			if tt.present {
				page.Elements["#x"] = &mock.Element{}
			}

			sr := runOne(t, page, Config{FlowID: "demo"}, &flow.ElementExistsStep{
				BaseStep: base(flow.StepElementExists), Selector: "#x", Variable: "found",
			})

			if !sr.Success || sr.Message != "Element #x exists: "+tt.want {
				t.Errorf("result = %+v", sr)
			}
			if sr.Extracted["found"] != tt.want {
				t.Errorf("extracted = %v", sr.Extracted)
			}
		})
	}
}

func TestAssertText_ContainsRawText(t *testing.T) {
	page := mock.New()
	page.Elements["#el"] = &mock.Element{Text: "  hello world "}

	sr := runOne(t, page, Config{FlowID: "demo"}, &flow.AssertTextStep{
		BaseStep: base(flow.StepAssertText), Selector: "#el", Expected: "hello",
	})

	if !sr.Success || sr.Message != "Asserted #el contains 'hello'" {
		t.Errorf("result = %+v", sr)
	}
}

func TestAssertText_FailureTrimsReportedText(t *testing.T) {
	page := mock.New()
	page.Elements["#el"] = &mock.Element{Text: " Welcome\n"}

	sr := runOne(t, page, Config{FlowID: "demo"}, &flow.AssertTextStep{
		BaseStep: base(flow.StepAssertText), Selector: "#el", Expected: "Bye",
	})

	if sr.Success {
		t.Fatal("assertion should fail")
	}
	if !strings.Contains(sr.Error, "text of #el is 'Welcome', expected to contain 'Bye'") {
		t.Errorf("error = %q", sr.Error)
	}
}

func TestAssertVisible_Passes(t *testing.T) {
	page := mock.New()
	page.Elements["#el"] = &mock.Element{Visible: true}

	sr := runOne(t, page, Config{FlowID: "demo"}, &flow.AssertVisibleStep{
		BaseStep: base(flow.StepAssertVisible), Selector: "#el",
	})

	if !sr.Success || sr.Message != "Asserted #el is visible" {
		t.Errorf("result = %+v", sr)
	}
}

func TestAssertVisible_Failure(t *testing.T) {
	page := mock.New()

	sr := runOne(t, page, Config{FlowID: "demo"}, &flow.AssertVisibleStep{
		BaseStep: base(flow.StepAssertVisible), Selector: "#el",
	})

	if sr.Success {
		t.Fatal("assertion should fail")
	}
	if !strings.HasPrefix(sr.Error, "[ASSERTION_FAILED] ") {
		t.Errorf("error = %q", sr.Error)
	}
	if !strings.Contains(sr.Error, "element #el did not become visible") {
		t.Errorf("error = %q", sr.Error)
	}
}

func TestEvaluate_StoresResult(t *testing.T) {
	page := mock.New()
	page.Scripts["document.title"] = "Home"

	sr := runOne(t, page, Config{FlowID: "demo"}, &flow.EvaluateStep{
		BaseStep: base(flow.StepEvaluate), Script: "document.title", Variable: "title",
	})

	if !sr.Success || sr.Message != "Evaluated script" {
		t.Errorf("result = %+v", sr)
	}
	if sr.Extracted["title"] != "Home" {
		t.Errorf("extracted = %v", sr.Extracted)
	}
}

func TestEvaluate_NoVariableDiscardsResult(t *testing.T) {
	page := mock.New()
	page.Scripts["window.scrollTo(0, 0)"] = nil

	sr := runOne(t, page, Config{FlowID: "demo"}, &flow.EvaluateStep{
		BaseStep: base(flow.StepEvaluate), Script: "window.scrollTo(0, 0)",
	})

	if !sr.Success {
		t.Fatalf("step failed: %s", sr.Error)
	}
	if sr.Extracted != nil {
		t.Errorf("extracted = %v, want none", sr.Extracted)
	}
}

func TestEvaluate_InterpolatesScript(t *testing.T) {
	page := mock.New()
	page.Scripts["rows(2)"] = 5

	sr := runOne(t, page, Config{
		FlowID:    "demo",
		Variables: map[string]any{"n": 2},
	}, &flow.EvaluateStep{
		BaseStep: base(flow.StepEvaluate), Script: "rows({{n}})", Variable: "count",
	})

	if sr.Extracted["count"] != 5 {
		t.Errorf("extracted = %v", sr.Extracted)
	}
}

func TestScreenshot_ExplicitName(t *testing.T) {
	dir := t.TempDir()
	page := mock.New()
	page.WriteFiles = true

	sr := runOne(t, page, Config{FlowID: "demo", ScreenshotDir: dir}, &flow.ScreenshotStep{
		BaseStep: base(flow.StepScreenshot), Path: "shot.png",
	})

	if !sr.Success || sr.Message != "Screenshot saved to shot.png" {
		t.Errorf("result = %+v", sr)
	}
	if sr.Screenshot != filepath.Join(dir, "shot.png") {
		t.Errorf("screenshot = %q", sr.Screenshot)
	}
	if _, err := os.Stat(sr.Screenshot); err != nil {
		t.Errorf("screenshot file missing: %v", err)
	}
}

func TestScreenshot_GeneratedName(t *testing.T) {
	dir := t.TempDir()
	page := mock.New()
	page.WriteFiles = true

	sr := runOne(t, page, Config{FlowID: "demo", ScreenshotDir: dir}, &flow.ScreenshotStep{
		BaseStep: base(flow.StepScreenshot),
	})

	if sr.Message != "Screenshot saved to flow_demo_step_0.png" {
		t.Errorf("message = %q", sr.Message)
	}
	if filepath.Base(sr.Screenshot) != "flow_demo_step_0.png" {
		t.Errorf("screenshot = %q", sr.Screenshot)
	}
}

func TestTabs_OpenSwitchClose(t *testing.T) {
	page := mock.New()

	e := newTestExecutor(page, Config{FlowID: "demo"})
	res := e.Run(context.Background(), []flow.Step{
		&flow.NewTabStep{BaseStep: base(flow.StepNewTab), URL: "https://b.example"},
		&flow.SwitchTabStep{BaseStep: base(flow.StepSwitchTab), Index: 0},
		&flow.CloseTabStep{BaseStep: base(flow.StepCloseTab)},
	})

	want := []string{
		"Opened new tab at https://b.example",
		"Switched to tab 0",
		"Closed tab",
	}
	for i, message := range want {
		if !res.StepResults[i].Success || res.StepResults[i].Message != message {
			t.Errorf("step %d = %+v", i, res.StepResults[i])
		}
	}
	if len(page.Tabs) != 1 || page.Tabs[0] != "https://b.example" {
		t.Errorf("tabs = %v", page.Tabs)
	}
}

func TestNewTab_WithoutURL(t *testing.T) {
	page := mock.New()

	sr := runOne(t, page, Config{FlowID: "demo"}, &flow.NewTabStep{
		BaseStep: base(flow.StepNewTab),
	})

	if !sr.Success || sr.Message != "Opened new tab" {
		t.Errorf("result = %+v", sr)
	}
}

func TestCloseTab_ExplicitIndex(t *testing.T) {
	page := mock.New()
	index := 1

	e := newTestExecutor(page, Config{FlowID: "demo"})
	res := e.Run(context.Background(), []flow.Step{
		&flow.NewTabStep{BaseStep: base(flow.StepNewTab), URL: "https://b.example"},
		&flow.CloseTabStep{BaseStep: base(flow.StepCloseTab), Index: &index},
	})

	if res.StepResults[1].Message != "Closed tab 1" {
		t.Errorf("message = %q", res.StepResults[1].Message)
	}
	if len(page.Tabs) != 1 || page.Tabs[0] != "about:blank" {
		t.Errorf("tabs = %v", page.Tabs)
	}
}

func TestSwitchTab_OutOfRange(t *testing.T) {
	page := mock.New()

	sr := runOne(t, page, Config{FlowID: "demo"}, &flow.SwitchTabStep{
		BaseStep: base(flow.StepSwitchTab), Index: 5,
	})

	if sr.Success {
		t.Fatal("out of range switch should fail")
	}
	if !strings.Contains(sr.Error, "tab index 5 out of range") {
		t.Errorf("error = %q", sr.Error)
	}
}

// bogusStep is a step kind the dispatcher does not know.
type bogusStep struct{ flow.BaseStep }

func (s *bogusStep) Describe() string { return "bogus" }

func TestRunStep_UnknownKind(t *testing.T) {
	page := mock.New()

	sr := runOne(t, page, Config{FlowID: "demo"}, &bogusStep{
		BaseStep: flow.BaseStep{StepKind: "bogus"},
	})

	if sr.Success {
		t.Fatal("unknown step kind should fail")
	}
	if !strings.HasPrefix(sr.Error, "[VALIDATION_ERROR] ") ||
		!strings.Contains(sr.Error, "no handler for step type 'bogus'") {
		t.Errorf("error = %q", sr.Error)
	}
}

func TestEvalCondition(t *testing.T) {
	page := mock.New()
	page.Elements["#present"] = &mock.Element{Visible: true, Text: " Done "}
	page.Elements["#hidden"] = &mock.Element{Visible: false}

	e := newTestExecutor(page, Config{
		FlowID: "demo",
		Variables: map[string]any{
			"name":  "alice",
			"count": 5,
			"s":     "hello world",
		},
	})

	tests := []struct {
		name string
		cond flow.Condition
		want bool
	}{
		{"variable_exists", flow.Condition{Kind: flow.CondVariableExists, Variable: "name"}, true},
		{"variable_exists_missing", flow.Condition{Kind: flow.CondVariableExists, Variable: "missing"}, false},
		{"variable_equals", flow.Condition{Kind: flow.CondVariableEquals, Variable: "name", Value: "alice"}, true},
		{"variable_equals_number", flow.Condition{Kind: flow.CondVariableEquals, Variable: "count", Value: 5}, true},
		{"variable_equals_mismatch", flow.Condition{Kind: flow.CondVariableEquals, Variable: "name", Value: "bob"}, false},
		{"variable_equals_interpolated", flow.Condition{Kind: flow.CondVariableEquals, Variable: "name", Value: "{{name}}"}, true},
		{"variable_contains", flow.Condition{Kind: flow.CondVariableContains, Variable: "s", Value: "world"}, true},
		{"variable_contains_missing", flow.Condition{Kind: flow.CondVariableContains, Variable: "s", Value: "mars"}, false},
		{"variable_greater", flow.Condition{Kind: flow.CondVariableGreater, Variable: "count", Value: 3}, true},
		{"variable_greater_false", flow.Condition{Kind: flow.CondVariableGreater, Variable: "count", Value: 10}, false},
		{"variable_less_string_number", flow.Condition{Kind: flow.CondVariableLess, Variable: "count", Value: "10"}, true},
		{"variable_greater_non_numeric", flow.Condition{Kind: flow.CondVariableGreater, Variable: "name", Value: 3}, false},
		{"variable_undefined_comparison", flow.Condition{Kind: flow.CondVariableEquals, Variable: "missing", Value: ""}, false},
		{"element_exists", flow.Condition{Kind: flow.CondElementExists, Selector: "#present"}, true},
		{"element_exists_missing", flow.Condition{Kind: flow.CondElementExists, Selector: "#nope"}, false},
		{"element_visible", flow.Condition{Kind: flow.CondElementVisible, Selector: "#present"}, true},
		{"element_visible_hidden", flow.Condition{Kind: flow.CondElementVisible, Selector: "#hidden"}, false},
		{"element_text_equals_trims", flow.Condition{Kind: flow.CondElementTextEquals, Selector: "#present", Value: "Done"}, true},
		{"element_text_equals_mismatch", flow.Condition{Kind: flow.CondElementTextEquals, Selector: "#present", Value: "Pending"}, false},
		{"element_text_contains", flow.Condition{Kind: flow.CondElementTextContains, Selector: "#present", Value: "on"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.evalCondition(tt.cond); got != tt.want {
				t.Errorf("evalCondition(%s) = %v, want %v", tt.cond.Describe(), got, tt.want)
			}
		})
	}
}

func TestEvalCondition_ProbeErrorIsFalse(t *testing.T) {
	page := mock.New()
	page.Elements["#el"] = &mock.Element{}
	page.Errors["count"] = errors.New("target closed")

	e := newTestExecutor(page, Config{FlowID: "demo"})
	cond := flow.Condition{Kind: flow.CondElementExists, Selector: "#el"}
	if e.evalCondition(cond) {
		t.Error("probe error should evaluate to false")
	}
}
