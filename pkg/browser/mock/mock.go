// Package mock provides an in-memory core.Page for testing without a real
// browser.
package mock

import (
	"fmt"
	"os"
	"time"

	"github.com/navigator-hub/flow-runner/pkg/core"
)

// Element describes one selector's state on the mock page. A defined
// element matches once unless Count overrides it; an element absent from
// Page.Elements matches nothing.
type Element struct {
	Count     int
	Visible   bool
	Text      string
	Texts     []string          // AllTextContents override; defaults to {Text}
	Attrs     map[string]string // single-element attributes
	AttrLists map[string][]string
	Checked   bool
}

// Page is an in-memory implementation of core.Page. State is plain data
// the test arranges up front; hooks let a test mutate state mid-flow, for
// example to clear a challenge after its checkbox is clicked.
type Page struct {
	URLValue   string
	TitleValue string

	// Titles scripts successive Title() results; once exhausted,
	// TitleValue is returned. Lets a test walk the page through a
	// transition without goroutines.
	Titles []string

	Elements map[string]*Element

	// FrameElements maps a frame selector to the elements inside it.
	FrameElements map[string]map[string]*Element

	// Scripts maps an Evaluate script to its canned result.
	Scripts map[string]any

	// Errors injects failures. Keys are the recorded call string
	// ("click #submit") or just the operation name ("click") to fail
	// every call of that operation.
	Errors map[string]error

	// WriteFiles makes Screenshot write a real PNG to the given path.
	WriteFiles bool

	Tabs   []string
	Active int

	// Calls records every operation in order.
	Calls []string

	OnGoto       func(url string)
	OnClick      func(selector string)
	OnFrameClick func(frame, selector string)
}

var _ core.Page = (*Page)(nil)

// New returns a mock page with one blank tab.
func New() *Page {
	return &Page{
		URLValue:      "about:blank",
		Tabs:          []string{"about:blank"},
		Elements:      map[string]*Element{},
		FrameElements: map[string]map[string]*Element{},
		Scripts:       map[string]any{},
		Errors:        map[string]error{},
	}
}

func (p *Page) record(op string, args ...string) string {
	call := op
	for _, a := range args {
		call += " " + a
	}
	p.Calls = append(p.Calls, call)
	return call
}

// fail returns the injected error for the exact call or the whole
// operation, if any.
func (p *Page) fail(call, op string) error {
	if err, ok := p.Errors[call]; ok {
		return err
	}
	if err, ok := p.Errors[op]; ok {
		return err
	}
	return nil
}

func (p *Page) element(selector string) *Element {
	return p.Elements[selector]
}

func notFound(selector string) error {
	return fmt.Errorf("no element matches selector %q", selector)
}

func (p *Page) Goto(url, waitUntil string, timeout time.Duration) error {
	call := p.record("goto", url)
	if err := p.fail(call, "goto"); err != nil {
		return err
	}
	p.URLValue = url
	if len(p.Tabs) > 0 {
		p.Tabs[p.Active] = url
	}
	if p.OnGoto != nil {
		p.OnGoto(url)
	}
	return nil
}

func (p *Page) URL() string { return p.URLValue }

func (p *Page) Title() (string, error) {
	if err := p.fail("title", "title"); err != nil {
		return "", err
	}
	if len(p.Titles) > 0 {
		title := p.Titles[0]
		p.Titles = p.Titles[1:]
		return title, nil
	}
	return p.TitleValue, nil
}

func (p *Page) Click(selector string, timeout time.Duration) error {
	call := p.record("click", selector)
	if err := p.fail(call, "click"); err != nil {
		return err
	}
	if p.element(selector) == nil {
		return notFound(selector)
	}
	if p.OnClick != nil {
		p.OnClick(selector)
	}
	return nil
}

func (p *Page) Fill(selector, value string, timeout time.Duration) error {
	call := p.record("fill", selector, value)
	if err := p.fail(call, "fill"); err != nil {
		return err
	}
	if p.element(selector) == nil {
		return notFound(selector)
	}
	return nil
}

func (p *Page) Press(selector, key string, timeout time.Duration) error {
	call := p.record("press", selector, key)
	if err := p.fail(call, "press"); err != nil {
		return err
	}
	if selector != core.PressKeyboard && p.element(selector) == nil {
		return notFound(selector)
	}
	return nil
}

func (p *Page) Hover(selector string, timeout time.Duration) error {
	call := p.record("hover", selector)
	if err := p.fail(call, "hover"); err != nil {
		return err
	}
	if p.element(selector) == nil {
		return notFound(selector)
	}
	return nil
}

func (p *Page) SelectOption(selector, value string, timeout time.Duration) error {
	call := p.record("select", selector, value)
	if err := p.fail(call, "select"); err != nil {
		return err
	}
	if p.element(selector) == nil {
		return notFound(selector)
	}
	return nil
}

func (p *Page) SetChecked(selector string, checked bool, timeout time.Duration) error {
	call := p.record("setchecked", selector, fmt.Sprintf("%t", checked))
	if err := p.fail(call, "setchecked"); err != nil {
		return err
	}
	el := p.element(selector)
	if el == nil {
		return notFound(selector)
	}
	el.Checked = checked
	return nil
}

func (p *Page) WaitFor(selector, state string, timeout time.Duration) error {
	call := p.record("waitfor", selector, state)
	if err := p.fail(call, "waitfor"); err != nil {
		return err
	}
	el := p.element(selector)
	satisfied := false
	switch state {
	case core.StateVisible:
		satisfied = el != nil && el.Visible
	case core.StateHidden:
		satisfied = el == nil || !el.Visible
	case core.StateAttached:
		satisfied = el != nil
	case core.StateDetached:
		satisfied = el == nil
	}
	if !satisfied {
		return fmt.Errorf("timeout %s exceeded waiting for %q to become %s", timeout, selector, state)
	}
	return nil
}

func (p *Page) Count(selector string) (int, error) {
	if err := p.fail("count "+selector, "count"); err != nil {
		return 0, err
	}
	el := p.element(selector)
	if el == nil {
		return 0, nil
	}
	if el.Count == 0 {
		return 1, nil
	}
	return el.Count, nil
}

func (p *Page) Visible(selector string) (bool, error) {
	if err := p.fail("visible "+selector, "visible"); err != nil {
		return false, err
	}
	el := p.element(selector)
	return el != nil && el.Visible, nil
}

func (p *Page) TextContent(selector string, timeout time.Duration) (string, error) {
	if err := p.fail("text "+selector, "text"); err != nil {
		return "", err
	}
	el := p.element(selector)
	if el == nil {
		return "", notFound(selector)
	}
	return el.Text, nil
}

func (p *Page) Attribute(selector, name string, timeout time.Duration) (string, error) {
	if err := p.fail("attribute "+selector, "attribute"); err != nil {
		return "", err
	}
	el := p.element(selector)
	if el == nil {
		return "", notFound(selector)
	}
	return el.Attrs[name], nil
}

func (p *Page) AllTextContents(selector string) ([]string, error) {
	if err := p.fail("alltext "+selector, "alltext"); err != nil {
		return nil, err
	}
	el := p.element(selector)
	if el == nil {
		return nil, nil
	}
	if el.Texts != nil {
		return el.Texts, nil
	}
	return []string{el.Text}, nil
}

func (p *Page) AllAttributes(selector, name string) ([]string, error) {
	if err := p.fail("allattr "+selector, "allattr"); err != nil {
		return nil, err
	}
	el := p.element(selector)
	if el == nil {
		return nil, nil
	}
	if el.AttrLists != nil && el.AttrLists[name] != nil {
		return el.AttrLists[name], nil
	}
	return []string{el.Attrs[name]}, nil
}

func (p *Page) ScrollIntoView(selector string, timeout time.Duration) error {
	call := p.record("scrollintoview", selector)
	if err := p.fail(call, "scrollintoview"); err != nil {
		return err
	}
	if p.element(selector) == nil {
		return notFound(selector)
	}
	return nil
}

func (p *Page) ScrollBy(x, y int) error {
	call := p.record("scrollby", fmt.Sprintf("%d,%d", x, y))
	return p.fail(call, "scrollby")
}

func (p *Page) Evaluate(script string) (any, error) {
	call := p.record("evaluate", script)
	if err := p.fail(call, "evaluate"); err != nil {
		return nil, err
	}
	return p.Scripts[script], nil
}

func (p *Page) Screenshot(path string, fullPage bool) error {
	call := p.record("screenshot", path)
	if err := p.fail(call, "screenshot"); err != nil {
		return err
	}
	if p.WriteFiles {
		return os.WriteFile(path, pngPixel, 0o644)
	}
	return nil
}

func (p *Page) FrameVisible(frameSelector, selector string) (bool, error) {
	if err := p.fail("framevisible "+frameSelector+" "+selector, "framevisible"); err != nil {
		return false, err
	}
	el := p.FrameElements[frameSelector][selector]
	return el != nil && el.Visible, nil
}

func (p *Page) FrameClick(frameSelector, selector string, timeout time.Duration) error {
	call := p.record("frameclick", frameSelector, selector)
	if err := p.fail(call, "frameclick"); err != nil {
		return err
	}
	if p.FrameElements[frameSelector][selector] == nil {
		return notFound(selector)
	}
	if p.OnFrameClick != nil {
		p.OnFrameClick(frameSelector, selector)
	}
	return nil
}

func (p *Page) OpenTab(url string, timeout time.Duration) error {
	call := p.record("opentab", url)
	if err := p.fail(call, "opentab"); err != nil {
		return err
	}
	p.Tabs = append(p.Tabs, url)
	p.Active = len(p.Tabs) - 1
	p.URLValue = url
	return nil
}

func (p *Page) SwitchTab(index int) error {
	call := p.record("switchtab", fmt.Sprintf("%d", index))
	if err := p.fail(call, "switchtab"); err != nil {
		return err
	}
	if index < 0 || index >= len(p.Tabs) {
		return fmt.Errorf("tab index %d out of range (%d tabs open)", index, len(p.Tabs))
	}
	p.Active = index
	p.URLValue = p.Tabs[index]
	return nil
}

func (p *Page) CloseTab() error {
	call := p.record("closetab")
	if err := p.fail(call, "closetab"); err != nil {
		return err
	}
	if len(p.Tabs) == 0 {
		return fmt.Errorf("no tabs open")
	}
	p.Tabs = append(p.Tabs[:p.Active], p.Tabs[p.Active+1:]...)
	if p.Active >= len(p.Tabs) {
		p.Active = len(p.Tabs) - 1
	}
	if p.Active >= 0 {
		p.URLValue = p.Tabs[p.Active]
	} else {
		p.URLValue = ""
	}
	return nil
}

// pngPixel is a minimal valid PNG (1x1 transparent pixel).
var pngPixel = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4,
	0x89, 0x00, 0x00, 0x00, 0x0A, 0x49, 0x44, 0x41,
	0x54, 0x78, 0x9C, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00,
	0x00, 0x00, 0x00, 0x49, 0x45, 0x4E, 0x44, 0xAE,
	0x42, 0x60, 0x82,
}
