package core

import "time"

// Page is the browser surface the step executor drives. Implementations
// wrap a live browser page; tests substitute fakes. Selector arguments are
// CSS or XPath strings, timeouts of zero mean the implementation default.
type Page interface {
	// Navigation.
	Goto(url, waitUntil string, timeout time.Duration) error
	URL() string
	Title() (string, error)

	// Element interaction.
	Click(selector string, timeout time.Duration) error
	Fill(selector, value string, timeout time.Duration) error
	Press(selector, key string, timeout time.Duration) error
	Hover(selector string, timeout time.Duration) error
	SelectOption(selector, value string, timeout time.Duration) error
	SetChecked(selector string, checked bool, timeout time.Duration) error

	// Waiting and probing.
	WaitFor(selector, state string, timeout time.Duration) error
	Count(selector string) (int, error)
	Visible(selector string) (bool, error)

	// Content readout.
	TextContent(selector string, timeout time.Duration) (string, error)
	Attribute(selector, name string, timeout time.Duration) (string, error)
	AllTextContents(selector string) ([]string, error)
	AllAttributes(selector, name string) ([]string, error)

	// Scrolling.
	ScrollIntoView(selector string, timeout time.Duration) error
	ScrollBy(x, y int) error

	// Script evaluation in page context.
	Evaluate(script string) (any, error)

	// Screenshots. The file is written to path; fullPage captures beyond
	// the viewport.
	Screenshot(path string, fullPage bool) error

	// Frame access for challenge widgets rendered inside iframes.
	FrameVisible(frameSelector, selector string) (bool, error)
	FrameClick(frameSelector, selector string, timeout time.Duration) error

	// Tab management. OpenTab makes the new tab current, SwitchTab selects
	// by zero-based index, CloseTab closes the current tab and falls back
	// to the previous one.
	OpenTab(url string, timeout time.Duration) error
	SwitchTab(index int) error
	CloseTab() error
}

// PressKeyboard is the selector value for Page.Press meaning a page-level
// key press with no target element.
const PressKeyboard = ""

// Wait states accepted by Page.WaitFor.
const (
	StateVisible  = "visible"
	StateHidden   = "hidden"
	StateAttached = "attached"
	StateDetached = "detached"
)
