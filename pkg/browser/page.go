package browser

import (
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/navigator-hub/flow-runner/pkg/core"
)

// pwPage adapts a playwright page to the core.Page surface the step
// executor drives. It tracks the current tab and every tab it opened so a
// session can clean up exactly what the execution created.
type pwPage struct {
	context playwright.BrowserContext
	current playwright.Page
	opened  []playwright.Page
}

var _ core.Page = (*pwPage)(nil)

func newPage(context playwright.BrowserContext, page playwright.Page) *pwPage {
	return &pwPage{context: context, current: page}
}

// ms converts a timeout to the millisecond pointer playwright options take.
// Zero means "use the playwright default" and maps to nil.
func ms(timeout time.Duration) *float64 {
	if timeout <= 0 {
		return nil
	}
	return playwright.Float(float64(timeout.Milliseconds()))
}

func (p *pwPage) Goto(url, waitUntil string, timeout time.Duration) error {
	opts := playwright.PageGotoOptions{Timeout: ms(timeout)}
	if waitUntil != "" {
		state := playwright.WaitUntilState(waitUntil)
		opts.WaitUntil = &state
	}
	_, err := p.current.Goto(url, opts)
	return err
}

func (p *pwPage) URL() string {
	return p.current.URL()
}

func (p *pwPage) Title() (string, error) {
	return p.current.Title()
}

func (p *pwPage) Click(selector string, timeout time.Duration) error {
	return p.current.Click(selector, playwright.PageClickOptions{Timeout: ms(timeout)})
}

func (p *pwPage) Fill(selector, value string, timeout time.Duration) error {
	return p.current.Fill(selector, value, playwright.PageFillOptions{Timeout: ms(timeout)})
}

func (p *pwPage) Press(selector, key string, timeout time.Duration) error {
	if selector == core.PressKeyboard {
		return p.current.Keyboard().Press(key)
	}
	return p.current.Press(selector, key, playwright.PagePressOptions{Timeout: ms(timeout)})
}

func (p *pwPage) Hover(selector string, timeout time.Duration) error {
	return p.current.Hover(selector, playwright.PageHoverOptions{Timeout: ms(timeout)})
}

func (p *pwPage) SelectOption(selector, value string, timeout time.Duration) error {
	_, err := p.current.SelectOption(selector,
		playwright.SelectOptionValues{Values: &[]string{value}},
		playwright.PageSelectOptionOptions{Timeout: ms(timeout)})
	return err
}

func (p *pwPage) SetChecked(selector string, checked bool, timeout time.Duration) error {
	if checked {
		return p.current.Check(selector, playwright.PageCheckOptions{Timeout: ms(timeout)})
	}
	return p.current.Uncheck(selector, playwright.PageUncheckOptions{Timeout: ms(timeout)})
}

func (p *pwPage) WaitFor(selector, state string, timeout time.Duration) error {
	opts := playwright.PageWaitForSelectorOptions{Timeout: ms(timeout)}
	if state != "" {
		s := playwright.WaitForSelectorState(state)
		opts.State = &s
	}
	_, err := p.current.WaitForSelector(selector, opts)
	return err
}

func (p *pwPage) Count(selector string) (int, error) {
	return p.current.Locator(selector).Count()
}

func (p *pwPage) Visible(selector string) (bool, error) {
	return p.current.IsVisible(selector)
}

func (p *pwPage) TextContent(selector string, timeout time.Duration) (string, error) {
	return p.current.TextContent(selector, playwright.PageTextContentOptions{Timeout: ms(timeout)})
}

func (p *pwPage) Attribute(selector, name string, timeout time.Duration) (string, error) {
	return p.current.GetAttribute(selector, name, playwright.PageGetAttributeOptions{Timeout: ms(timeout)})
}

func (p *pwPage) AllTextContents(selector string) ([]string, error) {
	return p.current.Locator(selector).AllTextContents()
}

func (p *pwPage) AllAttributes(selector, name string) ([]string, error) {
	locators, err := p.current.Locator(selector).All()
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, len(locators))
	for _, locator := range locators {
		value, err := locator.GetAttribute(name)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

func (p *pwPage) ScrollIntoView(selector string, timeout time.Duration) error {
	return p.current.Locator(selector).ScrollIntoViewIfNeeded(
		playwright.LocatorScrollIntoViewIfNeededOptions{Timeout: ms(timeout)})
}

func (p *pwPage) ScrollBy(x, y int) error {
	_, err := p.current.Evaluate(fmt.Sprintf("window.scrollBy(%d, %d)", x, y))
	return err
}

func (p *pwPage) Evaluate(script string) (any, error) {
	return p.current.Evaluate(script)
}

func (p *pwPage) Screenshot(path string, fullPage bool) error {
	_, err := p.current.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(fullPage),
	})
	return err
}

// frame resolves the iframe element behind frameSelector, or nil when no
// such frame is attached.
func (p *pwPage) frame(frameSelector string) (playwright.Frame, error) {
	element, err := p.current.QuerySelector(frameSelector)
	if err != nil || element == nil {
		return nil, err
	}
	return element.ContentFrame()
}

func (p *pwPage) FrameVisible(frameSelector, selector string) (bool, error) {
	frame, err := p.frame(frameSelector)
	if err != nil || frame == nil {
		return false, err
	}
	return frame.IsVisible(selector)
}

func (p *pwPage) FrameClick(frameSelector, selector string, timeout time.Duration) error {
	frame, err := p.frame(frameSelector)
	if err != nil {
		return err
	}
	if frame == nil {
		return fmt.Errorf("no frame matches selector %q", frameSelector)
	}
	return frame.Click(selector, playwright.FrameClickOptions{Timeout: ms(timeout)})
}

func (p *pwPage) OpenTab(url string, timeout time.Duration) error {
	page, err := p.context.NewPage()
	if err != nil {
		return err
	}
	p.opened = append(p.opened, page)
	p.current = page
	if url == "" {
		return nil
	}
	_, err = page.Goto(url, playwright.PageGotoOptions{Timeout: ms(timeout)})
	return err
}

func (p *pwPage) SwitchTab(index int) error {
	pages := p.context.Pages()
	if index < 0 || index >= len(pages) {
		return fmt.Errorf("tab index %d out of range (%d tabs open)", index, len(pages))
	}
	p.current = pages[index]
	return p.current.BringToFront()
}

func (p *pwPage) CloseTab() error {
	if err := p.current.Close(); err != nil {
		return err
	}
	pages := p.context.Pages()
	if len(pages) == 0 {
		return fmt.Errorf("no tabs remain open")
	}
	p.current = pages[len(pages)-1]
	return p.current.BringToFront()
}
