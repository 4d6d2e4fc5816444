// Package challenge detects bot-verification interstitials during flow
// execution and rides them out: auto-completing pages are waited on,
// checkbox widgets are clicked, and unsolvable captchas are left for a
// human while the handler polls for resolution.
package challenge

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/navigator-hub/flow-runner/pkg/core"
	"github.com/navigator-hub/flow-runner/pkg/logger"
)

// Kind classifies the verification a page is showing.
type Kind string

const (
	// KindNone means no challenge is present.
	KindNone Kind = "none"
	// KindInterstitial is a JS challenge page that completes on its own.
	KindInterstitial Kind = "interstitial"
	// KindCheckbox is a clickable checkbox widget.
	KindCheckbox Kind = "checkbox"
	// KindUnsolvable is a captcha that needs a human.
	KindUnsolvable Kind = "unsolvable"
)

// Page markers for the auto-completing interstitial.
var interstitialSelectors = []string{
	"#cf-wrapper",
	"#challenge-running",
	"#challenge-form",
	".cf-browser-verification",
	"#cf-spinner-please-wait",
	"#cf-please-wait",
}

// Markers for the checkbox widget. The widget can appear embedded on any
// page, not only on a challenge-titled one.
var checkboxSelectors = []string{
	"iframe[src*='challenges.cloudflare.com']",
	"iframe[src*='turnstile']",
	"#cf-turnstile-response",
	"[data-sitekey]",
}

// Frames that host the clickable checkbox control.
var checkboxFrames = []string{
	"iframe[src*='challenges.cloudflare.com']",
	"iframe[src*='turnstile']",
}

// Controls tried inside the widget frame, in order.
var frameControls = []string{
	"input[type='checkbox']",
	".cf-turnstile-checkbox",
	"[role='checkbox']",
	"label",
}

// Markers for captchas the handler cannot solve.
var unsolvableSelectors = []string{
	"iframe[src*='hcaptcha']",
	"#cf-hcaptcha-container",
	".h-captcha",
}

// Title fragments that mark a challenge page. Checked lowercase.
var titleKeywords = []string{
	"just a moment",
	"checking your browser",
	"please wait",
	"attention required",
	"one more step",
}

// Config controls detection frequency and patience.
type Config struct {
	// Enabled gates all detection. Disabled means every check is a no-op
	// reported as handled.
	Enabled bool

	// CheckProbability is the chance a non-navigation step is followed by
	// a detection pass.
	CheckProbability float64

	// MaxWait bounds how long Handle waits for any one challenge.
	MaxWait time.Duration

	// CheckAfterNavigate forces a detection pass after every navigation.
	CheckAfterNavigate bool

	// Rand overrides the probability source. Nil uses math/rand.
	Rand func() float64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:            true,
		CheckProbability:   0.3,
		MaxWait:            45 * time.Second,
		CheckAfterNavigate: true,
	}
}

// intervals holds the pacing of the polling loops. Kept on the handler so
// tests can run them at full speed.
type intervals struct {
	frameRetry   time.Duration // re-probe cadence while the widget frame is absent
	clickSettle  time.Duration // pause after clicking the checkbox
	attemptPause time.Duration // pause between click attempts
	interstitial time.Duration // poll cadence for auto-completing pages
	manual       time.Duration // poll cadence while waiting for a human
	preClickMin  time.Duration // randomized pause before clicking
	preClickMax  time.Duration
}

var defaultIntervals = intervals{
	frameRetry:   500 * time.Millisecond,
	clickSettle:  2 * time.Second,
	attemptPause: time.Second,
	interstitial: time.Second,
	manual:       2 * time.Second,
	preClickMin:  300 * time.Millisecond,
	preClickMax:  800 * time.Millisecond,
}

// Handler runs challenge detection and resolution against a live page.
// It is used by a single execution goroutine and is not safe for
// concurrent use.
type Handler struct {
	cfg   Config
	randf func() float64
	iv    intervals
	count int
}

// New returns a handler with the given config.
func New(cfg Config) *Handler {
	randf := cfg.Rand
	if randf == nil {
		randf = rand.Float64
	}
	return &Handler{cfg: cfg, randf: randf, iv: defaultIntervals}
}

// ShouldCheck reports whether a detection pass should run now. Navigation
// steps always check when CheckAfterNavigate is set; other steps roll
// against CheckProbability.
func (h *Handler) ShouldCheck(afterNavigate bool) bool {
	if !h.cfg.Enabled {
		return false
	}
	if afterNavigate && h.cfg.CheckAfterNavigate {
		return true
	}
	return h.randf() < h.cfg.CheckProbability
}

// Count returns how many challenges this handler has encountered.
func (h *Handler) Count() int {
	return h.count
}

// Result reports the outcome of one Handle pass.
type Result struct {
	Detected bool
	Handled  bool
	Kind     Kind
	Elapsed  time.Duration
}

// Handle checks the page for a challenge and resolves it if possible.
// An unresolved challenge is reported, never returned as an error; the
// caller decides whether the following steps can still succeed.
func (h *Handler) Handle(ctx context.Context, page core.Page) Result {
	if !h.cfg.Enabled {
		return Result{Handled: true, Kind: KindNone}
	}

	start := time.Now()
	kind := h.Detect(page)
	if kind == KindNone {
		return Result{Handled: true, Kind: KindNone}
	}

	h.count++
	logger.Info("Verification challenge detected: %s", kind)

	deadline := start.Add(h.cfg.MaxWait)
	var handled bool
	switch kind {
	case KindCheckbox:
		handled = h.solveCheckbox(ctx, page, deadline)
	case KindInterstitial:
		handled = h.awaitInterstitial(ctx, page, deadline)
	case KindUnsolvable:
		logger.Warn("Challenge requires manual intervention, waiting up to %s", h.cfg.MaxWait)
		handled = h.awaitManualSolve(ctx, page, deadline)
	}

	if handled {
		logger.Info("Challenge resolved after %s", time.Since(start).Round(time.Millisecond))
	} else {
		logger.Warn("Challenge unresolved after %s", time.Since(start).Round(time.Millisecond))
	}
	return Result{Detected: true, Handled: handled, Kind: kind, Elapsed: time.Since(start)}
}

// Detect inspects the current page and reports the challenge kind shown,
// if any. Probe errors are treated as absence so a flaky page never fails
// the flow from inside detection.
func (h *Handler) Detect(page core.Page) Kind {
	if title, err := page.Title(); err == nil {
		lower := strings.ToLower(title)
		for _, keyword := range titleKeywords {
			if strings.Contains(lower, keyword) {
				return h.identifyVariant(page)
			}
		}
	}

	for _, selector := range checkboxSelectors {
		if visible, err := page.Visible(selector); err == nil && visible {
			return KindCheckbox
		}
	}
	for _, selector := range interstitialSelectors {
		if visible, err := page.Visible(selector); err == nil && visible {
			return KindInterstitial
		}
	}
	return KindNone
}

// identifyVariant narrows a challenge-titled page to its specific kind.
// Unsolvable markers win over the checkbox so we never click into a
// captcha; everything else is the auto-completing interstitial.
func (h *Handler) identifyVariant(page core.Page) Kind {
	for _, selector := range unsolvableSelectors {
		if n, err := page.Count(selector); err == nil && n > 0 {
			return KindUnsolvable
		}
	}
	for _, selector := range checkboxSelectors {
		if n, err := page.Count(selector); err == nil && n > 0 {
			return KindCheckbox
		}
	}
	return KindInterstitial
}

// solveCheckbox clicks the widget checkbox and verifies the challenge
// clears. Retries until the deadline.
func (h *Handler) solveCheckbox(ctx context.Context, page core.Page, deadline time.Time) bool {
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return false
		}

		frame := h.findCheckboxFrame(page)
		if frame == "" {
			// Widget gone. Either the challenge resolved itself or the
			// frame has not rendered yet.
			if h.Detect(page) == KindNone {
				logger.Info("Checkbox challenge resolved")
				return true
			}
			sleep(ctx, h.iv.frameRetry)
			continue
		}

		if h.clickFrameControl(ctx, page, frame) {
			sleep(ctx, h.iv.clickSettle)
			if h.Detect(page) == KindNone {
				logger.Info("Checkbox challenge resolved")
				return true
			}
		}
		sleep(ctx, h.iv.attemptPause)
	}
	return h.Detect(page) == KindNone
}

// findCheckboxFrame returns the selector of the widget frame present on
// the page, or empty when none is.
func (h *Handler) findCheckboxFrame(page core.Page) string {
	for _, selector := range checkboxFrames {
		if n, err := page.Count(selector); err == nil && n > 0 {
			return selector
		}
	}
	return ""
}

// clickFrameControl tries each known control inside the widget frame and
// clicks the first visible one after a short randomized pause.
func (h *Handler) clickFrameControl(ctx context.Context, page core.Page, frame string) bool {
	for _, selector := range frameControls {
		visible, err := page.FrameVisible(frame, selector)
		if err != nil || !visible {
			continue
		}

		span := h.iv.preClickMax - h.iv.preClickMin
		sleep(ctx, h.iv.preClickMin+time.Duration(h.randf()*float64(span)))

		if err := page.FrameClick(frame, selector, 5*time.Second); err != nil {
			logger.Debug("Checkbox click attempt failed (%s): %v", selector, err)
			continue
		}
		logger.Info("Clicked challenge checkbox (%s)", selector)
		return true
	}
	return false
}

// awaitInterstitial polls until the auto-completing page clears. If the
// page transitions to a different challenge kind the matching strategy
// takes over with the remaining time.
func (h *Handler) awaitInterstitial(ctx context.Context, page core.Page, deadline time.Time) bool {
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return false
		}
		sleep(ctx, h.iv.interstitial)

		switch h.Detect(page) {
		case KindNone:
			logger.Info("Interstitial challenge completed")
			return true
		case KindCheckbox:
			return h.solveCheckbox(ctx, page, deadline)
		case KindUnsolvable:
			logger.Warn("Challenge escalated, requires manual intervention")
			return h.awaitManualSolve(ctx, page, deadline)
		}
	}
	logger.Warn("Interstitial challenge wait timed out")
	return false
}

// awaitManualSolve waits for a human to clear the captcha, polling without
// touching the page.
func (h *Handler) awaitManualSolve(ctx context.Context, page core.Page, deadline time.Time) bool {
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return false
		}
		sleep(ctx, h.iv.manual)

		if h.Detect(page) == KindNone {
			logger.Info("Manual solve completed")
			return true
		}
	}
	return false
}

// sleep pauses for d or until ctx is cancelled, whichever is first.
func sleep(ctx context.Context, d time.Duration) {
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
