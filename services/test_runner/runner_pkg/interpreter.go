package runner_pkg

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// Interpreter maps one declarative step onto a browser operation.
type Interpreter struct {
	cfg    Config
	logger Logger
}

// NewInterpreter creates an interpreter using cfg for default timeouts and
// the screenshot policy.
func NewInterpreter(cfg Config, logger Logger) *Interpreter {
	if logger == nil {
		logger = NopLogger{}
	}
	return &Interpreter{cfg: cfg, logger: logger}
}

// Execute runs step against page and describes what happened. Unknown action
// or assertion kinds, failed browser operations and assertion mismatches are
// returned as errors.
func (in *Interpreter) Execute(ctx context.Context, page Page, step Step) (Outcome, error) {
	timeout := in.cfg.stepTimeout(step, in.cfg.ActionTimeout)

	switch step.Action.Kind {
	case ActionGoto:
		if step.URL == "" {
			return nil, missing("url", step)
		}
		if err := page.Goto(step.URL, in.cfg.stepTimeout(step, in.cfg.NavigationTimeout)); err != nil {
			return nil, fmt.Errorf("navigate to %s: %w", step.URL, err)
		}
		return Outcome{"url": page.URL()}, nil

	case ActionClick:
		if step.Selector == "" {
			return nil, missing("selector", step)
		}
		if err := page.Click(step.Selector, timeout); err != nil {
			return nil, fmt.Errorf("click %s: %w", step.Selector, err)
		}
		return Outcome{"selector": step.Selector}, nil

	case ActionFill:
		if step.Selector == "" {
			return nil, missing("selector", step)
		}
		if err := page.Fill(step.Selector, step.Value, timeout); err != nil {
			return nil, fmt.Errorf("fill %s: %w", step.Selector, err)
		}
		return Outcome{"selector": step.Selector, "value": step.Value}, nil

	case ActionSelect:
		if step.Selector == "" {
			return nil, missing("selector", step)
		}
		if err := page.SelectOption(step.Selector, step.Value, timeout); err != nil {
			return nil, fmt.Errorf("select %q in %s: %w", step.Value, step.Selector, err)
		}
		return Outcome{"selector": step.Selector, "value": step.Value}, nil

	case ActionWait:
		return in.wait(ctx, page, step)

	case ActionScreenshot:
		shot, err := in.Screenshot(page, step.FullPage)
		if err != nil {
			return nil, err
		}
		return Outcome{"screenshot": shot, "fullPage": step.FullPage}, nil

	case ActionScroll:
		if err := page.ScrollToBottom(); err != nil {
			return nil, fmt.Errorf("scroll: %w", err)
		}
		return Outcome{"scrolled": "bottom"}, nil

	case ActionHover:
		if step.Selector == "" {
			return nil, missing("selector", step)
		}
		if err := page.Hover(step.Selector, timeout); err != nil {
			return nil, fmt.Errorf("hover %s: %w", step.Selector, err)
		}
		return Outcome{"selector": step.Selector}, nil

	case ActionPress:
		key := step.Key
		if key == "" {
			key = step.Value
		}
		if key == "" {
			return nil, missing("key", step)
		}
		key = normalizeKey(key)
		if err := page.Press(step.Selector, key, timeout); err != nil {
			return nil, fmt.Errorf("press %s: %w", key, err)
		}
		out := Outcome{"key": key}
		if step.Selector != "" {
			out["selector"] = step.Selector
		}
		return out, nil

	case ActionExpect:
		return in.expect(page, step, timeout)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, step.Action)
	}
}

func (in *Interpreter) wait(ctx context.Context, page Page, step Step) (Outcome, error) {
	if step.Selector != "" {
		timeout := in.cfg.stepTimeout(step, in.cfg.ActionTimeout)
		if err := page.WaitForSelector(step.Selector, timeout); err != nil {
			return nil, fmt.Errorf("wait for %s: %w", step.Selector, err)
		}
		return Outcome{"selector": step.Selector}, nil
	}

	d := in.cfg.stepTimeout(step, in.cfg.DefaultWait)
	if err := sleepContext(ctx, d); err != nil {
		return nil, fmt.Errorf("wait interrupted: %w", err)
	}
	return Outcome{"waited": d.Milliseconds()}, nil
}

func (in *Interpreter) expect(page Page, step Step, timeout time.Duration) (Outcome, error) {
	switch step.Assertion.Kind {
	case AssertionToHaveText:
		if step.Selector == "" {
			return nil, missing("selector", step)
		}
		actual, err := page.TextContent(step.Selector, timeout)
		if err != nil {
			return nil, fmt.Errorf("read text of %s: %w", step.Selector, err)
		}
		if actual != step.ExpectedValue {
			return nil, fmt.Errorf("%w: expected text %q but got %q", ErrAssertionFailed, step.ExpectedValue, actual)
		}
		return Outcome{"assertion": "toHaveText", "selector": step.Selector, "text": actual}, nil

	case AssertionToBeVisible:
		if step.Selector == "" {
			return nil, missing("selector", step)
		}
		visible, err := page.IsVisible(step.Selector, timeout)
		if err != nil {
			return nil, fmt.Errorf("check visibility of %s: %w", step.Selector, err)
		}
		if !visible {
			return nil, fmt.Errorf("%w: expected %s to be visible", ErrAssertionFailed, step.Selector)
		}
		return Outcome{"assertion": "toBeVisible", "selector": step.Selector}, nil

	case AssertionToHaveURL:
		actual := page.URL()
		if actual != step.ExpectedValue {
			return nil, fmt.Errorf("%w: expected URL %q but got %q", ErrAssertionFailed, step.ExpectedValue, actual)
		}
		return Outcome{"assertion": "toHaveURL", "url": actual}, nil

	case AssertionToHaveTitle:
		actual, err := page.Title()
		if err != nil {
			return nil, fmt.Errorf("read title: %w", err)
		}
		if actual != step.ExpectedValue {
			return nil, fmt.Errorf("%w: expected title %q but got %q", ErrAssertionFailed, step.ExpectedValue, actual)
		}
		return Outcome{"assertion": "toHaveTitle", "title": actual}, nil

	default:
		if step.Assertion.Name == "" {
			return nil, missing("assertion", step)
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownAssertion, step.Assertion)
	}
}

// Screenshot captures page as base64 with the configured payload policy.
func (in *Interpreter) Screenshot(page Page, fullPage bool) (string, error) {
	data, err := page.Screenshot(fullPage, in.cfg.ActionTimeout)
	if err != nil {
		return "", fmt.Errorf("screenshot: %w", err)
	}
	return in.cfg.encodeScreenshot(base64.StdEncoding.EncodeToString(data)), nil
}

func missing(field string, step Step) error {
	return fmt.Errorf("%w: %s requires %q", ErrMissingField, step.Action, field)
}

var keyAliases = map[string]string{
	"down":   "ArrowDown",
	"up":     "ArrowUp",
	"left":   "ArrowLeft",
	"right":  "ArrowRight",
	"return": "Enter",
	"enter":  "Enter",
	"esc":    "Escape",
	"tab":    "Tab",
	"space":  "Space",
}

// normalizeKey maps common shorthand key names onto Playwright key names.
func normalizeKey(key string) string {
	if alias, ok := keyAliases[strings.ToLower(key)]; ok {
		return alias
	}
	return key
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
