package runner_pkg

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SelectorRule picks Selector for any URL containing Keyword.
type SelectorRule struct {
	Keyword  string `yaml:"keyword" json:"keyword"`
	Selector string `yaml:"selector" json:"selector"`
}

// DefaultSelectorRule applies when no keyword matches.
var DefaultSelectorRule = SelectorRule{Keyword: "", Selector: "body"}

// DefaultSelectorRules are checked in order; the first match wins.
var DefaultSelectorRules = []SelectorRule{
	{Keyword: "/dashboard", Selector: "#dashboard, [data-testid='dashboard'], .dashboard"},
	{Keyword: "/login", Selector: "form"},
	{Keyword: "/signup", Selector: "form"},
	{Keyword: "/settings", Selector: "#settings, .settings"},
	{Keyword: "/profile", Selector: "#profile, .profile"},
	{Keyword: "/checkout", Selector: "#checkout, .checkout"},
	{Keyword: "/search", Selector: "#results, .results, [data-testid*='result']"},
}

// ResolveSelector returns the first rule whose keyword occurs in rawURL, or
// DefaultSelectorRule.
func ResolveSelector(rules []SelectorRule, rawURL string) SelectorRule {
	for _, r := range rules {
		if r.Keyword != "" && strings.Contains(rawURL, r.Keyword) {
			return r
		}
	}
	return DefaultSelectorRule
}

type selectorRulesFile struct {
	Rules []SelectorRule `yaml:"rules"`
}

// LoadSelectorRules reads an ordered rule list from a YAML file of the form
//
//	rules:
//	  - keyword: /dashboard
//	    selector: "#dashboard"
func LoadSelectorRules(path string) ([]SelectorRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading selector rules %s: %w", path, err)
	}
	var f selectorRulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing selector rules %s: %w", path, err)
	}
	for i, r := range f.Rules {
		if r.Keyword == "" || r.Selector == "" {
			return nil, fmt.Errorf("selector rule %d in %s needs keyword and selector", i, path)
		}
	}
	return f.Rules, nil
}

// DOMRetriever navigates to a URL and extracts the HTML of the page region
// matched by its selector rules.
type DOMRetriever struct {
	launcher Launcher
	cfg      Config
	rules    []SelectorRule
	logger   Logger
}

func NewDOMRetriever(launcher Launcher, cfg Config, rules []SelectorRule, logger Logger) *DOMRetriever {
	if logger == nil {
		logger = NopLogger{}
	}
	if rules == nil {
		rules = DefaultSelectorRules
	}
	return &DOMRetriever{launcher: launcher, cfg: cfg, rules: rules, logger: logger}
}

// ValidateTargetURL checks rawURL is an absolute http(s) URL.
func ValidateTargetURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return &ValidationError{Field: "url", Message: "url query parameter is required"}
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return &ValidationError{Field: "url", Message: fmt.Sprintf("invalid url %q", rawURL)}
	}
	return nil
}

// Fetch returns the outer HTML of the rule-selected region of rawURL, or the
// whole document when full is set. Extraction is retried up to
// DOMRetryAttempts times; the browser is closed on every path.
func (d *DOMRetriever) Fetch(ctx context.Context, rawURL string, full bool) (*DomSnapshot, error) {
	if err := ValidateTargetURL(rawURL); err != nil {
		return nil, err
	}

	snap := &DomSnapshot{URL: rawURL}
	var rule SelectorRule
	if !full {
		rule = ResolveSelector(d.rules, rawURL)
		snap.SelectorUsed = rule.Selector
		d.logger.Printf("🔎 Using selector %q for %s", rule.Selector, rawURL)
	}

	browser, err := d.launcher.Launch(d.cfg.DefaultEngine)
	if err != nil {
		return nil, &ResourceError{Op: "launch browser", Err: err}
	}
	defer releaseBrowser(browser, d.logger)

	page, err := browser.NewPage(PageOptions{Viewport: d.cfg.Viewport, IgnoreHTTPSErrors: true})
	if err != nil {
		return nil, &ResourceError{Op: "open page", Err: err}
	}

	d.logger.Printf("📄 Navigating to: %s", rawURL)
	if err := page.Goto(rawURL, d.cfg.NavigationTimeout); err != nil {
		return nil, &ResourceError{Op: "navigate", Err: err}
	}

	if full {
		html, err := page.Content()
		if err != nil {
			return nil, &ResourceError{Op: "read document", Err: err}
		}
		snap.HTML = html
		return snap, nil
	}

	html, err := d.extract(ctx, page, rule.Selector)
	if err != nil {
		return nil, err
	}
	snap.HTML = html
	return snap, nil
}

func (d *DOMRetriever) extract(ctx context.Context, page Page, selector string) (string, error) {
	attempts := d.cfg.DOMRetryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var trace []string
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := page.WaitForNetworkIdle(d.cfg.NavigationTimeout); err != nil {
			trace = append(trace, fmt.Sprintf("attempt %d/%d: network idle: %v", attempt, attempts, err))
		}

		html, err := page.OuterHTML(selector, d.cfg.ActionTimeout)
		if err == nil && html != "" {
			if attempt > 1 {
				d.logger.Printf("✅ Extracted %s on attempt %d/%d", selector, attempt, attempts)
			}
			return html, nil
		}
		if err == nil {
			err = fmt.Errorf("empty html")
		}
		trace = append(trace, fmt.Sprintf("attempt %d/%d: %v", attempt, attempts, err))
		d.logger.Printf("   ⚠️ Extraction attempt %d/%d for %s failed: %v", attempt, attempts, selector, err)

		if attempt < attempts {
			if err := sleepContext(ctx, d.cfg.DOMRetryDelay); err != nil {
				trace = append(trace, fmt.Sprintf("retry interrupted: %v", err))
				break
			}
		}
	}

	return "", &ResourceError{
		Op:    "extract dom",
		Err:   fmt.Errorf("%w: %s after %d attempts", ErrSelectorNotFound, selector, attempts),
		Trace: trace,
	}
}
