package runner_pkg

import (
	"fmt"
	"sync"
	"time"

	pw "github.com/playwright-community/playwright-go"
)

// InstallDriver installs the Playwright driver and the given browsers.
// Failures are returned so the caller can decide whether to continue.
func InstallDriver(browsers []string, logger Logger) error {
	logger.Printf("🔧 Installing Playwright driver and browsers %v (one-time setup)...", browsers)
	if err := pw.Install(&pw.RunOptions{Browsers: browsers}); err != nil {
		return fmt.Errorf("playwright install: %w", err)
	}
	logger.Printf("✅ Playwright installed")
	return nil
}

// PlaywrightLauncher launches a fresh browser per call against a shared
// Playwright driver process. The driver is started on first use and restarted
// on the next call if starting it failed.
type PlaywrightLauncher struct {
	cfg    Config
	logger Logger

	mu sync.Mutex
	pw *pw.Playwright
}

func NewPlaywrightLauncher(cfg Config, logger Logger) *PlaywrightLauncher {
	if logger == nil {
		logger = NopLogger{}
	}
	return &PlaywrightLauncher{cfg: cfg, logger: logger}
}

func (l *PlaywrightLauncher) driver() (*pw.Playwright, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pw != nil {
		return l.pw, nil
	}
	p, err := pw.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start Playwright: %w", err)
	}
	l.pw = p
	return p, nil
}

// Launch starts a headless browser of the requested engine.
func (l *PlaywrightLauncher) Launch(engine Engine) (Browser, error) {
	p, err := l.driver()
	if err != nil {
		return nil, err
	}

	opts := pw.BrowserTypeLaunchOptions{
		Headless: pw.Bool(true),
		Timeout:  pw.Float(float64(l.cfg.NavigationTimeout.Milliseconds())),
	}

	var browserType pw.BrowserType
	switch engine {
	case EngineFirefox:
		browserType = p.Firefox
	case EngineWebKit:
		browserType = p.WebKit
	default:
		browserType = p.Chromium
		opts.Args = l.cfg.LaunchArgs
		if l.cfg.ExecutablePath != "" {
			opts.ExecutablePath = pw.String(l.cfg.ExecutablePath)
			l.logger.Printf("🚀 Using browser executable: %s", l.cfg.ExecutablePath)
		}
	}

	browser, err := browserType.Launch(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch %s: %w", engine, err)
	}
	return &playwrightBrowser{browser: browser}, nil
}

// Stop shuts down the driver process if it was started.
func (l *PlaywrightLauncher) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pw == nil {
		return nil
	}
	err := l.pw.Stop()
	l.pw = nil
	return err
}

type playwrightBrowser struct {
	browser pw.Browser
}

func (b *playwrightBrowser) NewPage(opts PageOptions) (Page, error) {
	pageOpts := pw.BrowserNewPageOptions{
		IgnoreHttpsErrors: pw.Bool(opts.IgnoreHTTPSErrors),
	}
	if opts.Viewport.Width > 0 && opts.Viewport.Height > 0 {
		pageOpts.Viewport = &pw.Size{Width: opts.Viewport.Width, Height: opts.Viewport.Height}
	}
	page, err := b.browser.NewPage(pageOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return &playwrightPage{page: page}, nil
}

func (b *playwrightBrowser) Close() error {
	return b.browser.Close()
}

type playwrightPage struct {
	page pw.Page
}

func ms(d time.Duration) *float64 {
	return pw.Float(float64(d.Milliseconds()))
}

func (p *playwrightPage) Goto(url string, timeout time.Duration) error {
	_, err := p.page.Goto(url, pw.PageGotoOptions{
		WaitUntil: pw.WaitUntilStateNetworkidle,
		Timeout:   ms(timeout),
	})
	return err
}

func (p *playwrightPage) URL() string {
	return p.page.URL()
}

func (p *playwrightPage) Title() (string, error) {
	return p.page.Title()
}

func (p *playwrightPage) Content() (string, error) {
	return p.page.Content()
}

func (p *playwrightPage) Click(selector string, timeout time.Duration) error {
	return p.page.Locator(selector).First().Click(pw.LocatorClickOptions{Timeout: ms(timeout)})
}

func (p *playwrightPage) Fill(selector, value string, timeout time.Duration) error {
	return p.page.Locator(selector).First().Fill(value, pw.LocatorFillOptions{Timeout: ms(timeout)})
}

func (p *playwrightPage) SelectOption(selector, value string, timeout time.Duration) error {
	values := []string{value}
	_, err := p.page.Locator(selector).First().SelectOption(
		pw.SelectOptionValues{Values: &values},
		pw.LocatorSelectOptionOptions{Timeout: ms(timeout)},
	)
	return err
}

func (p *playwrightPage) Hover(selector string, timeout time.Duration) error {
	return p.page.Locator(selector).First().Hover(pw.LocatorHoverOptions{Timeout: ms(timeout)})
}

func (p *playwrightPage) Press(selector, key string, timeout time.Duration) error {
	if selector == "" {
		return p.page.Keyboard().Press(key)
	}
	return p.page.Locator(selector).First().Press(key, pw.LocatorPressOptions{Timeout: ms(timeout)})
}

func (p *playwrightPage) ScrollToBottom() error {
	_, err := p.page.Evaluate(`() => window.scrollTo(0, document.body.scrollHeight)`)
	return err
}

func (p *playwrightPage) WaitForSelector(selector string, timeout time.Duration) error {
	_, err := p.page.WaitForSelector(selector, pw.PageWaitForSelectorOptions{Timeout: ms(timeout)})
	return err
}

func (p *playwrightPage) WaitForNetworkIdle(timeout time.Duration) error {
	return p.page.WaitForLoadState(pw.PageWaitForLoadStateOptions{
		State:   pw.LoadStateNetworkidle,
		Timeout: ms(timeout),
	})
}

func (p *playwrightPage) TextContent(selector string, timeout time.Duration) (string, error) {
	return p.page.Locator(selector).First().TextContent(pw.LocatorTextContentOptions{Timeout: ms(timeout)})
}

func (p *playwrightPage) IsVisible(selector string, timeout time.Duration) (bool, error) {
	loc := p.page.Locator(selector).First()
	if err := loc.WaitFor(pw.LocatorWaitForOptions{
		State:   pw.WaitForSelectorStateVisible,
		Timeout: ms(timeout),
	}); err == nil {
		return true, nil
	}
	// Timed out or detached: report the current state instead of the wait error.
	return loc.IsVisible()
}

func (p *playwrightPage) OuterHTML(selector string, timeout time.Duration) (string, error) {
	loc := p.page.Locator(selector).First()
	if err := loc.WaitFor(pw.LocatorWaitForOptions{
		State:   pw.WaitForSelectorStateAttached,
		Timeout: ms(timeout),
	}); err != nil {
		return "", err
	}
	v, err := loc.Evaluate(`el => el.outerHTML`, nil)
	if err != nil {
		return "", err
	}
	html, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("unexpected outerHTML type %T", v)
	}
	return html, nil
}

func (p *playwrightPage) Screenshot(fullPage bool, timeout time.Duration) ([]byte, error) {
	return p.page.Screenshot(pw.PageScreenshotOptions{
		FullPage: pw.Bool(fullPage),
		Timeout:  ms(timeout),
	})
}
