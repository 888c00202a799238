// Package browsertest provides in-memory doubles of the runner_pkg browser
// interfaces for tests.
package browsertest

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"agi/services/test_runner/runner_pkg"
)

// ErrTimeout mimics a browser operation timing out.
var ErrTimeout = errors.New("timeout exceeded")

// Launcher hands out Browsers that all share Page.
type Launcher struct {
	Page       *Page
	LaunchErr  error
	NewPageErr error
	CloseErr   error

	mu       sync.Mutex
	browsers []*Browser
	engines  []runner_pkg.Engine
}

// NewLauncher returns a launcher serving a fresh Page.
func NewLauncher() *Launcher {
	return &Launcher{Page: NewPage()}
}

func (l *Launcher) Launch(engine runner_pkg.Engine) (runner_pkg.Browser, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.engines = append(l.engines, engine)
	if l.LaunchErr != nil {
		return nil, l.LaunchErr
	}
	b := &Browser{page: l.Page, newPageErr: l.NewPageErr, closeErr: l.CloseErr}
	l.browsers = append(l.browsers, b)
	return b, nil
}

// Launches returns how many times Launch was called.
func (l *Launcher) Launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.engines)
}

// Engines returns the engines requested so far, in order.
func (l *Launcher) Engines() []runner_pkg.Engine {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]runner_pkg.Engine(nil), l.engines...)
}

// Browsers returns every browser handed out.
func (l *Launcher) Browsers() []*Browser {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Browser(nil), l.browsers...)
}

// Browser counts Close calls.
type Browser struct {
	page       *Page
	newPageErr error
	closeErr   error

	mu          sync.Mutex
	closes      int
	pageOptions []runner_pkg.PageOptions
}

func (b *Browser) NewPage(opts runner_pkg.PageOptions) (runner_pkg.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pageOptions = append(b.pageOptions, opts)
	if b.newPageErr != nil {
		return nil, b.newPageErr
	}
	return b.page, nil
}

func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closes++
	return b.closeErr
}

// Closes returns how many times Close was called.
func (b *Browser) Closes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closes
}

// PageOptions returns the options passed to NewPage.
func (b *Browser) PageOptions() []runner_pkg.PageOptions {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]runner_pkg.PageOptions(nil), b.pageOptions...)
}

// Page is a scripted page. Operations succeed unless a failure was
// registered with Fail; text, visibility and fragments come from the maps.
type Page struct {
	CurrentURL     string
	PageTitle      string
	Document       string
	Texts          map[string]string
	Visible        map[string]bool
	Fragments      map[string]string
	ScreenshotData []byte
	// OuterHTMLFailures makes the first n OuterHTML calls fail.
	OuterHTMLFailures int
	// PanicOn makes the named operation panic.
	PanicOn string

	mu       sync.Mutex
	failures map[string]error
	values   map[string]string
	calls    []string
	outerN   int
}

func NewPage() *Page {
	return &Page{
		CurrentURL:     "about:blank",
		Texts:          map[string]string{},
		Visible:        map[string]bool{},
		Fragments:      map[string]string{},
		ScreenshotData: []byte("fake-png-bytes"),
		failures:       map[string]error{},
		values:         map[string]string{},
	}
}

// Fail makes op on selector return err. Use an empty selector for
// page-level operations such as "goto", "screenshot" or "scroll".
func (p *Page) Fail(op, selector string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[op+" "+selector] = err
}

// Calls lists every operation in order as "op selector".
func (p *Page) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// Value returns what was filled or selected into selector.
func (p *Page) Value(selector string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.values[selector]
}

func (p *Page) record(op, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := op + " " + selector
	p.calls = append(p.calls, key)
	if p.PanicOn == op {
		panic(fmt.Sprintf("browsertest: panic on %s", op))
	}
	return p.failures[key]
}

func (p *Page) Goto(url string, _ time.Duration) error {
	if err := p.record("goto", ""); err != nil {
		return err
	}
	p.mu.Lock()
	p.CurrentURL = url
	p.mu.Unlock()
	return nil
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.CurrentURL
}

func (p *Page) Title() (string, error) {
	if err := p.record("title", ""); err != nil {
		return "", err
	}
	return p.PageTitle, nil
}

func (p *Page) Content() (string, error) {
	if err := p.record("content", ""); err != nil {
		return "", err
	}
	return p.Document, nil
}

func (p *Page) Click(selector string, _ time.Duration) error {
	return p.record("click", selector)
}

func (p *Page) Fill(selector, value string, _ time.Duration) error {
	if err := p.record("fill", selector); err != nil {
		return err
	}
	p.mu.Lock()
	p.values[selector] = value
	p.mu.Unlock()
	return nil
}

func (p *Page) SelectOption(selector, value string, _ time.Duration) error {
	if err := p.record("select", selector); err != nil {
		return err
	}
	p.mu.Lock()
	p.values[selector] = value
	p.mu.Unlock()
	return nil
}

func (p *Page) Hover(selector string, _ time.Duration) error {
	return p.record("hover", selector)
}

func (p *Page) Press(selector, key string, _ time.Duration) error {
	if err := p.record("press", selector); err != nil {
		return err
	}
	p.mu.Lock()
	p.values["key:"+selector] = key
	p.mu.Unlock()
	return nil
}

func (p *Page) ScrollToBottom() error {
	return p.record("scroll", "")
}

func (p *Page) WaitForSelector(selector string, _ time.Duration) error {
	return p.record("waitFor", selector)
}

func (p *Page) WaitForNetworkIdle(_ time.Duration) error {
	return p.record("networkidle", "")
}

func (p *Page) TextContent(selector string, _ time.Duration) (string, error) {
	if err := p.record("text", selector); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	text, ok := p.Texts[selector]
	if !ok {
		return "", fmt.Errorf("%w: waiting for locator(%q)", ErrTimeout, selector)
	}
	return text, nil
}

func (p *Page) IsVisible(selector string, _ time.Duration) (bool, error) {
	if err := p.record("visible", selector); err != nil {
		return false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Visible[selector], nil
}

func (p *Page) OuterHTML(selector string, _ time.Duration) (string, error) {
	if err := p.record("outerHTML", selector); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outerN++
	if p.outerN <= p.OuterHTMLFailures {
		return "", fmt.Errorf("%w: waiting for locator(%q)", ErrTimeout, selector)
	}
	html, ok := p.Fragments[selector]
	if !ok {
		return "", fmt.Errorf("%w: waiting for locator(%q)", ErrTimeout, selector)
	}
	return html, nil
}

func (p *Page) Screenshot(_ bool, _ time.Duration) ([]byte, error) {
	if err := p.record("screenshot", ""); err != nil {
		return nil, err
	}
	return p.ScreenshotData, nil
}
