package runner_pkg

import "time"

// Page is the subset of browser page operations the interpreter and the DOM
// retriever drive. Every blocking call takes an explicit timeout.
type Page interface {
	Goto(url string, timeout time.Duration) error
	URL() string
	Title() (string, error)
	Content() (string, error)

	Click(selector string, timeout time.Duration) error
	Fill(selector, value string, timeout time.Duration) error
	SelectOption(selector, value string, timeout time.Duration) error
	Hover(selector string, timeout time.Duration) error
	// Press sends key to selector, or to the page keyboard when selector is empty.
	Press(selector, key string, timeout time.Duration) error
	ScrollToBottom() error

	WaitForSelector(selector string, timeout time.Duration) error
	WaitForNetworkIdle(timeout time.Duration) error

	TextContent(selector string, timeout time.Duration) (string, error)
	// IsVisible waits up to timeout for selector to become visible.
	IsVisible(selector string, timeout time.Duration) (bool, error)
	OuterHTML(selector string, timeout time.Duration) (string, error)
	Screenshot(fullPage bool, timeout time.Duration) ([]byte, error)
}

// PageOptions configures a new page and its browsing context.
type PageOptions struct {
	Viewport          Viewport
	IgnoreHTTPSErrors bool
}

// Browser is one launched browser instance, owned by a single request.
type Browser interface {
	NewPage(opts PageOptions) (Page, error)
	Close() error
}

// Launcher provisions browser instances.
type Launcher interface {
	Launch(engine Engine) (Browser, error)
}

// releaseBrowser closes b, logging rather than returning a close failure.
func releaseBrowser(b Browser, logger Logger) {
	if b == nil {
		return
	}
	if err := b.Close(); err != nil {
		logger.Errorf("Failed to close browser: %v", err)
	}
}
