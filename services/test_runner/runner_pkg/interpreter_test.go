package runner_pkg_test

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"agi/services/test_runner/runner_pkg"
	"agi/services/test_runner/runner_pkg/browsertest"
)

func testConfig() runner_pkg.Config {
	cfg := runner_pkg.DefaultConfig()
	cfg.DefaultWait = time.Millisecond
	cfg.DOMRetryDelay = time.Millisecond
	return cfg
}

func step(action string) runner_pkg.Step {
	return runner_pkg.Step{Action: runner_pkg.NewStepAction(action)}
}

func TestInterpreterGoto(t *testing.T) {
	page := browsertest.NewPage()
	in := runner_pkg.NewInterpreter(testConfig(), nil)

	s := step("goto")
	s.URL = "https://example.test/login"
	out, err := in.Execute(context.Background(), page, s)
	if err != nil {
		t.Fatalf("goto: %v", err)
	}
	if out["url"] != "https://example.test/login" {
		t.Fatalf("url=%v", out["url"])
	}
}

func TestInterpreterActionsAreCaseInsensitive(t *testing.T) {
	page := browsertest.NewPage()
	in := runner_pkg.NewInterpreter(testConfig(), nil)

	s := step("CLICK")
	s.Selector = "#submit"
	out, err := in.Execute(context.Background(), page, s)
	if err != nil {
		t.Fatalf("click: %v", err)
	}
	if out["selector"] != "#submit" {
		t.Fatalf("selector=%v", out["selector"])
	}
}

func TestInterpreterFillAndTypeAlias(t *testing.T) {
	page := browsertest.NewPage()
	in := runner_pkg.NewInterpreter(testConfig(), nil)

	for _, action := range []string{"fill", "type"} {
		s := step(action)
		s.Selector = "#user"
		s.Value = "bob-" + action
		out, err := in.Execute(context.Background(), page, s)
		if err != nil {
			t.Fatalf("%s: %v", action, err)
		}
		if out["value"] != s.Value || page.Value("#user") != s.Value {
			t.Fatalf("%s: out=%v page=%q", action, out, page.Value("#user"))
		}
	}
}

func TestInterpreterSelectHoverScroll(t *testing.T) {
	page := browsertest.NewPage()
	in := runner_pkg.NewInterpreter(testConfig(), nil)
	ctx := context.Background()

	sel := step("select")
	sel.Selector = "#country"
	sel.Value = "de"
	if _, err := in.Execute(ctx, page, sel); err != nil {
		t.Fatalf("select: %v", err)
	}
	if page.Value("#country") != "de" {
		t.Fatalf("selected=%q", page.Value("#country"))
	}

	hover := step("hover")
	hover.Selector = ".menu"
	if _, err := in.Execute(ctx, page, hover); err != nil {
		t.Fatalf("hover: %v", err)
	}

	if _, err := in.Execute(ctx, page, step("scroll")); err != nil {
		t.Fatalf("scroll: %v", err)
	}

	calls := strings.Join(page.Calls(), ",")
	for _, want := range []string{"select #country", "hover .menu", "scroll "} {
		if !strings.Contains(calls, want) {
			t.Errorf("missing call %q in %s", want, calls)
		}
	}
}

func TestInterpreterPressNormalizesKey(t *testing.T) {
	page := browsertest.NewPage()
	in := runner_pkg.NewInterpreter(testConfig(), nil)

	s := step("press")
	s.Key = "return"
	out, err := in.Execute(context.Background(), page, s)
	if err != nil {
		t.Fatalf("press: %v", err)
	}
	if out["key"] != "Enter" {
		t.Fatalf("key=%v", out["key"])
	}
	if page.Value("key:") != "Enter" {
		t.Fatalf("page key=%q", page.Value("key:"))
	}

	s = step("press")
	s.Selector = "#search"
	s.Value = "Tab"
	if _, err := in.Execute(context.Background(), page, s); err != nil {
		t.Fatalf("press on selector: %v", err)
	}
	if page.Value("key:#search") != "Tab" {
		t.Fatalf("selector key=%q", page.Value("key:#search"))
	}
}

func TestInterpreterWait(t *testing.T) {
	page := browsertest.NewPage()
	in := runner_pkg.NewInterpreter(testConfig(), nil)
	ctx := context.Background()

	s := step("wait")
	s.Selector = "#loaded"
	out, err := in.Execute(ctx, page, s)
	if err != nil {
		t.Fatalf("wait selector: %v", err)
	}
	if out["selector"] != "#loaded" {
		t.Fatalf("out=%v", out)
	}

	s = step("wait")
	s.Timeout = 5
	out, err = in.Execute(ctx, page, s)
	if err != nil {
		t.Fatalf("wait timeout: %v", err)
	}
	if out["waited"] != int64(5) {
		t.Fatalf("waited=%v", out["waited"])
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	s.Timeout = 60000
	if _, err := in.Execute(cancelled, page, s); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestInterpreterWaitCapsHugeTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.MaxStepTimeout = 5 * time.Millisecond
	in := runner_pkg.NewInterpreter(cfg, nil)

	s := step("wait")
	s.Timeout = 1 << 62
	out, err := in.Execute(context.Background(), browsertest.NewPage(), s)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if out["waited"] != int64(5) {
		t.Fatalf("waited=%v, want the 5ms cap", out["waited"])
	}
}

func TestInterpreterWaitForSelectorTimeout(t *testing.T) {
	page := browsertest.NewPage()
	page.Fail("waitFor", "#never", browsertest.ErrTimeout)
	in := runner_pkg.NewInterpreter(testConfig(), nil)

	s := step("wait")
	s.Selector = "#never"
	_, err := in.Execute(context.Background(), page, s)
	if !errors.Is(err, browsertest.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestInterpreterScreenshotPolicy(t *testing.T) {
	page := browsertest.NewPage()
	page.ScreenshotData = []byte(strings.Repeat("x", 300))
	full := base64.StdEncoding.EncodeToString(page.ScreenshotData)

	cfg := testConfig()
	out, err := runner_pkg.NewInterpreter(cfg, nil).Execute(context.Background(), page, step("screenshot"))
	if err != nil {
		t.Fatalf("screenshot: %v", err)
	}
	if out["screenshot"] != full {
		t.Fatalf("full policy should return the whole encoding")
	}

	cfg.ScreenshotPolicy = runner_pkg.ScreenshotPolicyTruncate
	out, err = runner_pkg.NewInterpreter(cfg, nil).Execute(context.Background(), page, step("screenshot"))
	if err != nil {
		t.Fatalf("screenshot: %v", err)
	}
	if out["screenshot"] != full[:100]+"..." {
		t.Fatalf("truncated=%v", out["screenshot"])
	}
}

func TestInterpreterUnknownAction(t *testing.T) {
	in := runner_pkg.NewInterpreter(testConfig(), nil)
	_, err := in.Execute(context.Background(), browsertest.NewPage(), step("teleport"))
	if !errors.Is(err, runner_pkg.ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
	if !strings.Contains(err.Error(), "teleport") {
		t.Fatalf("error should name the action: %v", err)
	}
}

func TestInterpreterMissingSelector(t *testing.T) {
	page := browsertest.NewPage()
	in := runner_pkg.NewInterpreter(testConfig(), nil)

	for _, action := range []string{"click", "fill", "select", "hover"} {
		_, err := in.Execute(context.Background(), page, step(action))
		if !errors.Is(err, runner_pkg.ErrMissingField) {
			t.Errorf("%s: expected ErrMissingField, got %v", action, err)
		}
	}
	if calls := page.Calls(); len(calls) != 0 {
		t.Fatalf("browser touched on invalid steps: %v", calls)
	}
}

func TestExpectToHaveText(t *testing.T) {
	page := browsertest.NewPage()
	page.Texts["h1"] = "Welcome, bob"
	in := runner_pkg.NewInterpreter(testConfig(), nil)

	s := step("expect")
	s.Assertion = runner_pkg.NewStepAssertion("toHaveText")
	s.Selector = "h1"
	s.ExpectedValue = "Welcome, bob"
	if _, err := in.Execute(context.Background(), page, s); err != nil {
		t.Fatalf("matching text: %v", err)
	}

	s.ExpectedValue = "Welcome, alice"
	_, err := in.Execute(context.Background(), page, s)
	if !errors.Is(err, runner_pkg.ErrAssertionFailed) {
		t.Fatalf("expected ErrAssertionFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "Welcome, alice") || !strings.Contains(err.Error(), "Welcome, bob") {
		t.Fatalf("error should contain expected and actual text: %v", err)
	}
}

func TestAssertToBeVisible(t *testing.T) {
	page := browsertest.NewPage()
	page.Visible["#banner"] = true
	in := runner_pkg.NewInterpreter(testConfig(), nil)

	s := step("assert")
	s.Assertion = runner_pkg.NewStepAssertion("toBeVisible")
	s.Selector = "#banner"
	if _, err := in.Execute(context.Background(), page, s); err != nil {
		t.Fatalf("visible: %v", err)
	}

	s.Selector = "#hidden"
	if _, err := in.Execute(context.Background(), page, s); !errors.Is(err, runner_pkg.ErrAssertionFailed) {
		t.Fatalf("expected ErrAssertionFailed, got %v", err)
	}
}

func TestExpectURLAndTitle(t *testing.T) {
	page := browsertest.NewPage()
	page.CurrentURL = "https://example.test/home"
	page.PageTitle = "Home"
	in := runner_pkg.NewInterpreter(testConfig(), nil)
	ctx := context.Background()

	s := step("expect")
	s.Assertion = runner_pkg.NewStepAssertion("toHaveURL")
	s.ExpectedValue = "https://example.test/home"
	if _, err := in.Execute(ctx, page, s); err != nil {
		t.Fatalf("url: %v", err)
	}
	s.ExpectedValue = "https://example.test/other"
	if _, err := in.Execute(ctx, page, s); !errors.Is(err, runner_pkg.ErrAssertionFailed) {
		t.Fatalf("url mismatch: %v", err)
	}

	s.Assertion = runner_pkg.NewStepAssertion("toHaveTitle")
	s.ExpectedValue = "Home"
	if _, err := in.Execute(ctx, page, s); err != nil {
		t.Fatalf("title: %v", err)
	}
	s.ExpectedValue = "Away"
	if _, err := in.Execute(ctx, page, s); !errors.Is(err, runner_pkg.ErrAssertionFailed) {
		t.Fatalf("title mismatch: %v", err)
	}
}

func TestExpectUnknownAssertion(t *testing.T) {
	in := runner_pkg.NewInterpreter(testConfig(), nil)
	s := step("expect")
	s.Assertion = runner_pkg.NewStepAssertion("toBeShiny")
	s.Selector = "#x"
	_, err := in.Execute(context.Background(), browsertest.NewPage(), s)
	if !errors.Is(err, runner_pkg.ErrUnknownAssertion) || !strings.Contains(err.Error(), "toBeShiny") {
		t.Fatalf("expected unknown assertion naming toBeShiny, got %v", err)
	}
}
