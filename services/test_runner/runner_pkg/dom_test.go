package runner_pkg_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"agi/services/test_runner/runner_pkg"
	"agi/services/test_runner/runner_pkg/browsertest"
)

const dashboardSelector = "#dashboard, [data-testid='dashboard'], .dashboard"

func TestResolveSelector(t *testing.T) {
	cases := map[string]string{
		"https://app.test/dashboard?tab=1": dashboardSelector,
		"https://app.test/login":           "form",
		"https://app.test/about":           "body",
	}
	for url, want := range cases {
		if got := runner_pkg.ResolveSelector(runner_pkg.DefaultSelectorRules, url).Selector; got != want {
			t.Errorf("%s: got %q want %q", url, got, want)
		}
	}
}

func TestResolveSelectorFirstMatchWins(t *testing.T) {
	rules := []runner_pkg.SelectorRule{
		{Keyword: "/admin", Selector: "#admin"},
		{Keyword: "/dashboard", Selector: "#dash"},
	}
	if got := runner_pkg.ResolveSelector(rules, "https://x.test/admin/dashboard").Selector; got != "#admin" {
		t.Fatalf("got %q", got)
	}
}

func TestFetchDashboardSnapshot(t *testing.T) {
	launcher := browsertest.NewLauncher()
	launcher.Page.Fragments[dashboardSelector] = `<div id="dashboard">hi</div>`
	d := runner_pkg.NewDOMRetriever(launcher, testConfig(), nil, nil)

	snap, err := d.Fetch(context.Background(), "https://app.test/dashboard", false)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if snap.SelectorUsed != dashboardSelector || snap.HTML != `<div id="dashboard">hi</div>` {
		t.Fatalf("snapshot: %+v", snap)
	}
	b := launcher.Browsers()[0]
	if b.Closes() != 1 {
		t.Fatalf("browser must close once")
	}
	if !b.PageOptions()[0].IgnoreHTTPSErrors {
		t.Fatalf("DOM pages should ignore certificate errors")
	}
}

func TestFetchDefaultsToBody(t *testing.T) {
	launcher := browsertest.NewLauncher()
	launcher.Page.Fragments["body"] = "<body>x</body>"
	d := runner_pkg.NewDOMRetriever(launcher, testConfig(), nil, nil)

	snap, err := d.Fetch(context.Background(), "https://app.test/about", false)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if snap.SelectorUsed != "body" || snap.HTML != "<body>x</body>" {
		t.Fatalf("snapshot: %+v", snap)
	}
}

func TestFetchRetriesTransientFailure(t *testing.T) {
	launcher := browsertest.NewLauncher()
	launcher.Page.Fragments["body"] = "<body>late</body>"
	launcher.Page.OuterHTMLFailures = 2
	d := runner_pkg.NewDOMRetriever(launcher, testConfig(), nil, nil)

	snap, err := d.Fetch(context.Background(), "https://app.test/slow", false)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if snap.HTML != "<body>late</body>" {
		t.Fatalf("html=%q", snap.HTML)
	}
}

func TestFetchExhaustsRetries(t *testing.T) {
	launcher := browsertest.NewLauncher()
	launcher.Page.Fail("networkidle", "", browsertest.ErrTimeout)
	d := runner_pkg.NewDOMRetriever(launcher, testConfig(), nil, nil)

	_, err := d.Fetch(context.Background(), "https://app.test/dashboard", false)
	if !errors.Is(err, runner_pkg.ErrSelectorNotFound) {
		t.Fatalf("expected ErrSelectorNotFound, got %v", err)
	}
	trace := runner_pkg.TraceOf(err)
	// Each of the 3 attempts records a network-idle entry and an extraction entry.
	if len(trace) != 6 {
		t.Fatalf("trace=%v", trace)
	}
	outer := 0
	for _, c := range launcher.Page.Calls() {
		if c == "outerHTML "+dashboardSelector {
			outer++
		}
	}
	if outer != 3 {
		t.Fatalf("expected 3 extraction attempts, got %d", outer)
	}
	if launcher.Browsers()[0].Closes() != 1 {
		t.Fatalf("browser must close once after exhaustion")
	}
}

func TestFetchFullDocument(t *testing.T) {
	launcher := browsertest.NewLauncher()
	launcher.Page.Document = "<html><body>all</body></html>"
	d := runner_pkg.NewDOMRetriever(launcher, testConfig(), nil, nil)

	snap, err := d.Fetch(context.Background(), "https://app.test/dashboard", true)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if snap.HTML != launcher.Page.Document || snap.SelectorUsed != "" {
		t.Fatalf("snapshot: %+v", snap)
	}
}

func TestFetchNavigationFailure(t *testing.T) {
	launcher := browsertest.NewLauncher()
	launcher.Page.Fail("goto", "", errors.New("net::ERR_NAME_NOT_RESOLVED"))
	d := runner_pkg.NewDOMRetriever(launcher, testConfig(), nil, nil)

	_, err := d.Fetch(context.Background(), "https://nowhere.test/", false)
	var re *runner_pkg.ResourceError
	if !errors.As(err, &re) || re.Op != "navigate" {
		t.Fatalf("expected navigate ResourceError, got %v", err)
	}
	if launcher.Browsers()[0].Closes() != 1 {
		t.Fatalf("browser must close once")
	}
}

func TestFetchRejectsBadURL(t *testing.T) {
	launcher := browsertest.NewLauncher()
	d := runner_pkg.NewDOMRetriever(launcher, testConfig(), nil, nil)

	for _, u := range []string{"", "not a url", "ftp://files.test/x", "/relative"} {
		if _, err := d.Fetch(context.Background(), u, false); !runner_pkg.IsValidationError(err) {
			t.Errorf("%q: expected validation error, got %v", u, err)
		}
	}
	if launcher.Launches() != 0 {
		t.Fatalf("no browser should launch for invalid urls")
	}
}

func TestLoadSelectorRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := "rules:\n  - keyword: /reports\n    selector: \"#report-table\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	rules, err := runner_pkg.LoadSelectorRules(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rules) != 1 || rules[0].Selector != "#report-table" {
		t.Fatalf("rules=%+v", rules)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("rules:\n  - keyword: /x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := runner_pkg.LoadSelectorRules(bad); err == nil {
		t.Fatalf("expected error for rule without selector")
	}
}
