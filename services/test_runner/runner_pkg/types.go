// Package runner_pkg executes declarative browser test cases and retrieves DOM
// snapshots using Playwright.
package runner_pkg

import "fmt"

// Status values shared by step results and reports
const (
	StatusPassed = "passed"
	StatusFailed = "failed"
	StatusError  = "error"
)

// Run states, logged and reported alongside the verdict
const (
	RunStateCompleted = "completed"
	RunStateAborted   = "aborted-on-failure"
	RunStateErrored   = "errored"
)

// DefaultTestName is used when a test case arrives without a name
const DefaultTestName = "Unnamed Test"

// TestCase is a named, ordered sequence of steps.
type TestCase struct {
	ID    interface{} `json:"id,omitempty" yaml:"id,omitempty"`
	Name  string      `json:"name,omitempty" yaml:"name,omitempty"`
	Steps []Step      `json:"steps" yaml:"steps"`
}

// DisplayName returns the test name, falling back to DefaultTestName.
func (tc *TestCase) DisplayName() string {
	if tc.Name == "" {
		return DefaultTestName
	}
	return tc.Name
}

// Step is a single declarative browser action or assertion.
type Step struct {
	Action              StepAction    `json:"action" yaml:"action"`
	Description         string        `json:"description,omitempty" yaml:"description,omitempty"`
	URL                 string        `json:"url,omitempty" yaml:"url,omitempty"`
	Selector            string        `json:"selector,omitempty" yaml:"selector,omitempty"`
	Value               string        `json:"value,omitempty" yaml:"value,omitempty"`
	Key                 string        `json:"key,omitempty" yaml:"key,omitempty"`
	Timeout             int           `json:"timeout,omitempty" yaml:"timeout,omitempty"` // milliseconds
	Assertion           StepAssertion `json:"assertion,omitempty" yaml:"assertion,omitempty"`
	ExpectedValue       string        `json:"expectedValue,omitempty" yaml:"expectedValue,omitempty"`
	ContinueOnFail      *bool         `json:"continueOnFail,omitempty" yaml:"continueOnFail,omitempty"`
	ScreenshotOnFailure *bool         `json:"screenshotOnFailure,omitempty" yaml:"screenshotOnFailure,omitempty"`
	FullPage            bool          `json:"fullPage,omitempty" yaml:"fullPage,omitempty"`
}

// Label is the human readable name of the step at index i.
func (s Step) Label(i int) string {
	if s.Description != "" {
		return s.Description
	}
	return fmt.Sprintf("Step %d", i+1)
}

// ContinuesOnFail is true only when the flag was explicitly set to true.
func (s Step) ContinuesOnFail() bool {
	return s.ContinueOnFail != nil && *s.ContinueOnFail
}

// WantsFailureScreenshot is true unless the flag was explicitly set to false.
func (s Step) WantsFailureScreenshot() bool {
	return s.ScreenshotOnFailure == nil || *s.ScreenshotOnFailure
}

// Outcome describes what a successful step did.
type Outcome map[string]interface{}

// StepResult is the recorded result of one step.
type StepResult struct {
	StepIndex   int     `json:"stepIndex"`
	Description string  `json:"description"`
	Action      string  `json:"action"`
	Status      string  `json:"status"`
	Result      Outcome `json:"result,omitempty"`
	Error       string  `json:"error,omitempty"`
	Screenshot  string  `json:"screenshot,omitempty"`
	DurationMs  int64   `json:"duration"`
}

// TestReport is the aggregate result of running a test case.
type TestReport struct {
	RunID       string       `json:"runId"`
	TestCaseID  interface{}  `json:"testCaseId"`
	TestName    string       `json:"testName"`
	Status      string       `json:"status"`
	State       string       `json:"state,omitempty"`
	BrowserType Engine       `json:"browserType,omitempty"`
	DurationMs  int64        `json:"duration"`
	Results     []StepResult `json:"results"`
	Error       string       `json:"error,omitempty"`
	Timestamp   string       `json:"timestamp"`
}

// Passed reports whether every recorded step passed.
func (r *TestReport) Passed() bool {
	for _, res := range r.Results {
		if res.Status != StatusPassed {
			return false
		}
	}
	return true
}

// BatchReport tallies a sequential batch of test cases.
type BatchReport struct {
	BatchID     string        `json:"batchId"`
	BatchStatus string        `json:"batchStatus"`
	TotalTests  int           `json:"totalTests"`
	Passed      int           `json:"passed"`
	Failed      int           `json:"failed"`
	Results     []*TestReport `json:"results"`
}

// DomSnapshot is the HTML extracted from a page.
type DomSnapshot struct {
	URL          string `json:"url"`
	SelectorUsed string `json:"selectorUsed,omitempty"`
	HTML         string `json:"html"`
}
