package runner_pkg

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunListener is notified once per finished run. err is non-nil when the run
// errored before or outside step iteration; report is always populated.
type RunListener interface {
	RunFinished(ctx context.Context, report *TestReport, err error)
}

// Executor runs test cases on a freshly launched browser per run.
type Executor struct {
	launcher    Launcher
	interpreter *Interpreter
	cfg         Config
	logger      Logger
	listeners   []RunListener
}

// NewExecutor creates an executor. Listeners are called synchronously after
// each run, in order.
func NewExecutor(launcher Launcher, cfg Config, logger Logger, listeners ...RunListener) *Executor {
	if logger == nil {
		logger = NopLogger{}
	}
	return &Executor{
		launcher:    launcher,
		interpreter: NewInterpreter(cfg, logger),
		cfg:         cfg,
		logger:      logger,
		listeners:   listeners,
	}
}

// ResolveEngine maps a client supplied browserType onto an Engine. Empty
// selects the configured default; unknown names fall back to the default
// unless StrictEngine is set.
func (e *Executor) ResolveEngine(name string) (Engine, error) {
	if name == "" {
		return e.cfg.DefaultEngine, nil
	}
	if engine, ok := ParseEngine(name); ok {
		return engine, nil
	}
	if e.cfg.StrictEngine {
		return "", &ValidationError{Field: "browserType", Message: fmt.Sprintf("unsupported browser type %q", name)}
	}
	e.logger.Printf("⚠️ Unknown browserType %q, falling back to %s", name, e.cfg.DefaultEngine)
	return e.cfg.DefaultEngine, nil
}

// Run executes tc on a new browser of the given engine. Step failures are
// recorded in the report; only validation and resource failures are returned
// as errors. The browser is closed exactly once on every path.
func (e *Executor) Run(ctx context.Context, tc *TestCase, engine Engine) (*TestReport, error) {
	if tc == nil {
		return nil, &ValidationError{Field: "testCase", Message: "testCase is required"}
	}
	if engine == "" {
		engine = e.cfg.DefaultEngine
	}

	start := time.Now()
	report := &TestReport{
		RunID:       uuid.New().String(),
		TestCaseID:  tc.ID,
		TestName:    tc.DisplayName(),
		BrowserType: engine,
		Results:     []StepResult{},
	}
	e.logger.Printf("🧪 Running %q (%d steps) on %s [run %s]", report.TestName, len(tc.Steps), engine, report.RunID)

	err := e.runOnBrowser(ctx, tc, engine, report)

	report.DurationMs = time.Since(start).Milliseconds()
	report.Timestamp = time.Now().UTC().Format(time.RFC3339)
	if err != nil {
		report.Status = StatusError
		report.State = RunStateErrored
		report.Error = err.Error()
		e.logger.Errorf("Run %s errored after %dms: %v", report.RunID, report.DurationMs, err)
	} else {
		report.Status = StatusFailed
		if report.Passed() {
			report.Status = StatusPassed
		}
		e.logger.Printf("🏁 Run %s %s (%s) in %dms", report.RunID, report.Status, report.State, report.DurationMs)
	}

	for _, l := range e.listeners {
		l.RunFinished(ctx, report, err)
	}
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (e *Executor) runOnBrowser(ctx context.Context, tc *TestCase, engine Engine, report *TestReport) error {
	browser, err := e.launcher.Launch(engine)
	if err != nil {
		return &ResourceError{Op: "launch browser", Err: err}
	}
	defer releaseBrowser(browser, e.logger)

	page, err := browser.NewPage(PageOptions{Viewport: e.cfg.Viewport})
	if err != nil {
		return &ResourceError{Op: "open page", Err: err}
	}
	return e.runSteps(ctx, page, tc.Steps, report)
}

// runSteps iterates steps in order, stopping at the first failure unless the
// step opted into continueOnFail. A panic during iteration is converted into
// an error after the deferred browser release has been scheduled.
func (e *Executor) runSteps(ctx context.Context, page Page, steps []Step, report *TestReport) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic during step %d: %v", ErrUnexpected, len(report.Results), r)
		}
	}()

	report.State = RunStateCompleted
	for i, step := range steps {
		e.logger.Printf("  [%d/%d] %s", i+1, len(steps), step.Action)
		result := e.runStep(ctx, page, i, step)
		report.Results = append(report.Results, result)

		if result.Status == StatusFailed && !step.ContinuesOnFail() {
			e.logger.Printf("   ⛔ Stopping after failed step %d", i+1)
			report.State = RunStateAborted
			break
		}
	}
	return nil
}

func (e *Executor) runStep(ctx context.Context, page Page, i int, step Step) StepResult {
	start := time.Now()
	result := StepResult{
		StepIndex:   i,
		Description: step.Label(i),
		Action:      step.Action.String(),
	}

	outcome, err := e.interpreter.Execute(ctx, page, step)
	result.DurationMs = time.Since(start).Milliseconds()
	if err == nil {
		result.Status = StatusPassed
		result.Result = outcome
		return result
	}

	stepErr := &StepError{Index: i, Action: step.Action.String(), Err: err}
	result.Status = StatusFailed
	result.Error = stepErr.Error()
	e.logger.Printf("   ⚠️ Step %d (%s) failed: %v", stepErr.Index+1, stepErr.Action, stepErr)

	if step.WantsFailureScreenshot() {
		shot, serr := e.interpreter.Screenshot(page, false)
		if serr != nil {
			e.logger.Errorf("Failure screenshot for step %d: %v", i+1, serr)
		} else {
			result.Screenshot = shot
		}
	}
	return result
}

// RunBatch runs cases one after another. A run that errors, including a nil
// entry, is recorded with status "error" instead of aborting the batch.
func (e *Executor) RunBatch(ctx context.Context, cases []*TestCase, engine Engine) *BatchReport {
	batch := &BatchReport{
		BatchID:    uuid.New().String(),
		TotalTests: len(cases),
		Results:    make([]*TestReport, 0, len(cases)),
	}
	e.logger.Printf("📦 Batch %s: %d test cases on %s", batch.BatchID, len(cases), engine)

	for _, tc := range cases {
		report, err := e.Run(ctx, tc, engine)
		if err != nil {
			var id interface{}
			name := DefaultTestName
			if tc != nil {
				id, name = tc.ID, tc.DisplayName()
			}
			report = &TestReport{
				TestCaseID:  id,
				TestName:    name,
				Status:      StatusError,
				State:       RunStateErrored,
				BrowserType: engine,
				Results:     []StepResult{},
				Error:       err.Error(),
				Timestamp:   time.Now().UTC().Format(time.RFC3339),
			}
		}
		if report.Status == StatusPassed {
			batch.Passed++
		} else {
			batch.Failed++
		}
		batch.Results = append(batch.Results, report)
	}

	batch.BatchStatus = StatusPassed
	if batch.Failed > 0 {
		batch.BatchStatus = StatusFailed
	}
	e.logger.Printf("📦 Batch %s %s: %d passed, %d failed", batch.BatchID, batch.BatchStatus, batch.Passed, batch.Failed)
	return batch
}
