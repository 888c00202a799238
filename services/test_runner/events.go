package main

import (
	"context"
	"fmt"
	"time"

	"agi/eventbus"
	"agi/services/test_runner/runner_pkg"
)

// Event types published for finished runs
const (
	EventRunCompleted = "testrun.completed"
	EventRunErrored   = "testrun.errored"
)

// EventPublisher is the subset of the event bus the service needs.
type EventPublisher interface {
	Publish(ctx context.Context, evt eventbus.CanonicalEvent) error
}

// eventsListener announces every finished run on the event bus.
type eventsListener struct {
	bus    EventPublisher
	logger runner_pkg.Logger
}

func newRunEvent(report *runner_pkg.TestReport, runErr error) eventbus.CanonicalEvent {
	now := time.Now()
	evtType := EventRunCompleted
	text := fmt.Sprintf("%s %s on %s (%d steps)", report.TestName, report.Status, report.BrowserType, len(report.Results))
	if runErr != nil {
		evtType = EventRunErrored
		text = fmt.Sprintf("%s errored: %v", report.TestName, runErr)
	}
	return eventbus.CanonicalEvent{
		EventID:   eventbus.NewEventID("tr_", now),
		Source:    "test-runner",
		Type:      evtType,
		Timestamp: now,
		Context:   eventbus.EventContext{Channel: "testrunner", SessionID: report.RunID},
		Payload: eventbus.EventPayload{
			Text: text,
			Metadata: map[string]interface{}{
				"runId":       report.RunID,
				"testCaseId":  report.TestCaseID,
				"testName":    report.TestName,
				"status":      report.Status,
				"state":       report.State,
				"browserType": report.BrowserType,
				"duration":    report.DurationMs,
				"steps":       len(report.Results),
			},
		},
		Security: eventbus.EventSecurity{Sensitivity: "low"},
	}
}

func (l *eventsListener) RunFinished(ctx context.Context, report *runner_pkg.TestReport, err error) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if perr := l.bus.Publish(pubCtx, newRunEvent(report, err)); perr != nil {
		l.logger.Errorf("Failed to publish run event for %s: %v", report.RunID, perr)
	}
}
