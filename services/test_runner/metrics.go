package main

import (
	"context"

	"agi/services/test_runner/runner_pkg"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "testrunner_runs_total",
		Help: "Test runs by engine and status",
	}, []string{"browser", "status"})

	metricRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "testrunner_run_duration_seconds",
		Help:    "Wall time of a test run",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"browser"})

	metricStepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "testrunner_steps_total",
		Help: "Executed steps by action and status",
	}, []string{"action", "status"})

	metricDOMFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "testrunner_dom_fetches_total",
		Help: "DOM snapshot requests by outcome",
	}, []string{"outcome"})

	metricHTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "testrunner_http_requests_total",
		Help: "HTTP requests by route and status code",
	}, []string{"route", "code"})
)

// metricsListener records every finished run.
type metricsListener struct{}

func (metricsListener) RunFinished(_ context.Context, report *runner_pkg.TestReport, _ error) {
	browser := string(report.BrowserType)
	metricRunsTotal.WithLabelValues(browser, report.Status).Inc()
	metricRunDuration.WithLabelValues(browser).Observe(float64(report.DurationMs) / 1000)
	for _, res := range report.Results {
		// Label by the closed action kind; raw names come from clients.
		kind := runner_pkg.NewStepAction(res.Action).Kind.String()
		metricStepsTotal.WithLabelValues(kind, res.Status).Inc()
	}
}
