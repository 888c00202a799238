package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"agi/services/test_runner/runner_pkg"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodyBytes bounds request bodies for the JSON endpoints.
const maxBodyBytes = 10 << 20

// StatsReader serves /stats. It is nil when Redis is not configured.
type StatsReader interface {
	Snapshot(ctx context.Context) (*runner_pkg.RunStats, error)
}

// TestRunnerService wires the runner components to HTTP.
type TestRunnerService struct {
	executor    *runner_pkg.Executor
	dom         *runner_pkg.DOMRetriever
	stats       StatsReader
	environment string
	logger      runner_pkg.Logger
	router      *mux.Router
	handler     http.Handler
}

type executeTestRequest struct {
	TestCase    *runner_pkg.TestCase `json:"testCase"`
	BrowserType string               `json:"browserType,omitempty"`
}

type executeBatchRequest struct {
	TestCases   []*runner_pkg.TestCase `json:"testCases"`
	BrowserType string                 `json:"browserType,omitempty"`
}

func NewTestRunnerService(executor *runner_pkg.Executor, dom *runner_pkg.DOMRetriever, stats StatsReader, environment string, logger runner_pkg.Logger) *TestRunnerService {
	if logger == nil {
		logger = runner_pkg.NopLogger{}
	}
	s := &TestRunnerService{
		executor:    executor,
		dom:         dom,
		stats:       stats,
		environment: environment,
		logger:      logger,
		router:      mux.NewRouter(),
	}
	s.setupRoutes()
	// CORS wraps the router so unmatched routes and preflights get headers too.
	s.handler = corsMiddleware(s.router)
	return s
}

func (s *TestRunnerService) setupRoutes() {
	s.router.Use(recoverMiddleware(s.logger), metricsMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET", "OPTIONS")
	s.router.HandleFunc("/execute-test", s.handleExecuteTest).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/get-dom", s.handleGetDOM).Methods("GET", "OPTIONS")
	s.router.HandleFunc("/execute-batch", s.handleExecuteBatch).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/stats", s.handleStats).Methods("GET", "OPTIONS")
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
}

func (s *TestRunnerService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *TestRunnerService) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"environment": s.environment,
	})
}

func (s *TestRunnerService) handleExecuteTest(w http.ResponseWriter, r *http.Request) {
	var req executeTestRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err.Error(), nil)
		return
	}
	if req.TestCase == nil {
		writeErrorResponse(w, http.StatusBadRequest, "Test case is required", "", nil)
		return
	}

	engine, err := s.executor.ResolveEngine(req.BrowserType)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid browser type", err.Error(), nil)
		return
	}

	report, err := s.executor.Run(r.Context(), req.TestCase, engine)
	if err != nil {
		if runner_pkg.IsValidationError(err) {
			writeErrorResponse(w, http.StatusBadRequest, "Invalid test case", err.Error(), nil)
			return
		}
		writeErrorResponse(w, http.StatusInternalServerError, "Test execution failed", err.Error(), nil)
		return
	}
	writeJSONResponse(w, http.StatusOK, report)
}

func (s *TestRunnerService) handleGetDOM(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	full, _ := strconv.ParseBool(r.URL.Query().Get("full"))

	snap, err := s.dom.Fetch(r.Context(), rawURL, full)
	if err != nil {
		if runner_pkg.IsValidationError(err) {
			metricDOMFetches.WithLabelValues("invalid").Inc()
			writeErrorResponse(w, http.StatusBadRequest, "Invalid url", err.Error(), nil)
			return
		}
		metricDOMFetches.WithLabelValues("error").Inc()
		s.logger.Errorf("DOM retrieval for %s failed: %v", rawURL, err)
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve DOM", err.Error(), runner_pkg.TraceOf(err))
		return
	}
	metricDOMFetches.WithLabelValues("ok").Inc()
	writeJSONResponse(w, http.StatusOK, snap)
}

func (s *TestRunnerService) handleExecuteBatch(w http.ResponseWriter, r *http.Request) {
	var req executeBatchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err.Error(), nil)
		return
	}
	if req.TestCases == nil {
		writeErrorResponse(w, http.StatusBadRequest, "Test cases are required", "", nil)
		return
	}

	engine, err := s.executor.ResolveEngine(req.BrowserType)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid browser type", err.Error(), nil)
		return
	}
	writeJSONResponse(w, http.StatusOK, s.executor.RunBatch(r.Context(), req.TestCases, engine))
}

func (s *TestRunnerService) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeJSONResponse(w, http.StatusOK, &runner_pkg.RunStats{Recent: []runner_pkg.RunSummary{}})
		return
	}
	stats, err := s.stats.Snapshot(r.Context())
	if err != nil {
		writeErrorResponse(w, http.StatusServiceUnavailable, "Stats unavailable", err.Error(), nil)
		return
	}
	writeJSONResponse(w, http.StatusOK, stats)
}

func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeErrorResponse writes {error, message, trace}. Empty message and trace
// are omitted.
func writeErrorResponse(w http.ResponseWriter, statusCode int, errMsg, message string, trace []string) {
	body := map[string]interface{}{"error": errMsg}
	if message != "" {
		body["message"] = message
	}
	if len(trace) > 0 {
		body["trace"] = trace
	}
	writeJSONResponse(w, statusCode, body)
}
