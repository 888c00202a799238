package runner_pkg

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RunSummary is the compact form of a report kept in the recent-runs list.
type RunSummary struct {
	RunID       string `json:"runId"`
	TestName    string `json:"testName"`
	Status      string `json:"status"`
	State       string `json:"state"`
	BrowserType Engine `json:"browserType"`
	Steps       int    `json:"steps"`
	DurationMs  int64  `json:"duration"`
	Timestamp   string `json:"timestamp"`
}

// RunStats is returned by /stats.
type RunStats struct {
	Enabled bool         `json:"enabled"`
	Total   int64        `json:"total"`
	Passed  int64        `json:"passed"`
	Failed  int64        `json:"failed"`
	Errored int64        `json:"errored"`
	Recent  []RunSummary `json:"recent"`
}

// StatsStore keeps run counters and a capped, expiring list of recent run
// summaries in Redis. Test cases and full reports are never stored.
type StatsStore struct {
	rdb       *redis.Client
	prefix    string
	ttl       time.Duration
	maxRecent int64
	logger    Logger
}

func NewStatsStore(rdb *redis.Client, prefix string, ttl time.Duration, maxRecent int64, logger Logger) *StatsStore {
	if prefix == "" {
		prefix = "testrunner"
	}
	if maxRecent <= 0 {
		maxRecent = 50
	}
	if logger == nil {
		logger = NopLogger{}
	}
	return &StatsStore{rdb: rdb, prefix: prefix, ttl: ttl, maxRecent: maxRecent, logger: logger}
}

func (s *StatsStore) key(name string) string {
	return fmt.Sprintf("%s:%s", s.prefix, name)
}

// Record updates the counters and pushes a summary of report.
func (s *StatsStore) Record(ctx context.Context, report *TestReport) error {
	summary := RunSummary{
		RunID:       report.RunID,
		TestName:    report.TestName,
		Status:      report.Status,
		State:       report.State,
		BrowserType: report.BrowserType,
		Steps:       len(report.Results),
		DurationMs:  report.DurationMs,
		Timestamp:   report.Timestamp,
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	counter := "failed"
	switch report.Status {
	case StatusPassed:
		counter = "passed"
	case StatusError:
		counter = "errored"
	}

	pipe := s.rdb.TxPipeline()
	pipe.Incr(ctx, s.key("runs:total"))
	pipe.Incr(ctx, s.key("runs:"+counter))
	pipe.LPush(ctx, s.key("runs:recent"), data)
	pipe.LTrim(ctx, s.key("runs:recent"), 0, s.maxRecent-1)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key("runs:recent"), s.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// RunFinished implements RunListener. Store errors are logged only.
func (s *StatsStore) RunFinished(ctx context.Context, report *TestReport, _ error) {
	// The request context may already be cancelled once the client is gone.
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.Record(storeCtx, report); err != nil {
		s.logger.Errorf("Failed to record run %s in Redis: %v", report.RunID, err)
	}
}

// Snapshot reads the counters and recent summaries.
func (s *StatsStore) Snapshot(ctx context.Context) (*RunStats, error) {
	stats := &RunStats{Enabled: true, Recent: []RunSummary{}}

	vals, err := s.rdb.MGet(ctx,
		s.key("runs:total"), s.key("runs:passed"), s.key("runs:failed"), s.key("runs:errored"),
	).Result()
	if err != nil {
		return nil, err
	}
	counts := make([]int64, len(vals))
	for i, v := range vals {
		if str, ok := v.(string); ok {
			fmt.Sscanf(str, "%d", &counts[i])
		}
	}
	stats.Total, stats.Passed, stats.Failed, stats.Errored = counts[0], counts[1], counts[2], counts[3]

	items, err := s.rdb.LRange(ctx, s.key("runs:recent"), 0, s.maxRecent-1).Result()
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		var summary RunSummary
		if err := json.Unmarshal([]byte(item), &summary); err != nil {
			s.logger.Errorf("Skipping malformed run summary: %v", err)
			continue
		}
		stats.Recent = append(stats.Recent, summary)
	}
	return stats, nil
}
