package runner_pkg_test

import (
	"context"
	"testing"
	"time"

	"agi/services/test_runner/runner_pkg"
	"agi/services/test_runner/runner_pkg/browsertest"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newStatsStore(t *testing.T, maxRecent int64) (*runner_pkg.StatsStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return runner_pkg.NewStatsStore(rdb, "test", time.Hour, maxRecent, nil), mr
}

func TestStatsStoreRecordAndSnapshot(t *testing.T) {
	store, mr := newStatsStore(t, 10)
	ctx := context.Background()

	for _, status := range []string{runner_pkg.StatusPassed, runner_pkg.StatusFailed, runner_pkg.StatusError, runner_pkg.StatusPassed} {
		report := &runner_pkg.TestReport{RunID: "run-" + status, TestName: "t", Status: status}
		if err := store.Record(ctx, report); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	stats, err := store.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !stats.Enabled || stats.Total != 4 || stats.Passed != 2 || stats.Failed != 1 || stats.Errored != 1 {
		t.Fatalf("stats=%+v", stats)
	}
	if len(stats.Recent) != 4 || stats.Recent[0].RunID != "run-passed" {
		t.Fatalf("recent=%+v", stats.Recent)
	}
	if ttl := mr.TTL("test:runs:recent"); ttl <= 0 {
		t.Fatalf("recent list should expire, ttl=%v", ttl)
	}
}

func TestStatsStoreCapsRecent(t *testing.T) {
	store, _ := newStatsStore(t, 2)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		store.RunFinished(ctx, &runner_pkg.TestReport{RunID: id, Status: runner_pkg.StatusPassed}, nil)
	}
	stats, err := store.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if stats.Total != 3 || len(stats.Recent) != 2 || stats.Recent[0].RunID != "c" || stats.Recent[1].RunID != "b" {
		t.Fatalf("stats=%+v", stats)
	}
}

func TestStatsStoreAsRunListener(t *testing.T) {
	store, _ := newStatsStore(t, 5)
	exec := runner_pkg.NewExecutor(browsertest.NewLauncher(), testConfig(), nil, store)

	if _, err := exec.Run(context.Background(), &runner_pkg.TestCase{Name: "empty"}, ""); err != nil {
		t.Fatalf("run: %v", err)
	}
	stats, err := store.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if stats.Passed != 1 || stats.Recent[0].TestName != "empty" {
		t.Fatalf("stats=%+v", stats)
	}
}

func TestStatsStoreEmptySnapshot(t *testing.T) {
	store, _ := newStatsStore(t, 5)
	stats, err := store.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if stats.Total != 0 || len(stats.Recent) != 0 {
		t.Fatalf("stats=%+v", stats)
	}
}
