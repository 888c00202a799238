// Test Runner Service
// Copyright (c) 2026 Steven Fisher
//
// This software is licensed for non-commercial use only.
// Commercial use requires a separate license.
// See LICENSE file for full terms.

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agi/eventbus"
	"agi/services/test_runner/runner_pkg"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := loadEnvFile(); err != nil {
		log.Printf("ℹ️  [ENV] %v, using process environment", err)
	}

	logger := &runner_pkg.ServiceLogger{}
	cfg := loadServiceConfig(logger)

	if err := runner_pkg.InstallDriver(cfg.browsersToInstall(), logger); err != nil {
		log.Printf("⚠️  Playwright installation warning: %v (continuing anyway)", err)
	}

	launcher := runner_pkg.NewPlaywrightLauncher(cfg.Runner, logger)
	defer func() {
		if err := launcher.Stop(); err != nil {
			log.Printf("⚠️  Playwright stop warning: %v", err)
		}
	}()

	listeners := []runner_pkg.RunListener{metricsListener{}}

	var stats StatsReader
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("⚠️  Redis at %s unreachable: %v (stats disabled)", cfg.RedisAddr, err)
		} else {
			store := runner_pkg.NewStatsStore(rdb, cfg.RedisPrefix, cfg.StatsTTL, 50, logger)
			listeners = append(listeners, store)
			stats = store
			log.Printf("✅ Recording run stats in Redis at %s", cfg.RedisAddr)
		}
		cancel()
	}

	if cfg.NATSURL != "" {
		bus, err := eventbus.NewNATSBus(eventbus.NATSConfig{URL: cfg.NATSURL, Subject: cfg.NATSSubject})
		if err != nil {
			log.Printf("⚠️  NATS unavailable: %v (run events disabled)", err)
		} else {
			defer bus.Close()
			listeners = append(listeners, &eventsListener{bus: bus, logger: logger})
			log.Printf("✅ Publishing run events on %s", bus.Subject())
		}
	}

	rules := runner_pkg.DefaultSelectorRules
	if cfg.DOMRulesFile != "" {
		loaded, err := runner_pkg.LoadSelectorRules(cfg.DOMRulesFile)
		if err != nil {
			log.Fatalf("Failed to load DOM selector rules: %v", err)
		}
		rules = loaded
		log.Printf("✅ Loaded %d DOM selector rules from %s", len(rules), cfg.DOMRulesFile)
	}

	executor := runner_pkg.NewExecutor(launcher, cfg.Runner, logger, listeners...)
	dom := runner_pkg.NewDOMRetriever(launcher, cfg.Runner, rules, logger)
	service := NewTestRunnerService(executor, dom, stats, cfg.Environment, logger)

	server := &http.Server{
		Addr:              cfg.Port,
		Handler:           service,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("🚀 Test Runner Service starting on %s (%s, default browser %s)", cfg.Port, cfg.Environment, cfg.Runner.DefaultEngine)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	sig := <-sigChan
	log.Printf("🛑 Received %s, shutting down...", sig)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Shutdown: %v", err)
	}
}
