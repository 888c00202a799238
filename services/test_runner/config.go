package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"agi/services/test_runner/runner_pkg"
	"github.com/joho/godotenv"
)

// ServiceConfig is everything the HTTP service reads from the environment.
type ServiceConfig struct {
	Port            string
	Environment     string
	NATSURL         string
	NATSSubject     string
	RedisAddr       string
	RedisPrefix     string
	StatsTTL        time.Duration
	DOMRulesFile    string
	InstallAll      bool
	ShutdownTimeout time.Duration
	Runner          runner_pkg.Config
}

func getenvTrim(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func getenvDefault(key, def string) string {
	if v := getenvTrim(key); v != "" {
		return v
	}
	return def
}

func loadServiceConfig(logger runner_pkg.Logger) ServiceConfig {
	cfg := ServiceConfig{
		Port:            getenvDefault("PORT", "3000"),
		Environment:     getenvDefault("ENVIRONMENT", getenvDefault("NODE_ENV", "development")),
		NATSURL:         getenvTrim("NATS_URL"),
		NATSSubject:     getenvDefault("NATS_SUBJECT", "agi.testrunner.events"),
		RedisPrefix:     getenvDefault("REDIS_PREFIX", "testrunner"),
		StatsTTL:        24 * time.Hour,
		DOMRulesFile:    getenvTrim("DOM_RULES_FILE"),
		ShutdownTimeout: 5 * time.Second,
		Runner:          runner_pkg.LoadConfigFromEnv(logger),
	}
	if addr := getenvTrim("REDIS_ADDR"); addr != "" {
		cfg.RedisAddr = normalizeRedisAddr(addr)
	}
	if v, err := strconv.ParseBool(getenvTrim("PLAYWRIGHT_INSTALL_ALL")); err == nil {
		cfg.InstallAll = v
	}
	if ms, err := strconv.Atoi(getenvTrim("SHUTDOWN_TIMEOUT_MS")); err == nil && ms > 0 {
		cfg.ShutdownTimeout = time.Duration(ms) * time.Millisecond
	}
	if !strings.HasPrefix(cfg.Port, ":") {
		cfg.Port = ":" + cfg.Port
	}
	return cfg
}

// browsersToInstall lists the engines whose binaries are fetched at startup.
func (c ServiceConfig) browsersToInstall() []string {
	if c.InstallAll {
		return []string{string(runner_pkg.EngineChromium), string(runner_pkg.EngineFirefox), string(runner_pkg.EngineWebKit)}
	}
	return []string{string(c.Runner.DefaultEngine)}
}

// loadEnvFile loads .env from the current directory or up to 3 parents.
func loadEnvFile() error {
	if err := godotenv.Load(".env"); err == nil {
		log.Printf("✅ [ENV] Loaded .env file from current directory")
		return nil
	}

	dir, err := os.Getwd()
	if err != nil {
		return err
	}
	for i := 0; i < 3; i++ {
		envPath := filepath.Join(dir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Printf("✅ [ENV] Loaded .env file from: %s", envPath)
			return nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return fmt.Errorf(".env file not found")
}

// normalizeRedisAddr accepts host, host:port or redis://host:port/.
func normalizeRedisAddr(addr string) string {
	addr = strings.TrimSpace(addr)
	addr = strings.TrimPrefix(addr, "redis://")
	addr = strings.TrimSuffix(addr, "/")
	if !strings.Contains(addr, ":") {
		addr += ":6379"
	}
	return addr
}
