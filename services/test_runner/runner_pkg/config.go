package runner_pkg

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Screenshot payload policies
const (
	ScreenshotPolicyFull     = "full"
	ScreenshotPolicyTruncate = "truncate"
)

// Viewport is the fixed page size used for every run.
type Viewport struct {
	Width  int
	Height int
}

// Config holds the tunables injected into the interpreter, executor and DOM
// retriever. Zero values are never used directly; see DefaultConfig.
type Config struct {
	DefaultEngine  Engine
	StrictEngine   bool // reject unknown browserType instead of falling back
	ExecutablePath string
	LaunchArgs     []string
	Viewport       Viewport

	NavigationTimeout time.Duration
	ActionTimeout     time.Duration
	DefaultWait       time.Duration
	MaxStepTimeout    time.Duration // upper bound for a step's own timeout

	ScreenshotPolicy      string
	ScreenshotTruncateLen int

	DOMRetryAttempts int
	DOMRetryDelay    time.Duration
}

// DefaultLaunchArgs disable the Chromium sandbox so the browser can start
// inside unprivileged containers.
var DefaultLaunchArgs = []string{
	"--no-sandbox",
	"--disable-setuid-sandbox",
	"--disable-dev-shm-usage",
	"--disable-gpu",
}

// Chromium binaries probed when PLAYWRIGHT_EXECUTABLE_PATH is unset
var commonChromiumPaths = []string{
	"/usr/bin/chromium",
	"/usr/bin/google-chrome",
	"/bin/google-chrome",
	"/usr/bin/chromium-browser",
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		DefaultEngine:         EngineChromium,
		LaunchArgs:            DefaultLaunchArgs,
		Viewport:              Viewport{Width: 1280, Height: 720},
		NavigationTimeout:     30 * time.Second,
		ActionTimeout:         10 * time.Second,
		DefaultWait:           1 * time.Second,
		MaxStepTimeout:        5 * time.Minute,
		ScreenshotPolicy:      ScreenshotPolicyFull,
		ScreenshotTruncateLen: 100,
		DOMRetryAttempts:      3,
		DOMRetryDelay:         1 * time.Second,
	}
}

// LoadConfigFromEnv overlays environment variables on DefaultConfig.
// Malformed values keep the default and are logged.
func LoadConfigFromEnv(logger Logger) Config {
	if logger == nil {
		logger = NopLogger{}
	}
	cfg := DefaultConfig()
	env := envReader{logger: logger}

	if v := env.str("BROWSER_TYPE"); v != "" {
		if engine, ok := ParseEngine(v); ok {
			cfg.DefaultEngine = engine
		} else {
			logger.Errorf("BROWSER_TYPE=%q is not supported, using %s", v, cfg.DefaultEngine)
		}
	}
	cfg.StrictEngine = env.boolean("BROWSER_TYPE_STRICT", cfg.StrictEngine)

	cfg.ExecutablePath = env.str("PLAYWRIGHT_EXECUTABLE_PATH")
	if cfg.ExecutablePath == "" {
		for _, p := range commonChromiumPaths {
			if _, err := os.Stat(p); err == nil {
				cfg.ExecutablePath = p
				break
			}
		}
	}

	cfg.Viewport.Width = env.positiveInt("VIEWPORT_WIDTH", cfg.Viewport.Width)
	cfg.Viewport.Height = env.positiveInt("VIEWPORT_HEIGHT", cfg.Viewport.Height)
	cfg.NavigationTimeout = env.millis("NAVIGATION_TIMEOUT_MS", cfg.NavigationTimeout)
	cfg.ActionTimeout = env.millis("ACTION_TIMEOUT_MS", cfg.ActionTimeout)
	cfg.DefaultWait = env.millis("WAIT_DEFAULT_MS", cfg.DefaultWait)
	cfg.MaxStepTimeout = env.millis("MAX_STEP_TIMEOUT_MS", cfg.MaxStepTimeout)

	switch policy := strings.ToLower(env.str("SCREENSHOT_POLICY")); policy {
	case "":
	case ScreenshotPolicyFull, ScreenshotPolicyTruncate:
		cfg.ScreenshotPolicy = policy
	default:
		logger.Errorf("SCREENSHOT_POLICY=%q is not supported, using %s", policy, cfg.ScreenshotPolicy)
	}
	cfg.ScreenshotTruncateLen = env.positiveInt("SCREENSHOT_TRUNCATE_LEN", cfg.ScreenshotTruncateLen)

	cfg.DOMRetryAttempts = env.positiveInt("DOM_RETRY_ATTEMPTS", cfg.DOMRetryAttempts)
	cfg.DOMRetryDelay = env.millis("DOM_RETRY_DELAY_MS", cfg.DOMRetryDelay)
	return cfg
}

// encodeScreenshot applies the configured payload policy to a base64 image.
func (c Config) encodeScreenshot(b64 string) string {
	if c.ScreenshotPolicy != ScreenshotPolicyTruncate || c.ScreenshotTruncateLen <= 0 {
		return b64
	}
	if len(b64) <= c.ScreenshotTruncateLen {
		return b64
	}
	return b64[:c.ScreenshotTruncateLen] + "..."
}

// stepTimeout prefers the step's own timeout over fallback, capped at
// MaxStepTimeout. The cap is applied in milliseconds so huge values cannot
// overflow the Duration.
func (c Config) stepTimeout(step Step, fallback time.Duration) time.Duration {
	if step.Timeout <= 0 {
		return fallback
	}
	if c.MaxStepTimeout > 0 && int64(step.Timeout) > c.MaxStepTimeout.Milliseconds() {
		return c.MaxStepTimeout
	}
	return time.Duration(step.Timeout) * time.Millisecond
}

type envReader struct {
	logger Logger
}

func (e envReader) str(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func (e envReader) positiveInt(key string, def int) int {
	v := e.str(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		e.logger.Errorf("%s=%q is not a positive integer, using %d", key, v, def)
		return def
	}
	return n
}

func (e envReader) millis(key string, def time.Duration) time.Duration {
	n := e.positiveInt(key, int(def/time.Millisecond))
	return time.Duration(n) * time.Millisecond
}

func (e envReader) boolean(key string, def bool) bool {
	v := e.str(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.logger.Errorf("%s=%q is not a boolean, using %t", key, v, def)
		return def
	}
	return b
}
