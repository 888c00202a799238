package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"agi/services/test_runner/runner_pkg"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")

	file := flag.String("file", "", "Test case file (.json, .yaml or .yml)")
	browser := flag.String("browser", "", "Browser engine: chromium, firefox or webkit")
	asJSON := flag.Bool("json", false, "Print the full report as JSON")
	install := flag.Bool("install", false, "Install the browser before running")
	verbose := flag.Bool("v", false, "Log each step")
	flag.Parse()

	if *file == "" && flag.NArg() > 0 {
		*file = flag.Arg(0)
	}
	if *file == "" {
		fmt.Println("Usage: run-testcase [-browser chromium|firefox|webkit] [-json] [-install] [-v] <file>")
		os.Exit(2)
	}

	tc, err := runner_pkg.LoadTestCase(*file)
	if err != nil {
		color.Red("✗ %v", err)
		os.Exit(2)
	}

	var logger runner_pkg.Logger = runner_pkg.NopLogger{}
	if *verbose {
		logger = &runner_pkg.ServiceLogger{}
	}
	cfg := runner_pkg.LoadConfigFromEnv(logger)

	launcher := runner_pkg.NewPlaywrightLauncher(cfg, logger)
	code := run(launcher, cfg, logger, tc, *browser, *install, *asJSON)
	launcher.Stop()
	os.Exit(code)
}

func run(launcher *runner_pkg.PlaywrightLauncher, cfg runner_pkg.Config, logger runner_pkg.Logger, tc *runner_pkg.TestCase, browser string, install, asJSON bool) int {
	executor := runner_pkg.NewExecutor(launcher, cfg, logger)

	engine, err := executor.ResolveEngine(browser)
	if err != nil {
		color.Red("✗ %v", err)
		return 2
	}
	if install {
		if err := runner_pkg.InstallDriver([]string{string(engine)}, logger); err != nil {
			color.Yellow("⚠ install: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := executor.Run(ctx, tc, engine)
	if err != nil {
		color.Red("✗ %s errored: %v", tc.DisplayName(), err)
		return 1
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
	} else {
		printReport(report)
	}
	if report.Status != runner_pkg.StatusPassed {
		return 1
	}
	return 0
}

func printReport(report *runner_pkg.TestReport) {
	fmt.Printf("%s on %s (%dms)\n", color.New(color.Bold).Sprint(report.TestName), report.BrowserType, report.DurationMs)
	for _, res := range report.Results {
		if res.Status == runner_pkg.StatusPassed {
			fmt.Printf("  %s %s\n", color.GreenString("✓"), res.Description)
			continue
		}
		fmt.Printf("  %s %s: %s\n", color.RedString("✗"), res.Description, res.Error)
	}
	if report.Status == runner_pkg.StatusPassed {
		color.Green("✓ passed (%d steps)", len(report.Results))
		return
	}
	color.Red("✗ %s (%s)", report.Status, report.State)
}
