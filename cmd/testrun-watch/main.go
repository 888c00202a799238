package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agi/eventbus"
	"github.com/fatih/color"
)

func main() {
	url := flag.String("url", getenv("NATS_URL", "nats://127.0.0.1:4222"), "NATS server URL")
	subject := flag.String("subject", getenv("NATS_SUBJECT", eventbus.DefaultSubject), "Subject carrying test-run events")
	raw := flag.Bool("raw", false, "Print full event envelopes as JSON")
	flag.Parse()

	bus, err := eventbus.NewNATSBus(eventbus.NATSConfig{URL: *url, Subject: *subject, Name: "agi-testrun-watch"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect NATS: %v\n", err)
		os.Exit(1)
	}
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err = bus.Subscribe(ctx, func(evt eventbus.CanonicalEvent) {
		if *raw {
			b, _ := json.MarshalIndent(evt, "", "  ")
			fmt.Printf("%s\n", b)
			return
		}
		fmt.Println(formatEvent(evt))
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "subscribe error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("watching test runs on %s\n", bus.Subject())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	fmt.Println("shutting down")
}

// formatEvent renders one run event as a single coloured line.
func formatEvent(evt eventbus.CanonicalEvent) string {
	meta := evt.Payload.Metadata
	status, _ := meta["status"].(string)
	stamp := evt.Timestamp.Local().Format(time.TimeOnly)

	var mark string
	switch status {
	case "passed":
		mark = color.GreenString("✓ passed")
	case "failed":
		mark = color.RedString("✗ failed")
	default:
		mark = color.YellowString("! %s", status)
	}
	return fmt.Sprintf("[%s] %s %v on %v (%v steps, %vms) run=%s",
		stamp, mark, meta["testName"], meta["browserType"], meta["steps"], meta["duration"], evt.Context.SessionID)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
