package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	contentpilot "content-pilot/agents/content-pilot"
	"content-pilot/shared/config"
	"content-pilot/shared/monitoring"
	"content-pilot/shared/scheduler"
	"content-pilot/shared/youtube"
)

const usage = `Usage: content-pilot [--once | --analyze <video-url-or-id> | --authorize]

Without flags the watchlist is analyzed on the configured cron schedule.`

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create context that responds to signals
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	monitor := monitoring.NewMonitor()
	agent := contentpilot.NewContentPilotAgent(cfg, monitor)
	s := scheduler.New(cfg, agent, monitor)

	mode := ""
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	switch mode {
	case "--authorize":
		if err := youtube.Authorize(ctx, &cfg.YouTube); err != nil {
			log.Fatalf("Authorization failed: %v", err)
		}
		fmt.Printf("Token saved to %s\n", cfg.YouTube.TokenFile)

	case "--analyze":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		if err := agent.Initialize(); err != nil {
			log.Fatalf("Failed to initialize agent: %v", err)
		}

		out := agent.Analyze(ctx, os.Args[2])
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out.Report); err != nil {
			log.Fatalf("Failed to encode report: %v", err)
		}
		if !out.Report.Success {
			os.Exit(1)
		}

	case "--once":
		if err := cfg.ValidateEmail(); err != nil {
			log.Fatalf("Failed to validate email configuration: %v", err)
		}
		fmt.Println("Running once...")
		if err := agent.Initialize(); err != nil {
			log.Fatalf("Failed to initialize agent: %v", err)
		}

		if err := s.RunOnce(ctx); err != nil {
			log.Fatalf("Failed to run: %v", err)
		}

	case "":
		if err := cfg.ValidateEmail(); err != nil {
			log.Fatalf("Failed to validate email configuration: %v", err)
		}
		fmt.Println("Starting scheduler...")
		if err := s.Start(ctx); err != nil && ctx.Err() == nil {
			log.Fatalf("Scheduler failed: %v", err)
		}

	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}
