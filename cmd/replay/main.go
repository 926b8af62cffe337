// Package main replays archived stream samples through a fresh detector
// and reports which of them score as anomalies. Reads the ClickHouse
// observation archive written by the daemon.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"launch-sentinel/internal/replay"
	chstore "launch-sentinel/internal/storage/clickhouse"
)

func main() {
	// Parse flags
	subjectKey := flag.String("subject", "", "Subject key to replay (required)")
	signalType := flag.String("signal", "PRICE", "Signal type: PRICE, VOLUME, LIQUIDITY, VOLATILITY")
	fromTime := flag.String("from-time", "", "Start time (RFC3339)")
	toTime := flag.String("to-time", "", "End time (RFC3339)")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	outputJSON := flag.Bool("json", false, "Output as JSON")

	flag.Parse()

	logger := log.New(os.Stderr, "[replay] ", log.LstdFlags)

	// Validate required flags
	if *subjectKey == "" {
		logger.Fatal("--subject is required")
	}
	if *clickhouseDSN == "" {
		logger.Fatal("--clickhouse-dsn is required")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	// Connect the archive
	conn, err := chstore.NewConn(ctx, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("connect to clickhouse: %v", err)
	}
	defer conn.Close()

	// Determine time range
	var from, to int64
	if *fromTime != "" {
		t, err := time.Parse(time.RFC3339, *fromTime)
		if err != nil {
			logger.Fatalf("parse from-time: %v", err)
		}
		from = t.UnixMilli()
	}
	if *toTime != "" {
		t, err := time.Parse(time.RFC3339, *toTime)
		if err != nil {
			logger.Fatalf("parse to-time: %v", err)
		}
		to = t.UnixMilli()
	}

	runner := replay.NewRunner(chstore.NewObservationStore(conn))
	result, err := runner.Run(ctx, *subjectKey, *signalType, from, to)
	if err != nil {
		logger.Fatalf("replay: %v", err)
	}

	if *outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			logger.Fatalf("encode result: %v", err)
		}
		return
	}

	fmt.Printf("Replayed %d samples for %s/%s\n", result.SamplesReplayed, result.SubjectKey, result.SignalType)
	fmt.Printf("Flagged: %d\n", len(result.Flagged))
	for _, report := range result.Flagged {
		fmt.Printf("  %s  value=%.6f mean=%.6f stddev=%.6f deviation=%+.2f severity=%.2f\n",
			time.UnixMilli(report.TimestampMs).UTC().Format(time.RFC3339),
			report.Value, report.Mean, report.Stddev, report.Deviation, report.Severity)
	}
	if result.Forecast != nil {
		fmt.Printf("Forecast (+%d steps): %.4f (confidence %.2f)\n",
			result.Forecast.Steps, result.Forecast.Value, result.Forecast.Confidence)
	}
}
