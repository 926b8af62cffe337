// Package main provides the monitoring daemon. It tracks launched tokens,
// runs the per-entity evaluation loop on a fixed interval, persists the
// resulting records, and exposes an HTTP surface for status and control.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"launch-sentinel/internal/decision"
	"launch-sentinel/internal/eventbus"
	"launch-sentinel/internal/marketdata"
	"launch-sentinel/internal/observability"
	"launch-sentinel/internal/orchestrator"
	"launch-sentinel/internal/pattern"
	"launch-sentinel/internal/recorder"
	"launch-sentinel/internal/reputation"
	"launch-sentinel/internal/storage"
	chstore "launch-sentinel/internal/storage/clickhouse"
	"launch-sentinel/internal/storage/memory"
	"launch-sentinel/internal/storage/migrations"
	pgstore "launch-sentinel/internal/storage/postgres"
)

// Server holds all components of the monitoring daemon.
type Server struct {
	orch   *orchestrator.Orchestrator
	bus    *eventbus.Bus
	wsProv *marketdata.WSProvider

	tickInterval time.Duration
	logger       *log.Logger

	mu       sync.Mutex
	started  time.Time
	lastTick time.Time
	ticksRun int
}

// allStores holds the storage implementations the recorder and
// orchestrator write through.
type allStores struct {
	actionStore      storage.ActionRecordStore
	rugStore         storage.RugDetectionStore
	transitionStore  storage.StateTransitionStore
	observationStore storage.ObservationStore
	anomalyStore     storage.AnomalyStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("MARKET_WS_ENDPOINT"), "Market data WebSocket endpoint")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	subjects := flag.String("subjects", "", "Comma-separated subject keys to track at startup")
	tickInterval := flag.Duration("tick-interval", 5*time.Second, "Evaluation tick interval")
	actionCooldown := flag.Duration("action-cooldown", 30*time.Second, "Minimum gap between executed actions per entity")
	hourlyCap := flag.Int("hourly-cap", 60, "Executed actions per entity per rolling hour (0 disables)")
	busQueue := flag.Int("bus-queue", 256, "Per-subscriber event queue size")
	httpAddr := flag.String("http-addr", ":9090", "HTTP address for health/metrics/status/control")
	verbose := flag.Bool("verbose", false, "Per-tick logging")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[sentinel] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if *wsEndpoint == "" {
		logger.Fatal("--ws-endpoint is required")
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores (runs migrations against real databases)
	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Event bus and persistence
	bus := eventbus.New(*busQueue)
	rec := recorder.New(ctx, bus, recorder.Options{
		Actions:     stores.actionStore,
		Rugs:        stores.rugStore,
		Transitions: stores.transitionStore,
		Anomalies:   stores.anomalyStore,
		Logger:      log.New(os.Stdout, "[recorder] ", log.LstdFlags),
	})

	// Market data feed
	wsProv, err := marketdata.NewWSProvider(ctx, *wsEndpoint, nil)
	if err != nil {
		logger.Fatalf("Failed to connect market feed: %v", err)
	}
	defer wsProv.Close()

	// Core components
	orch := orchestrator.New(orchestrator.Options{
		Provider:     wsProv,
		Scorer:       reputation.NewScorer(reputation.DefaultConfig()),
		Engine:       decision.NewEngine(decision.DefaultConfig(), bus),
		Detector:     pattern.NewDetector(),
		Bus:          bus,
		Observations: stores.observationStore,
		Config: orchestrator.Config{
			ActionCooldownMs: actionCooldown.Milliseconds(),
			HourlyActionCap:  *hourlyCap,
			Verbose:          *verbose,
		},
		Logger: logger,
	})

	server := &Server{
		orch:         orch,
		bus:          bus,
		wsProv:       wsProv,
		tickInterval: *tickInterval,
		logger:       logger,
		started:      time.Now(),
	}

	// Track initial subjects
	for _, key := range splitList(*subjects) {
		if err := server.track(key, time.Now().UnixMilli()); err != nil {
			logger.Fatalf("Failed to track %s: %v", key, err)
		}
		logger.Printf("Tracking %s", key)
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Start HTTP server
	go server.startHTTPServer(*httpAddr)

	// Run the tick loop
	err = server.Run(ctx)
	done <- err
	cancel()

	// Let the recorder drain before the stores close
	bus.Close()
	rec.Wait()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates all required stores and applies migrations.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			actionStore:      memory.NewActionRecordStore(),
			rugStore:         memory.NewRugDetectionStore(),
			transitionStore:  memory.NewStateTransitionStore(),
			observationStore: memory.NewObservationStore(),
			anomalyStore:     memory.NewAnomalyStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	// ClickHouse
	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	stores := &allStores{
		// PostgreSQL stores (records of decisions and lifecycle)
		actionStore:     pgstore.NewActionRecordStore(pool),
		rugStore:        pgstore.NewRugDetectionStore(pool),
		transitionStore: pgstore.NewStateTransitionStore(pool),

		// ClickHouse stores (high-volume stream samples)
		observationStore: chstore.NewObservationStore(chConn),
		anomalyStore:     chstore.NewAnomalyStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// track registers a subject with both the orchestrator and the market feed.
func (s *Server) track(key string, launchedAtMs int64) error {
	if _, err := s.orch.Track(key, launchedAtMs); err != nil {
		return err
	}
	if s.wsProv != nil {
		if err := s.wsProv.Subscribe(key); err != nil {
			return fmt.Errorf("subscribe market feed: %w", err)
		}
	}
	return nil
}

// Run drives the evaluation loop until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Printf("Starting evaluation loop (interval: %v)...", s.tickInterval)

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runTicks(ctx)
		}
	}
}

// runTicks evaluates every tracked subject once.
func (s *Server) runTicks(ctx context.Context) {
	subjects := s.orch.Subjects()
	observability.UpdateTrackedEntities(len(subjects))

	for _, key := range subjects {
		start := time.Now()
		action, err := s.orch.Tick(ctx, key, nil)
		observability.RecordTick(time.Since(start).Seconds(), err != nil)

		if err != nil {
			s.logger.Printf("Tick %s: %v", key, err)
			continue
		}
		if action != nil {
			observability.RecordActionExecuted(string(action.Type), string(action.Band))
		}
	}

	observability.UpdateBusCounters(s.bus.Published(), s.bus.Dropped())

	s.mu.Lock()
	s.lastTick = time.Now()
	s.ticksRun++
	s.mu.Unlock()
}

// startHTTPServer starts the HTTP server for health/metrics/status/control.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status and control
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/entities", s.handleEntities)
	mux.HandleFunc("/track", s.handleTrack)
	mux.HandleFunc("/rug", s.handleRug)
	mux.HandleFunc("/terminate", s.handleTerminate)

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status          string    `json:"status"`
	Uptime          string    `json:"uptime"`
	TrackedEntities int       `json:"tracked_entities"`
	TicksRun        int       `json:"ticks_run"`
	LastTick        time.Time `json:"last_tick,omitempty"`
	EventsPublished uint64    `json:"events_published"`
	EventsDropped   uint64    `json:"events_dropped"`
}

// handleStatus returns daemon status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:          "running",
		Uptime:          time.Since(s.started).String(),
		TrackedEntities: len(s.orch.Subjects()),
		TicksRun:        s.ticksRun,
		LastTick:        s.lastTick,
		EventsPublished: s.bus.Published(),
		EventsDropped:   s.bus.Dropped(),
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// EntityResponse is one tracked entity in the /entities response.
type EntityResponse struct {
	SubjectKey           string  `json:"subject_key"`
	State                string  `json:"state"`
	Band                 string  `json:"band"`
	Score                float64 `json:"score"`
	TotalActionsExecuted int     `json:"total_actions_executed"`
	NextEligibleActionAt int64   `json:"next_eligible_action_at,omitempty"`
	LastUpdateAt         int64   `json:"last_update_at"`
}

// handleEntities returns per-entity status as JSON.
func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	subjects := s.orch.Subjects()
	entities := make([]EntityResponse, 0, len(subjects))
	for _, key := range subjects {
		st, err := s.orch.Status(key)
		if err != nil {
			continue
		}
		entities = append(entities, EntityResponse{
			SubjectKey:           st.SubjectKey,
			State:                string(st.State),
			Band:                 string(st.Band),
			Score:                st.Score,
			TotalActionsExecuted: st.TotalActionsExecuted,
			NextEligibleActionAt: st.NextEligibleActionAt,
			LastUpdateAt:         st.LastUpdateAt,
		})
	}
	writeJSON(w, http.StatusOK, entities)
}

// handleTrack registers a new subject: POST {"subject_key": "...", "launched_at_ms": 0}.
func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		SubjectKey   string `json:"subject_key"`
		LaunchedAtMs int64  `json:"launched_at_ms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.LaunchedAtMs == 0 {
		req.LaunchedAtMs = time.Now().UnixMilli()
	}

	if err := s.track(req.SubjectKey, req.LaunchedAtMs); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	s.logger.Printf("Tracking %s", req.SubjectKey)
	writeJSON(w, http.StatusCreated, map[string]string{"subject_key": req.SubjectKey})
}

// handleRug reports a rug event: POST {"subject_key": "...", "severity": 0.8}.
func (s *Server) handleRug(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		SubjectKey string  `json:"subject_key"`
		Severity   float64 `json:"severity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.orch.ReportRug(req.SubjectKey, req.Severity); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	observability.DefaultMetrics.RugDetections.Inc()
	s.logger.Printf("Rug reported for %s (severity %.2f)", req.SubjectKey, req.Severity)
	w.WriteHeader(http.StatusAccepted)
}

// handleTerminate retires a subject: POST {"subject_key": "...", "reason": "..."}.
func (s *Server) handleTerminate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		SubjectKey string `json:"subject_key"`
		Reason     string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Reason == "" {
		req.Reason = "operator request"
	}

	if err := s.orch.Terminate(req.SubjectKey, req.Reason); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	observability.DefaultMetrics.Terminations.Inc()
	s.logger.Printf("Terminated %s: %s", req.SubjectKey, req.Reason)
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// splitList splits a comma-separated flag value, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
