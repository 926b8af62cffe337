// Package main provides an offline scenario driver. It replays scripted
// market conditions through the full evaluation loop with in-memory
// storage and prints a per-entity summary. Useful for tuning band
// policies without a live market feed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sort"
	"time"

	"launch-sentinel/internal/decision"
	"launch-sentinel/internal/domain"
	"launch-sentinel/internal/eventbus"
	"launch-sentinel/internal/marketdata/stub"
	"launch-sentinel/internal/orchestrator"
	"launch-sentinel/internal/pattern"
	"launch-sentinel/internal/recorder"
	"launch-sentinel/internal/reputation"
	"launch-sentinel/internal/storage/memory"
)

// scenario describes one simulated creator profile.
type scenario struct {
	name     string
	evidence domain.BehaviorEvidence
	// rugAtTick reports a rug midway through the run; 0 disables.
	rugAtTick   int
	rugSeverity float64
	// drift and noise shape the scripted price path.
	drift float64
	noise float64
}

var scenarios = map[string]scenario{
	"trusted": {
		name: "trusted",
		evidence: domain.BehaviorEvidence{
			GraduationRate:     0.9,
			LiquidityRetention: 0.95,
			PositiveFlags:      2,
			LaunchCount:        6,
		},
		drift: 0.001,
		noise: 0.005,
	},
	"neutral": {
		name: "neutral",
		evidence: domain.BehaviorEvidence{
			GraduationRate:      0.5,
			LiquidityRetention:  0.6,
			HolderConcentration: 0.3,
			LaunchCount:         3,
		},
		drift: 0,
		noise: 0.02,
	},
	"rugger": {
		name: "rugger",
		evidence: domain.BehaviorEvidence{
			GraduationRate:      0.1,
			LiquidityRetention:  0.2,
			HolderConcentration: 0.7,
			EarlyExitRatio:      0.8,
			BotActivityScore:    0.6,
			LaunchCount:         9,
		},
		rugAtTick:   0, // set from --rug-at
		rugSeverity: 0.8,
		drift:       -0.004,
		noise:       0.05,
	},
}

func main() {
	scenarioName := flag.String("scenario", "neutral", "Creator profile: trusted, neutral, rugger")
	subjectKey := flag.String("subject", "So11111111111111111111111111111111111111112", "Subject key to simulate")
	ticks := flag.Int("ticks", 120, "Number of evaluation ticks to run")
	tickMs := flag.Int64("tick-ms", 5000, "Simulated milliseconds per tick")
	rugAt := flag.Int("rug-at", 60, "Tick at which the rugger scenario reports a rug")
	seed := flag.Int64("seed", 42, "Random seed for the price path")
	verbose := flag.Bool("verbose", false, "Per-tick logging")

	flag.Parse()

	logger := log.New(os.Stdout, "[simulate] ", log.LstdFlags)

	sc, ok := scenarios[*scenarioName]
	if !ok {
		logger.Fatalf("Unknown scenario %q (want trusted, neutral, rugger)", *scenarioName)
	}
	if sc.name == "rugger" {
		sc.rugAtTick = *rugAt
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// In-memory stores; the recorder persists what the run produces so the
	// summary can read it back.
	actions := memory.NewActionRecordStore()
	rugs := memory.NewRugDetectionStore()
	transitions := memory.NewStateTransitionStore()
	anomalies := memory.NewAnomalyStore()
	observations := memory.NewObservationStore()

	bus := eventbus.New(1024)
	rec := recorder.New(ctx, bus, recorder.Options{
		Actions:     actions,
		Rugs:        rugs,
		Transitions: transitions,
		Anomalies:   anomalies,
		Logger:      logger,
	})

	// Simulated clock, advanced manually per tick.
	startMs := time.Now().UnixMilli()
	nowMs := startMs

	provider := stub.NewProvider()
	provider.Script(*subjectKey, buildScript(sc, *subjectKey, startMs, *ticks, *tickMs, *seed)...)

	orch := orchestrator.New(orchestrator.Options{
		Provider:     provider,
		Scorer:       reputation.NewScorer(reputation.DefaultConfig()),
		Engine:       decision.NewEngine(decision.DefaultConfig(), bus),
		Detector:     pattern.NewDetector(),
		Bus:          bus,
		Observations: observations,
		Config: orchestrator.Config{
			ActionCooldownMs: *tickMs * 2,
			HourlyActionCap:  0,
			Verbose:          *verbose,
		},
		Logger: logger,
		NowMs:  func() int64 { return nowMs },
	})

	handle, err := orch.Track(*subjectKey, startMs)
	if err != nil {
		logger.Fatalf("Track: %v", err)
	}
	if err := orch.SetEvidence(*subjectKey, sc.evidence); err != nil {
		logger.Fatalf("SetEvidence: %v", err)
	}

	logger.Printf("Running scenario %q: %d ticks at %dms", sc.name, *ticks, *tickMs)

	for i := 0; i < *ticks; i++ {
		nowMs = startMs + int64(i)*(*tickMs)

		if sc.rugAtTick > 0 && i == sc.rugAtTick {
			if err := orch.ReportRug(*subjectKey, sc.rugSeverity); err != nil {
				logger.Fatalf("ReportRug: %v", err)
			}
			logger.Printf("Tick %d: rug reported (severity %.2f)", i, sc.rugSeverity)
		}

		if _, err := orch.Tick(ctx, *subjectKey, nil); err != nil {
			logger.Printf("Tick %d: %v", i, err)
			break
		}
	}

	// Drain persistence before reading the stores back.
	bus.Close()
	rec.Wait()

	printSummary(ctx, orch, handle, *subjectKey, actions, transitions, anomalies)
}

// buildScript generates the scripted price path for a scenario.
func buildScript(sc scenario, subjectKey string, startMs int64, ticks int, tickMs, seed int64) []domain.MarketSnapshot {
	rng := rand.New(rand.NewSource(seed))

	price := 1.0
	reserves := 10000.0
	history := []float64{price}

	script := make([]domain.MarketSnapshot, 0, ticks)
	for i := 0; i < ticks; i++ {
		price *= 1 + sc.drift + sc.noise*rng.NormFloat64()
		if price < 0.0001 {
			price = 0.0001
		}
		history = append(history, price)
		if len(history) > 20 {
			history = history[1:]
		}

		// A rug drains the pool over the following ticks.
		if sc.rugAtTick > 0 && i >= sc.rugAtTick {
			reserves *= 0.7
		}

		script = append(script, domain.MarketSnapshot{
			SubjectKey:         subjectKey,
			Price:              price,
			PriceHistory:       append([]float64(nil), history...),
			SpreadBps:          50 + 400*sc.noise*rng.Float64(),
			RollingVolume:      1000 * (1 + rng.Float64()),
			LiquidityReserves:  reserves,
			Volatility:         sc.noise * 10,
			OrderBookImbalance: 0.4 * rng.NormFloat64(),
			TimestampMs:        startMs + int64(i)*tickMs,
		})
	}
	return script
}

func printSummary(ctx context.Context, orch *orchestrator.Orchestrator, handle orchestrator.Handle, subjectKey string, actions *memory.ActionRecordStore, transitions *memory.StateTransitionStore, anomalies *memory.AnomalyStore) {
	status, err := orch.StatusByHandle(handle)
	if err != nil {
		fmt.Printf("status unavailable: %v\n", err)
		return
	}

	fmt.Println()
	fmt.Println("=== Simulation Summary ===")
	fmt.Printf("Subject:    %s\n", status.SubjectKey)
	fmt.Printf("State:      %s\n", status.State)
	fmt.Printf("Band:       %s\n", status.Band)
	fmt.Printf("Score:      %.1f\n", status.Score)
	fmt.Printf("Actions:    %d executed\n", status.TotalActionsExecuted)

	recs, _ := actions.GetBySubjectKey(ctx, subjectKey)
	byType := make(map[domain.ActionType]int)
	for _, r := range recs {
		byType[r.Type]++
	}
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Printf("  %-22s %d\n", t, byType[domain.ActionType(t)])
	}

	trans, _ := transitions.GetBySubjectKey(ctx, subjectKey)
	fmt.Printf("Transitions: %d\n", len(trans))
	for _, tr := range trans {
		fmt.Printf("  %s -> %s (%s)\n", tr.From, tr.To, tr.Trigger)
	}

	reports, _ := anomalies.GetBySubjectKey(ctx, subjectKey)
	flagged := 0
	for _, rep := range reports {
		if rep.IsAnomaly {
			flagged++
		}
	}
	fmt.Printf("Anomalies:  %d flagged of %d scored\n", flagged, len(reports))
}
