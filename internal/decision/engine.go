// Package decision selects exactly one liquidity-support action per tick
// from market conditions, the creator's trust band, and an optional
// external chaos signal. Decisions are deterministic: identical inputs
// always yield the same action, with no hidden randomness.
package decision

import (
	"math"
	"sync"

	"launch-sentinel/internal/domain"
	"launch-sentinel/internal/idhash"
)

// Publisher receives ACTION_EXECUTED events.
type Publisher interface {
	Publish(domain.Event)
}

// Config holds signal weights and policy thresholds. Like scoring weights,
// these are configuration, not algorithm.
type Config struct {
	// Composite-signal weights.
	VolatilityWeight float64
	SpreadWeight     float64
	VolumeWeight     float64
	ImbalanceWeight  float64

	// SpreadNormBps is the spread at which the normalized spread factor
	// saturates at 1.
	SpreadNormBps float64
	// VolumeNormRatio is the volume/reserves ratio at which volume
	// pressure saturates at 1.
	VolumeNormRatio float64

	// Guardian policy thresholds.
	GuardianWideSpreadBps  float64
	GuardianHighVolatility float64
	GuardianMomentumSigma  float64
	GuardianCrashDropPct   float64

	// Neutral policy thresholds.
	NeutralHighSigma    float64
	NeutralCrashDropPct float64

	// Adversarial policy thresholds.
	AdversarialDrainImbalance float64
	AdversarialHighPressure   float64

	// Anomaly-hint gates shared by the policies.
	AnomalySeverityGate   float64
	AnomalyConfidenceGate float64

	// Chaos coordination.
	ChaosEscalationMagnitude float64

	// ActionLogCap bounds the engine's append-only action log.
	ActionLogCap int
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		VolatilityWeight: 0.5,
		SpreadWeight:     0.35,
		VolumeWeight:     0.35,
		ImbalanceWeight:  0.3,

		SpreadNormBps:   200,
		VolumeNormRatio: 2.0,

		GuardianWideSpreadBps:  120,
		GuardianHighVolatility: 0.35,
		GuardianMomentumSigma:  0.5,
		GuardianCrashDropPct:   0.12,

		NeutralHighSigma:    0.8,
		NeutralCrashDropPct: 0.2,

		AdversarialDrainImbalance: -0.3,
		AdversarialHighPressure:   0.6,

		AnomalySeverityGate:   0.6,
		AnomalyConfidenceGate: 0.5,

		ChaosEscalationMagnitude: 0.7,

		ActionLogCap: 500,
	}
}

// Hints carries optional pattern-detector context for the current tick.
// Policies consult it; they never require it.
type Hints struct {
	Anomalous         bool
	AnomalySeverity   float64
	AnomalyConfidence float64
}

// Engine is the market-making decision engine. Safe for concurrent use;
// the action log is the only mutable state.
type Engine struct {
	cfg Config
	pub Publisher

	mu  sync.Mutex
	log []domain.ActionRecord
}

// NewEngine creates an engine. pub may be nil when no event fan-out is
// wanted (offline simulation).
func NewEngine(cfg Config, pub Publisher) *Engine {
	if cfg.ActionLogCap <= 0 {
		cfg.ActionLogCap = DefaultConfig().ActionLogCap
	}
	return &Engine{cfg: cfg, pub: pub}
}

// Decide selects one action for the tick. chaos and hints may be nil.
// Never blocks, never fails: degenerate market inputs (zero reserves, zero
// spread) contribute zero to the corresponding factor.
func (e *Engine) Decide(nowMs int64, market domain.MarketSnapshot, band domain.Band, chaos *domain.ChaosSignal, hints *Hints) domain.ActionRecord {
	sigma := e.compositeSignal(market)

	var action domain.ActionType
	switch band {
	case domain.BandGuardian:
		action = e.guardianPolicy(market, sigma, hints)
	case domain.BandAdversarial:
		action = e.adversarialPolicy(market, sigma, hints)
	default:
		action = e.neutralPolicy(market, sigma)
	}

	action = e.applyChaosOverride(action, band, chaos)

	rec := domain.ActionRecord{
		ActionID:   idhash.ComputeActionID(market.SubjectKey, string(action), nowMs),
		SubjectKey: market.SubjectKey,
		Type:       action,
		Band:       band,
		ExecutedAt: nowMs,
	}

	e.append(rec)

	if e.pub != nil && action != domain.ActionNone {
		e.pub.Publish(domain.Event{
			Kind:       domain.EventActionExecuted,
			SubjectKey: market.SubjectKey,
			EmittedAt:  nowMs,
			Payload:    domain.ActionExecutedPayload{Action: rec},
		})
	}

	return rec
}

// compositeSignal computes σ, a scalar in roughly [0,1.5] blending
// volatility, normalized spread, volume pressure, and imbalance magnitude.
// Used only as a threshold input; never exposed.
func (e *Engine) compositeSignal(market domain.MarketSnapshot) float64 {
	spread := 0.0
	if market.SpreadBps > 0 && e.cfg.SpreadNormBps > 0 {
		spread = math.Min(market.SpreadBps/e.cfg.SpreadNormBps, 1)
	}

	pressure := volumePressure(market, e.cfg.VolumeNormRatio)

	vol := market.Volatility
	if vol < 0 {
		vol = 0
	}
	if vol > 1 {
		vol = 1
	}

	imbalance := math.Abs(market.OrderBookImbalance)
	if imbalance > 1 {
		imbalance = 1
	}

	return vol*e.cfg.VolatilityWeight +
		spread*e.cfg.SpreadWeight +
		pressure*e.cfg.VolumeWeight +
		imbalance*e.cfg.ImbalanceWeight
}

// volumePressure is rolling volume relative to reserves, saturating at
// normRatio. Zero reserves contribute zero rather than dividing.
func volumePressure(market domain.MarketSnapshot, normRatio float64) float64 {
	if market.LiquidityReserves <= 0 || normRatio <= 0 || market.RollingVolume <= 0 {
		return 0
	}
	ratio := market.RollingVolume / market.LiquidityReserves
	return math.Min(ratio/normRatio, 1)
}

// applyChaosOverride coordinates with the external chaos source:
// a Guardian entity facing high chaos magnitude escalates a NO_ACTION
// outcome to pre-emptive CRASH_BUFFERING; an Adversarial entity with the
// synchronize hint is forced to EXTRACTION_SUPPRESSION regardless of the
// policy's own choice.
func (e *Engine) applyChaosOverride(action domain.ActionType, band domain.Band, chaos *domain.ChaosSignal) domain.ActionType {
	if chaos == nil {
		return action
	}
	if band == domain.BandGuardian && chaos.Magnitude > e.cfg.ChaosEscalationMagnitude && action == domain.ActionNone {
		return domain.ActionCrashBuffering
	}
	if band == domain.BandAdversarial && chaos.Synchronize {
		return domain.ActionExtractionSuppression
	}
	return action
}

// ActionLog returns the most recent n logged actions, newest last.
// n <= 0 returns the whole bounded log.
func (e *Engine) ActionLog(n int) []domain.ActionRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	if n <= 0 || n > len(e.log) {
		n = len(e.log)
	}
	out := make([]domain.ActionRecord, n)
	copy(out, e.log[len(e.log)-n:])
	return out
}

func (e *Engine) append(rec domain.ActionRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.log = append(e.log, rec)
	if len(e.log) > e.cfg.ActionLogCap {
		e.log = e.log[len(e.log)-e.cfg.ActionLogCap:]
	}
}
