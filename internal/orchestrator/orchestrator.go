// Package orchestrator drives the per-entity evaluation loop.
// One tick: fetch market snapshot → refresh reputation → advance the
// state machine → check the action budget → invoke the decision engine →
// record and announce the outcome. Entities are independent; ticks for
// the same entity are serialized, ticks for different entities may run in
// parallel.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"launch-sentinel/internal/decision"
	"launch-sentinel/internal/domain"
	"launch-sentinel/internal/eventbus"
	"launch-sentinel/internal/lifecycle"
	"launch-sentinel/internal/marketdata"
	"launch-sentinel/internal/pattern"
	"launch-sentinel/internal/reputation"
	"launch-sentinel/internal/storage"
	"launch-sentinel/internal/subjectkey"
)

// Caller-visible orchestrator errors.
var (
	// ErrUnknownSubject is returned for operations on untracked subjects.
	ErrUnknownSubject = errors.New("unknown subject")

	// ErrAlreadyTracked is returned when tracking a subject twice.
	ErrAlreadyTracked = errors.New("subject already tracked")
)

// Config holds orchestration parameters.
type Config struct {
	// ActionCooldownMs is the minimum gap between executed actions for
	// one entity.
	ActionCooldownMs int64
	// HourlyActionCap bounds executed actions per entity per rolling
	// hour. 0 disables the cap.
	HourlyActionCap int
	// LaunchMaxAgeMs moves entities to COOLDOWN once the launch is older.
	LaunchMaxAgeMs int64
	// CooldownTaper multiplies the cooldown for COOLDOWN-state entities.
	CooldownTaper int64
	// ActionLogCap bounds the per-entity action log.
	ActionLogCap int
	// Verbose enables per-tick logging.
	Verbose bool
}

// DefaultConfig returns standard orchestration parameters.
func DefaultConfig() Config {
	return Config{
		ActionCooldownMs: 30 * 1000,
		HourlyActionCap:  60,
		LaunchMaxAgeMs:   24 * 60 * 60 * 1000,
		CooldownTaper:    4,
		ActionLogCap:     200,
	}
}

// Options for creating an Orchestrator.
type Options struct {
	Provider marketdata.Provider
	Scorer   *reputation.Scorer
	Engine   *decision.Engine
	Detector *pattern.Detector
	Bus      *eventbus.Bus

	// Observations optionally archives every scored stream sample.
	// Best-effort: archive failures are logged, never fatal.
	Observations storage.ObservationStore

	Config Config
	Logger *log.Logger

	// NowMs overrides the clock; nil uses wall time. Tests inject a
	// fixed clock here.
	NowMs func() int64
}

// Orchestrator owns the entity arena and runs ticks.
type Orchestrator struct {
	provider     marketdata.Provider
	scorer       *reputation.Scorer
	engine       *decision.Engine
	detector     *pattern.Detector
	bus          *eventbus.Bus
	observations storage.ObservationStore

	cfg    Config
	logger *log.Logger
	nowMs  func() int64

	arena *arena
}

// New creates an Orchestrator. Zero config fields fall back to defaults.
func New(opts Options) *Orchestrator {
	cfg := opts.Config
	def := DefaultConfig()
	if cfg.ActionCooldownMs == 0 {
		cfg.ActionCooldownMs = def.ActionCooldownMs
	}
	if cfg.LaunchMaxAgeMs == 0 {
		cfg.LaunchMaxAgeMs = def.LaunchMaxAgeMs
	}
	if cfg.CooldownTaper == 0 {
		cfg.CooldownTaper = def.CooldownTaper
	}
	if cfg.ActionLogCap == 0 {
		cfg.ActionLogCap = def.ActionLogCap
	}

	nowMs := opts.NowMs
	if nowMs == nil {
		nowMs = func() int64 { return time.Now().UnixMilli() }
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Orchestrator{
		provider:     opts.Provider,
		scorer:       opts.Scorer,
		engine:       opts.Engine,
		detector:     opts.Detector,
		bus:          opts.Bus,
		observations: opts.Observations,
		cfg:          cfg,
		logger:       logger,
		nowMs:        nowMs,
		arena:        newArena(),
	}
}

// Track registers a subject for monitoring. The key must be a well-formed
// base58 address; launchedAtMs anchors the launch-age cooldown rule.
func (o *Orchestrator) Track(rawKey string, launchedAtMs int64) (Handle, error) {
	key, err := subjectkey.Validate(rawKey)
	if err != nil {
		return 0, fmt.Errorf("track: %w", err)
	}
	if !subjectkey.IsOnCurve(key) {
		// Off-curve keys are program-derived accounts (pools, vaults), not
		// creator wallets. Tracked anyway, but worth flagging.
		o.logger.Printf("[orchestrator] tracking off-curve key %s: program-derived address, not a wallet", key)
	}

	now := o.nowMs()
	var pub lifecycle.Publisher
	if o.bus != nil {
		pub = o.bus
	}
	e := &entity{
		subjectKey:   key,
		launchedAtMs: launchedAtMs,
		machine:      lifecycle.NewMachine(key, now, pub),
		limiter: rateLimiter{
			cooldownMs: o.cfg.ActionCooldownMs,
			hourlyCap:  o.cfg.HourlyActionCap,
		},
		actionsCap:   o.cfg.ActionLogCap,
		lastUpdateMs: now,
	}

	h, ok := o.arena.add(e)
	if !ok {
		return 0, fmt.Errorf("track %s: %w", key, ErrAlreadyTracked)
	}

	o.publish(domain.Event{
		Kind:       domain.EventInitializationComplete,
		SubjectKey: key,
		EmittedAt:  now,
	})
	o.logf("tracking %s (handle %d)", key, h)
	return h, nil
}

// SetEvidence stores the latest behavioral evidence for the subject;
// subsequent ticks score against it.
func (o *Orchestrator) SetEvidence(subjectKey string, evidence domain.BehaviorEvidence) error {
	e, ok := o.arena.byKeyLookup(subjectKey)
	if !ok {
		return fmt.Errorf("set evidence %s: %w", subjectKey, ErrUnknownSubject)
	}

	e.mu.Lock()
	e.evidence = evidence
	e.mu.Unlock()
	return nil
}

// Subjects returns all tracked subject keys.
func (o *Orchestrator) Subjects() []string {
	return o.arena.subjects()
}

// Tick runs one evaluation cycle for the subject. It returns the executed
// action, or nil when the tick was skipped (no market data, rate limited)
// or decided NO_ACTION. Skipped ticks are announced via events, not
// errors. Ticking a terminated entity is a caller error.
func (o *Orchestrator) Tick(ctx context.Context, subjectKey string, chaos *domain.ChaosSignal) (*domain.ActionRecord, error) {
	e, ok := o.arena.byKeyLookup(subjectKey)
	if !ok {
		return nil, fmt.Errorf("tick %s: %w", subjectKey, ErrUnknownSubject)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := o.nowMs()

	if e.machine.State().Terminal() {
		return nil, fmt.Errorf("tick %s: %w", subjectKey, lifecycle.ErrTerminated)
	}

	market, err := o.provider.GetMarketSnapshot(ctx, subjectKey)
	if err != nil {
		o.publish(domain.Event{
			Kind:       domain.EventError,
			SubjectKey: subjectKey,
			EmittedAt:  now,
			Payload:    domain.ErrorPayload{Op: "market_snapshot", Err: err.Error()},
		})
		o.logf("tick %s skipped: %v", subjectKey, err)
		return nil, nil
	}

	if err := e.machine.Activate(now); err != nil {
		return nil, fmt.Errorf("tick %s: %w", subjectKey, err)
	}

	// Refresh reputation and re-align the state machine on band change.
	prior := e.reputation
	rec := o.scorer.Evaluate(now, subjectKey, e.evidence, prior)
	e.reputation = rec

	if prior == nil || prior.Band != rec.Band {
		oldBand := rec.Band
		if prior != nil {
			oldBand = prior.Band
		}
		o.publish(domain.Event{
			Kind:       domain.EventCRIChange,
			SubjectKey: subjectKey,
			EmittedAt:  now,
			Payload:    domain.CRIChangePayload{OldBand: oldBand, NewBand: rec.Band, Score: rec.Score},
		})
	}
	if err := e.machine.ApplyBand(now, rec.Band); err != nil {
		return nil, fmt.Errorf("tick %s: %w", subjectKey, err)
	}
	if err := e.machine.ApplyLaunchAge(now, e.launchedAtMs, o.cfg.LaunchMaxAgeMs); err != nil {
		return nil, fmt.Errorf("tick %s: %w", subjectKey, err)
	}

	hints := o.observeMarket(ctx, now, subjectKey, market)

	// Budget check before invoking the engine: denial is a normal
	// outcome, announced but not an error.
	taper := int64(1)
	if e.machine.State() == domain.StateCooldown {
		taper = o.cfg.CooldownTaper
	}
	if allowed, reason, next := e.limiter.eligible(now, taper); !allowed {
		o.publish(domain.Event{
			Kind:       domain.EventBudgetAlert,
			SubjectKey: subjectKey,
			EmittedAt:  now,
			Payload: domain.BudgetAlertPayload{
				Reason:          reason,
				NextEligibleAt:  next,
				ActionsThisHour: e.limiter.actionsThisHour(now),
			},
		})
		e.lastUpdateMs = now
		return nil, nil
	}

	action := o.engine.Decide(now, *market, rec.Band, chaos, hints)
	e.lastUpdateMs = now

	if action.Type == domain.ActionNone {
		return nil, nil
	}

	e.limiter.record(now)
	e.totalActions++
	e.appendAction(action)
	o.logf("tick %s: %s (band %s)", subjectKey, action.Type, rec.Band)
	return &action, nil
}

// observeMarket feeds the snapshot into the pattern detector and distills
// decision hints from the most severe anomaly seen. Anomalies are
// announced on the bus.
func (o *Orchestrator) observeMarket(ctx context.Context, nowMs int64, subjectKey string, market *domain.MarketSnapshot) *decision.Hints {
	if o.detector == nil {
		return nil
	}

	signals := []struct {
		signalType string
		value      float64
	}{
		{domain.SignalPrice, market.Price},
		{domain.SignalVolume, market.RollingVolume},
		{domain.SignalLiquidity, market.LiquidityReserves},
		{domain.SignalVolatility, market.Volatility},
	}

	var hints *decision.Hints
	batch := make([]*domain.Observation, 0, len(signals))
	for _, s := range signals {
		obs := domain.Observation{
			SubjectKey:  subjectKey,
			SignalType:  s.signalType,
			Value:       s.value,
			TimestampMs: nowMs,
		}
		report := o.detector.Observe(obs)
		batch = append(batch, &obs)
		if !report.IsAnomaly {
			continue
		}

		o.publish(domain.Event{
			Kind:       domain.EventAnomalyDetected,
			SubjectKey: subjectKey,
			EmittedAt:  nowMs,
			Payload:    domain.AnomalyDetectedPayload{Report: report},
		})

		if hints == nil || report.Severity > hints.AnomalySeverity {
			hints = &decision.Hints{
				Anomalous:         true,
				AnomalySeverity:   report.Severity,
				AnomalyConfidence: report.Confidence,
			}
		}
	}

	if o.observations != nil {
		if err := o.observations.InsertBulk(ctx, batch); err != nil {
			o.logger.Printf("[orchestrator] archive observations for %s: %v", subjectKey, err)
		}
	}
	return hints
}

// ReportRug is the rug-detection hook: it appends the detection to the
// subject's reputation history and immediately forces an ADVERSARIAL
// transition, independent of the next scheduled tick.
func (o *Orchestrator) ReportRug(subjectKey string, severity float64) error {
	e, ok := o.arena.byKeyLookup(subjectKey)
	if !ok {
		return fmt.Errorf("report rug %s: %w", subjectKey, ErrUnknownSubject)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := o.nowMs()

	if e.machine.State().Terminal() {
		return fmt.Errorf("report rug %s: %w", subjectKey, lifecycle.ErrTerminated)
	}

	if e.reputation == nil {
		// Rug reported before the first tick: score once so there is a
		// record to attach the detection to.
		e.reputation = o.scorer.Evaluate(now, subjectKey, e.evidence, nil)
	}

	det := o.scorer.RecordRugDetection(now, e.reputation, severity)

	o.publish(domain.Event{
		Kind:       domain.EventRugDetected,
		SubjectKey: subjectKey,
		EmittedAt:  now,
		Payload: domain.RugDetectedPayload{
			Detection:       det,
			RecidivismCount: e.reputation.RecidivismCount,
		},
	})

	if err := e.machine.ApplyRug(now); err != nil {
		return fmt.Errorf("report rug %s: %w", subjectKey, err)
	}
	o.logf("rug detected for %s (severity %.2f, recidivism %d)",
		subjectKey, det.Severity, e.reputation.RecidivismCount)
	return nil
}

// Terminate stops monitoring the subject. The entity record stays
// readable; further ticks and transitions are rejected.
func (o *Orchestrator) Terminate(subjectKey, reason string) error {
	e, ok := o.arena.byKeyLookup(subjectKey)
	if !ok {
		return fmt.Errorf("terminate %s: %w", subjectKey, ErrUnknownSubject)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := o.nowMs()
	if err := e.machine.Terminate(now, reason); err != nil {
		return err
	}

	o.publish(domain.Event{
		Kind:       domain.EventTermination,
		SubjectKey: subjectKey,
		EmittedAt:  now,
		Payload:    domain.TerminationPayload{Reason: reason},
	})
	o.logf("terminated %s: %s", subjectKey, reason)
	return nil
}

// Status returns the read-only status surface for the subject.
func (o *Orchestrator) Status(subjectKey string) (domain.EntityStatus, error) {
	e, ok := o.arena.byKeyLookup(subjectKey)
	if !ok {
		return domain.EntityStatus{}, fmt.Errorf("status %s: %w", subjectKey, ErrUnknownSubject)
	}
	return o.statusOf(e), nil
}

// StatusByHandle is Status addressed by the handle Track returned.
func (o *Orchestrator) StatusByHandle(h Handle) (domain.EntityStatus, error) {
	e, ok := o.arena.byHandle(h)
	if !ok {
		return domain.EntityStatus{}, fmt.Errorf("status handle %d: %w", h, ErrUnknownSubject)
	}
	return o.statusOf(e), nil
}

func (o *Orchestrator) statusOf(e *entity) domain.EntityStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	status := domain.EntityStatus{
		SubjectKey:           e.subjectKey,
		State:                e.machine.State(),
		TotalActionsExecuted: e.totalActions,
		LastUpdateAt:         e.lastUpdateMs,
	}
	if e.reputation != nil {
		status.Band = e.reputation.Band
		status.Score = e.reputation.Score
	}

	taper := int64(1)
	if e.machine.State() == domain.StateCooldown {
		taper = o.cfg.CooldownTaper
	}
	status.NextEligibleActionAt = e.limiter.nextEligible(o.nowMs(), taper)
	return status
}

// ActionLog returns the subject's most recent n executed actions, newest
// last. n <= 0 returns the whole bounded log.
func (o *Orchestrator) ActionLog(subjectKey string, n int) ([]domain.ActionRecord, error) {
	e, ok := o.arena.byKeyLookup(subjectKey)
	if !ok {
		return nil, fmt.Errorf("action log %s: %w", subjectKey, ErrUnknownSubject)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if n <= 0 || n > len(e.actions) {
		n = len(e.actions)
	}
	out := make([]domain.ActionRecord, n)
	copy(out, e.actions[len(e.actions)-n:])
	return out, nil
}

func (o *Orchestrator) publish(ev domain.Event) {
	if o.bus != nil {
		o.bus.Publish(ev)
	}
}

func (o *Orchestrator) logf(format string, args ...interface{}) {
	if o.cfg.Verbose {
		o.logger.Printf("[orchestrator] "+format, args...)
	}
}
