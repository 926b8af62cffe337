// Package reputation scores token-launch creators from observed behavior.
// It converts a behavioral-evidence snapshot plus decayed rug history into
// a creator reputation index (CRI) in [0,100] and a discrete trust band.
package reputation

import (
	"launch-sentinel/internal/domain"
	"launch-sentinel/internal/idhash"
)

// Config holds scoring weights and temporal parameters. Weights are
// configuration, not algorithm: callers may tune them, the shape of the
// computation is fixed.
type Config struct {
	// BaseScore is the starting CRI before evidence contributions.
	BaseScore float64

	// Positive contributions, each scaled by a [0,1] evidence ratio.
	GraduationWeight float64
	RetentionWeight  float64

	// Negative contributions, each scaled by a [0,1] evidence ratio.
	ConcentrationWeight float64
	EarlyExitWeight     float64
	BotActivityWeight   float64

	// PositiveFlagWeight is added per verified positive-behavior flag,
	// capped at PositiveFlagCap flags.
	PositiveFlagWeight float64
	PositiveFlagCap    int

	// RugPenaltyWeight converts the decayed, recidivism-amplified severity
	// sum into CRI points.
	RugPenaltyWeight float64

	// HalfLifeMs is the rug-decay half-life.
	HalfLifeMs int64

	// RecidivismWindowMs is the trailing window within which repeated
	// detections count as recidivism.
	RecidivismWindowMs int64

	// BandHistoryCap bounds the per-creator band history.
	BandHistoryCap int
}

// DefaultConfig returns the standard weights.
func DefaultConfig() Config {
	return Config{
		BaseScore:           50,
		GraduationWeight:    20,
		RetentionWeight:     15,
		ConcentrationWeight: 15,
		EarlyExitWeight:     15,
		BotActivityWeight:   10,
		PositiveFlagWeight:  3,
		PositiveFlagCap:     5,
		RugPenaltyWeight:    40,
		HalfLifeMs:          30 * 24 * 60 * 60 * 1000, // 30 days
		RecidivismWindowMs:  60 * 24 * 60 * 60 * 1000, // 60 days
		BandHistoryCap:      50,
	}
}

// Scorer computes reputation records. Evaluate is a pure function of
// (now, evidence, prior); the scorer itself holds only configuration.
type Scorer struct {
	cfg Config
}

// NewScorer creates a Scorer. Zero-valued config fields fall back to
// defaults so a partially filled Config stays usable.
func NewScorer(cfg Config) *Scorer {
	def := DefaultConfig()
	if cfg.BaseScore == 0 {
		cfg.BaseScore = def.BaseScore
	}
	if cfg.HalfLifeMs == 0 {
		cfg.HalfLifeMs = def.HalfLifeMs
	}
	if cfg.RecidivismWindowMs == 0 {
		cfg.RecidivismWindowMs = def.RecidivismWindowMs
	}
	if cfg.BandHistoryCap == 0 {
		cfg.BandHistoryCap = def.BandHistoryCap
	}
	return &Scorer{cfg: cfg}
}

// Evaluate recomputes the CRI from current evidence plus decayed rug
// history and returns the updated record. The prior record may be nil on
// first evaluation. The score is always recomputed from scratch, never
// mutated incrementally. Malformed evidence is clamped, never rejected:
// reputation must always produce a band.
func (s *Scorer) Evaluate(nowMs int64, subjectKey string, evidence domain.BehaviorEvidence, prior *domain.ReputationRecord) *domain.ReputationRecord {
	ev := clampEvidence(evidence)

	score := s.cfg.BaseScore
	score += ev.GraduationRate * s.cfg.GraduationWeight
	score += ev.LiquidityRetention * s.cfg.RetentionWeight
	score -= ev.HolderConcentration * s.cfg.ConcentrationWeight
	score -= ev.EarlyExitRatio * s.cfg.EarlyExitWeight
	score -= ev.BotActivityScore * s.cfg.BotActivityWeight

	flags := ev.PositiveFlags
	if flags > s.cfg.PositiveFlagCap {
		flags = s.cfg.PositiveFlagCap
	}
	score += float64(flags) * s.cfg.PositiveFlagWeight

	rec := &domain.ReputationRecord{
		SubjectKey: subjectKey,
		UpdatedAt:  nowMs,
	}
	if prior != nil {
		rec.ObservationCount = prior.ObservationCount
		rec.BandHistory = prior.BandHistory
		rec.RugDetections = prior.RugDetections
		rec.RecidivismCount = prior.RecidivismCount
	}
	rec.ObservationCount++

	penalty := DecayedPenalty(rec.RugDetections, nowMs, s.cfg.HalfLifeMs)
	penalty *= RecidivismMultiplier(len(rec.RugDetections))
	score -= penalty * s.cfg.RugPenaltyWeight

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	rec.Score = score
	rec.Band = domain.BandForScore(score)

	if prior != nil && prior.Band != rec.Band {
		rec.BandHistory = appendBounded(rec.BandHistory, domain.BandChange{
			From:       prior.Band,
			To:         rec.Band,
			Score:      score,
			OccurredAt: nowMs,
		}, s.cfg.BandHistoryCap)
	}

	return rec
}

// RecordRugDetection appends a detection to the record and updates the
// recidivism count. It does not recompute the band: the band only moves on
// the next Evaluate call, so callers needing an immediate transition must
// re-evaluate or go through the orchestrator's rug hook.
func (s *Scorer) RecordRugDetection(nowMs int64, rec *domain.ReputationRecord, severity float64) domain.RugDetection {
	det := domain.RugDetection{
		DetectionID: idhash.ComputeDetectionID(rec.SubjectKey, nowMs),
		SubjectKey:  rec.SubjectKey,
		Severity:    clamp01(severity),
		DetectedAt:  nowMs,
	}
	rec.RugDetections = append(rec.RugDetections, det)
	rec.RecidivismCount = countRecidivism(rec.RugDetections, s.cfg.RecidivismWindowMs)
	return det
}

// clampEvidence forces all ratios into [0,1] and counts to >= 0.
func clampEvidence(ev domain.BehaviorEvidence) domain.BehaviorEvidence {
	ev.GraduationRate = clamp01(ev.GraduationRate)
	ev.LiquidityRetention = clamp01(ev.LiquidityRetention)
	ev.HolderConcentration = clamp01(ev.HolderConcentration)
	ev.EarlyExitRatio = clamp01(ev.EarlyExitRatio)
	ev.BotActivityScore = clamp01(ev.BotActivityScore)
	if ev.PositiveFlags < 0 {
		ev.PositiveFlags = 0
	}
	if ev.LaunchCount < 0 {
		ev.LaunchCount = 0
	}
	return ev
}

func appendBounded(history []domain.BandChange, change domain.BandChange, cap int) []domain.BandChange {
	history = append(history, change)
	if cap > 0 && len(history) > cap {
		history = history[len(history)-cap:]
	}
	return history
}
