package decision

import "launch-sentinel/internal/domain"

// The three band policies are small ordered rule sets: the first matching
// rule wins, otherwise NO_ACTION.

// guardianPolicy favors stabilization: trusted creators get spread
// support, volume smoothing, and crash protection.
func (e *Engine) guardianPolicy(market domain.MarketSnapshot, sigma float64, hints *Hints) domain.ActionType {
	if recentDrop(market.PriceHistory) > e.cfg.GuardianCrashDropPct {
		return domain.ActionCrashBuffering
	}
	if severeAnomaly(hints, e.cfg) {
		return domain.ActionCrashBuffering
	}
	if market.SpreadBps > e.cfg.GuardianWideSpreadBps {
		return domain.ActionSpreadCompression
	}
	if market.Volatility > e.cfg.GuardianHighVolatility {
		return domain.ActionVolumeSmoothing
	}
	if market.OrderBookImbalance > 0.4 && sigma > e.cfg.GuardianMomentumSigma {
		return domain.ActionMomentumValidation
	}
	return domain.ActionNone
}

// neutralPolicy is a conservative middle ground: only clearly degraded
// conditions warrant intervention.
func (e *Engine) neutralPolicy(market domain.MarketSnapshot, sigma float64) domain.ActionType {
	if recentDrop(market.PriceHistory) > e.cfg.NeutralCrashDropPct {
		return domain.ActionCrashBuffering
	}
	if sigma > e.cfg.NeutralHighSigma {
		return domain.ActionVolumeSmoothing
	}
	return domain.ActionNone
}

// adversarialPolicy favors friction: distrusted creators get extraction
// suppression on drain signatures, nothing else.
func (e *Engine) adversarialPolicy(market domain.MarketSnapshot, sigma float64, hints *Hints) domain.ActionType {
	if market.OrderBookImbalance < e.cfg.AdversarialDrainImbalance {
		return domain.ActionExtractionSuppression
	}
	if volumePressure(market, e.cfg.VolumeNormRatio) > e.cfg.AdversarialHighPressure && sigma > e.cfg.NeutralHighSigma {
		return domain.ActionExtractionSuppression
	}
	if severeAnomaly(hints, e.cfg) {
		return domain.ActionExtractionSuppression
	}
	return domain.ActionNone
}

// severeAnomaly gates pattern-detector hints on both severity and
// confidence.
func severeAnomaly(hints *Hints, cfg Config) bool {
	return hints != nil &&
		hints.Anomalous &&
		hints.AnomalySeverity > cfg.AnomalySeverityGate &&
		hints.AnomalyConfidence > cfg.AnomalyConfidenceGate
}

// recentDrop returns the fractional fall from the previous price to the
// latest one, 0 when the history is too short or not falling.
func recentDrop(history []float64) float64 {
	n := len(history)
	if n < 2 {
		return 0
	}
	prev, last := history[n-2], history[n-1]
	if prev <= 0 || last >= prev {
		return 0
	}
	return (prev - last) / prev
}
