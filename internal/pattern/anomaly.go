package pattern

import (
	"math"

	"launch-sentinel/internal/domain"
)

// Anomaly scoring constants.
const (
	// minObservations is the smallest window that supports statistics.
	minObservations = 3
	// anomalyThreshold is the |deviation| beyond which an observation is
	// flagged.
	anomalyThreshold = 2.0
	// severityDivisor maps |deviation| to a [0,1] severity.
	severityDivisor = 4.0
	// flatStddev is the stddev below which a stream counts as flat.
	// Running-sum variance keeps float drift on constant streams; this
	// absorbs it.
	flatStddev = 1e-6
	// zeroStddevEpsilon separates "flat stream, same value" from "flat
	// stream, surprising value".
	zeroStddevEpsilon = 1e-9
	// zeroStddevSeverity is the fixed moderate severity charged when a
	// flat stream sees a different value.
	zeroStddevSeverity = 0.5
	// defaultConfidence is returned while the window is too small.
	defaultConfidence = 0.1
	// maxConfidence caps window-driven confidence.
	maxConfidence = 0.95
	// confidenceWindow is the window size at which confidence saturates.
	confidenceWindow = 50.0
)

// scoreObservation scores obs against the stream's current window.
// Caller must hold the detector lock.
func scoreObservation(s *stream, obs domain.Observation) domain.AnomalyReport {
	report := domain.AnomalyReport{
		SubjectKey:  obs.SubjectKey,
		SignalType:  obs.SignalType,
		Value:       obs.Value,
		TimestampMs: obs.TimestampMs,
	}

	n := len(s.values)
	if n < minObservations {
		// Not enough data for statistics: fixed low-confidence default.
		report.Confidence = defaultConfidence
		return report
	}

	mean := s.sum / float64(n)
	variance := s.sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0 // float drift on near-constant streams
	}
	stddev := math.Sqrt(variance)

	report.Mean = mean
	report.Stddev = stddev
	report.Confidence = math.Min(float64(n)/confidenceWindow, maxConfidence)

	if stddev < flatStddev {
		if math.Abs(obs.Value-mean) > zeroStddevEpsilon {
			report.IsAnomaly = true
			report.Severity = zeroStddevSeverity
		}
		return report
	}

	deviation := (obs.Value - mean) / stddev
	report.Deviation = deviation
	report.IsAnomaly = math.Abs(deviation) > anomalyThreshold
	report.Severity = clampUnit(math.Abs(deviation) / severityDivisor)
	return report
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
