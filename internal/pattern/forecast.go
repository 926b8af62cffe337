package pattern

import "launch-sentinel/internal/domain"

// Forecast extrapolates the stream k steps ahead with ordinary
// least-squares over the most recent ForecastWindow observations (index as
// x, value as y), clamped to [0,1]. Confidence decays strictly with the
// lookahead: max(0.4, 0.9/(1+0.5k)). ok is false when the stream has no
// observations or steps < 1.
func (d *Detector) Forecast(subjectKey, signalType string, steps int) (domain.Forecast, bool) {
	if steps < 1 {
		return domain.Forecast{}, false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	s, found := d.streams[streamKey{subjectKey, signalType}]
	if !found || len(s.values) == 0 {
		return domain.Forecast{}, false
	}

	window := s.values
	if len(window) > ForecastWindow {
		window = window[len(window)-ForecastWindow:]
	}

	slope, intercept := olsFit(window)
	// The window occupies x = 0..n-1; the k-step lookahead lands at n-1+k.
	x := float64(len(window)-1) + float64(steps)
	value := clampUnit(intercept + slope*x)

	confidence := 0.9 / (1 + 0.5*float64(steps))
	if confidence < 0.4 {
		confidence = 0.4
	}

	return domain.Forecast{
		SubjectKey: subjectKey,
		SignalType: signalType,
		Steps:      steps,
		Value:      value,
		Confidence: confidence,
	}, true
}

// olsFit computes the least-squares line over values indexed 0..n-1.
// A single-point window yields a flat line through that point.
func olsFit(values []float64) (slope, intercept float64) {
	n := float64(len(values))
	if n == 1 {
		return 0, values[0]
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}

	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}
