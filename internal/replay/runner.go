// Package replay re-scores archived stream samples offline. A fresh
// detector replays the samples in timestamp order, reproducing the
// anomaly decisions the live loop made, which lets threshold changes be
// evaluated against history before they ship.
package replay

import (
	"context"
	"fmt"
	"sort"

	"launch-sentinel/internal/domain"
	"launch-sentinel/internal/pattern"
	"launch-sentinel/internal/storage"
)

// Runner loads archived observations and replays them through a detector.
type Runner struct {
	observations storage.ObservationStore
}

// NewRunner creates a replay runner backed by an observation archive.
func NewRunner(observations storage.ObservationStore) *Runner {
	return &Runner{observations: observations}
}

// Result summarizes one replayed stream.
type Result struct {
	SubjectKey      string
	SignalType      string
	SamplesReplayed int
	Flagged         []domain.AnomalyReport
	// Forecast is the short-horizon extrapolation at end of stream, nil
	// when the stream is too short to fit.
	Forecast *domain.Forecast
}

// Run replays one (subject, signal) stream within [fromMs, toMs] inclusive.
// A zero toMs replays the full stream.
func (r *Runner) Run(ctx context.Context, subjectKey, signalType string, fromMs, toMs int64) (*Result, error) {
	var (
		samples []*domain.Observation
		err     error
	)
	if fromMs == 0 && toMs == 0 {
		samples, err = r.observations.GetBySubjectSignal(ctx, subjectKey, signalType)
	} else {
		samples, err = r.observations.GetByTimeRange(ctx, subjectKey, signalType, fromMs, toMs)
	}
	if err != nil {
		return nil, fmt.Errorf("load observations: %w", err)
	}

	// Stores return ascending order; enforce it anyway, scoring depends on
	// replay order.
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].TimestampMs < samples[j].TimestampMs
	})

	det := pattern.NewDetector()
	result := &Result{SubjectKey: subjectKey, SignalType: signalType}
	for _, obs := range samples {
		report := det.Observe(*obs)
		result.SamplesReplayed++
		if report.IsAnomaly {
			result.Flagged = append(result.Flagged, report)
		}
	}

	if fc, ok := det.Forecast(subjectKey, signalType, 3); ok {
		result.Forecast = &fc
	}

	return result, nil
}
