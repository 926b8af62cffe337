package reputation

import (
	"math"
	"testing"

	"launch-sentinel/internal/domain"
)

const dayMs = int64(24 * 60 * 60 * 1000)

func TestDecayedPenalty_HalfLife(t *testing.T) {
	halfLife := 30 * dayMs
	nowMs := int64(1700000000000)

	fresh := DecayedPenalty([]domain.RugDetection{
		{Severity: 0.6, DetectedAt: nowMs},
	}, nowMs, halfLife)

	aged := DecayedPenalty([]domain.RugDetection{
		{Severity: 0.6, DetectedAt: nowMs - 30*dayMs},
	}, nowMs, halfLife)

	if math.Abs(fresh-0.6) > 1e-9 {
		t.Errorf("day-0 penalty should be undamped severity, got %f", fresh)
	}
	if math.Abs(aged-0.3) > 1e-9 {
		t.Errorf("30-day-old penalty should retain 50%%, got %f", aged)
	}
}

func TestDecayedPenalty_StrictlyDecreasingWithAge(t *testing.T) {
	halfLife := 30 * dayMs
	nowMs := int64(1700000000000)

	prev := math.Inf(1)
	for _, ageDays := range []int64{0, 1, 7, 30, 90, 365} {
		p := DecayedPenalty([]domain.RugDetection{
			{Severity: 0.8, DetectedAt: nowMs - ageDays*dayMs},
		}, nowMs, halfLife)
		if p >= prev {
			t.Errorf("penalty at age %dd (%f) not below previous (%f)", ageDays, p, prev)
		}
		if p <= 0 {
			t.Errorf("penalty at age %dd should stay positive, got %f", ageDays, p)
		}
		prev = p
	}
}

func TestDecayedPenalty_FutureDetectionTreatedAsFresh(t *testing.T) {
	nowMs := int64(1700000000000)
	p := DecayedPenalty([]domain.RugDetection{
		{Severity: 0.5, DetectedAt: nowMs + dayMs},
	}, nowMs, 30*dayMs)
	if math.Abs(p-0.5) > 1e-9 {
		t.Errorf("future detection should decay as age zero, got %f", p)
	}
}

func TestRecidivismMultiplier(t *testing.T) {
	cases := []struct {
		count int
		want  float64
	}{
		{0, 1.0},
		{1, 1.0},
		{2, 2.5},
		{3, 4.0},
		{7, 4.0},
	}
	for _, c := range cases {
		if got := RecidivismMultiplier(c.count); got != c.want {
			t.Errorf("multiplier(%d) = %f, want %f", c.count, got, c.want)
		}
	}
}

func TestRecidivismMultiplier_SecondRugContribution(t *testing.T) {
	nowMs := int64(1700000000000)
	single := []domain.RugDetection{{Severity: 0.4, DetectedAt: nowMs}}
	double := []domain.RugDetection{
		{Severity: 0.4, DetectedAt: nowMs},
		{Severity: 0.4, DetectedAt: nowMs},
	}

	pSingle := DecayedPenalty(single, nowMs, 30*dayMs) * RecidivismMultiplier(len(single))
	pDouble := DecayedPenalty(double, nowMs, 30*dayMs) * RecidivismMultiplier(len(double))

	// Second detection doubles the decayed sum and moves the multiplier
	// from 1.0x to 2.5x, so the total must be 5x the single-rug penalty.
	if math.Abs(pDouble-5*pSingle) > 1e-9 {
		t.Errorf("two equal rugs: got %f, want %f", pDouble, 5*pSingle)
	}
}

func TestCountRecidivism_Window(t *testing.T) {
	window := 60 * dayMs
	base := int64(1700000000000)

	// Two detections 90 days apart: outside window, no recidivism.
	far := []domain.RugDetection{
		{DetectedAt: base},
		{DetectedAt: base + 90*dayMs},
	}
	if got := countRecidivism(far, window); got != 0 {
		t.Errorf("detections 90d apart: recidivism = %d, want 0", got)
	}

	// Three detections 10 days apart: two recidivist pairs.
	near := []domain.RugDetection{
		{DetectedAt: base},
		{DetectedAt: base + 10*dayMs},
		{DetectedAt: base + 20*dayMs},
	}
	if got := countRecidivism(near, window); got != 2 {
		t.Errorf("three clustered detections: recidivism = %d, want 2", got)
	}
}
