package reputation

import (
	"math"

	"launch-sentinel/internal/domain"
)

// DecayedPenalty sums rug severities with exponential half-life decay.
// Each detection of severity s and age ageMs contributes
// s * 0.5^(ageMs / halfLifeMs), so a detection exactly one half-life old
// retains 50% of its weight. Detections from the future (clock skew) are
// treated as age zero.
func DecayedPenalty(detections []domain.RugDetection, nowMs, halfLifeMs int64) float64 {
	if halfLifeMs <= 0 {
		halfLifeMs = DefaultConfig().HalfLifeMs
	}

	sum := 0.0
	for _, d := range detections {
		age := nowMs - d.DetectedAt
		if age < 0 {
			age = 0
		}
		sev := clamp01(d.Severity)
		sum += sev * math.Exp2(-float64(age)/float64(halfLifeMs))
	}
	return sum
}

// RecidivismMultiplier amplifies the summed decayed penalty by total
// detections on record: first offense 1.0x, second 2.5x, third and beyond
// 4.0x. Old isolated mistakes stay forgivable; patterns of repeat offense
// become near-disqualifying.
func RecidivismMultiplier(detectionCount int) float64 {
	switch {
	case detectionCount <= 1:
		return 1.0
	case detectionCount == 2:
		return 2.5
	default:
		return 4.0
	}
}

// countRecidivism counts detections beyond the first that land within
// windowMs of an earlier detection. Detections must be ordered by
// DetectedAt ASC.
func countRecidivism(detections []domain.RugDetection, windowMs int64) int {
	count := 0
	for i := 1; i < len(detections); i++ {
		if detections[i].DetectedAt-detections[i-1].DetectedAt <= windowMs {
			count++
		}
	}
	return count
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
