package domain

// Band is the discrete trust classification derived from the continuous
// creator reputation index (CRI).
type Band string

const (
	BandGuardian    Band = "GUARDIAN"
	BandNeutral     Band = "NEUTRAL"
	BandAdversarial Band = "ADVERSARIAL"
)

// CRI thresholds. BandForScore is a monotonic step function over these.
const (
	GuardianThreshold = 80.0
	NeutralThreshold  = 40.0
)

// BandForScore maps a CRI score in [0,100] to a band.
// GUARDIAN >= 80, NEUTRAL [40,80), ADVERSARIAL < 40.
func BandForScore(score float64) Band {
	switch {
	case score >= GuardianThreshold:
		return BandGuardian
	case score >= NeutralThreshold:
		return BandNeutral
	default:
		return BandAdversarial
	}
}

// Valid reports whether b is one of the three known bands.
func (b Band) Valid() bool {
	switch b {
	case BandGuardian, BandNeutral, BandAdversarial:
		return true
	default:
		return false
	}
}
