package domain

// LifecycleState is the state-machine state of a tracked entity.
type LifecycleState string

const (
	StateInit        LifecycleState = "INIT"
	StateActive      LifecycleState = "ACTIVE"
	StateGuardian    LifecycleState = "GUARDIAN"
	StateNeutral     LifecycleState = "NEUTRAL"
	StateAdversarial LifecycleState = "ADVERSARIAL"
	StateCooldown    LifecycleState = "COOLDOWN"
	StateTerminated  LifecycleState = "TERMINATED"
)

// Terminal reports whether the state accepts no further transitions.
func (s LifecycleState) Terminal() bool {
	return s == StateTerminated
}

// StateForBand maps a reputation band to its lifecycle state.
func StateForBand(b Band) LifecycleState {
	switch b {
	case BandGuardian:
		return LifecycleState(BandGuardian)
	case BandAdversarial:
		return LifecycleState(BandAdversarial)
	default:
		return LifecycleState(BandNeutral)
	}
}

// Transition triggers.
const (
	TriggerInitialize  = "INITIALIZE"
	TriggerBandChange  = "BAND_CHANGE"
	TriggerRugDetected = "RUG_DETECTED"
	TriggerLaunchAged  = "LAUNCH_AGED"
	TriggerTerminate   = "TERMINATE"
)

// TransitionRecord is one accepted state-machine transition.
// Corresponds to state_transitions table in PostgreSQL.
type TransitionRecord struct {
	TransitionID string // PRIMARY KEY, deterministic hash
	SubjectKey   string
	From         LifecycleState
	To           LifecycleState
	Trigger      string
	OccurredAt   int64 // Unix timestamp in milliseconds
}
