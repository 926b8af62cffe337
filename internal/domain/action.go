package domain

// ActionType is one liquidity-support intervention chosen by the decision
// engine. Exactly one action is chosen per tick.
type ActionType string

const (
	ActionSpreadCompression     ActionType = "SPREAD_COMPRESSION"
	ActionVolumeSmoothing       ActionType = "VOLUME_SMOOTHING"
	ActionMomentumValidation    ActionType = "MOMENTUM_VALIDATION"
	ActionExtractionSuppression ActionType = "EXTRACTION_SUPPRESSION"
	ActionCrashBuffering        ActionType = "CRASH_BUFFERING"
	ActionNone                  ActionType = "NO_ACTION"
)

// ActionRecord is one logged intervention. Immutable once logged.
// Corresponds to action_records table in PostgreSQL.
type ActionRecord struct {
	ActionID     string // PRIMARY KEY, deterministic hash
	SubjectKey   string
	Type         ActionType
	Band         Band
	ExecutedAt   int64   // Unix timestamp in milliseconds
	ExecutionRef *string // relay/venue reference (nullable)
}
