package domain

// EventKind identifies the payload shape of a bus event.
type EventKind string

const (
	EventCRIChange              EventKind = "CRI_CHANGE"
	EventStateTransition        EventKind = "STATE_TRANSITION"
	EventActionExecuted         EventKind = "ACTION_EXECUTED"
	EventRugDetected            EventKind = "RUG_DETECTED"
	EventAnomalyDetected        EventKind = "ANOMALY_DETECTED"
	EventBudgetAlert            EventKind = "BUDGET_ALERT"
	EventInitializationComplete EventKind = "INITIALIZATION_COMPLETE"
	EventTermination            EventKind = "TERMINATION"
	EventError                  EventKind = "ERROR"
)

// Event is one typed bus message. Payload is one of the *Payload structs
// below, selected by Kind.
type Event struct {
	Kind       EventKind
	SubjectKey string
	EmittedAt  int64 // Unix timestamp in milliseconds
	Payload    any
}

// CRIChangePayload announces a band movement after re-evaluation.
type CRIChangePayload struct {
	OldBand Band
	NewBand Band
	Score   float64
}

// StateTransitionPayload carries the accepted transition record.
type StateTransitionPayload struct {
	Transition TransitionRecord
}

// ActionExecutedPayload carries the logged action.
type ActionExecutedPayload struct {
	Action ActionRecord
}

// RugDetectedPayload carries the rug detection and the recidivism count
// after appending it.
type RugDetectedPayload struct {
	Detection       RugDetection
	RecidivismCount int
}

// AnomalyDetectedPayload carries a statistical anomaly report.
type AnomalyDetectedPayload struct {
	Report AnomalyReport
}

// BudgetAlertPayload announces a rate-limit or hourly-cap hit.
type BudgetAlertPayload struct {
	Reason          string
	NextEligibleAt  int64 // Unix timestamp in milliseconds
	ActionsThisHour int
}

// TerminationPayload carries the caller-supplied reason.
type TerminationPayload struct {
	Reason string
}

// ErrorPayload reports a contained per-entity failure (e.g. missing market
// data). Never fatal.
type ErrorPayload struct {
	Op  string
	Err string
}
