package domain

// EntityStatus is the read-only status surface exposed to external
// consumers (dashboards, APIs).
type EntityStatus struct {
	SubjectKey           string
	State                LifecycleState
	Band                 Band
	Score                float64 // CRI
	TotalActionsExecuted int
	NextEligibleActionAt int64 // Unix timestamp in milliseconds, 0 if eligible now
	LastUpdateAt         int64 // Unix timestamp in milliseconds
}
