package domain

// RugDetection is an externally detected liquidity-extraction or fraud event
// attributed to a creator. Corresponds to rug_detections table in PostgreSQL.
type RugDetection struct {
	DetectionID string  // PRIMARY KEY, deterministic hash
	SubjectKey  string  // creator being accused
	Severity    float64 // [0,1]
	DetectedAt  int64   // Unix timestamp in milliseconds
}

// BandChange records one band movement in a reputation record's history.
type BandChange struct {
	From       Band
	To         Band
	Score      float64
	OccurredAt int64 // Unix timestamp in milliseconds
}

// ReputationRecord holds the scored trust state for one creator.
// Score is the creator reputation index (CRI) in [0,100]; Band is always
// BandForScore(Score). The record is mutated exclusively by the reputation
// scorer; everyone else reads.
type ReputationRecord struct {
	SubjectKey       string
	Score            float64 // CRI, [0,100]
	Band             Band
	ObservationCount int
	BandHistory      []BandChange   // bounded, oldest trimmed first
	RugDetections    []RugDetection // ordered by DetectedAt ASC
	RecidivismCount  int
	UpdatedAt        int64 // Unix timestamp in milliseconds
}

// BehaviorEvidence is an upstream-observed behavioral snapshot for a creator.
// Ratios are expected in [0,1]; out-of-range values are clamped by the scorer,
// never rejected.
type BehaviorEvidence struct {
	GraduationRate      float64 // fraction of launches that graduated
	LiquidityRetention  float64 // fraction of initial liquidity still present
	HolderConcentration float64 // top-holder share, higher is worse
	EarlyExitRatio      float64 // creator sell pressure in first window
	BotActivityScore    float64 // [0,1], higher means more wash/bot volume
	PositiveFlags       int     // count of verified positive-behavior signals
	LaunchCount         int     // total launches observed for this creator
}
