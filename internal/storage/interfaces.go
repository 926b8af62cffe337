package storage

import (
	"context"

	"launch-sentinel/internal/domain"
)

// ActionRecordStore provides access to action_records storage.
type ActionRecordStore interface {
	// Insert adds a new action record. Returns ErrDuplicateKey if action_id exists.
	Insert(ctx context.Context, a *domain.ActionRecord) error

	// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, actions []*domain.ActionRecord) error

	// GetByID retrieves an action by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, actionID string) (*domain.ActionRecord, error)

	// GetBySubjectKey retrieves all actions for a subject, ordered by executed_at ASC.
	GetBySubjectKey(ctx context.Context, subjectKey string) ([]*domain.ActionRecord, error)

	// GetByTimeRange retrieves actions for a subject within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, subjectKey string, start, end int64) ([]*domain.ActionRecord, error)
}

// RugDetectionStore provides access to rug_detections storage.
type RugDetectionStore interface {
	// Insert adds a new detection. Returns ErrDuplicateKey if detection_id exists.
	Insert(ctx context.Context, d *domain.RugDetection) error

	// GetByID retrieves a detection by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, detectionID string) (*domain.RugDetection, error)

	// GetBySubjectKey retrieves all detections for a subject, ordered by detected_at ASC.
	GetBySubjectKey(ctx context.Context, subjectKey string) ([]*domain.RugDetection, error)

	// CountSince counts detections for a subject with detected_at >= since.
	CountSince(ctx context.Context, subjectKey string, since int64) (int, error)
}

// StateTransitionStore provides access to state_transitions storage.
type StateTransitionStore interface {
	// Insert adds a new transition record. Returns ErrDuplicateKey if transition_id exists.
	Insert(ctx context.Context, tr *domain.TransitionRecord) error

	// GetBySubjectKey retrieves all transitions for a subject, ordered by occurred_at ASC.
	GetBySubjectKey(ctx context.Context, subjectKey string) ([]*domain.TransitionRecord, error)

	// GetLatest retrieves the most recent transition for a subject.
	// Returns ErrNotFound if the subject has none.
	GetLatest(ctx context.Context, subjectKey string) (*domain.TransitionRecord, error)
}

// ObservationStore provides access to observations storage.
type ObservationStore interface {
	// InsertBulk adds multiple observations. Fails entire batch on
	// duplicate (subject_key, signal_type, timestamp_ms).
	InsertBulk(ctx context.Context, observations []*domain.Observation) error

	// GetBySubjectSignal retrieves all observations for a (subject, signal)
	// stream, ordered by timestamp ASC.
	GetBySubjectSignal(ctx context.Context, subjectKey, signalType string) ([]*domain.Observation, error)

	// GetByTimeRange retrieves stream observations within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, subjectKey, signalType string, start, end int64) ([]*domain.Observation, error)
}

// AnomalyStore provides access to anomalies storage.
type AnomalyStore interface {
	// InsertBulk adds multiple anomaly reports. Fails entire batch on
	// duplicate (subject_key, signal_type, timestamp_ms).
	InsertBulk(ctx context.Context, reports []*domain.AnomalyReport) error

	// GetBySubjectKey retrieves all reports for a subject, ordered by timestamp ASC.
	GetBySubjectKey(ctx context.Context, subjectKey string) ([]*domain.AnomalyReport, error)

	// GetByTimeRange retrieves reports for a subject within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, subjectKey string, start, end int64) ([]*domain.AnomalyReport, error)
}
