package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"launch-sentinel/internal/domain"
	"launch-sentinel/internal/storage"
)

// StateTransitionStore implements storage.StateTransitionStore using PostgreSQL.
type StateTransitionStore struct {
	pool *Pool
}

// NewStateTransitionStore creates a new StateTransitionStore.
func NewStateTransitionStore(pool *Pool) *StateTransitionStore {
	return &StateTransitionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.StateTransitionStore = (*StateTransitionStore)(nil)

const stateTransitionColumns = `transition_id, subject_key, from_state, to_state, trigger_kind, occurred_at`

// Insert adds a new transition record. Returns ErrDuplicateKey if transition_id exists.
func (s *StateTransitionStore) Insert(ctx context.Context, tr *domain.TransitionRecord) error {
	query := `
		INSERT INTO state_transitions (` + stateTransitionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.Exec(ctx, query,
		tr.TransitionID, tr.SubjectKey, string(tr.From), string(tr.To), tr.Trigger, tr.OccurredAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert state transition: %w", err)
	}
	return nil
}

// GetBySubjectKey retrieves all transitions for a subject, ordered by occurred_at ASC.
func (s *StateTransitionStore) GetBySubjectKey(ctx context.Context, subjectKey string) ([]*domain.TransitionRecord, error) {
	query := `
		SELECT ` + stateTransitionColumns + `
		FROM state_transitions
		WHERE subject_key = $1
		ORDER BY occurred_at ASC, transition_id ASC
	`

	rows, err := s.pool.Query(ctx, query, subjectKey)
	if err != nil {
		return nil, fmt.Errorf("get state transitions by subject key: %w", err)
	}
	defer rows.Close()

	var transitions []*domain.TransitionRecord
	for rows.Next() {
		tr, err := scanStateTransitionFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan state transition row: %w", err)
		}
		transitions = append(transitions, tr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate state transition rows: %w", err)
	}

	return transitions, nil
}

// GetLatest retrieves the most recent transition for a subject.
// Returns ErrNotFound if the subject has none.
func (s *StateTransitionStore) GetLatest(ctx context.Context, subjectKey string) (*domain.TransitionRecord, error) {
	query := `
		SELECT ` + stateTransitionColumns + `
		FROM state_transitions
		WHERE subject_key = $1
		ORDER BY occurred_at DESC, transition_id DESC
		LIMIT 1
	`

	row := s.pool.QueryRow(ctx, query, subjectKey)
	tr, err := scanStateTransitionFrom(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest state transition: %w", err)
	}
	return tr, nil
}

// scanStateTransitionFrom scans one row (pgx.Row or pgx.Rows) into a
// TransitionRecord.
func scanStateTransitionFrom(row pgx.Row) (*domain.TransitionRecord, error) {
	var tr domain.TransitionRecord
	var from, to string

	err := row.Scan(&tr.TransitionID, &tr.SubjectKey, &from, &to, &tr.Trigger, &tr.OccurredAt)
	if err != nil {
		return nil, err
	}

	tr.From = domain.LifecycleState(from)
	tr.To = domain.LifecycleState(to)
	return &tr, nil
}
