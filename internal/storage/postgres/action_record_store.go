package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"launch-sentinel/internal/domain"
	"launch-sentinel/internal/storage"
)

// ActionRecordStore implements storage.ActionRecordStore using PostgreSQL.
type ActionRecordStore struct {
	pool *Pool
}

// NewActionRecordStore creates a new ActionRecordStore.
func NewActionRecordStore(pool *Pool) *ActionRecordStore {
	return &ActionRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ActionRecordStore = (*ActionRecordStore)(nil)

const actionRecordColumns = `action_id, subject_key, action_type, band, executed_at, execution_ref`

// Insert adds a new action record. Returns ErrDuplicateKey if action_id exists.
func (s *ActionRecordStore) Insert(ctx context.Context, a *domain.ActionRecord) error {
	query := `
		INSERT INTO action_records (` + actionRecordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.Exec(ctx, query,
		a.ActionID, a.SubjectKey, string(a.Type), string(a.Band), a.ExecutedAt, a.ExecutionRef,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert action record: %w", err)
	}
	return nil
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *ActionRecordStore) InsertBulk(ctx context.Context, actions []*domain.ActionRecord) error {
	if len(actions) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO action_records (` + actionRecordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for _, a := range actions {
		_, err := tx.Exec(ctx, query,
			a.ActionID, a.SubjectKey, string(a.Type), string(a.Band), a.ExecutedAt, a.ExecutionRef,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert action record in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByID retrieves an action by its ID. Returns ErrNotFound if not exists.
func (s *ActionRecordStore) GetByID(ctx context.Context, actionID string) (*domain.ActionRecord, error) {
	query := `
		SELECT ` + actionRecordColumns + `
		FROM action_records
		WHERE action_id = $1
	`

	row := s.pool.QueryRow(ctx, query, actionID)
	a, err := scanActionRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get action record by id: %w", err)
	}
	return a, nil
}

// GetBySubjectKey retrieves all actions for a subject, ordered by executed_at ASC.
func (s *ActionRecordStore) GetBySubjectKey(ctx context.Context, subjectKey string) ([]*domain.ActionRecord, error) {
	query := `
		SELECT ` + actionRecordColumns + `
		FROM action_records
		WHERE subject_key = $1
		ORDER BY executed_at ASC, action_id ASC
	`

	rows, err := s.pool.Query(ctx, query, subjectKey)
	if err != nil {
		return nil, fmt.Errorf("get action records by subject key: %w", err)
	}
	defer rows.Close()

	return scanActionRecords(rows)
}

// GetByTimeRange retrieves actions for a subject within [start, end] (inclusive).
func (s *ActionRecordStore) GetByTimeRange(ctx context.Context, subjectKey string, start, end int64) ([]*domain.ActionRecord, error) {
	query := `
		SELECT ` + actionRecordColumns + `
		FROM action_records
		WHERE subject_key = $1 AND executed_at >= $2 AND executed_at <= $3
		ORDER BY executed_at ASC, action_id ASC
	`

	rows, err := s.pool.Query(ctx, query, subjectKey, start, end)
	if err != nil {
		return nil, fmt.Errorf("get action records by time range: %w", err)
	}
	defer rows.Close()

	return scanActionRecords(rows)
}

// scanActionRecord scans a single row into an ActionRecord.
func scanActionRecord(row pgx.Row) (*domain.ActionRecord, error) {
	var a domain.ActionRecord
	var actionType, band string

	err := row.Scan(&a.ActionID, &a.SubjectKey, &actionType, &band, &a.ExecutedAt, &a.ExecutionRef)
	if err != nil {
		return nil, err
	}

	a.Type = domain.ActionType(actionType)
	a.Band = domain.Band(band)
	return &a, nil
}

// scanActionRecords scans multiple rows into a slice of ActionRecord.
func scanActionRecords(rows pgx.Rows) ([]*domain.ActionRecord, error) {
	var actions []*domain.ActionRecord

	for rows.Next() {
		var a domain.ActionRecord
		var actionType, band string

		err := rows.Scan(&a.ActionID, &a.SubjectKey, &actionType, &band, &a.ExecutedAt, &a.ExecutionRef)
		if err != nil {
			return nil, fmt.Errorf("scan action record row: %w", err)
		}

		a.Type = domain.ActionType(actionType)
		a.Band = domain.Band(band)
		actions = append(actions, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate action record rows: %w", err)
	}

	return actions, nil
}
