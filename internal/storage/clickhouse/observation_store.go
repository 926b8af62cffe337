package clickhouse

import (
	"context"
	"fmt"

	"launch-sentinel/internal/domain"
	"launch-sentinel/internal/storage"
)

// ObservationStore implements storage.ObservationStore using ClickHouse.
type ObservationStore struct {
	conn *Conn
}

// NewObservationStore creates a new ObservationStore.
func NewObservationStore(conn *Conn) *ObservationStore {
	return &ObservationStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ObservationStore = (*ObservationStore)(nil)

// InsertBulk adds multiple observations. Fails entire batch on duplicate
// (subject_key, signal_type, timestamp_ms). ClickHouse MergeTree does not
// enforce uniqueness, so duplicates are checked explicitly before the batch.
func (s *ObservationStore) InsertBulk(ctx context.Context, observations []*domain.Observation) error {
	if len(observations) == 0 {
		return nil
	}

	type key struct {
		subjectKey  string
		signalType  string
		timestampMs int64
	}
	seen := make(map[key]struct{})
	for _, o := range observations {
		if o == nil || o.SubjectKey == "" || o.SignalType == "" {
			return storage.ErrInvalidInput
		}
		k := key{o.SubjectKey, o.SignalType, o.TimestampMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, o := range observations {
		exists, err := s.exists(ctx, o.SubjectKey, o.SignalType, o.TimestampMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO observations (subject_key, signal_type, value, timestamp_ms)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, o := range observations {
		if err := batch.Append(o.SubjectKey, o.SignalType, o.Value, uint64(o.TimestampMs)); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySubjectSignal retrieves all observations for a (subject, signal)
// stream, ordered by timestamp ASC.
func (s *ObservationStore) GetBySubjectSignal(ctx context.Context, subjectKey, signalType string) ([]*domain.Observation, error) {
	query := `
		SELECT subject_key, signal_type, value, timestamp_ms
		FROM observations
		WHERE subject_key = ? AND signal_type = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, subjectKey, signalType)
	if err != nil {
		return nil, fmt.Errorf("query by subject/signal: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// GetByTimeRange retrieves stream observations within [start, end] (inclusive).
func (s *ObservationStore) GetByTimeRange(ctx context.Context, subjectKey, signalType string, start, end int64) ([]*domain.Observation, error) {
	query := `
		SELECT subject_key, signal_type, value, timestamp_ms
		FROM observations
		WHERE subject_key = ? AND signal_type = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, subjectKey, signalType, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// exists checks if an observation with the given key exists.
func (s *ObservationStore) exists(ctx context.Context, subjectKey, signalType string, timestampMs int64) (bool, error) {
	query := `
		SELECT count(*) FROM observations
		WHERE subject_key = ? AND signal_type = ? AND timestamp_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, subjectKey, signalType, uint64(timestampMs)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanObservations scans multiple rows.
func scanObservations(rows chRows) ([]*domain.Observation, error) {
	var observations []*domain.Observation

	for rows.Next() {
		var o domain.Observation
		var timestampMs uint64

		if err := rows.Scan(&o.SubjectKey, &o.SignalType, &o.Value, &timestampMs); err != nil {
			return nil, fmt.Errorf("scan observation row: %w", err)
		}

		o.TimestampMs = int64(timestampMs)
		observations = append(observations, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observation rows: %w", err)
	}

	return observations, nil
}
