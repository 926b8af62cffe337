package clickhouse

import (
	"context"
	"fmt"

	"launch-sentinel/internal/domain"
	"launch-sentinel/internal/storage"
)

// AnomalyStore implements storage.AnomalyStore using ClickHouse.
type AnomalyStore struct {
	conn *Conn
}

// NewAnomalyStore creates a new AnomalyStore.
func NewAnomalyStore(conn *Conn) *AnomalyStore {
	return &AnomalyStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AnomalyStore = (*AnomalyStore)(nil)

const anomalyColumns = `subject_key, signal_type, value, mean, stddev, deviation, is_anomaly, severity, confidence, timestamp_ms`

// InsertBulk adds multiple anomaly reports. Fails entire batch on duplicate
// (subject_key, signal_type, timestamp_ms).
func (s *AnomalyStore) InsertBulk(ctx context.Context, reports []*domain.AnomalyReport) error {
	if len(reports) == 0 {
		return nil
	}

	type key struct {
		subjectKey  string
		signalType  string
		timestampMs int64
	}
	seen := make(map[key]struct{})
	for _, r := range reports {
		if r == nil || r.SubjectKey == "" || r.SignalType == "" {
			return storage.ErrInvalidInput
		}
		k := key{r.SubjectKey, r.SignalType, r.TimestampMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, r := range reports {
		exists, err := s.exists(ctx, r.SubjectKey, r.SignalType, r.TimestampMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO anomalies (`+anomalyColumns+`)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range reports {
		isAnomaly := uint8(0)
		if r.IsAnomaly {
			isAnomaly = 1
		}
		err := batch.Append(
			r.SubjectKey, r.SignalType, r.Value, r.Mean, r.Stddev,
			r.Deviation, isAnomaly, r.Severity, r.Confidence, uint64(r.TimestampMs),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySubjectKey retrieves all reports for a subject, ordered by timestamp ASC.
func (s *AnomalyStore) GetBySubjectKey(ctx context.Context, subjectKey string) ([]*domain.AnomalyReport, error) {
	query := `
		SELECT ` + anomalyColumns + `
		FROM anomalies
		WHERE subject_key = ?
		ORDER BY timestamp_ms ASC, signal_type ASC
	`

	rows, err := s.conn.Query(ctx, query, subjectKey)
	if err != nil {
		return nil, fmt.Errorf("query by subject key: %w", err)
	}
	defer rows.Close()

	return scanAnomalies(rows)
}

// GetByTimeRange retrieves reports for a subject within [start, end] (inclusive).
func (s *AnomalyStore) GetByTimeRange(ctx context.Context, subjectKey string, start, end int64) ([]*domain.AnomalyReport, error) {
	query := `
		SELECT ` + anomalyColumns + `
		FROM anomalies
		WHERE subject_key = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC, signal_type ASC
	`

	rows, err := s.conn.Query(ctx, query, subjectKey, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanAnomalies(rows)
}

// exists checks if a report with the given key exists.
func (s *AnomalyStore) exists(ctx context.Context, subjectKey, signalType string, timestampMs int64) (bool, error) {
	query := `
		SELECT count(*) FROM anomalies
		WHERE subject_key = ? AND signal_type = ? AND timestamp_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, subjectKey, signalType, uint64(timestampMs)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanAnomalies scans multiple rows.
func scanAnomalies(rows chRows) ([]*domain.AnomalyReport, error) {
	var reports []*domain.AnomalyReport

	for rows.Next() {
		var r domain.AnomalyReport
		var isAnomaly uint8
		var timestampMs uint64

		err := rows.Scan(
			&r.SubjectKey, &r.SignalType, &r.Value, &r.Mean, &r.Stddev,
			&r.Deviation, &isAnomaly, &r.Severity, &r.Confidence, &timestampMs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan anomaly row: %w", err)
		}

		r.IsAnomaly = isAnomaly != 0
		r.TimestampMs = int64(timestampMs)
		reports = append(reports, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate anomaly rows: %w", err)
	}

	return reports, nil
}
