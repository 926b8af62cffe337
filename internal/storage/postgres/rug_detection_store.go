package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"launch-sentinel/internal/domain"
	"launch-sentinel/internal/storage"
)

// RugDetectionStore implements storage.RugDetectionStore using PostgreSQL.
type RugDetectionStore struct {
	pool *Pool
}

// NewRugDetectionStore creates a new RugDetectionStore.
func NewRugDetectionStore(pool *Pool) *RugDetectionStore {
	return &RugDetectionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RugDetectionStore = (*RugDetectionStore)(nil)

const rugDetectionColumns = `detection_id, subject_key, severity, detected_at`

// Insert adds a new detection. Returns ErrDuplicateKey if detection_id exists.
func (s *RugDetectionStore) Insert(ctx context.Context, d *domain.RugDetection) error {
	query := `
		INSERT INTO rug_detections (` + rugDetectionColumns + `)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.pool.Exec(ctx, query, d.DetectionID, d.SubjectKey, d.Severity, d.DetectedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert rug detection: %w", err)
	}
	return nil
}

// GetByID retrieves a detection by its ID. Returns ErrNotFound if not exists.
func (s *RugDetectionStore) GetByID(ctx context.Context, detectionID string) (*domain.RugDetection, error) {
	query := `
		SELECT ` + rugDetectionColumns + `
		FROM rug_detections
		WHERE detection_id = $1
	`

	row := s.pool.QueryRow(ctx, query, detectionID)
	d, err := scanRugDetection(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get rug detection by id: %w", err)
	}
	return d, nil
}

// GetBySubjectKey retrieves all detections for a subject, ordered by detected_at ASC.
func (s *RugDetectionStore) GetBySubjectKey(ctx context.Context, subjectKey string) ([]*domain.RugDetection, error) {
	query := `
		SELECT ` + rugDetectionColumns + `
		FROM rug_detections
		WHERE subject_key = $1
		ORDER BY detected_at ASC, detection_id ASC
	`

	rows, err := s.pool.Query(ctx, query, subjectKey)
	if err != nil {
		return nil, fmt.Errorf("get rug detections by subject key: %w", err)
	}
	defer rows.Close()

	var detections []*domain.RugDetection
	for rows.Next() {
		var d domain.RugDetection
		if err := rows.Scan(&d.DetectionID, &d.SubjectKey, &d.Severity, &d.DetectedAt); err != nil {
			return nil, fmt.Errorf("scan rug detection row: %w", err)
		}
		detections = append(detections, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rug detection rows: %w", err)
	}

	return detections, nil
}

// CountSince counts detections for a subject with detected_at >= since.
func (s *RugDetectionStore) CountSince(ctx context.Context, subjectKey string, since int64) (int, error) {
	query := `
		SELECT count(*) FROM rug_detections
		WHERE subject_key = $1 AND detected_at >= $2
	`

	var count int
	if err := s.pool.QueryRow(ctx, query, subjectKey, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rug detections: %w", err)
	}
	return count, nil
}

// scanRugDetection scans a single row into a RugDetection.
func scanRugDetection(row pgx.Row) (*domain.RugDetection, error) {
	var d domain.RugDetection
	if err := row.Scan(&d.DetectionID, &d.SubjectKey, &d.Severity, &d.DetectedAt); err != nil {
		return nil, err
	}
	return &d, nil
}
