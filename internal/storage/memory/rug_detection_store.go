package memory

import (
	"context"
	"sort"
	"sync"

	"launch-sentinel/internal/domain"
	"launch-sentinel/internal/storage"
)

// RugDetectionStore is an in-memory implementation of storage.RugDetectionStore.
type RugDetectionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RugDetection // keyed by detection_id
}

// NewRugDetectionStore creates a new in-memory rug detection store.
func NewRugDetectionStore() *RugDetectionStore {
	return &RugDetectionStore{
		data: make(map[string]*domain.RugDetection),
	}
}

// Insert adds a new detection. Returns ErrDuplicateKey if detection_id exists.
func (s *RugDetectionStore) Insert(_ context.Context, d *domain.RugDetection) error {
	if d == nil || d.DetectionID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[d.DetectionID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *d
	s.data[d.DetectionID] = &copy
	return nil
}

// GetByID retrieves a detection by its ID. Returns ErrNotFound if not exists.
func (s *RugDetectionStore) GetByID(_ context.Context, detectionID string) (*domain.RugDetection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, exists := s.data[detectionID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *d
	return &copy, nil
}

// GetBySubjectKey retrieves all detections for a subject, ordered by detected_at ASC.
func (s *RugDetectionStore) GetBySubjectKey(_ context.Context, subjectKey string) ([]*domain.RugDetection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RugDetection
	for _, d := range s.data {
		if d.SubjectKey == subjectKey {
			copy := *d
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].DetectedAt != result[j].DetectedAt {
			return result[i].DetectedAt < result[j].DetectedAt
		}
		return result[i].DetectionID < result[j].DetectionID
	})

	return result, nil
}

// CountSince counts detections for a subject with detected_at >= since.
func (s *RugDetectionStore) CountSince(_ context.Context, subjectKey string, since int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, d := range s.data {
		if d.SubjectKey == subjectKey && d.DetectedAt >= since {
			count++
		}
	}
	return count, nil
}

var _ storage.RugDetectionStore = (*RugDetectionStore)(nil)
