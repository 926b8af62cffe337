package memory

import (
	"context"
	"sort"
	"sync"

	"launch-sentinel/internal/domain"
	"launch-sentinel/internal/storage"
)

// anomalyKey is the uniqueness key for one scored stream sample.
type anomalyKey struct {
	subjectKey  string
	signalType  string
	timestampMs int64
}

// AnomalyStore is an in-memory implementation of storage.AnomalyStore.
type AnomalyStore struct {
	mu   sync.RWMutex
	data map[anomalyKey]*domain.AnomalyReport
}

// NewAnomalyStore creates a new in-memory anomaly store.
func NewAnomalyStore() *AnomalyStore {
	return &AnomalyStore{
		data: make(map[anomalyKey]*domain.AnomalyReport),
	}
}

// InsertBulk adds multiple anomaly reports. Fails entire batch on duplicate
// (subject_key, signal_type, timestamp_ms).
func (s *AnomalyStore) InsertBulk(_ context.Context, reports []*domain.AnomalyReport) error {
	if len(reports) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[anomalyKey]struct{}, len(reports))
	for _, r := range reports {
		if r == nil || r.SubjectKey == "" || r.SignalType == "" {
			return storage.ErrInvalidInput
		}
		k := anomalyKey{r.SubjectKey, r.SignalType, r.TimestampMs}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, r := range reports {
		copy := *r
		s.data[anomalyKey{r.SubjectKey, r.SignalType, r.TimestampMs}] = &copy
	}

	return nil
}

// GetBySubjectKey retrieves all reports for a subject, ordered by timestamp ASC.
func (s *AnomalyStore) GetBySubjectKey(_ context.Context, subjectKey string) ([]*domain.AnomalyReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AnomalyReport
	for _, r := range s.data {
		if r.SubjectKey == subjectKey {
			copy := *r
			result = append(result, &copy)
		}
	}

	sortAnomalies(result)
	return result, nil
}

// GetByTimeRange retrieves reports for a subject within [start, end] (inclusive).
func (s *AnomalyStore) GetByTimeRange(_ context.Context, subjectKey string, start, end int64) ([]*domain.AnomalyReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AnomalyReport
	for _, r := range s.data {
		if r.SubjectKey == subjectKey && r.TimestampMs >= start && r.TimestampMs <= end {
			copy := *r
			result = append(result, &copy)
		}
	}

	sortAnomalies(result)
	return result, nil
}

func sortAnomalies(reports []*domain.AnomalyReport) {
	sort.Slice(reports, func(i, j int) bool {
		if reports[i].TimestampMs != reports[j].TimestampMs {
			return reports[i].TimestampMs < reports[j].TimestampMs
		}
		return reports[i].SignalType < reports[j].SignalType
	})
}

var _ storage.AnomalyStore = (*AnomalyStore)(nil)
