package memory

import (
	"context"
	"sort"
	"sync"

	"launch-sentinel/internal/domain"
	"launch-sentinel/internal/storage"
)

// observationKey is the uniqueness key for one stream sample.
type observationKey struct {
	subjectKey  string
	signalType  string
	timestampMs int64
}

// ObservationStore is an in-memory implementation of storage.ObservationStore.
type ObservationStore struct {
	mu   sync.RWMutex
	data map[observationKey]*domain.Observation
}

// NewObservationStore creates a new in-memory observation store.
func NewObservationStore() *ObservationStore {
	return &ObservationStore{
		data: make(map[observationKey]*domain.Observation),
	}
}

// InsertBulk adds multiple observations. Fails entire batch on duplicate
// (subject_key, signal_type, timestamp_ms).
func (s *ObservationStore) InsertBulk(_ context.Context, observations []*domain.Observation) error {
	if len(observations) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[observationKey]struct{}, len(observations))
	for _, o := range observations {
		if o == nil || o.SubjectKey == "" || o.SignalType == "" {
			return storage.ErrInvalidInput
		}
		k := observationKey{o.SubjectKey, o.SignalType, o.TimestampMs}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, o := range observations {
		copy := *o
		s.data[observationKey{o.SubjectKey, o.SignalType, o.TimestampMs}] = &copy
	}

	return nil
}

// GetBySubjectSignal retrieves all observations for a (subject, signal)
// stream, ordered by timestamp ASC.
func (s *ObservationStore) GetBySubjectSignal(_ context.Context, subjectKey, signalType string) ([]*domain.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Observation
	for _, o := range s.data {
		if o.SubjectKey == subjectKey && o.SignalType == signalType {
			copy := *o
			result = append(result, &copy)
		}
	}

	sortObservations(result)
	return result, nil
}

// GetByTimeRange retrieves stream observations within [start, end] (inclusive).
func (s *ObservationStore) GetByTimeRange(_ context.Context, subjectKey, signalType string, start, end int64) ([]*domain.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Observation
	for _, o := range s.data {
		if o.SubjectKey == subjectKey && o.SignalType == signalType &&
			o.TimestampMs >= start && o.TimestampMs <= end {
			copy := *o
			result = append(result, &copy)
		}
	}

	sortObservations(result)
	return result, nil
}

func sortObservations(observations []*domain.Observation) {
	sort.Slice(observations, func(i, j int) bool {
		return observations[i].TimestampMs < observations[j].TimestampMs
	})
}

var _ storage.ObservationStore = (*ObservationStore)(nil)
