package memory

import (
	"context"
	"sort"
	"sync"

	"launch-sentinel/internal/domain"
	"launch-sentinel/internal/storage"
)

// StateTransitionStore is an in-memory implementation of storage.StateTransitionStore.
type StateTransitionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TransitionRecord // keyed by transition_id
}

// NewStateTransitionStore creates a new in-memory state transition store.
func NewStateTransitionStore() *StateTransitionStore {
	return &StateTransitionStore{
		data: make(map[string]*domain.TransitionRecord),
	}
}

// Insert adds a new transition record. Returns ErrDuplicateKey if transition_id exists.
func (s *StateTransitionStore) Insert(_ context.Context, tr *domain.TransitionRecord) error {
	if tr == nil || tr.TransitionID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[tr.TransitionID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *tr
	s.data[tr.TransitionID] = &copy
	return nil
}

// GetBySubjectKey retrieves all transitions for a subject, ordered by occurred_at ASC.
func (s *StateTransitionStore) GetBySubjectKey(_ context.Context, subjectKey string) ([]*domain.TransitionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TransitionRecord
	for _, tr := range s.data {
		if tr.SubjectKey == subjectKey {
			copy := *tr
			result = append(result, &copy)
		}
	}

	sortTransitions(result)
	return result, nil
}

// GetLatest retrieves the most recent transition for a subject.
// Returns ErrNotFound if the subject has none.
func (s *StateTransitionStore) GetLatest(_ context.Context, subjectKey string) (*domain.TransitionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.TransitionRecord
	for _, tr := range s.data {
		if tr.SubjectKey != subjectKey {
			continue
		}
		if latest == nil || tr.OccurredAt > latest.OccurredAt {
			latest = tr
		}
	}

	if latest == nil {
		return nil, storage.ErrNotFound
	}

	copy := *latest
	return &copy, nil
}

func sortTransitions(records []*domain.TransitionRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].OccurredAt != records[j].OccurredAt {
			return records[i].OccurredAt < records[j].OccurredAt
		}
		return records[i].TransitionID < records[j].TransitionID
	})
}

var _ storage.StateTransitionStore = (*StateTransitionStore)(nil)
