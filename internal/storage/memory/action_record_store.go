package memory

import (
	"context"
	"sort"
	"sync"

	"launch-sentinel/internal/domain"
	"launch-sentinel/internal/storage"
)

// ActionRecordStore is an in-memory implementation of storage.ActionRecordStore.
type ActionRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ActionRecord // keyed by action_id
}

// NewActionRecordStore creates a new in-memory action record store.
func NewActionRecordStore() *ActionRecordStore {
	return &ActionRecordStore{
		data: make(map[string]*domain.ActionRecord),
	}
}

// Insert adds a new action record. Returns ErrDuplicateKey if action_id exists.
func (s *ActionRecordStore) Insert(_ context.Context, a *domain.ActionRecord) error {
	if a == nil || a.ActionID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.ActionID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *a
	s.data[a.ActionID] = &copy
	return nil
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *ActionRecordStore) InsertBulk(_ context.Context, actions []*domain.ActionRecord) error {
	if len(actions) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(actions))
	for _, a := range actions {
		if a == nil || a.ActionID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[a.ActionID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[a.ActionID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[a.ActionID] = struct{}{}
	}

	for _, a := range actions {
		copy := *a
		s.data[a.ActionID] = &copy
	}

	return nil
}

// GetByID retrieves an action by its ID. Returns ErrNotFound if not exists.
func (s *ActionRecordStore) GetByID(_ context.Context, actionID string) (*domain.ActionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.data[actionID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *a
	return &copy, nil
}

// GetBySubjectKey retrieves all actions for a subject, ordered by executed_at ASC.
func (s *ActionRecordStore) GetBySubjectKey(_ context.Context, subjectKey string) ([]*domain.ActionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ActionRecord
	for _, a := range s.data {
		if a.SubjectKey == subjectKey {
			copy := *a
			result = append(result, &copy)
		}
	}

	sortActionRecords(result)
	return result, nil
}

// GetByTimeRange retrieves actions for a subject within [start, end] (inclusive).
func (s *ActionRecordStore) GetByTimeRange(_ context.Context, subjectKey string, start, end int64) ([]*domain.ActionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ActionRecord
	for _, a := range s.data {
		if a.SubjectKey == subjectKey && a.ExecutedAt >= start && a.ExecutedAt <= end {
			copy := *a
			result = append(result, &copy)
		}
	}

	sortActionRecords(result)
	return result, nil
}

func sortActionRecords(records []*domain.ActionRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].ExecutedAt != records[j].ExecutedAt {
			return records[i].ExecutedAt < records[j].ExecutedAt
		}
		return records[i].ActionID < records[j].ActionID
	})
}

var _ storage.ActionRecordStore = (*ActionRecordStore)(nil)
