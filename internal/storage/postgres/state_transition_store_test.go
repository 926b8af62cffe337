package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launch-sentinel/internal/domain"
	"launch-sentinel/internal/storage"
)

func createTestTransition(transitionID, subjectKey string, occurredAt int64, to domain.LifecycleState) *domain.TransitionRecord {
	return &domain.TransitionRecord{
		TransitionID: transitionID,
		SubjectKey:   subjectKey,
		From:         domain.StateActive,
		To:           to,
		Trigger:      domain.TriggerBandChange,
		OccurredAt:   occurredAt,
	}
}

func TestStateTransitionStore_InsertAndGetBySubjectKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewStateTransitionStore(pool)

	transitions := []*domain.TransitionRecord{
		createTestTransition("tr-b", "subject-1", 2000, domain.StateGuardian),
		createTestTransition("tr-a", "subject-1", 1000, domain.StateNeutral),
	}
	for _, tr := range transitions {
		require.NoError(t, store.Insert(ctx, tr))
	}

	got, err := store.GetBySubjectKey(ctx, "subject-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "tr-a", got[0].TransitionID)
	assert.Equal(t, domain.StateNeutral, got[0].To)
	assert.Equal(t, domain.StateActive, got[0].From)
	assert.Equal(t, domain.TriggerBandChange, got[0].Trigger)
}

func TestStateTransitionStore_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewStateTransitionStore(pool)

	tr := createTestTransition("tr-a", "subject-1", 1000, domain.StateNeutral)
	require.NoError(t, store.Insert(ctx, tr))

	err := store.Insert(ctx, tr)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestStateTransitionStore_GetLatest(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewStateTransitionStore(pool)

	transitions := []*domain.TransitionRecord{
		createTestTransition("tr-a", "subject-1", 1000, domain.StateNeutral),
		createTestTransition("tr-c", "subject-1", 3000, domain.StateAdversarial),
		createTestTransition("tr-b", "subject-1", 2000, domain.StateGuardian),
	}
	for _, tr := range transitions {
		require.NoError(t, store.Insert(ctx, tr))
	}

	latest, err := store.GetLatest(ctx, "subject-1")
	require.NoError(t, err)
	assert.Equal(t, "tr-c", latest.TransitionID)
	assert.Equal(t, domain.StateAdversarial, latest.To)
}

func TestStateTransitionStore_GetLatest_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewStateTransitionStore(pool)

	_, err := store.GetLatest(ctx, "nobody")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
