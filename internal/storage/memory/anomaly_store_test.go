package memory

import (
	"context"
	"errors"
	"testing"

	"launch-sentinel/internal/domain"
	"launch-sentinel/internal/storage"
)

func TestAnomalyStore_InsertBulkAndGet(t *testing.T) {
	store := NewAnomalyStore()
	ctx := context.Background()

	reports := []*domain.AnomalyReport{
		{SubjectKey: "s1", SignalType: domain.SignalPrice, Deviation: 3.2, IsAnomaly: true, Severity: 0.8, TimestampMs: 2000},
		{SubjectKey: "s1", SignalType: domain.SignalVolume, Deviation: 2.5, IsAnomaly: true, Severity: 0.6, TimestampMs: 1000},
		{SubjectKey: "other", SignalType: domain.SignalPrice, Deviation: 0.1, TimestampMs: 1000},
	}

	if err := store.InsertBulk(ctx, reports); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetBySubjectKey(ctx, "s1")
	if err != nil {
		t.Fatalf("GetBySubjectKey failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 reports, got %d", len(got))
	}
	if got[0].SignalType != domain.SignalVolume || got[1].SignalType != domain.SignalPrice {
		t.Errorf("Expected timestamp ASC order, got %s, %s", got[0].SignalType, got[1].SignalType)
	}
}

func TestAnomalyStore_DuplicateKey(t *testing.T) {
	store := NewAnomalyStore()
	ctx := context.Background()

	reports := []*domain.AnomalyReport{
		{SubjectKey: "s1", SignalType: domain.SignalPrice, TimestampMs: 1000},
		{SubjectKey: "s1", SignalType: domain.SignalPrice, TimestampMs: 1000},
	}

	if err := store.InsertBulk(ctx, reports); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey for intra-batch duplicate, got %v", err)
	}
}

func TestAnomalyStore_GetByTimeRange(t *testing.T) {
	store := NewAnomalyStore()
	ctx := context.Background()

	reports := []*domain.AnomalyReport{
		{SubjectKey: "s1", SignalType: domain.SignalPrice, TimestampMs: 1000},
		{SubjectKey: "s1", SignalType: domain.SignalPrice, TimestampMs: 2000},
		{SubjectKey: "s1", SignalType: domain.SignalPrice, TimestampMs: 3000},
	}
	if err := store.InsertBulk(ctx, reports); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByTimeRange(ctx, "s1", 1000, 2000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Expected 2 reports in [1000, 2000], got %d", len(got))
	}
}
