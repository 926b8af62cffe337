package replay

import (
	"context"
	"testing"

	"launch-sentinel/internal/domain"
	"launch-sentinel/internal/storage/memory"
)

const testKey = "So11111111111111111111111111111111111111112"

func seedStream(t *testing.T, store *memory.ObservationStore, values []float64) {
	t.Helper()
	batch := make([]*domain.Observation, 0, len(values))
	for i, v := range values {
		batch = append(batch, &domain.Observation{
			SubjectKey:  testKey,
			SignalType:  domain.SignalPrice,
			Value:       v,
			TimestampMs: 1000 + int64(i)*1000,
		})
	}
	if err := store.InsertBulk(context.Background(), batch); err != nil {
		t.Fatalf("InsertBulk: %v", err)
	}
}

func TestRun_FlagsSpike(t *testing.T) {
	store := memory.NewObservationStore()
	values := []float64{1.0, 1.01, 0.99, 1.0, 1.02, 0.98, 1.0, 1.01, 0.99, 1.0, 5.0}
	seedStream(t, store, values)

	result, err := NewRunner(store).Run(context.Background(), testKey, domain.SignalPrice, 0, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.SamplesReplayed != len(values) {
		t.Errorf("SamplesReplayed = %d, want %d", result.SamplesReplayed, len(values))
	}
	if len(result.Flagged) == 0 {
		t.Fatal("expected the spike to be flagged")
	}
	last := result.Flagged[len(result.Flagged)-1]
	if last.Value != 5.0 {
		t.Errorf("flagged value = %v, want 5.0", last.Value)
	}
	if !last.IsAnomaly {
		t.Error("flagged report not marked IsAnomaly")
	}
}

func TestRun_TimeRangeFilter(t *testing.T) {
	store := memory.NewObservationStore()
	seedStream(t, store, []float64{1, 1, 1, 1, 1, 1, 1, 1})

	// Timestamps run 1000..8000; take the middle four.
	result, err := NewRunner(store).Run(context.Background(), testKey, domain.SignalPrice, 3000, 6000)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.SamplesReplayed != 4 {
		t.Errorf("SamplesReplayed = %d, want 4", result.SamplesReplayed)
	}
}

func TestRun_EmptyStream(t *testing.T) {
	store := memory.NewObservationStore()

	result, err := NewRunner(store).Run(context.Background(), testKey, domain.SignalPrice, 0, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.SamplesReplayed != 0 {
		t.Errorf("SamplesReplayed = %d, want 0", result.SamplesReplayed)
	}
	if len(result.Flagged) != 0 {
		t.Errorf("Flagged = %d, want 0", len(result.Flagged))
	}
	if result.Forecast != nil {
		t.Error("expected nil forecast for empty stream")
	}
}

func TestRun_ForecastPresent(t *testing.T) {
	store := memory.NewObservationStore()
	values := make([]float64, 20)
	for i := range values {
		values[i] = 0.5 + 0.01*float64(i)
	}
	seedStream(t, store, values)

	result, err := NewRunner(store).Run(context.Background(), testKey, domain.SignalPrice, 0, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Forecast == nil {
		t.Fatal("expected a forecast for a 20-sample stream")
	}
	if result.Forecast.SignalType != domain.SignalPrice {
		t.Errorf("forecast signal = %s, want PRICE", result.Forecast.SignalType)
	}
}
