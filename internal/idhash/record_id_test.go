package idhash

import "testing"

func TestComputeActionID_Deterministic(t *testing.T) {
	a := ComputeActionID("subject-1", "SPREAD_COMPRESSION", 1700000000000)
	b := ComputeActionID("subject-1", "SPREAD_COMPRESSION", 1700000000000)
	if a != b {
		t.Errorf("same inputs produced different IDs: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}

func TestComputeActionID_DistinctInputs(t *testing.T) {
	base := ComputeActionID("subject-1", "SPREAD_COMPRESSION", 1700000000000)
	cases := []string{
		ComputeActionID("subject-2", "SPREAD_COMPRESSION", 1700000000000),
		ComputeActionID("subject-1", "VOLUME_SMOOTHING", 1700000000000),
		ComputeActionID("subject-1", "SPREAD_COMPRESSION", 1700000000001),
	}
	for i, c := range cases {
		if c == base {
			t.Errorf("case %d: expected distinct ID", i)
		}
	}
}

func TestComputeTransitionID_Deterministic(t *testing.T) {
	a := ComputeTransitionID("subject-1", "INIT", "GUARDIAN", 1700000000000)
	b := ComputeTransitionID("subject-1", "INIT", "GUARDIAN", 1700000000000)
	if a != b {
		t.Errorf("same inputs produced different IDs")
	}
	if a == ComputeTransitionID("subject-1", "GUARDIAN", "INIT", 1700000000000) {
		t.Errorf("from/to swap should change the ID")
	}
}
