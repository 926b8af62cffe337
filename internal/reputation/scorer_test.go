package reputation

import (
	"testing"

	"launch-sentinel/internal/domain"
)

const testNowMs = int64(1700000000000)

func strongEvidence() domain.BehaviorEvidence {
	return domain.BehaviorEvidence{
		GraduationRate:     1.0,
		LiquidityRetention: 1.0,
		PositiveFlags:      2,
		LaunchCount:        5,
	}
}

func TestEvaluate_BandThresholds(t *testing.T) {
	// Band is a monotonic step function of score at 40/80.
	cases := []struct {
		score float64
		want  domain.Band
	}{
		{0, domain.BandAdversarial},
		{39.999, domain.BandAdversarial},
		{40, domain.BandNeutral},
		{79.999, domain.BandNeutral},
		{80, domain.BandGuardian},
		{100, domain.BandGuardian},
	}
	for _, c := range cases {
		got := domain.BandForScore(c.score)
		if got != c.want {
			t.Errorf("BandForScore(%f) = %s, want %s", c.score, got, c.want)
		}
		if !got.Valid() {
			t.Errorf("BandForScore(%f) returned invalid band %q", c.score, got)
		}
	}
}

func TestEvaluate_CleanCreatorIsGuardian(t *testing.T) {
	s := NewScorer(DefaultConfig())

	rec := s.Evaluate(testNowMs, "creator-1", strongEvidence(), nil)
	if rec.Band != domain.BandGuardian {
		t.Errorf("clean creator with full graduation and retention: band = %s, want GUARDIAN", rec.Band)
	}
	if rec.Score < 80 || rec.Score > 100 {
		t.Errorf("score out of expected range: %f", rec.Score)
	}
	if rec.ObservationCount != 1 {
		t.Errorf("observation count = %d, want 1", rec.ObservationCount)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	s := NewScorer(DefaultConfig())
	ev := domain.BehaviorEvidence{
		GraduationRate:      0.7,
		LiquidityRetention:  0.5,
		HolderConcentration: 0.3,
		EarlyExitRatio:      0.2,
		BotActivityScore:    0.1,
		PositiveFlags:       1,
	}

	first := s.Evaluate(testNowMs, "creator-1", ev, nil)
	for i := 0; i < 5; i++ {
		again := s.Evaluate(testNowMs, "creator-1", ev, nil)
		if again.Score != first.Score || again.Band != first.Band {
			t.Fatalf("run %d: evaluation not deterministic: %f/%s vs %f/%s",
				i, again.Score, again.Band, first.Score, first.Band)
		}
	}
}

func TestEvaluate_MalformedEvidenceClamped(t *testing.T) {
	s := NewScorer(DefaultConfig())

	rec := s.Evaluate(testNowMs, "creator-1", domain.BehaviorEvidence{
		GraduationRate:      17.0,
		LiquidityRetention:  -3.0,
		HolderConcentration: -1.0,
		EarlyExitRatio:      9.9,
		BotActivityScore:    2.0,
		PositiveFlags:       -4,
		LaunchCount:         -1,
	}, nil)

	if rec.Score < 0 || rec.Score > 100 {
		t.Errorf("score must stay in [0,100], got %f", rec.Score)
	}
	if !rec.Band.Valid() {
		t.Errorf("malformed evidence must still yield a band, got %q", rec.Band)
	}
}

func TestRecordRugDetection_BandUnchangedUntilEvaluate(t *testing.T) {
	s := NewScorer(DefaultConfig())

	rec := s.Evaluate(testNowMs, "creator-1", strongEvidence(), nil)
	if rec.Band != domain.BandGuardian {
		t.Fatalf("precondition: band = %s, want GUARDIAN", rec.Band)
	}
	scoreBefore := rec.Score

	det := s.RecordRugDetection(testNowMs, rec, 0.6)
	if det.Severity != 0.6 {
		t.Errorf("detection severity = %f, want 0.6", det.Severity)
	}

	// Recording alone must not move the band or the score.
	if rec.Band != domain.BandGuardian || rec.Score != scoreBefore {
		t.Errorf("recording a rug changed band/score immediately: %s/%f", rec.Band, rec.Score)
	}

	// The next evaluation must charge the undamped day-0 penalty:
	// 0.6 severity * 1.0x multiplier * 40 weight = 24 points.
	after := s.Evaluate(testNowMs, "creator-1", strongEvidence(), rec)
	if diff := scoreBefore - after.Score; diff < 23.9 || diff > 24.1 {
		t.Errorf("day-0 rug penalty = %f points, want 24", diff)
	}
	if after.Band == domain.BandGuardian {
		t.Errorf("24-point penalty from GUARDIAN edge should drop the band, still %s", after.Band)
	}
}

func TestEvaluate_RepeatOffenderPunishedHarder(t *testing.T) {
	s := NewScorer(DefaultConfig())
	ev := strongEvidence()

	one := s.Evaluate(testNowMs, "one-rug", ev, nil)
	s.RecordRugDetection(testNowMs, one, 0.5)
	one = s.Evaluate(testNowMs, "one-rug", ev, one)

	two := s.Evaluate(testNowMs, "two-rugs", ev, nil)
	s.RecordRugDetection(testNowMs-dayMs, two, 0.5)
	s.RecordRugDetection(testNowMs, two, 0.5)
	two = s.Evaluate(testNowMs, "two-rugs", ev, two)

	if two.Score >= one.Score {
		t.Errorf("repeat offender score %f should be below single-rug score %f", two.Score, one.Score)
	}
	if two.RecidivismCount != 1 {
		t.Errorf("two detections one day apart: recidivism = %d, want 1", two.RecidivismCount)
	}
	if two.Band != domain.BandAdversarial {
		t.Errorf("two fresh rugs under 2.5x multiplier should be ADVERSARIAL, got %s", two.Band)
	}
}

func TestEvaluate_BandHistoryAppendedAndBounded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BandHistoryCap = 3
	s := NewScorer(cfg)

	rec := s.Evaluate(testNowMs, "creator-1", strongEvidence(), nil)

	// Alternate between strong and hostile evidence to force band flips.
	hostile := domain.BehaviorEvidence{
		HolderConcentration: 1.0,
		EarlyExitRatio:      1.0,
		BotActivityScore:    1.0,
	}
	for i := 0; i < 6; i++ {
		ev := strongEvidence()
		if i%2 == 0 {
			ev = hostile
		}
		rec = s.Evaluate(testNowMs+int64(i+1)*1000, "creator-1", ev, rec)
	}

	if len(rec.BandHistory) != 3 {
		t.Errorf("band history length = %d, want cap 3", len(rec.BandHistory))
	}
	last := rec.BandHistory[len(rec.BandHistory)-1]
	if last.To != rec.Band {
		t.Errorf("last history entry To = %s, want current band %s", last.To, rec.Band)
	}
}
