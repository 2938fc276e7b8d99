package services

import "testing"

func TestComputeScoreZeroSignals(t *testing.T) {
	if got := ComputeScore(ScoreConfig{}, 5, 0, 1, 1); got != 0 {
		t.Fatalf("score with no signals: want=0 got=%v", got)
	}
}

func TestComputeScoreMonotoneInSeverity(t *testing.T) {
	cfg := ScoreConfig{}
	prev := -1.0
	for sev := 1; sev <= 5; sev++ {
		got := ComputeScore(cfg, sev, 3, 0.8, 1)
		if got <= prev {
			t.Fatalf("severity %d: score %v not greater than %v", sev, got, prev)
		}
		prev = got
	}
}

func TestComputeScoreMonotoneInCount(t *testing.T) {
	cfg := ScoreConfig{}
	prev := -1.0
	for n := 1; n <= 10; n++ {
		got := ComputeScore(cfg, 2, n, 0.8, 1)
		if got <= prev {
			t.Fatalf("count %d: score %v not greater than %v", n, got, prev)
		}
		prev = got
	}
}

func TestComputeScoreCapped(t *testing.T) {
	cfg := ScoreConfig{MaxScore: 100}
	got := ComputeScore(cfg, 5, 1000, 1, 1)
	if got > 100 {
		t.Fatalf("score exceeds cap: %v", got)
	}
	if got != 100 {
		t.Fatalf("saturated bundle should hit the cap: got %v", got)
	}
}

func TestComputeScoreKnownValue(t *testing.T) {
	// 15*2 + 20*(1 - 1/3) + 10*0.8*1 = 51.33 with defaults.
	got := ComputeScore(ScoreConfig{}, 2, 2, 0.8, 1)
	if got != 51.33 {
		t.Fatalf("score: want=51.33 got=%v", got)
	}
}
