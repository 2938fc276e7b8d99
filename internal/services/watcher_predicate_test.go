package services

import (
	"testing"
	"time"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/types"
)

func TestStaleIssuePredicate(t *testing.T) {
	now := time.Now().UTC()
	cases := []struct {
		name         string
		lastActivity time.Time
		params       map[string]any
		want         bool
	}{
		{name: "fresh issue", lastActivity: now.Add(-24 * time.Hour), params: nil, want: false},
		{name: "stale past default", lastActivity: now.Add(-6 * 24 * time.Hour), params: nil, want: true},
		{name: "exactly at default boundary", lastActivity: now.Add(-5 * 24 * time.Hour), params: nil, want: false},
		{name: "custom threshold", lastActivity: now.Add(-3 * 24 * time.Hour), params: map[string]any{"max_stale_days": float64(2)}, want: true},
		{name: "custom threshold not met", lastActivity: now.Add(-3 * 24 * time.Hour), params: map[string]any{"max_stale_days": float64(4)}, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			issue := &types.Issue{State: IssueStateOpen, LastActivityAt: tc.lastActivity}
			if got := staleIssuePredicate(issue, tc.params, now); got != tc.want {
				t.Fatalf("staleIssuePredicate: want=%v got=%v", tc.want, got)
			}
		})
	}
}

func TestBlockerAgePredicateOnlyFiresWhileBlocked(t *testing.T) {
	now := time.Now().UTC()
	old := now.Add(-10 * 24 * time.Hour)

	stuck := &types.Issue{State: IssueStateAwaiting, LastActivityAt: old}
	if !blockerAgePredicate(stuck, nil, now) {
		t.Fatal("aged blocker in awaiting should fire")
	}

	for _, state := range []string{IssueStateOpen, IssueStateMonitoring, IssueStateBlocked, IssueStateResolved} {
		issue := &types.Issue{State: state, LastActivityAt: old}
		if blockerAgePredicate(issue, nil, now) {
			t.Fatalf("blocker predicate fired in state %q", state)
		}
	}

	recent := &types.Issue{State: IssueStateAwaiting, LastActivityAt: now.Add(-24 * time.Hour)}
	if blockerAgePredicate(recent, nil, now) {
		t.Fatal("recent blocker should not fire")
	}
}

func TestParamInt(t *testing.T) {
	if got := paramInt(nil, "x", 7); got != 7 {
		t.Fatalf("nil params: want=7 got=%d", got)
	}
	if got := paramInt(map[string]any{"x": float64(3)}, "x", 7); got != 3 {
		t.Fatalf("decoded value: want=3 got=%d", got)
	}
	if got := paramInt(map[string]any{"x": float64(-1)}, "x", 7); got != 7 {
		t.Fatalf("non-positive value falls back: want=7 got=%d", got)
	}
	if got := paramInt(map[string]any{"x": "3"}, "x", 7); got != 7 {
		t.Fatalf("wrong type falls back: want=7 got=%d", got)
	}
}
