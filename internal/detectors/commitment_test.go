package detectors

import (
	"testing"
	"time"
)

func TestCommitmentPattern(t *testing.T) {
	cases := []struct {
		text string
		want []string
	}{
		{
			text: "I'll send the report tomorrow. Thanks!",
			want: []string{"I'll send the report tomorrow"},
		},
		{
			text: "We will circle back by friday, and I will ping legal too.",
			want: []string{"We will circle back by friday, and I will ping legal too"},
		},
		{
			text: "No promises here, just an update.",
			want: nil,
		},
		{
			text: "chilly reception in the standup, will follow up offline",
			want: nil,
		},
	}
	for _, tc := range cases {
		got := commitmentPattern.FindAllString(tc.text, -1)
		if len(got) != len(tc.want) {
			t.Fatalf("matches for %q: want=%d got=%d (%v)", tc.text, len(tc.want), len(got), got)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("match %d for %q: want=%q got=%q", i, tc.text, tc.want[i], got[i])
			}
		}
	}
}

func TestParseDueHint(t *testing.T) {
	// A Wednesday at noon.
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

	t.Run("tomorrow", func(t *testing.T) {
		due := parseDueHint("I'll send it tomorrow", now)
		if due == nil {
			t.Fatal("expected due date")
		}
		if !due.Equal(now.Add(24 * time.Hour)) {
			t.Fatalf("tomorrow: got %v", due)
		}
	})

	t.Run("eod", func(t *testing.T) {
		due := parseDueHint("we'll wrap this up EOD", now)
		if due == nil {
			t.Fatal("expected due date")
		}
		if due.Hour() != 23 || due.Minute() != 59 || due.Day() != now.Day() {
			t.Fatalf("eod: got %v", due)
		}
	})

	t.Run("by weekday", func(t *testing.T) {
		due := parseDueHint("I will have numbers by friday", now)
		if due == nil {
			t.Fatal("expected due date")
		}
		if due.Weekday() != time.Friday {
			t.Fatalf("weekday: got %v", due.Weekday())
		}
		if !due.After(now) {
			t.Fatalf("due %v not after now %v", due, now)
		}
	})

	t.Run("same weekday rolls a week", func(t *testing.T) {
		due := parseDueHint("done by wednesday", now)
		if due == nil {
			t.Fatal("expected due date")
		}
		if got := due.Sub(now); got != 7*24*time.Hour {
			t.Fatalf("same-day hint: want one week out, got %v", got)
		}
	})

	t.Run("no hint", func(t *testing.T) {
		if due := parseDueHint("I'll look into it", now); due != nil {
			t.Fatalf("unexpected due date %v", due)
		}
	})
}
