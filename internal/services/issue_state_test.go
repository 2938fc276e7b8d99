package services

import "testing"

func TestCanTransitionIssue(t *testing.T) {
	cases := []struct {
		from string
		to   string
		want bool
	}{
		{IssueStateOpen, IssueStateMonitoring, true},
		{IssueStateOpen, IssueStateAwaiting, true},
		{IssueStateOpen, IssueStateBlocked, true},
		{IssueStateOpen, IssueStateMitigated, true},
		{IssueStateOpen, IssueStateResolved, true},
		{IssueStateOpen, IssueStateHandedOver, true},
		{IssueStateMonitoring, IssueStateOpen, true},
		{IssueStateMonitoring, IssueStateBlocked, true},
		{IssueStateAwaiting, IssueStateMonitoring, true},
		{IssueStateAwaiting, IssueStateOpen, false},
		{IssueStateBlocked, IssueStateAwaiting, true},
		{IssueStateBlocked, IssueStateOpen, false},
		{IssueStateMitigated, IssueStateResolved, true},
		{IssueStateMitigated, IssueStateAwaiting, false},
		{IssueStateResolved, IssueStateOpen, false},
		{IssueStateResolved, IssueStateMonitoring, false},
		{IssueStateHandedOver, IssueStateResolved, false},
		{"bogus", IssueStateOpen, false},
		{IssueStateOpen, "bogus", false},
	}
	for _, tc := range cases {
		if got := CanTransitionIssue(tc.from, tc.to); got != tc.want {
			t.Fatalf("CanTransitionIssue(%q, %q): want=%v got=%v", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestIssueStateSet(t *testing.T) {
	want := []string{
		IssueStateOpen,
		IssueStateMonitoring,
		IssueStateAwaiting,
		IssueStateBlocked,
		IssueStateMitigated,
		IssueStateResolved,
		IssueStateHandedOver,
	}
	if len(issueTransitions) != len(want) {
		t.Fatalf("state count: want=%d got=%d", len(want), len(issueTransitions))
	}
	for _, state := range want {
		if _, ok := issueTransitions[state]; !ok {
			t.Fatalf("state %q missing from the transition relation", state)
		}
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	all := []string{IssueStateOpen, IssueStateMonitoring, IssueStateAwaiting, IssueStateBlocked, IssueStateMitigated, IssueStateResolved, IssueStateHandedOver}
	for _, from := range all {
		if !IsTerminalIssueState(from) {
			continue
		}
		for _, to := range all {
			if CanTransitionIssue(from, to) {
				t.Fatalf("terminal state %q allows transition to %q", from, to)
			}
		}
	}
}
