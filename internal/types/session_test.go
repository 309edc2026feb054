package types

import (
	"testing"
	"time"
)

func TestDeriveStatus(t *testing.T) {
	window := 30 * time.Second
	tests := []struct {
		name          string
		pidAlive      bool
		pending       bool
		sinceActivity time.Duration
		want          SessionStatus
	}{
		{name: "dead process", pidAlive: false, sinceActivity: time.Second, want: SessionStatusStale},
		{name: "dead process with pending", pidAlive: false, pending: true, sinceActivity: time.Second, want: SessionStatusStale},
		{name: "pending wins over recency", pidAlive: true, pending: true, sinceActivity: time.Second, want: SessionStatusWaiting},
		{name: "pending wins over quiet", pidAlive: true, pending: true, sinceActivity: time.Hour, want: SessionStatusWaiting},
		{name: "recent activity", pidAlive: true, sinceActivity: 10 * time.Second, want: SessionStatusActive},
		{name: "exactly at window", pidAlive: true, sinceActivity: window, want: SessionStatusActive},
		{name: "quiet", pidAlive: true, sinceActivity: window + time.Second, want: SessionStatusIdle},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveStatus(tc.pidAlive, tc.pending, tc.sinceActivity, window)
			if got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestCloneSummaryIsDeep(t *testing.T) {
	original := &SessionSummary{
		ID:       "abc",
		Previews: []MessagePreview{{Role: "user", Text: "hi"}},
		Pending:  &PendingInteraction{Kind: InteractionToolApproval, ToolUseID: "t1"},
	}
	clone := CloneSummary(original)
	clone.Previews[0].Text = "changed"
	clone.Pending.ToolUseID = "t2"
	if original.Previews[0].Text != "hi" {
		t.Fatalf("previews shared between clone and original")
	}
	if original.Pending.ToolUseID != "t1" {
		t.Fatalf("pending interaction shared between clone and original")
	}
}

func TestCloneSummaryNil(t *testing.T) {
	if CloneSummary(nil) != nil {
		t.Fatalf("expected nil clone for nil summary")
	}
}
