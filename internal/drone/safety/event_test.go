package safety

import (
	"fmt"
	"testing"
	"time"
)

func TestHistoryTrim(t *testing.T) {
	h := NewHistory()

	for i := 0; i < 100; i++ {
		h.Append(Event{Time: time.Now(), Kind: KindBatteryWarning, Message: fmt.Sprintf("event %d", i)})
	}
	if got := h.Len(); got != 100 {
		t.Fatalf("Len = %d, want 100 at capacity", got)
	}

	h.Append(Event{Time: time.Now(), Kind: KindBatteryWarning, Message: "event 100"})
	if got := h.Len(); got != 50 {
		t.Fatalf("Len = %d, want 50 after trim", got)
	}

	// The newest events survive the trim.
	recent := h.Recent(1)
	if len(recent) != 1 || recent[0].Message != "event 100" {
		t.Fatalf("Recent(1) = %v, want the last appended event", recent)
	}
	all := h.Recent(0)
	if all[0].Message != "event 51" {
		t.Fatalf("oldest kept = %q, want event 51", all[0].Message)
	}
}

func TestHistoryRecent(t *testing.T) {
	h := NewHistory()
	for i := 0; i < 5; i++ {
		h.Append(Event{Message: fmt.Sprintf("event %d", i)})
	}

	got := h.Recent(2)
	if len(got) != 2 || got[0].Message != "event 3" || got[1].Message != "event 4" {
		t.Fatalf("Recent(2) = %v, want the two newest, oldest first", got)
	}
	if got := h.Recent(50); len(got) != 5 {
		t.Fatalf("Recent(50) = %d events, want all 5", len(got))
	}
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelInfo, "info"},
		{LevelWarning, "warning"},
		{LevelCritical, "critical"},
		{LevelEmergency, "emergency"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}
