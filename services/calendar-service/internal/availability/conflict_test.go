package availability

import (
	"testing"
	"time"
)

func meetingAt(hour, min, duration int) Meeting {
	return Meeting{
		Start:           time.Date(2024, 6, 3, hour, min, 0, 0, time.UTC),
		DurationMinutes: duration,
	}
}

func TestHasConflict_BufferBoundaries(t *testing.T) {
	// Meeting 10:00-10:30 with 15 min buffer blocks [09:45, 10:45].
	meetings := []Meeting{meetingAt(10, 0, 30)}

	cases := []struct {
		slot     string
		duration int
		want     bool
	}{
		// Ends exactly at the window start: back-to-back after buffer is fine.
		{"09:30", 15, false},
		{"09:45", 15, true},
		{"10:00", 30, true},
		{"10:30", 15, true},
		// Starts exactly at the window end: still a conflict.
		{"10:45", 30, true},
		{"11:00", 30, false},
	}
	for _, tc := range cases {
		got := HasConflict(tc.slot, tc.duration, meetings, 15)
		if got != tc.want {
			t.Fatalf("HasConflict(%s, %d) = %v, want %v", tc.slot, tc.duration, got, tc.want)
		}
	}
}

func TestHasConflict_ZeroBuffer(t *testing.T) {
	meetings := []Meeting{meetingAt(14, 0, 60)}

	if HasConflict("13:00", 60, meetings, 0) {
		t.Fatal("slot ending at meeting start should not conflict with zero buffer")
	}
	if !HasConflict("15:00", 30, meetings, 0) {
		t.Fatal("slot starting at meeting end conflicts (window-end boundary is closed)")
	}
	if HasConflict("15:30", 30, meetings, 0) {
		t.Fatal("slot past the meeting should not conflict")
	}
}

func TestHasConflict_DefaultDuration(t *testing.T) {
	// Duration 0 defaults to 60: meeting 10:00-11:00.
	meetings := []Meeting{meetingAt(10, 0, 0)}

	if !HasConflict("10:30", 30, meetings, 0) {
		t.Fatal("slot inside the defaulted 60 min meeting should conflict")
	}
	if HasConflict("11:30", 30, meetings, 0) {
		t.Fatal("slot after the defaulted meeting should not conflict")
	}
}

func TestHasConflict_SkipsZeroTimeMeetings(t *testing.T) {
	meetings := []Meeting{{DurationMinutes: 60}}

	if HasConflict("09:00", 30, meetings, 15) {
		t.Fatal("meetings without a timestamp must be skipped, not treated as conflicts")
	}
}
