package availability

import (
	"testing"
	"time"
)

func monday() time.Time {
	return time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
}

func TestDaySlots_DisabledDay(t *testing.T) {
	prefs := DefaultPreferences()
	sunday := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)

	if slots := DaySlots(sunday, prefs); len(slots) != 0 {
		t.Fatalf("expected no slots on a disabled day, got %d", len(slots))
	}
}

func TestDaySlots_RangeMode(t *testing.T) {
	prefs := DefaultPreferences()
	prefs.BufferMinutes = 0

	slots := DaySlots(monday(), prefs)
	if len(slots) == 0 {
		t.Fatal("expected slots for a working monday")
	}
	if slots[0].Time != "09:00" {
		t.Fatalf("expected first slot 09:00, got %s", slots[0].Time)
	}
	// Step 30 from 09:00 while a 30-minute meeting still fits before 17:00.
	last := slots[len(slots)-1]
	if last.Time != "16:30" {
		t.Fatalf("expected last slot 16:30, got %s", last.Time)
	}
	if len(last.AvailableDurations) != 1 || last.AvailableDurations[0] != 30 {
		t.Fatalf("expected only 30 min to fit at 16:30, got %v", last.AvailableDurations)
	}
	if len(slots[0].AvailableDurations) != 2 {
		t.Fatalf("expected both durations at 09:00, got %v", slots[0].AvailableDurations)
	}
}

func TestDaySlots_StepShrinksWithSmallBuffer(t *testing.T) {
	cases := []struct {
		buffer int
		second string
	}{
		{buffer: 0, second: "09:30"},
		{buffer: 10, second: "09:10"},
		{buffer: 3, second: "09:05"},
		{buffer: 45, second: "09:30"},
	}
	for _, tc := range cases {
		prefs := DefaultPreferences()
		prefs.BufferMinutes = tc.buffer
		slots := DaySlots(monday(), prefs)
		if len(slots) < 2 {
			t.Fatalf("buffer %d: expected at least 2 slots", tc.buffer)
		}
		if slots[1].Time != tc.second {
			t.Fatalf("buffer %d: expected second slot %s, got %s", tc.buffer, tc.second, slots[1].Time)
		}
	}
}

func TestDaySlots_SpecificSlotsValidatedAndSorted(t *testing.T) {
	prefs := DefaultPreferences()
	prefs.CustomTimes = true
	day := prefs.WorkingHours["monday"]
	day.SpecificSlots = []string{"25:00", "9:00", "14:30", "08:15", "12:61"}
	prefs.WorkingHours["monday"] = day

	slots := DaySlots(monday(), prefs)
	if len(slots) != 2 {
		t.Fatalf("expected 2 valid specific slots, got %d", len(slots))
	}
	if slots[0].Time != "08:15" || slots[1].Time != "14:30" {
		t.Fatalf("expected sorted slots [08:15 14:30], got [%s %s]", slots[0].Time, slots[1].Time)
	}
	for _, s := range slots {
		if len(s.AvailableDurations) != 2 {
			t.Fatalf("specific slot %s should carry all durations, got %v", s.Time, s.AvailableDurations)
		}
	}
}

func TestDaySlots_RangeUsedWhenCustomTimesOff(t *testing.T) {
	prefs := DefaultPreferences()
	day := prefs.WorkingHours["monday"]
	day.SpecificSlots = []string{"14:00"}
	prefs.WorkingHours["monday"] = day
	prefs.DefaultRange = ClockRange{Start: "10:00", End: "11:00"}
	prefs.BufferMinutes = 0

	// CustomTimes off: specific slots ignored, DefaultRange drives generation.
	slots := DaySlots(monday(), prefs)
	if len(slots) != 2 {
		t.Fatalf("expected 2 range slots, got %d", len(slots))
	}
	if slots[0].Time != "10:00" || slots[1].Time != "10:30" {
		t.Fatalf("expected [10:00 10:30], got [%s %s]", slots[0].Time, slots[1].Time)
	}
}

func TestDaySlots_DurationExceedsWindow(t *testing.T) {
	prefs := DefaultPreferences()
	prefs.AllowedDurations = []int{600}

	if slots := DaySlots(monday(), prefs); len(slots) != 0 {
		t.Fatalf("expected no slots when no duration fits, got %d", len(slots))
	}
}

func TestClockMinutes(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"00:00", 0, true},
		{"09:05", 545, true},
		{"23:59", 1439, true},
		{"24:00", 0, false},
		{"12:60", 0, false},
		{"9:00", 0, false},
		{"09-00", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := clockMinutes(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("clockMinutes(%q) = (%d, %v), want (%d, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
