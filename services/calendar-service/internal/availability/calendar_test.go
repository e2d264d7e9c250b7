package availability

import (
	"reflect"
	"testing"
	"time"
)

func findSlot(t *testing.T, slots []Slot, clock string) Slot {
	t.Helper()
	for _, s := range slots {
		if s.Time == clock {
			return s
		}
	}
	t.Fatalf("no slot at %s", clock)
	return Slot{}
}

func TestCalculate_EndToEnd(t *testing.T) {
	prefs := DefaultPreferences()
	meetings := []Meeting{meetingAt(10, 0, 60)}

	result := Calculate(monday(), 1, prefs, meetings)
	slots, ok := result["2024-06-03"]
	if !ok {
		t.Fatal("expected key 2024-06-03 in result")
	}

	// Meeting 10:00-11:00 with 15 min buffer blocks [09:45, 11:15].
	nine := findSlot(t, slots, "09:00")
	if !nine.Available || !reflect.DeepEqual(nine.AvailableDurations, []int{30}) {
		t.Fatalf("09:00: a 30 min meeting ends before the buffer window, 60 min runs into it; got %v", nine.AvailableDurations)
	}

	if s := findSlot(t, slots, "09:45"); s.Available {
		t.Fatalf("09:45 starts inside the buffer window, got durations %v", s.AvailableDurations)
	}
	if s := findSlot(t, slots, "11:15"); s.Available {
		t.Fatalf("11:15 starts flush at the window end and must stay blocked, got %v", s.AvailableDurations)
	}
	clear := findSlot(t, slots, "11:30")
	if !clear.Available || !reflect.DeepEqual(clear.AvailableDurations, []int{30, 60}) {
		t.Fatalf("11:30 is the first clear slot, got %v", clear.AvailableDurations)
	}

	// Blocked slots still report the durations that would fit.
	if s := findSlot(t, slots, "10:00"); len(s.AllDurations) != 2 {
		t.Fatalf("10:00 should keep allDurations for display, got %v", s.AllDurations)
	}
}

func TestCalculate_Deterministic(t *testing.T) {
	prefs := DefaultPreferences()
	meetings := []Meeting{meetingAt(10, 0, 60), meetingAt(14, 30, 30)}

	a := Calculate(monday(), 7, prefs, meetings)
	b := Calculate(monday(), 7, prefs, meetings)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("identical inputs must produce identical output")
	}
}

func TestCalculate_WeekendExclusion(t *testing.T) {
	prefs := DefaultPreferences()
	for _, day := range []string{"saturday", "sunday"} {
		h := prefs.WorkingHours[day]
		h.Enabled = true
		prefs.WorkingHours[day] = h
	}
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) // a Saturday

	result := Calculate(start, 7, prefs, nil)
	for _, key := range []string{"2024-06-01", "2024-06-02"} {
		if _, ok := result[key]; ok {
			t.Fatalf("weekend day %s present with allowWeekends=false", key)
		}
	}
	if _, ok := result["2024-06-03"]; !ok {
		t.Fatal("expected monday in result")
	}

	prefs.AllowWeekends = true
	result = Calculate(start, 7, prefs, nil)
	for _, key := range []string{"2024-06-01", "2024-06-02"} {
		if _, ok := result[key]; !ok {
			t.Fatalf("weekend day %s missing with allowWeekends=true", key)
		}
	}
}

func TestCalculate_BlockedRange(t *testing.T) {
	prefs := DefaultPreferences()
	prefs.BlockedRanges = []BlockedRange{{Start: "2024-06-04", End: "2024-06-05"}}

	result := Calculate(monday(), 4, prefs, nil)
	if _, ok := result["2024-06-03"]; !ok {
		t.Fatal("day before the blocked range should be present")
	}
	for _, key := range []string{"2024-06-04", "2024-06-05"} {
		if _, ok := result[key]; ok {
			t.Fatalf("blocked day %s present in result", key)
		}
	}
	if _, ok := result["2024-06-06"]; !ok {
		t.Fatal("day after the blocked range should be present")
	}
}

func TestCalculate_MonthlyRecurringWrap(t *testing.T) {
	prefs := DefaultPreferences()
	// Day-of-month 25 through 5, wrapping the month boundary.
	prefs.BlockedRanges = []BlockedRange{{Start: "2024-05-25", End: "2024-06-05", RepeatMonthly: true}}

	result := Calculate(monday(), 8, prefs, nil)
	for _, key := range []string{"2024-06-03", "2024-06-04", "2024-06-05"} {
		if _, ok := result[key]; ok {
			t.Fatalf("%s falls inside the recurring range and must be blocked", key)
		}
	}
	for _, key := range []string{"2024-06-06", "2024-06-07", "2024-06-10"} {
		if _, ok := result[key]; !ok {
			t.Fatalf("%s is outside the recurring range and must be present", key)
		}
	}

	friday28 := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)
	if res := Calculate(friday28, 1, prefs, nil); len(res) != 0 {
		t.Fatal("the 28th falls on the wrapped side of the range and must be blocked")
	}
}

func TestCalculate_SpecificSlotDurationPassThrough(t *testing.T) {
	prefs := DefaultPreferences()
	prefs.CustomTimes = true
	prefs.DefaultRange = ClockRange{Start: "09:00", End: "10:00"}
	day := prefs.WorkingHours["monday"]
	day.SpecificSlots = []string{"14:00"}
	prefs.WorkingHours["monday"] = day

	result := Calculate(monday(), 1, prefs, nil)
	slots := result["2024-06-03"]
	if len(slots) != 1 || slots[0].Time != "14:00" {
		t.Fatalf("expected the single specific slot at 14:00, got %v", slots)
	}
	if !reflect.DeepEqual(slots[0].AvailableDurations, []int{30, 60}) {
		t.Fatalf("specific slot must carry all allowed durations, got %v", slots[0].AvailableDurations)
	}
}

func TestCalculate_EmptyMeetings(t *testing.T) {
	prefs := DefaultPreferences()

	result := Calculate(monday(), 5, prefs, nil)
	if len(result) != 5 {
		t.Fatalf("expected 5 working days, got %d", len(result))
	}
	for key, slots := range result {
		for _, s := range slots {
			if !s.Available {
				t.Fatalf("%s %s: every slot is available with no meetings", key, s.Time)
			}
			if !reflect.DeepEqual(s.AvailableDurations, s.AllDurations) {
				t.Fatalf("%s %s: availableDurations %v != allDurations %v", key, s.Time, s.AvailableDurations, s.AllDurations)
			}
		}
	}
}

func TestCalculate_MeetingsOutsideWindowIgnored(t *testing.T) {
	prefs := DefaultPreferences()
	outside := Meeting{Start: time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC), DurationMinutes: 60}

	result := Calculate(monday(), 1, prefs, []Meeting{outside})
	for _, s := range result["2024-06-03"] {
		if !s.Available {
			t.Fatalf("meeting outside the window must not block %s", s.Time)
		}
	}
}

func TestCalculate_PartialPreferencesDefaulted(t *testing.T) {
	// A stored document missing hours and durations still yields a schedule.
	prefs := Preferences{Enabled: true, BufferMinutes: 15}

	result := Calculate(monday(), 1, prefs, nil)
	slots := result["2024-06-03"]
	if len(slots) == 0 {
		t.Fatal("expected defaulted working hours to produce slots")
	}
	if slots[0].Time != "09:00" {
		t.Fatalf("expected defaults to start at 09:00, got %s", slots[0].Time)
	}
}
