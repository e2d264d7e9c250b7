package availability

import (
	"fmt"
	"sort"
	"time"
)

const defaultStepMinutes = 30

// DaySlots produces the candidate slots for one calendar day from the user's
// working hours. Conflict filtering against booked meetings happens in
// Calculate; here every emitted slot carries the durations that fit before
// day end.
//
// Two generation modes: when CustomTimes is set and the day lists valid
// SpecificSlots, those exact start times are emitted with the full allowed
// duration list (an explicit slot is assumed deliberately chosen for all
// configured durations). Otherwise slots are stepped through a start/end
// window: the day's own hours when CustomTimes is set, DefaultRange when not.
func DaySlots(date time.Time, prefs Preferences) []Slot {
	day, ok := prefs.WorkingHours[weekdayKeys[date.Weekday()]]
	if !ok || !day.Enabled {
		return nil
	}

	if prefs.CustomTimes {
		if slots := specificSlots(day.SpecificSlots, prefs.AllowedDurations); len(slots) > 0 {
			return slots
		}
	}

	window := prefs.DefaultRange
	if prefs.CustomTimes {
		window = ClockRange{Start: day.Start, End: day.End}
	}
	return rangeSlots(window, prefs.AllowedDurations, prefs.BufferMinutes)
}

func specificSlots(times []string, durations []int) []Slot {
	var starts []int
	for _, s := range times {
		if m, ok := clockMinutes(s); ok {
			starts = append(starts, m)
		}
	}
	sort.Ints(starts)

	slots := make([]Slot, 0, len(starts))
	for _, m := range starts {
		slots = append(slots, Slot{
			Time:               minutesClock(m),
			AvailableDurations: append([]int(nil), durations...),
			Available:          len(durations) > 0,
			AllDurations:       append([]int(nil), durations...),
		})
	}
	return slots
}

func rangeSlots(window ClockRange, durations []int, bufferMinutes int) []Slot {
	start, ok := clockMinutes(window.Start)
	if !ok {
		return nil
	}
	end, ok := clockMinutes(window.End)
	if !ok || end <= start {
		return nil
	}

	minDur := 0
	for _, d := range durations {
		if d > 0 && (minDur == 0 || d < minDur) {
			minDur = d
		}
	}
	if minDur == 0 {
		return nil
	}

	// Shrink the step below 30 when a small buffer is configured so that
	// buffer granularity isn't lost between candidate start times.
	step := defaultStepMinutes
	if bufferMinutes > 0 && bufferMinutes < defaultStepMinutes {
		step = bufferMinutes
		if step < 5 {
			step = 5
		}
	}

	var slots []Slot
	for cur := start; cur+minDur <= end; cur += step {
		var fits []int
		for _, d := range durations {
			if d > 0 && cur+d <= end {
				fits = append(fits, d)
			}
		}
		if len(fits) == 0 {
			continue
		}
		slots = append(slots, Slot{
			Time:               minutesClock(cur),
			AvailableDurations: fits,
			Available:          true,
			AllDurations:       append([]int(nil), fits...),
		})
	}
	return slots
}

// clockMinutes parses a strict zero-padded "HH:MM" string into minutes since
// midnight. Malformed strings report ok=false and are dropped by callers.
func clockMinutes(s string) (int, bool) {
	if len(s) != 5 || s[2] != ':' {
		return 0, false
	}
	for _, i := range [...]int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if h > 23 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

func minutesClock(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
