package availability

import (
	"fmt"
	"time"
)

// Calculate computes bookable slots for each day in the window starting at
// startDate (inclusive, local midnight) and spanning days calendar days.
// Weekend days are omitted unless AllowWeekends is set, blocked date ranges
// are skipped, and each candidate slot's durations are filtered against the
// day's meetings. Only days with at least one candidate slot appear in the
// result, keyed by local "YYYY-MM-DD".
//
// The function is pure and total: malformed meetings and blocked-range entries
// are skipped, never fatal, and identical inputs always produce identical
// output.
func Calculate(startDate time.Time, days int, prefs Preferences, meetings []Meeting) map[string][]Slot {
	result := make(map[string][]Slot)
	if days <= 0 {
		return result
	}

	prefs = withDefaults(prefs)

	start := time.Date(startDate.Year(), startDate.Month(), startDate.Day(), 0, 0, 0, 0, startDate.Location())
	end := start.AddDate(0, 0, days)

	byDay := make(map[string][]Meeting)
	for _, m := range meetings {
		if m.Start.IsZero() || m.Start.Before(start) || !m.Start.Before(end) {
			continue
		}
		key := dateKey(m.Start)
		byDay[key] = append(byDay[key], m)
	}

	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i)
		wd := day.Weekday()
		if (wd == time.Saturday || wd == time.Sunday) && !prefs.AllowWeekends {
			continue
		}
		if dateBlocked(day, prefs.BlockedRanges) {
			continue
		}

		slots := DaySlots(day, prefs)
		if len(slots) == 0 {
			continue
		}

		key := dateKey(day)
		dayMeetings := byDay[key]
		for si := range slots {
			var free []int
			for _, d := range slots[si].AllDurations {
				if !HasConflict(slots[si].Time, d, dayMeetings, prefs.BufferMinutes) {
					free = append(free, d)
				}
			}
			slots[si].AvailableDurations = free
			slots[si].Available = len(free) > 0
		}
		result[key] = slots
	}
	return result
}

// withDefaults fills wholly-missing preference pieces so a partial document
// still yields a usable schedule. Explicit zero buffer is respected; only
// negative values are clamped.
func withDefaults(prefs Preferences) Preferences {
	def := DefaultPreferences()
	if len(prefs.WorkingHours) == 0 {
		prefs.WorkingHours = def.WorkingHours
	}
	if len(prefs.AllowedDurations) == 0 {
		prefs.AllowedDurations = def.AllowedDurations
	}
	if prefs.BufferMinutes < 0 {
		prefs.BufferMinutes = 0
	}
	if prefs.DefaultRange.Start == "" && prefs.DefaultRange.End == "" {
		prefs.DefaultRange = def.DefaultRange
	}
	return prefs
}

func dateBlocked(day time.Time, ranges []BlockedRange) bool {
	for _, r := range ranges {
		from, err := time.ParseInLocation("2006-01-02", r.Start, day.Location())
		if err != nil {
			continue
		}
		to, err := time.ParseInLocation("2006-01-02", r.End, day.Location())
		if err != nil {
			continue
		}

		if r.RepeatMonthly {
			cur, lo, hi := day.Day(), from.Day(), to.Day()
			if lo <= hi {
				if cur >= lo && cur <= hi {
					return true
				}
			} else if cur >= lo || cur <= hi {
				// Wraps the month boundary, e.g. 25th through 5th.
				return true
			}
			continue
		}

		if !day.Before(from) && !day.After(to) {
			return true
		}
	}
	return false
}

// dateKey formats the local calendar date. Built from local components rather
// than a UTC-shifted ISO slice so meetings near midnight land on the right day
// in non-UTC locales.
func dateKey(t time.Time) string {
	return fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day())
}
