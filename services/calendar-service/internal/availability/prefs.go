package availability

import "time"

// Preferences is a card owner's scheduling configuration. The stored document
// and the mobile client share this shape; the engine reads it as-is.
type Preferences struct {
	Enabled            bool                `json:"enabled"`
	WorkingHours       map[string]DayHours `json:"workingHours"`
	BufferMinutes      int                 `json:"bufferTime"`
	AllowWeekends      bool                `json:"allowWeekends"`
	AllowedDurations   []int               `json:"allowedDurations"`
	Timezone           string              `json:"timezone"`
	AdvanceBookingDays int                 `json:"advanceBookingDays"`
	BlockedRanges      []BlockedRange      `json:"blockedDateRanges"`
	DefaultRange       ClockRange          `json:"defaultTimeRange"`
	CustomTimes        bool                `json:"customTimes"`
}

// DayHours configures a single weekday. SpecificSlots, when set and CustomTimes
// is enabled, overrides range-based generation with an explicit start-time list.
type DayHours struct {
	Start         string   `json:"start"`
	End           string   `json:"end"`
	Enabled       bool     `json:"enabled"`
	SpecificSlots []string `json:"specificSlots,omitempty"`
}

// ClockRange is a start/end pair of zero-padded 24-hour "HH:MM" strings.
type ClockRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// BlockedRange excludes dates from slot generation. Start and End are
// "YYYY-MM-DD". With RepeatMonthly only the day-of-month matters and the
// range may wrap a month boundary (e.g. 25th through 5th).
type BlockedRange struct {
	Start         string `json:"startDate"`
	End           string `json:"endDate"`
	RepeatMonthly bool   `json:"repeatMonthly"`
}

// Meeting is an existing booking. Callers normalize timestamps to time.Time
// before handing meetings to the engine; a zero Start means the source record
// had no usable timestamp and the meeting is skipped. DurationMinutes <= 0
// defaults to 60.
type Meeting struct {
	Start           time.Time
	DurationMinutes int
}

// Slot is one candidate start time on a day. AllDurations lists every duration
// that fits before day end; AvailableDurations is that list minus durations
// blocked by an existing meeting.
type Slot struct {
	Time               string `json:"time"`
	AvailableDurations []int  `json:"availableDurations"`
	Available          bool   `json:"available"`
	AllDurations       []int  `json:"allDurations"`
}

var weekdayKeys = map[time.Weekday]string{
	time.Sunday:    "sunday",
	time.Monday:    "monday",
	time.Tuesday:   "tuesday",
	time.Wednesday: "wednesday",
	time.Thursday:  "thursday",
	time.Friday:    "friday",
	time.Saturday:  "saturday",
}

// DefaultPreferences returns the configuration used when a user has never
// customized scheduling: Monday through Friday 09:00-17:00, weekends off,
// 15 minute buffer, 30 and 60 minute meetings.
func DefaultPreferences() Preferences {
	hours := make(map[string]DayHours, 7)
	for wd, key := range weekdayKeys {
		enabled := wd != time.Saturday && wd != time.Sunday
		hours[key] = DayHours{Start: "09:00", End: "17:00", Enabled: enabled}
	}
	return Preferences{
		Enabled:            true,
		WorkingHours:       hours,
		BufferMinutes:      15,
		AllowWeekends:      false,
		AllowedDurations:   []int{30, 60},
		Timezone:           "UTC",
		AdvanceBookingDays: 30,
		DefaultRange:       ClockRange{Start: "09:00", End: "17:00"},
		CustomTimes:        false,
	}
}
