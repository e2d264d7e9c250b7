package handlers

import (
	"testing"

	"github.com/cardlinkhq/cardlink/services/calendar-service/internal/availability"
)

func TestValidatePreferences(t *testing.T) {
	valid := availability.DefaultPreferences()
	if err := validatePreferences(valid); err != nil {
		t.Fatalf("default preferences must validate: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*availability.Preferences)
	}{
		{"unknown weekday", func(p *availability.Preferences) {
			p.WorkingHours["moonday"] = availability.DayHours{Start: "09:00", End: "17:00", Enabled: true}
		}},
		{"bad clock", func(p *availability.Preferences) {
			p.WorkingHours["monday"] = availability.DayHours{Start: "9:00", End: "17:00", Enabled: true}
		}},
		{"bad specific slot", func(p *availability.Preferences) {
			h := p.WorkingHours["monday"]
			h.SpecificSlots = []string{"25:00"}
			p.WorkingHours["monday"] = h
		}},
		{"negative buffer", func(p *availability.Preferences) { p.BufferMinutes = -1 }},
		{"empty durations", func(p *availability.Preferences) { p.AllowedDurations = nil }},
		{"zero duration", func(p *availability.Preferences) { p.AllowedDurations = []int{0} }},
		{"bad timezone", func(p *availability.Preferences) { p.Timezone = "Mars/Olympus" }},
		{"bad blocked range", func(p *availability.Preferences) {
			p.BlockedRanges = []availability.BlockedRange{{Start: "June 1", End: "2024-06-05"}}
		}},
	}
	for _, tc := range cases {
		prefs := availability.DefaultPreferences()
		tc.mutate(&prefs)
		if err := validatePreferences(prefs); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestNormalizeWorkingHoursFillsMissingDays(t *testing.T) {
	prefs := availability.Preferences{
		WorkingHours: map[string]availability.DayHours{
			"monday": {Start: "10:00", End: "16:00", Enabled: true},
		},
	}
	normalizeWorkingHours(&prefs)

	if len(prefs.WorkingHours) != 7 {
		t.Fatalf("expected 7 weekday keys, got %d", len(prefs.WorkingHours))
	}
	if !prefs.WorkingHours["monday"].Enabled {
		t.Fatal("explicit day must keep its config")
	}
	if prefs.WorkingHours["tuesday"].Enabled {
		t.Fatal("filled-in days must be disabled")
	}
}
