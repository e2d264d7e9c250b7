package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cardlinkhq/cardlink/services/calendar-service/internal/availability"
	"github.com/cardlinkhq/cardlink/services/calendar-service/internal/storage"
)

type PreferencesHandler struct {
	repo   *storage.CalendarRepository
	logger *slog.Logger
}

func NewPreferencesHandler(repo *storage.CalendarRepository, logger *slog.Logger) *PreferencesHandler {
	return &PreferencesHandler{repo: repo, logger: logger}
}

func (h *PreferencesHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut:
		h.put(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *PreferencesHandler) get(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	if userID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}

	prefs, found, err := h.repo.GetPreferences(r.Context(), userID)
	if err != nil {
		http.Error(w, "failed to load preferences", http.StatusInternalServerError)
		return
	}
	if !found {
		prefs = availability.DefaultPreferences()
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (h *PreferencesHandler) put(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	if userID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}

	var prefs availability.Preferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	normalizeWorkingHours(&prefs)
	if err := validatePreferences(prefs); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	if err := h.repo.PutPreferences(r.Context(), userID, prefs); err != nil {
		http.Error(w, "failed to save preferences", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// normalizeWorkingHours guarantees the stored document carries all seven
// weekday keys; days the client omitted are saved disabled with default hours.
func normalizeWorkingHours(prefs *availability.Preferences) {
	defaults := availability.DefaultPreferences()
	if prefs.WorkingHours == nil {
		prefs.WorkingHours = defaults.WorkingHours
		return
	}
	for key, def := range defaults.WorkingHours {
		if _, ok := prefs.WorkingHours[key]; !ok {
			def.Enabled = false
			prefs.WorkingHours[key] = def
		}
	}
}

func validatePreferences(prefs availability.Preferences) error {
	for day, hours := range prefs.WorkingHours {
		if !validDayKey(day) {
			return fmt.Errorf("unknown weekday %q", day)
		}
		if hours.Enabled {
			if !validClock(hours.Start) || !validClock(hours.End) {
				return fmt.Errorf("%s: start/end must be HH:MM", day)
			}
		}
		for _, s := range hours.SpecificSlots {
			if !validClock(s) {
				return fmt.Errorf("%s: specific slot %q must be HH:MM", day, s)
			}
		}
	}
	if prefs.BufferMinutes < 0 || prefs.BufferMinutes > 240 {
		return fmt.Errorf("bufferTime must be between 0 and 240 minutes")
	}
	if len(prefs.AllowedDurations) == 0 {
		return fmt.Errorf("allowedDurations must not be empty")
	}
	for _, d := range prefs.AllowedDurations {
		if d <= 0 || d > 8*60 {
			return fmt.Errorf("allowed duration %d out of range", d)
		}
	}
	if prefs.Timezone != "" {
		if _, err := time.LoadLocation(prefs.Timezone); err != nil {
			return fmt.Errorf("unknown timezone %q", prefs.Timezone)
		}
	}
	for i, r := range prefs.BlockedRanges {
		if _, err := time.Parse("2006-01-02", r.Start); err != nil {
			return fmt.Errorf("blocked range %d: invalid startDate", i)
		}
		if _, err := time.Parse("2006-01-02", r.End); err != nil {
			return fmt.Errorf("blocked range %d: invalid endDate", i)
		}
	}
	if prefs.DefaultRange.Start != "" || prefs.DefaultRange.End != "" {
		if !validClock(prefs.DefaultRange.Start) || !validClock(prefs.DefaultRange.End) {
			return fmt.Errorf("defaultTimeRange must use HH:MM")
		}
	}
	return nil
}

func validDayKey(day string) bool {
	switch day {
	case "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday":
		return true
	default:
		return false
	}
}

func validClock(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return false
	}
	return t.Format("15:04") == s
}

func requestUserID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-User-Id")); id != "" {
		return id
	}
	return strings.TrimSpace(r.URL.Query().Get("user_id"))
}
