package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cardlinkhq/cardlink/services/calendar-service/internal/availability"
	"github.com/cardlinkhq/cardlink/services/calendar-service/internal/model"
	"github.com/cardlinkhq/cardlink/services/calendar-service/internal/profile"
	"github.com/cardlinkhq/cardlink/services/calendar-service/internal/storage"
)

type AvailabilityHandler struct {
	repo    *storage.CalendarRepository
	logger  *slog.Logger
	profile profile.Provider
}

func NewAvailabilityHandler(repo *storage.CalendarRepository, logger *slog.Logger, profileProvider profile.Provider) *AvailabilityHandler {
	return &AvailabilityHandler{repo: repo, logger: logger, profile: profileProvider}
}

type availabilityResponse struct {
	UserID string                         `json:"user_id"`
	Owner  *ownerInfo                     `json:"owner,omitempty"`
	Days   map[string][]availability.Slot `json:"days"`
}

type ownerInfo struct {
	DisplayName string `json:"display_name"`
	Title       string `json:"title,omitempty"`
	Company     string `json:"company,omitempty"`
}

// PublicAvailability computes the bookable slots for a card owner over a date
// window. The start date is interpreted at local midnight in the owner's
// configured timezone so the window never shifts a day across timezones.
func (h *AvailabilityHandler) PublicAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	prefs, loc, err := h.loadPreferences(r.Context(), userID)
	if err != nil {
		http.Error(w, "failed to load preferences", http.StatusInternalServerError)
		return
	}
	if !prefs.Enabled {
		writeJSON(w, http.StatusOK, availabilityResponse{UserID: userID, Days: map[string][]availability.Slot{}})
		return
	}

	start := time.Now().In(loc)
	if raw := strings.TrimSpace(r.URL.Query().Get("start_date")); raw != "" {
		start, err = time.ParseInLocation("2006-01-02", raw, loc)
		if err != nil {
			http.Error(w, "invalid start_date (want YYYY-MM-DD)", http.StatusBadRequest)
			return
		}
	}

	maxDays := prefs.AdvanceBookingDays
	if maxDays <= 0 {
		maxDays = availability.DefaultPreferences().AdvanceBookingDays
	}
	days := 7
	if raw := strings.TrimSpace(r.URL.Query().Get("days")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "invalid days", http.StatusBadRequest)
			return
		}
		days = n
	}
	if days > maxDays {
		days = maxDays
	}

	meetings, err := h.loadEngineMeetings(r.Context(), userID, start, days, loc)
	if err != nil {
		http.Error(w, "failed to load meetings", http.StatusInternalServerError)
		return
	}

	resp := availabilityResponse{
		UserID: userID,
		Days:   availability.Calculate(start, days, prefs, meetings),
	}
	if h.profile != nil {
		reqCtx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		card, err := h.profile.GetCardProfile(reqCtx, userID)
		cancel()
		if err != nil {
			h.logger.Warn("card profile fetch failed", "err", err, "user_id", userID)
		} else if card.DisplayName != "" {
			resp.Owner = &ownerInfo{DisplayName: card.DisplayName, Title: card.Title, Company: card.Company}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AvailabilityHandler) loadPreferences(ctx context.Context, userID string) (availability.Preferences, *time.Location, error) {
	prefs, found, err := h.repo.GetPreferences(ctx, userID)
	if err != nil {
		return availability.Preferences{}, nil, err
	}
	if !found {
		prefs = availability.DefaultPreferences()
	}
	loc := time.UTC
	if prefs.Timezone != "" {
		if l, err := time.LoadLocation(prefs.Timezone); err == nil {
			loc = l
		} else {
			h.logger.Warn("unknown timezone in preferences; using UTC", "timezone", prefs.Timezone, "user_id", userID)
		}
	}
	return prefs, loc, nil
}

// loadEngineMeetings fetches the window's booked meetings and normalizes them
// into the engine's input type, shifted into the owner's timezone so date
// grouping happens on local wall-clock fields.
func (h *AvailabilityHandler) loadEngineMeetings(ctx context.Context, userID string, start time.Time, days int, loc *time.Location) ([]availability.Meeting, error) {
	dayStart := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	booked, err := h.repo.ListBookedInWindow(ctx, userID, dayStart, dayStart.AddDate(0, 0, days))
	if err != nil {
		return nil, err
	}
	return engineMeetings(booked, loc), nil
}

func engineMeetings(booked []model.Meeting, loc *time.Location) []availability.Meeting {
	out := make([]availability.Meeting, 0, len(booked))
	for _, m := range booked {
		out = append(out, availability.Meeting{
			Start:           m.StartTime.In(loc),
			DurationMinutes: m.DurationMinutes,
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
