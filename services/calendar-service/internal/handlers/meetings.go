package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cardlinkhq/cardlink/services/calendar-service/internal/availability"
	"github.com/cardlinkhq/cardlink/services/calendar-service/internal/model"
	"github.com/cardlinkhq/cardlink/services/calendar-service/internal/outbox"
	"github.com/cardlinkhq/cardlink/services/calendar-service/internal/storage"
)

type MeetingHandler struct {
	repo       *storage.CalendarRepository
	outboxRepo *outbox.Repository
	logger     *slog.Logger
}

func NewMeetingHandler(repo *storage.CalendarRepository, outboxRepo *outbox.Repository, logger *slog.Logger) *MeetingHandler {
	return &MeetingHandler{repo: repo, outboxRepo: outboxRepo, logger: logger}
}

type bookMeetingRequest struct {
	UserID          string `json:"user_id"`
	GuestName       string `json:"guest_name"`
	GuestEmail      string `json:"guest_email"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"duration_minutes"`
}

type bookMeetingResponse struct {
	MeetingID string `json:"meeting_id"`
	StartTime string `json:"start_time"`
}

type cancelMeetingRequest struct {
	UserID    string `json:"user_id"`
	MeetingID string `json:"meeting_id"`
	Reason    string `json:"reason"`
}

type cancelMeetingResponse struct {
	MeetingID   string `json:"meeting_id"`
	Status      string `json:"status"`
	CancelledAt string `json:"cancelled_at"`
}

type listMeetingItem struct {
	MeetingID       string `json:"meeting_id"`
	GuestName       string `json:"guest_name"`
	GuestEmail      string `json:"guest_email"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
	Status          string `json:"status"`
	CancelledAt     string `json:"cancelled_at,omitempty"`
	CreatedAt       string `json:"created_at"`
}

func (h *MeetingHandler) Book(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req bookMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.GuestName = strings.TrimSpace(req.GuestName)
	req.GuestEmail = strings.TrimSpace(req.GuestEmail)
	if req.UserID == "" || req.GuestName == "" {
		http.Error(w, "user_id and guest_name are required", http.StatusBadRequest)
		return
	}
	if req.DurationMinutes <= 0 {
		http.Error(w, "duration_minutes must be positive", http.StatusBadRequest)
		return
	}

	prefs, loc, err := h.loadPreferences(r.Context(), req.UserID)
	if err != nil {
		http.Error(w, "failed to load preferences", http.StatusInternalServerError)
		return
	}
	if !prefs.Enabled {
		http.Error(w, "scheduling is disabled for this user", http.StatusUnprocessableEntity)
		return
	}

	day, err := time.ParseInLocation("2006-01-02", req.Date, loc)
	if err != nil {
		http.Error(w, "invalid date (want YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	clock, err := time.Parse("15:04", req.Time)
	if err != nil {
		http.Error(w, "invalid time (want HH:MM)", http.StatusBadRequest)
		return
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idempotencyKey != "" {
		rec, exists, err := h.repo.LockIdempotencyKey(ctx, tx, req.UserID, idempotencyKey)
		if err != nil {
			http.Error(w, "failed to lock idempotency key", http.StatusInternalServerError)
			return
		}
		if exists && rec.StatusCode > 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(rec.StatusCode)
			if len(rec.ResponsePayload) > 0 {
				_, _ = w.Write(rec.ResponsePayload)
				return
			}
			_ = json.NewEncoder(w).Encode(bookMeetingResponse{MeetingID: rec.MeetingID})
			return
		}
	}

	// The slot engine is the single source of truth for bookability: working
	// hours, blocked ranges, weekend policy, and buffer conflicts all apply.
	ok, err := h.slotBookable(ctx, req.UserID, day, req.Time, req.DurationMinutes, prefs, loc)
	if err != nil {
		http.Error(w, "failed to check availability", http.StatusInternalServerError)
		return
	}
	if !ok {
		if idempotencyKey != "" {
			if h.finalizeIdempotencyError(ctx, tx, req.UserID, idempotencyKey, http.StatusUnprocessableEntity, "requested slot is not available") {
				_ = tx.Commit(ctx)
				return
			}
		}
		http.Error(w, "requested slot is not available", http.StatusUnprocessableEntity)
		return
	}

	if err := h.enforceMonthlyMeetingLimit(ctx, tx, req.UserID, start); err != nil {
		if errors.Is(err, errPaymentRequired) {
			if idempotencyKey != "" {
				if h.finalizeIdempotencyError(ctx, tx, req.UserID, idempotencyKey, http.StatusPaymentRequired, err.Error()) {
					_ = tx.Commit(ctx)
					return
				}
			}
			http.Error(w, err.Error(), http.StatusPaymentRequired)
			return
		}
		http.Error(w, "entitlements check failed", http.StatusInternalServerError)
		return
	}

	meeting := &model.Meeting{
		UserID:          req.UserID,
		GuestName:       req.GuestName,
		GuestEmail:      req.GuestEmail,
		StartTime:       start,
		DurationMinutes: req.DurationMinutes,
		Status:          "booked",
	}
	id, err := h.repo.CreateMeeting(ctx, tx, meeting)
	if err != nil {
		if storage.IsConflict(err) {
			http.Error(w, "time slot already booked", http.StatusConflict)
			return
		}
		http.Error(w, "failed to create meeting", http.StatusInternalServerError)
		return
	}

	evtPayload, err := json.Marshal(map[string]any{
		"meeting_id":       id,
		"user_id":          req.UserID,
		"guest_name":       req.GuestName,
		"guest_email":      req.GuestEmail,
		"start_time":       start.UTC().Format(time.RFC3339),
		"duration_minutes": req.DurationMinutes,
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "meeting",
		AggregateID:   id,
		EventType:     "calendar.meeting.booked.v1",
		Payload:       evtPayload,
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	respBody, err := json.Marshal(bookMeetingResponse{
		MeetingID: id,
		StartTime: start.UTC().Format(time.RFC3339),
	})
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	if idempotencyKey != "" {
		if err := h.repo.FinalizeIdempotency(ctx, tx, req.UserID, idempotencyKey, id, http.StatusCreated, respBody); err != nil {
			http.Error(w, "failed to finalize idempotency key", http.StatusInternalServerError)
			return
		}
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(respBody)
}

// slotBookable runs the availability engine for the single requested day and
// checks the requested start time still carries the requested duration.
func (h *MeetingHandler) slotBookable(ctx context.Context, userID string, day time.Time, slotTime string, duration int, prefs availability.Preferences, loc *time.Location) (bool, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	booked, err := h.repo.ListBookedInWindow(ctx, userID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return false, err
	}

	result := availability.Calculate(dayStart, 1, prefs, engineMeetings(booked, loc))
	for _, slot := range result[dayStart.Format("2006-01-02")] {
		if slot.Time != slotTime {
			continue
		}
		for _, d := range slot.AvailableDurations {
			if d == duration {
				return true, nil
			}
		}
		return false, nil
	}
	return false, nil
}

var errPaymentRequired = errors.New("monthly meeting limit reached (upgrade required)")

func (h *MeetingHandler) enforceMonthlyMeetingLimit(ctx context.Context, tx pgx.Tx, userID string, start time.Time) error {
	const defaultFreeMax = 20

	ent, ok, err := h.repo.GetUserEntitlements(ctx, tx, userID)
	if err != nil {
		return err
	}
	max := defaultFreeMax
	if ok && ent.MaxMonthlyMeetings > 0 {
		max = ent.MaxMonthlyMeetings
	}
	if max <= 0 {
		return nil
	}

	startUTC := start.UTC()
	monthStart := time.Date(startUTC.Year(), startUTC.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	cnt, err := h.repo.CountBookedInRange(ctx, tx, userID, monthStart, monthEnd)
	if err != nil {
		return err
	}
	if cnt >= max {
		return errPaymentRequired
	}
	return nil
}

func (h *MeetingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cancelMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.MeetingID = strings.TrimSpace(req.MeetingID)
	req.Reason = strings.TrimSpace(req.Reason)
	if req.UserID == "" || req.MeetingID == "" {
		http.Error(w, "user_id and meeting_id required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	meeting, err := h.repo.GetMeetingForUpdate(ctx, tx, req.UserID, req.MeetingID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "meeting not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load meeting", http.StatusInternalServerError)
		return
	}

	if meeting.Status == "cancelled" && meeting.CancelledAt != nil {
		h.writeCancelResponse(w, meeting.ID, meeting.CancelledAt.UTC())
		return
	}
	if meeting.Status != "booked" {
		http.Error(w, "meeting cannot be cancelled", http.StatusConflict)
		return
	}

	cancelledAt, err := h.repo.CancelMeeting(ctx, tx, req.UserID, meeting.ID, req.Reason)
	if err != nil {
		http.Error(w, "failed to cancel meeting", http.StatusInternalServerError)
		return
	}

	cancelPayload, err := json.Marshal(map[string]any{
		"meeting_id":       meeting.ID,
		"user_id":          meeting.UserID,
		"guest_email":      meeting.GuestEmail,
		"start_time":       meeting.StartTime.UTC().Format(time.RFC3339),
		"duration_minutes": meeting.DurationMinutes,
		"cancelled_at":     cancelledAt.UTC().Format(time.RFC3339),
		"reason":           req.Reason,
	})
	if err != nil {
		http.Error(w, "failed to build cancellation event", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "meeting",
		AggregateID:   meeting.ID,
		EventType:     "calendar.meeting.cancelled.v1",
		Payload:       cancelPayload,
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	h.writeCancelResponse(w, meeting.ID, cancelledAt.UTC())
}

func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := requestUserID(r)
	if userID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	meetings, err := h.repo.ListByUser(r.Context(), userID, limit)
	if err != nil {
		http.Error(w, "failed to list meetings", http.StatusInternalServerError)
		return
	}

	items := make([]listMeetingItem, 0, len(meetings))
	for _, m := range meetings {
		item := listMeetingItem{
			MeetingID:       m.ID,
			GuestName:       m.GuestName,
			GuestEmail:      m.GuestEmail,
			StartTime:       m.StartTime.UTC().Format(time.RFC3339),
			DurationMinutes: m.DurationMinutes,
			Status:          m.Status,
			CreatedAt:       m.CreatedAt.UTC().Format(time.RFC3339),
		}
		if m.CancelledAt != nil {
			item.CancelledAt = m.CancelledAt.UTC().Format(time.RFC3339)
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *MeetingHandler) loadPreferences(ctx context.Context, userID string) (availability.Preferences, *time.Location, error) {
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
		}
	}
	return prefs, loc, nil
}

func (h *MeetingHandler) writeCancelResponse(w http.ResponseWriter, meetingID string, cancelledAt time.Time) {
	writeJSON(w, http.StatusOK, cancelMeetingResponse{
		MeetingID:   meetingID,
		Status:      "cancelled",
		CancelledAt: cancelledAt.Format(time.RFC3339),
	})
}

func (h *MeetingHandler) finalizeIdempotencyError(ctx context.Context, tx pgx.Tx, userID, key string, statusCode int, msg string) bool {
	body, err := json.Marshal(map[string]string{"error": msg})
	if err != nil {
		return false
	}
	if err := h.repo.FinalizeIdempotency(ctx, tx, userID, key, "", statusCode, body); err != nil {
		h.logger.Error("failed to finalize idempotency (error)", "err", err)
		return false
	}
	return true
}
