package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cardlinkhq/cardlink/libs/db"
	"github.com/cardlinkhq/cardlink/services/calendar-service/internal/model"
)

type CalendarRepository struct {
	pool *db.Pool
}

type IdempotencyRecord struct {
	UserID          string
	IdempotencyKey  string
	MeetingID       string
	StatusCode      int
	ResponsePayload []byte
}

func NewCalendarRepository(pool *db.Pool) *CalendarRepository {
	return &CalendarRepository{pool: pool}
}

func (r *CalendarRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *CalendarRepository) LockIdempotencyKey(ctx context.Context, tx pgx.Tx, userID, key string) (IdempotencyRecord, bool, error) {
	rec, err := r.selectIdempotencyForUpdate(ctx, tx, userID, key)
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return IdempotencyRecord{}, false, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO meeting_idempotency_keys (user_id, idempotency_key)
		VALUES ($1, $2)
		ON CONFLICT (user_id, idempotency_key) DO NOTHING
	`, userID, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}

	rec, err = r.selectIdempotencyForUpdate(ctx, tx, userID, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}
	return rec, false, nil
}

func (r *CalendarRepository) FinalizeIdempotency(ctx context.Context, tx pgx.Tx, userID, key, meetingID string, statusCode int, response []byte) error {
	_, err := tx.Exec(ctx, `
		UPDATE meeting_idempotency_keys
		SET meeting_id = $3,
			status_code = $4,
			response_payload = $5,
			updated_at = now()
		WHERE user_id = $1 AND idempotency_key = $2
	`, userID, key, meetingID, statusCode, response)
	return err
}

func (r *CalendarRepository) CreateMeeting(ctx context.Context, tx pgx.Tx, m *model.Meeting) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO meetings
			(user_id, guest_name, guest_email, start_time, duration_minutes, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, m.UserID, m.GuestName, m.GuestEmail, m.StartTime, m.DurationMinutes, m.Status).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *CalendarRepository) GetMeetingForUpdate(ctx context.Context, tx pgx.Tx, userID, meetingID string) (model.Meeting, error) {
	var m model.Meeting
	var cancelledAt *time.Time
	err := tx.QueryRow(ctx, `
		SELECT id, user_id, guest_name, guest_email, start_time, duration_minutes,
			status, cancelled_at, COALESCE(cancellation_reason, ''), created_at
		FROM meetings
		WHERE id = $1 AND user_id = $2
		FOR UPDATE
	`, meetingID, userID).Scan(
		&m.ID,
		&m.UserID,
		&m.GuestName,
		&m.GuestEmail,
		&m.StartTime,
		&m.DurationMinutes,
		&m.Status,
		&cancelledAt,
		&m.CancelReason,
		&m.CreatedAt,
	)
	if err != nil {
		return model.Meeting{}, err
	}
	m.CancelledAt = cancelledAt
	return m, nil
}

func (r *CalendarRepository) CancelMeeting(ctx context.Context, tx pgx.Tx, userID, meetingID, reason string) (time.Time, error) {
	var cancelledAt time.Time
	err := tx.QueryRow(ctx, `
		UPDATE meetings
		SET status = 'cancelled',
			cancelled_at = now(),
			cancellation_reason = $3
		WHERE id = $1 AND user_id = $2
		RETURNING cancelled_at
	`, meetingID, userID, reason).Scan(&cancelledAt)
	return cancelledAt, err
}

// ListBookedInWindow returns the user's non-cancelled meetings overlapping
// [start, end). Cancelled meetings never block availability.
func (r *CalendarRepository) ListBookedInWindow(ctx context.Context, userID string, start, end time.Time) ([]model.Meeting, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, guest_name, guest_email, start_time, duration_minutes,
			status, cancelled_at, COALESCE(cancellation_reason, ''), created_at
		FROM meetings
		WHERE user_id = $1
			AND status = 'booked'
			AND start_time >= $2
			AND start_time < $3
		ORDER BY start_time ASC
	`, userID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMeetings(rows)
}

func (r *CalendarRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.Meeting, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, guest_name, guest_email, start_time, duration_minutes,
			status, cancelled_at, COALESCE(cancellation_reason, ''), created_at
		FROM meetings
		WHERE user_id = $1
		ORDER BY start_time DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMeetings(rows)
}

func (r *CalendarRepository) CountBookedInRange(ctx context.Context, tx pgx.Tx, userID string, startInclusive, endExclusive time.Time) (int, error) {
	var cnt int
	err := tx.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM meetings
		WHERE user_id = $1
		  AND status = 'booked'
		  AND start_time >= $2
		  AND start_time < $3
	`, userID, startInclusive, endExclusive).Scan(&cnt)
	return cnt, err
}

func scanMeetings(rows pgx.Rows) ([]model.Meeting, error) {
	var meetings []model.Meeting
	for rows.Next() {
		var m model.Meeting
		var cancelledAt *time.Time
		if err := rows.Scan(
			&m.ID,
			&m.UserID,
			&m.GuestName,
			&m.GuestEmail,
			&m.StartTime,
			&m.DurationMinutes,
			&m.Status,
			&cancelledAt,
			&m.CancelReason,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		m.CancelledAt = cancelledAt
		meetings = append(meetings, m)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return meetings, nil
}

func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == "23505" || pgErr.Code == "23P01")
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func (r *CalendarRepository) selectIdempotencyForUpdate(ctx context.Context, tx pgx.Tx, userID, key string) (IdempotencyRecord, error) {
	var rec IdempotencyRecord
	var responseText string
	err := tx.QueryRow(ctx, `
		SELECT user_id::text,
			idempotency_key,
			COALESCE(meeting_id::text, ''),
			COALESCE(status_code, 0),
			COALESCE(response_payload::text, '')
		FROM meeting_idempotency_keys
		WHERE user_id = $1 AND idempotency_key = $2
		FOR UPDATE
	`, userID, key).Scan(
		&rec.UserID,
		&rec.IdempotencyKey,
		&rec.MeetingID,
		&rec.StatusCode,
		&responseText,
	)
	if err != nil {
		return IdempotencyRecord{}, err
	}
	if responseText != "" {
		rec.ResponsePayload = []byte(responseText)
	}
	return rec, nil
}
