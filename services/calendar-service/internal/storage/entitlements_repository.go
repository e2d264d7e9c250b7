package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

type UserEntitlements struct {
	UserID             string
	Tier               string
	MaxMonthlyMeetings int
	UpdatedAt          time.Time
}

func (r *CalendarRepository) UpsertUserEntitlements(ctx context.Context, tx pgx.Tx, ent UserEntitlements) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO user_entitlements (user_id, tier, max_monthly_meetings)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id)
		DO UPDATE SET tier = EXCLUDED.tier,
		              max_monthly_meetings = EXCLUDED.max_monthly_meetings,
		              updated_at = now()
	`, ent.UserID, ent.Tier, ent.MaxMonthlyMeetings)
	return err
}

func (r *CalendarRepository) GetUserEntitlements(ctx context.Context, tx pgx.Tx, userID string) (UserEntitlements, bool, error) {
	var ent UserEntitlements
	err := tx.QueryRow(ctx, `
		SELECT user_id::text, tier, max_monthly_meetings, updated_at
		FROM user_entitlements
		WHERE user_id = $1
	`, userID).Scan(&ent.UserID, &ent.Tier, &ent.MaxMonthlyMeetings, &ent.UpdatedAt)
	if err != nil {
		if IsNotFound(err) {
			return UserEntitlements{}, false, nil
		}
		return UserEntitlements{}, false, err
	}
	return ent, true, nil
}
