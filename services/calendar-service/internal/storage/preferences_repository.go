package storage

import (
	"context"
	"encoding/json"

	"github.com/cardlinkhq/cardlink/services/calendar-service/internal/availability"
)

// GetPreferences loads the stored scheduling document for a user. The second
// return is false when the user has never saved preferences; callers fall back
// to availability.DefaultPreferences.
func (r *CalendarRepository) GetPreferences(ctx context.Context, userID string) (availability.Preferences, bool, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx, `
		SELECT document
		FROM calendar_preferences
		WHERE user_id = $1
	`, userID).Scan(&doc)
	if err != nil {
		if IsNotFound(err) {
			return availability.Preferences{}, false, nil
		}
		return availability.Preferences{}, false, err
	}

	var prefs availability.Preferences
	if err := json.Unmarshal(doc, &prefs); err != nil {
		return availability.Preferences{}, false, err
	}
	return prefs, true, nil
}

func (r *CalendarRepository) PutPreferences(ctx context.Context, userID string, prefs availability.Preferences) error {
	doc, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO calendar_preferences (user_id, document)
		VALUES ($1, $2)
		ON CONFLICT (user_id)
		DO UPDATE SET document = EXCLUDED.document,
		              updated_at = now()
	`, userID, doc)
	return err
}
