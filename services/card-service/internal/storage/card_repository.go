package storage

import (
	"context"
	"encoding/json"
	"time"
)

type Card struct {
	ID          string
	UserID      string
	DisplayName string
	Title       string
	Company     string
	Email       string
	Phone       string
	Website     string
	Slug        string
	Links       map[string]string
	UpdatedAt   time.Time
}

func (r *UserRepository) GetCardByUser(ctx context.Context, userID string) (Card, error) {
	var card Card
	var links []byte
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, display_name, COALESCE(title, ''), COALESCE(company, ''),
			COALESCE(email, ''), COALESCE(phone, ''), COALESCE(website, ''), slug, links, updated_at
		FROM cards
		WHERE user_id = $1
	`, userID).Scan(
		&card.ID,
		&card.UserID,
		&card.DisplayName,
		&card.Title,
		&card.Company,
		&card.Email,
		&card.Phone,
		&card.Website,
		&card.Slug,
		&links,
		&card.UpdatedAt,
	)
	if err != nil {
		return Card{}, err
	}
	if len(links) > 0 {
		_ = json.Unmarshal(links, &card.Links)
	}
	return card, nil
}

func (r *UserRepository) GetCardBySlug(ctx context.Context, slug string) (Card, error) {
	var card Card
	var links []byte
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, display_name, COALESCE(title, ''), COALESCE(company, ''),
			COALESCE(email, ''), COALESCE(phone, ''), COALESCE(website, ''), slug, links, updated_at
		FROM cards
		WHERE slug = $1
	`, slug).Scan(
		&card.ID,
		&card.UserID,
		&card.DisplayName,
		&card.Title,
		&card.Company,
		&card.Email,
		&card.Phone,
		&card.Website,
		&card.Slug,
		&links,
		&card.UpdatedAt,
	)
	if err != nil {
		return Card{}, err
	}
	if len(links) > 0 {
		_ = json.Unmarshal(links, &card.Links)
	}
	return card, nil
}

func (r *UserRepository) UpsertCard(ctx context.Context, card Card) (Card, error) {
	links, err := json.Marshal(card.Links)
	if err != nil {
		return Card{}, err
	}
	err = r.pool.QueryRow(ctx, `
		INSERT INTO cards (id, user_id, display_name, title, company, email, phone, website, slug, links)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id)
		DO UPDATE SET display_name = EXCLUDED.display_name,
		              title = EXCLUDED.title,
		              company = EXCLUDED.company,
		              email = EXCLUDED.email,
		              phone = EXCLUDED.phone,
		              website = EXCLUDED.website,
		              slug = EXCLUDED.slug,
		              links = EXCLUDED.links,
		              updated_at = now()
		RETURNING id, updated_at
	`, card.ID, card.UserID, card.DisplayName, card.Title, card.Company,
		card.Email, card.Phone, card.Website, card.Slug, links).Scan(&card.ID, &card.UpdatedAt)
	if err != nil {
		return Card{}, err
	}
	return card, nil
}
