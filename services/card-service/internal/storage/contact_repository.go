package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

type Contact struct {
	ID        string
	OwnerID   string
	Name      string
	Email     string
	Phone     string
	Company   string
	Note      string
	Source    string
	CreatedAt time.Time
}

func (r *UserRepository) CreateContactTx(ctx context.Context, tx pgx.Tx, c *Contact) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO contacts (owner_id, name, email, phone, company, note, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, c.OwnerID, c.Name, c.Email, c.Phone, c.Company, c.Note, c.Source).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *UserRepository) ListContactsByOwner(ctx context.Context, ownerID string, limit int) ([]Contact, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner_id, name, COALESCE(email, ''), COALESCE(phone, ''),
			COALESCE(company, ''), COALESCE(note, ''), COALESCE(source, ''), created_at
		FROM contacts
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Email, &c.Phone, &c.Company, &c.Note, &c.Source, &c.CreatedAt); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return contacts, nil
}
