package model

import "time"

type Meeting struct {
	ID              string
	UserID          string
	GuestName       string
	GuestEmail      string
	StartTime       time.Time
	DurationMinutes int
	Status          string
	CancelledAt     *time.Time
	CancelReason    string
	CreatedAt       time.Time
}
