//go:build !protogen

package profile

import "context"

type CardProfile struct {
	UserID      string
	DisplayName string
	Title       string
	Company     string
	Slug        string
}

type Provider interface {
	GetCardProfile(ctx context.Context, userID string) (CardProfile, error)
}

func NewProvider(_ string) (Provider, error) {
	return nil, nil
}
