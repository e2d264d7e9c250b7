//go:build protogen

package profile

import (
	"context"
	"time"

	"github.com/cardlinkhq/cardlink/libs/grpcx"
	cardv1 "github.com/cardlinkhq/cardlink/protos/gen/card/v1"
)

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

type grpcProvider struct {
	client cardv1.CardServiceClient
}

func NewProvider(addr string) (Provider, error) {
	if addr == "" {
		return nil, nil
	}
	conn, err := grpcx.Dial(context.Background(), addr, grpcx.DialOptions{Timeout: 3 * time.Second})
	if err != nil {
		return nil, err
	}
	return &grpcProvider{client: cardv1.NewCardServiceClient(conn)}, nil
}

func (p *grpcProvider) GetCardProfile(ctx context.Context, userID string) (CardProfile, error) {
	resp, err := p.client.GetCardProfile(ctx, &cardv1.CardProfileRequest{UserId: userID})
	if err != nil {
		return CardProfile{}, err
	}
	return CardProfile{
		UserID:      resp.GetUserId(),
		DisplayName: resp.GetDisplayName(),
		Title:       resp.GetTitle(),
		Company:     resp.GetCompany(),
		Slug:        resp.GetSlug(),
	}, nil
}
