//go:build protogen

package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	cardv1 "github.com/cardlinkhq/cardlink/protos/gen/card/v1"
	"github.com/cardlinkhq/cardlink/services/card-service/internal/storage"
)

type server struct {
	cardv1.UnimplementedCardServiceServer
	users *storage.UserRepository
}

func Register(grpcServer *grpc.Server, users *storage.UserRepository) {
	cardv1.RegisterCardServiceServer(grpcServer, &server{users: users})
}

func (s *server) GetCardProfile(ctx context.Context, req *cardv1.CardProfileRequest) (*cardv1.CardProfileResponse, error) {
	if req.GetUserId() == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id is required")
	}

	card, err := s.users.GetCardByUser(ctx, req.GetUserId())
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, status.Error(codes.NotFound, "card not found")
		}
		return nil, status.Error(codes.Internal, "failed to load card")
	}

	return &cardv1.CardProfileResponse{
		UserId:      card.UserID,
		DisplayName: card.DisplayName,
		Title:       card.Title,
		Company:     card.Company,
		Slug:        card.Slug,
	}, nil
}
