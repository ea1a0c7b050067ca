package services

import (
	"context"

	"chat-core/internal/models"
)

// PresenceSource reports live connection state.
type PresenceSource interface {
	IsOnline(userID string) bool
	ConnectionCount(userID string) int
}

// UserService answers profile and presence lookups for the REST surface.
type UserService struct {
	users    UserDirectory
	presence PresenceSource
}

func NewUserService(users UserDirectory, presence PresenceSource) *UserService {
	return &UserService{users: users, presence: presence}
}

func (s *UserService) Brief(ctx context.Context, userID string) (*models.UserBrief, error) {
	b, err := s.users.BriefOf(ctx, userID)
	if err != nil {
		return nil, transient("lookup user", err)
	}
	if b == nil {
		return nil, ErrNotFound
	}
	return b, nil
}

func (s *UserService) Presence(ctx context.Context, userID string) (*models.Presence, error) {
	b, err := s.Brief(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.Presence{
		User:        *b,
		Online:      s.presence.IsOnline(userID),
		Connections: s.presence.ConnectionCount(userID),
	}, nil
}
