package users

import (
	"context"

	"costumier/internal/domain"
	"costumier/internal/models"

	"github.com/rs/zerolog"
)

// Service manages Telegram identities. Admins come from two places: the
// static config list and the isAdmin flag on stored users.
type Service struct {
	store        domain.Store
	configAdmins map[int64]bool
	logger       *zerolog.Logger
}

func NewService(store domain.Store, configAdmins []int64, logger *zerolog.Logger) *Service {
	admins := make(map[int64]bool, len(configAdmins))
	for _, id := range configAdmins {
		admins[id] = true
	}
	return &Service{store: store, configAdmins: admins, logger: logger}
}

// SaveUser upserts the user, preserving the admin flag for configured ids.
func (s *Service) SaveUser(ctx context.Context, user *models.User) error {
	if s.configAdmins[user.TgID] {
		user.IsAdmin = true
	}
	return s.store.UpsertUser(ctx, user)
}

func (s *Service) GetUserByTgID(ctx context.Context, tgID int64) (*models.User, error) {
	return s.store.GetUserByTgID(ctx, tgID)
}

// IsAdmin checks the config list first, then the stored flag.
func (s *Service) IsAdmin(ctx context.Context, tgID int64) bool {
	if s.configAdmins[tgID] {
		return true
	}
	user, err := s.store.GetUserByTgID(ctx, tgID)
	if err != nil {
		return false
	}
	return user.IsAdmin
}
