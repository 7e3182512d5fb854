package catalog

import (
	"context"
	"encoding/json"

	"costumier/internal/domain"
	"costumier/internal/models"

	"github.com/rs/zerolog"
)

// Service manages the costume catalog and per-size stock. Every mutation
// is attributed to an admin and recorded in the audit log.
type Service struct {
	store  domain.Store
	logger *zerolog.Logger
}

func NewService(store domain.Store, logger *zerolog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

func (s *Service) AvailableCostumes(ctx context.Context) ([]*models.Costume, error) {
	return s.store.GetAvailableCostumes(ctx)
}

func (s *Service) AllCostumes(ctx context.Context) ([]*models.Costume, error) {
	return s.store.GetAllCostumes(ctx)
}

func (s *Service) GetCostume(ctx context.Context, id int64) (*models.Costume, error) {
	return s.store.GetCostume(ctx, id)
}

func (s *Service) CreateCostume(ctx context.Context, admin domain.Admin, costume *models.Costume) error {
	if err := validateCostume(costume); err != nil {
		return err
	}

	if err := s.store.CreateCostume(ctx, costume); err != nil {
		return err
	}

	// В журнал пишем документ целиком
	s.audit(ctx, admin, models.ActionCreateCostume, map[string]interface{}{
		"costume": costume,
	})
	return nil
}

func (s *Service) UpdateCostume(ctx context.Context, admin domain.Admin, costume *models.Costume) error {
	if err := validateCostume(costume); err != nil {
		return err
	}

	before, err := s.store.GetCostume(ctx, costume.ID)
	if err != nil {
		return err
	}

	if err := s.store.UpdateCostume(ctx, costume); err != nil {
		return err
	}

	s.audit(ctx, admin, models.ActionUpdateCostume, map[string]interface{}{
		"before": before,
		"after":  costume,
	})
	return nil
}

func (s *Service) DeleteCostume(ctx context.Context, admin domain.Admin, id int64) error {
	costume, err := s.store.GetCostume(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteCostume(ctx, id); err != nil {
		return err
	}

	s.audit(ctx, admin, models.ActionDeleteCostume, map[string]interface{}{
		"costume": costume,
	})
	return nil
}

// AdjustStock changes the physical unit count for a size by delta and
// returns the new count. Going below zero is rejected without writing.
func (s *Service) AdjustStock(ctx context.Context, admin domain.Admin, costumeID int64, size string, delta int64) (int64, error) {
	if size == "" {
		return 0, domain.NewValidationError("size")
	}

	costume, err := s.store.GetCostume(ctx, costumeID)
	if err != nil {
		return 0, err
	}
	if !costume.HasSize(size) {
		return 0, domain.NewValidationError("size")
	}

	before := costume.Stock(size)
	after := before + delta
	if after < 0 {
		return 0, domain.ErrNegativeStock
	}

	if err := s.store.SetStock(ctx, costumeID, size, after); err != nil {
		return 0, err
	}

	s.audit(ctx, admin, models.ActionAdjustStock, map[string]interface{}{
		"costume_id": costumeID,
		"size":       size,
		"delta":      delta,
		"before":     before,
		"after":      after,
	})
	return after, nil
}

func validateCostume(costume *models.Costume) error {
	var missing []string
	if costume.Title == "" {
		missing = append(missing, "title")
	}
	if costume.Price < 0 {
		missing = append(missing, "price")
	}
	for size := range costume.StockBySize {
		if costume.StockBySize[size] < 0 {
			return domain.ErrNegativeStock
		}
		if !costume.HasSize(size) {
			missing = append(missing, "sizes")
			break
		}
	}
	if len(missing) > 0 {
		return domain.NewValidationError(missing...)
	}
	return nil
}

func (s *Service) audit(ctx context.Context, admin domain.Admin, action string, details map[string]interface{}) {
	raw, err := json.Marshal(details)
	if err != nil {
		s.logger.Error().Err(err).Str("action", action).Msg("marshal admin log details")
		return
	}
	entry := &models.AdminLogEntry{AdminTgID: admin.TgID, Action: action, Details: string(raw)}
	if err := s.store.AppendAdminLog(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("action", action).Msg("append admin log")
	}
}
