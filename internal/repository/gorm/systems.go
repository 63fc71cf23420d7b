package gormrepository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/newthinker/backtrack/internal/models"
	"github.com/newthinker/backtrack/internal/repository"
)

func (s *Store) CreateSystem(ctx context.Context, item *models.TradingSystem) error {
	if err := s.ready(); err != nil {
		return err
	}
	if item == nil {
		return nil
	}
	return storeErr(s.db.WithContext(ctx).Create(item).Error)
}

func (s *Store) GetSystem(ctx context.Context, id string) (*models.TradingSystem, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var item models.TradingSystem
	err := s.db.WithContext(ctx).Preload("Tags").Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("trading system", id)
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return &item, nil
}

func (s *Store) ListSystems(ctx context.Context, params repository.ListSystemsParams) ([]models.TradingSystem, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	query := s.db.WithContext(ctx).Model(&models.TradingSystem{}).Preload("Tags")
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	var items []models.TradingSystem
	if err := query.Order("name asc").Find(&items).Error; err != nil {
		return nil, storeErr(err)
	}
	return items, nil
}

func (s *Store) UpdateSystem(ctx context.Context, item *models.TradingSystem) error {
	if err := s.ready(); err != nil {
		return err
	}
	if item == nil {
		return nil
	}
	return s.InTx(ctx, func(tx *gorm.DB) error {
		res := tx.Model(item).
			Select("*").
			Omit("ID", "Tags", "CreatedAt").
			Updates(item)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFound("trading system", item.ID)
		}
		return replaceTags(tx, item, item.Tags)
	})
}

func (s *Store) DeleteSystem(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.InTx(ctx, func(tx *gorm.DB) error {
		item := &models.TradingSystem{ID: id}
		if err := tx.Select("id").First(item, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("trading system", id)
			}
			return err
		}
		for _, m := range []any{&models.Backtest{}, &models.Goal{}, &models.Note{}} {
			if err := tx.Model(m).Where("trading_system_id = ?", id).Update("trading_system_id", nil).Error; err != nil {
				return err
			}
		}
		if err := clearTags(tx, item); err != nil {
			return err
		}
		return tx.Delete(item).Error
	})
}
