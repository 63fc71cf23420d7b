package gormrepository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/newthinker/backtrack/internal/models"
	"github.com/newthinker/backtrack/internal/repository"
)

func (s *Store) CreateNote(ctx context.Context, item *models.Note) error {
	if err := s.ready(); err != nil {
		return err
	}
	if item == nil {
		return nil
	}
	return storeErr(s.db.WithContext(ctx).Omit("TradingSystem", "Backtest").Create(item).Error)
}

func (s *Store) GetNote(ctx context.Context, id string) (*models.Note, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var item models.Note
	err := s.db.WithContext(ctx).
		Preload("TradingSystem").
		Preload("Backtest").
		Preload("Tags").
		Where("id = ?", id).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("note", id)
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return &item, nil
}

func (s *Store) ListNotes(ctx context.Context, params repository.ListNotesParams) ([]models.Note, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	query := s.db.WithContext(ctx).Model(&models.Note{}).Preload("TradingSystem").Preload("Tags")
	if params.TradingSystemID != nil {
		query = query.Where("trading_system_id = ?", *params.TradingSystemID)
	}
	if params.BacktestID != nil {
		query = query.Where("backtest_id = ?", *params.BacktestID)
	}
	if params.PinnedOnly {
		query = query.Where("pinned = ?", true)
	}
	if q := strings.ToLower(strings.TrimSpace(params.Query)); q != "" {
		like := "%" + q + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(content) LIKE ?", like, like)
	}
	var items []models.Note
	err := query.
		Order("pinned desc").
		Order("updated_at desc").
		Limit(normalizeLimit(params.Limit, 200)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error
	if err != nil {
		return nil, storeErr(err)
	}
	return items, nil
}

func (s *Store) UpdateNote(ctx context.Context, item *models.Note) error {
	if err := s.ready(); err != nil {
		return err
	}
	if item == nil {
		return nil
	}
	return s.InTx(ctx, func(tx *gorm.DB) error {
		res := tx.Model(item).
			Select("*").
			Omit("ID", "TradingSystem", "Backtest", "Tags", "CreatedAt").
			Updates(item)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFound("note", item.ID)
		}
		return replaceTags(tx, item, item.Tags)
	})
}

func (s *Store) DeleteNote(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.InTx(ctx, func(tx *gorm.DB) error {
		item := &models.Note{ID: id}
		if err := tx.Select("id").First(item, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("note", id)
			}
			return err
		}
		if err := clearTags(tx, item); err != nil {
			return err
		}
		return tx.Delete(item).Error
	})
}
