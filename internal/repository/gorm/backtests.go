package gormrepository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/newthinker/backtrack/internal/models"
	"github.com/newthinker/backtrack/internal/repository"
)

func (s *Store) CreateBacktest(ctx context.Context, item *models.Backtest) error {
	if err := s.ready(); err != nil {
		return err
	}
	if item == nil {
		return nil
	}
	item.StartDate = item.StartDate.UTC()
	item.EndDate = item.EndDate.UTC()
	return storeErr(s.db.WithContext(ctx).Omit("TradingSystem").Create(item).Error)
}

func (s *Store) GetBacktest(ctx context.Context, id string) (*models.Backtest, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var item models.Backtest
	err := s.db.WithContext(ctx).
		Preload("TradingSystem").
		Preload("Tags").
		Where("id = ?", id).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("backtest", id)
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return &item, nil
}

func (s *Store) backtestQuery(ctx context.Context, params repository.ListBacktestsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Backtest{})
	if params.TradingSystemID != nil {
		query = query.Where("trading_system_id = ?", *params.TradingSystemID)
	}
	if sym := strings.TrimSpace(params.Symbol); sym != "" {
		query = query.Where("UPPER(symbol) = ?", strings.ToUpper(sym))
	}
	if params.TagID != "" {
		query = query.Where("id IN (?)",
			s.db.Table("backtest_tags").Select("backtest_id").Where("tag_id = ?", params.TagID))
	}
	if from := utc(params.From); from != nil {
		query = query.Where("start_date >= ?", *from)
	}
	if to := utc(params.To); to != nil {
		query = query.Where("end_date <= ?", *to)
	}
	return query
}

func (s *Store) ListBacktests(ctx context.Context, params repository.ListBacktestsParams) ([]models.Backtest, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	query := s.backtestQuery(ctx, params).
		Preload("TradingSystem").
		Preload("Tags").
		Order("start_date asc").
		Order("created_at asc")
	if params.Limit > 0 {
		query = query.Limit(normalizeLimit(params.Limit, 200)).Offset(normalizeOffset(params.Offset))
	}
	var items []models.Backtest
	if err := query.Find(&items).Error; err != nil {
		return nil, storeErr(err)
	}
	return items, nil
}

func (s *Store) CountBacktests(ctx context.Context, params repository.ListBacktestsParams) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	var n int64
	if err := s.backtestQuery(ctx, params).Count(&n).Error; err != nil {
		return 0, storeErr(err)
	}
	return n, nil
}

func (s *Store) UpdateBacktest(ctx context.Context, item *models.Backtest) error {
	if err := s.ready(); err != nil {
		return err
	}
	if item == nil {
		return nil
	}
	item.StartDate = item.StartDate.UTC()
	item.EndDate = item.EndDate.UTC()
	return s.InTx(ctx, func(tx *gorm.DB) error {
		res := tx.Model(item).
			Select("*").
			Omit("ID", "TradingSystem", "Tags", "CreatedAt").
			Updates(item)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFound("backtest", item.ID)
		}
		return replaceTags(tx, item, item.Tags)
	})
}

func (s *Store) DeleteBacktest(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.InTx(ctx, func(tx *gorm.DB) error {
		item := &models.Backtest{ID: id}
		if err := tx.Select("id").First(item, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("backtest", id)
			}
			return err
		}
		if err := tx.Model(&models.Note{}).Where("backtest_id = ?", id).Update("backtest_id", nil).Error; err != nil {
			return err
		}
		if err := clearTags(tx, item); err != nil {
			return err
		}
		return tx.Delete(item).Error
	})
}

func replaceTags(tx *gorm.DB, model any, tags []models.Tag) error {
	if len(tags) == 0 {
		return clearTags(tx, model)
	}
	return tx.Model(model).Association("Tags").Replace(tags)
}
