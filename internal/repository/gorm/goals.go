package gormrepository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/newthinker/backtrack/internal/models"
	"github.com/newthinker/backtrack/internal/repository"
)

func (s *Store) CreateGoal(ctx context.Context, item *models.Goal) error {
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

func (s *Store) GetGoal(ctx context.Context, id string) (*models.Goal, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var item models.Goal
	err := s.db.WithContext(ctx).Preload("TradingSystem").Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("goal", id)
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return &item, nil
}

func (s *Store) ListGoals(ctx context.Context, params repository.ListGoalsParams) ([]models.Goal, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	query := s.db.WithContext(ctx).Model(&models.Goal{}).Preload("TradingSystem")
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.TradingSystemID != nil {
		query = query.Where("trading_system_id = ?", *params.TradingSystemID)
	}
	var items []models.Goal
	if err := query.Order("end_date asc").Order("created_at asc").Find(&items).Error; err != nil {
		return nil, storeErr(err)
	}
	return items, nil
}

func (s *Store) UpdateGoal(ctx context.Context, item *models.Goal) error {
	if err := s.ready(); err != nil {
		return err
	}
	if item == nil {
		return nil
	}
	item.StartDate = item.StartDate.UTC()
	item.EndDate = item.EndDate.UTC()
	res := s.db.WithContext(ctx).
		Model(item).
		Select("*").
		Omit("ID", "TradingSystem", "CurrentValue", "Status", "CreatedAt").
		Updates(item)
	if res.Error != nil {
		return storeErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("goal", item.ID)
	}
	return nil
}

func (s *Store) UpdateGoalProgress(ctx context.Context, id string, value decimal.Decimal, status models.GoalStatus) error {
	if err := s.ready(); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).
		Model(&models.Goal{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"current_value": value,
			"status":        status,
		})
	if res.Error != nil {
		return storeErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("goal", id)
	}
	return nil
}

func (s *Store) DeleteGoal(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Goal{})
	if res.Error != nil {
		return storeErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("goal", id)
	}
	return nil
}
