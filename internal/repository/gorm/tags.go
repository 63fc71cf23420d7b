package gormrepository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/newthinker/backtrack/internal/models"
)

// tagJoinTables are the many2many tables that reference tags.
var tagJoinTables = []string{"trading_system_tags", "backtest_tags", "note_tags"}

func (s *Store) CreateTag(ctx context.Context, item *models.Tag) error {
	if err := s.ready(); err != nil {
		return err
	}
	if item == nil {
		return nil
	}
	return storeErr(s.db.WithContext(ctx).Create(item).Error)
}

func (s *Store) GetTag(ctx context.Context, id string) (*models.Tag, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var item models.Tag
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("tag", id)
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return &item, nil
}

func (s *Store) ListTags(ctx context.Context) ([]models.Tag, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var items []models.Tag
	if err := s.db.WithContext(ctx).Order("name asc").Find(&items).Error; err != nil {
		return nil, storeErr(err)
	}
	return items, nil
}

func (s *Store) ListTagsByIDs(ctx context.Context, ids []string) ([]models.Tag, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	var items []models.Tag
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Order("name asc").Find(&items).Error; err != nil {
		return nil, storeErr(err)
	}
	return items, nil
}

func (s *Store) UpdateTag(ctx context.Context, item *models.Tag) error {
	if err := s.ready(); err != nil {
		return err
	}
	if item == nil {
		return nil
	}
	res := s.db.WithContext(ctx).Model(item).Select("Name", "Color").Updates(item)
	if res.Error != nil {
		return storeErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("tag", item.ID)
	}
	return nil
}

func (s *Store) DeleteTag(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.InTx(ctx, func(tx *gorm.DB) error {
		for _, table := range tagJoinTables {
			if err := tx.Exec("DELETE FROM "+table+" WHERE tag_id = ?", id).Error; err != nil {
				return err
			}
		}
		res := tx.Where("id = ?", id).Delete(&models.Tag{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFound("tag", id)
		}
		return nil
	})
}
