package gormrepository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/newthinker/backtrack/internal/models"
	"github.com/newthinker/backtrack/internal/repository"
)

func (s *Store) CreateTemplate(ctx context.Context, item *models.Template) error {
	if err := s.ready(); err != nil {
		return err
	}
	if item == nil {
		return nil
	}
	return storeErr(s.db.WithContext(ctx).Create(item).Error)
}

func (s *Store) GetTemplate(ctx context.Context, id string) (*models.Template, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var item models.Template
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("template", id)
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return &item, nil
}

func (s *Store) ListTemplates(ctx context.Context, params repository.ListTemplatesParams) ([]models.Template, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	query := s.db.WithContext(ctx).Model(&models.Template{})
	if params.Category != nil {
		query = query.Where("category = ?", *params.Category)
	}
	var items []models.Template
	if err := query.Order("category asc").Order("name asc").Find(&items).Error; err != nil {
		return nil, storeErr(err)
	}
	return items, nil
}

func (s *Store) UpdateTemplate(ctx context.Context, item *models.Template) error {
	if err := s.ready(); err != nil {
		return err
	}
	if item == nil {
		return nil
	}
	res := s.db.WithContext(ctx).Model(item).Select("*").Omit("ID", "CreatedAt").Updates(item)
	if res.Error != nil {
		return storeErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("template", item.ID)
	}
	return nil
}

func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Template{})
	if res.Error != nil {
		return storeErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("template", id)
	}
	return nil
}
