package journal

import (
	"context"
	"encoding/json"
	"strings"

	"gorm.io/datatypes"

	"github.com/newthinker/backtrack/internal/core"
	"github.com/newthinker/backtrack/internal/models"
	"github.com/newthinker/backtrack/internal/repository"
)

type TemplateInput struct {
	Name        string                  `json:"name"`
	Category    models.TemplateCategory `json:"category"`
	Description string                  `json:"description"`
	Content     json.RawMessage         `json:"content"`
}

// Validate requires a name, a known category and a JSON object body.
func (in TemplateInput) Validate() error {
	if err := required("name", in.Name); err != nil {
		return err
	}
	if !in.Category.Valid() {
		return core.Invalid("unknown template category %q", in.Category)
	}
	if len(in.Content) == 0 {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(in.Content, &obj); err != nil {
		return core.Invalid("content must be a JSON object: %v", err)
	}
	return nil
}

func (in TemplateInput) apply(t *models.Template) {
	t.Name = strings.TrimSpace(in.Name)
	t.Category = in.Category
	t.Description = in.Description
	if len(in.Content) == 0 {
		t.Content = datatypes.JSON("{}")
	} else {
		t.Content = datatypes.JSON(in.Content)
	}
}

func (s *Service) CreateTemplate(ctx context.Context, in TemplateInput) (*models.Template, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	t := &models.Template{}
	in.apply(t)
	if err := s.store.CreateTemplate(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) GetTemplate(ctx context.Context, id string) (*models.Template, error) {
	return s.store.GetTemplate(ctx, id)
}

func (s *Service) ListTemplates(ctx context.Context, category *models.TemplateCategory) ([]models.Template, error) {
	if category != nil && !category.Valid() {
		return nil, core.Invalid("unknown template category %q", *category)
	}
	return s.store.ListTemplates(ctx, repository.ListTemplatesParams{Category: category})
}

func (s *Service) UpdateTemplate(ctx context.Context, id string, in TemplateInput) (*models.Template, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	t, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(t)
	if err := s.store.UpdateTemplate(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) DeleteTemplate(ctx context.Context, id string) error {
	return s.store.DeleteTemplate(ctx, id)
}
