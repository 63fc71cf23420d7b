package journal

import (
	"context"
	"regexp"
	"strings"

	"github.com/newthinker/backtrack/internal/core"
	"github.com/newthinker/backtrack/internal/models"
)

const defaultTagColor = "#6b7280"

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type TagInput struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (in TagInput) Validate() error {
	if err := required("name", in.Name); err != nil {
		return err
	}
	if len(strings.TrimSpace(in.Name)) > 50 {
		return core.Invalid("name must be at most 50 characters")
	}
	if in.Color != "" && !hexColor.MatchString(in.Color) {
		return core.Invalid("color must be a hex value like #22c55e")
	}
	return nil
}

func (in TagInput) apply(t *models.Tag) {
	t.Name = strings.TrimSpace(in.Name)
	t.Color = strings.ToLower(in.Color)
	if t.Color == "" {
		t.Color = defaultTagColor
	}
}

func (s *Service) CreateTag(ctx context.Context, in TagInput) (*models.Tag, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	t := &models.Tag{}
	in.apply(t)
	if err := s.store.CreateTag(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) GetTag(ctx context.Context, id string) (*models.Tag, error) {
	return s.store.GetTag(ctx, id)
}

func (s *Service) ListTags(ctx context.Context) ([]models.Tag, error) {
	return s.store.ListTags(ctx)
}

func (s *Service) UpdateTag(ctx context.Context, id string, in TagInput) (*models.Tag, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	t, err := s.store.GetTag(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(t)
	if err := s.store.UpdateTag(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteTag removes the tag and its links; tagged rows are kept.
func (s *Service) DeleteTag(ctx context.Context, id string) error {
	return s.store.DeleteTag(ctx, id)
}
