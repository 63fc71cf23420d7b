// Package journal implements CRUD over trading systems, backtests, notes,
// templates and tags.
package journal

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/newthinker/backtrack/internal/core"
	"github.com/newthinker/backtrack/internal/models"
	"github.com/newthinker/backtrack/internal/repository"
)

type Service struct {
	store  repository.Repository
	logger *zap.Logger
}

func NewService(store repository.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// resolveTags loads tags by id and fails when any id is unknown.
func (s *Service) resolveTags(ctx context.Context, ids []string) ([]models.Tag, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	tags, err := s.store.ListTagsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(tags) != len(ids) {
		return nil, core.Invalid("unknown tag id in %v", ids)
	}
	return tags, nil
}

// checkSystem verifies an optional trading system reference.
func (s *Service) checkSystem(ctx context.Context, id *string) (*string, error) {
	id = normalizeID(id)
	if id == nil {
		return nil, nil
	}
	if _, err := s.store.GetSystem(ctx, *id); err != nil {
		if core.IsNotFound(err) {
			return nil, core.Invalid("trading system %s does not exist", *id)
		}
		return nil, err
	}
	return id, nil
}

func normalizeID(id *string) *string {
	if id == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*id)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return core.Invalid("%s is required", field)
	}
	return nil
}
