package journal

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/newthinker/backtrack/internal/core"
	"github.com/newthinker/backtrack/internal/models"
	"github.com/newthinker/backtrack/internal/repository"
)

// SystemInput is the full set of editable trading system fields.
type SystemInput struct {
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	Market       string              `json:"market"`
	Timeframe    string              `json:"timeframe"`
	StrategyType string              `json:"strategy_type"`
	Status       models.SystemStatus `json:"status"`
	EntryRules   []string            `json:"entry_rules"`
	ExitRules    []string            `json:"exit_rules"`
	RiskRules    []string            `json:"risk_rules"`
	TagIDs       []string            `json:"tag_ids"`
}

func (in SystemInput) Validate() error {
	if err := required("name", in.Name); err != nil {
		return err
	}
	if in.Status != "" && !in.Status.Valid() {
		return core.Invalid("unknown system status %q", in.Status)
	}
	return nil
}

func (in SystemInput) apply(sys *models.TradingSystem) error {
	sys.Name = strings.TrimSpace(in.Name)
	sys.Description = in.Description
	sys.Market = in.Market
	sys.Timeframe = in.Timeframe
	sys.StrategyType = in.StrategyType
	sys.Status = in.Status
	if sys.Status == "" {
		sys.Status = models.SystemActive
	}
	var err error
	if sys.EntryRules, err = rulesJSON(in.EntryRules); err != nil {
		return err
	}
	if sys.ExitRules, err = rulesJSON(in.ExitRules); err != nil {
		return err
	}
	if sys.RiskRules, err = rulesJSON(in.RiskRules); err != nil {
		return err
	}
	return nil
}

func rulesJSON(rules []string) (datatypes.JSON, error) {
	cleaned := make([]string, 0, len(rules))
	for _, r := range rules {
		if r = strings.TrimSpace(r); r != "" {
			cleaned = append(cleaned, r)
		}
	}
	b, err := json.Marshal(cleaned)
	if err != nil {
		return nil, core.WrapError(core.ErrValidation, err)
	}
	return datatypes.JSON(b), nil
}

// Rules decodes a stored rule list.
func Rules(raw datatypes.JSON) []string {
	var rules []string
	if len(raw) == 0 {
		return rules
	}
	_ = json.Unmarshal(raw, &rules)
	return rules
}

func (s *Service) CreateSystem(ctx context.Context, in SystemInput) (*models.TradingSystem, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	sys := &models.TradingSystem{}
	if err := in.apply(sys); err != nil {
		return nil, err
	}
	tags, err := s.resolveTags(ctx, in.TagIDs)
	if err != nil {
		return nil, err
	}
	sys.Tags = tags
	if err := s.store.CreateSystem(ctx, sys); err != nil {
		return nil, err
	}
	s.logger.Info("trading system created", zap.String("system_id", sys.ID), zap.String("name", sys.Name))
	return sys, nil
}

func (s *Service) GetSystem(ctx context.Context, id string) (*models.TradingSystem, error) {
	return s.store.GetSystem(ctx, id)
}

func (s *Service) ListSystems(ctx context.Context, status *models.SystemStatus) ([]models.TradingSystem, error) {
	if status != nil && !status.Valid() {
		return nil, core.Invalid("unknown system status %q", *status)
	}
	return s.store.ListSystems(ctx, repository.ListSystemsParams{Status: status})
}

func (s *Service) UpdateSystem(ctx context.Context, id string, in SystemInput) (*models.TradingSystem, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	sys, err := s.store.GetSystem(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(sys); err != nil {
		return nil, err
	}
	if sys.Tags, err = s.resolveTags(ctx, in.TagIDs); err != nil {
		return nil, err
	}
	if err := s.store.UpdateSystem(ctx, sys); err != nil {
		return nil, err
	}
	return s.store.GetSystem(ctx, id)
}

// DeleteSystem removes a system; its backtests, goals and notes stay and
// lose the reference.
func (s *Service) DeleteSystem(ctx context.Context, id string) error {
	if err := s.store.DeleteSystem(ctx, id); err != nil {
		return err
	}
	s.logger.Info("trading system deleted", zap.String("system_id", id))
	return nil
}
