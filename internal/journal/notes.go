package journal

import (
	"context"
	"strings"

	"github.com/newthinker/backtrack/internal/core"
	"github.com/newthinker/backtrack/internal/models"
	"github.com/newthinker/backtrack/internal/repository"
)

type NoteInput struct {
	Title           string   `json:"title"`
	Content         string   `json:"content"`
	Pinned          bool     `json:"pinned"`
	TradingSystemID *string  `json:"trading_system_id"`
	BacktestID      *string  `json:"backtest_id"`
	TagIDs          []string `json:"tag_ids"`
}

func (in NoteInput) Validate() error {
	return required("title", in.Title)
}

// NoteFilter narrows a note listing. Query matches title or content.
type NoteFilter struct {
	TradingSystemID string
	BacktestID      string
	PinnedOnly      bool
	Query           string
	Limit           int
	Offset          int
}

func (s *Service) prepareNote(ctx context.Context, n *models.Note, in NoteInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	systemID, err := s.checkSystem(ctx, in.TradingSystemID)
	if err != nil {
		return err
	}
	backtestID := normalizeID(in.BacktestID)
	if backtestID != nil {
		if _, err := s.store.GetBacktest(ctx, *backtestID); err != nil {
			if core.IsNotFound(err) {
				return core.Invalid("backtest %s does not exist", *backtestID)
			}
			return err
		}
	}
	tags, err := s.resolveTags(ctx, in.TagIDs)
	if err != nil {
		return err
	}
	n.Title = strings.TrimSpace(in.Title)
	n.Content = in.Content
	n.Pinned = in.Pinned
	n.TradingSystemID = systemID
	n.TradingSystem = nil
	n.BacktestID = backtestID
	n.Backtest = nil
	n.Tags = tags
	return nil
}

func (s *Service) CreateNote(ctx context.Context, in NoteInput) (*models.Note, error) {
	n := &models.Note{}
	if err := s.prepareNote(ctx, n, in); err != nil {
		return nil, err
	}
	if err := s.store.CreateNote(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) GetNote(ctx context.Context, id string) (*models.Note, error) {
	return s.store.GetNote(ctx, id)
}

func (s *Service) ListNotes(ctx context.Context, f NoteFilter) ([]models.Note, error) {
	return s.store.ListNotes(ctx, repository.ListNotesParams{
		TradingSystemID: normalizeID(&f.TradingSystemID),
		BacktestID:      normalizeID(&f.BacktestID),
		PinnedOnly:      f.PinnedOnly,
		Query:           f.Query,
		Limit:           f.Limit,
		Offset:          f.Offset,
	})
}

func (s *Service) UpdateNote(ctx context.Context, id string, in NoteInput) (*models.Note, error) {
	n, err := s.store.GetNote(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.prepareNote(ctx, n, in); err != nil {
		return nil, err
	}
	if err := s.store.UpdateNote(ctx, n); err != nil {
		return nil, err
	}
	return s.store.GetNote(ctx, id)
}

func (s *Service) DeleteNote(ctx context.Context, id string) error {
	return s.store.DeleteNote(ctx, id)
}
