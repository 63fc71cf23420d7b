// Package export writes JSON snapshots of the journal to archive storage.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/backtrack/internal/core"
	"github.com/newthinker/backtrack/internal/models"
	"github.com/newthinker/backtrack/internal/repository"
	"github.com/newthinker/backtrack/internal/storage/archive"
)

const (
	// Version is bumped when the snapshot layout changes.
	Version  = 1
	Prefix   = "exports"
	fileName = "snapshot.json"
	pageSize = 200
)

// Snapshot is the full journal at one point in time.
type Snapshot struct {
	Version    int                    `json:"version"`
	ExportedAt time.Time              `json:"exported_at"`
	Systems    []models.TradingSystem `json:"systems"`
	Backtests  []models.Backtest      `json:"backtests"`
	Goals      []models.Goal          `json:"goals"`
	Notes      []models.Note          `json:"notes"`
	Templates  []models.Template      `json:"templates"`
	Tags       []models.Tag           `json:"tags"`
}

// Counts summarizes a snapshot for logs and CLI output.
func (s *Snapshot) Counts() map[string]int {
	return map[string]int{
		"systems":   len(s.Systems),
		"backtests": len(s.Backtests),
		"goals":     len(s.Goals),
		"notes":     len(s.Notes),
		"templates": len(s.Templates),
		"tags":      len(s.Tags),
	}
}

type Exporter struct {
	store   repository.Repository
	storage archive.Storage
	logger  *zap.Logger
	now     func() time.Time
}

func NewExporter(store repository.Repository, storage archive.Storage, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{store: store, storage: storage, logger: logger, now: time.Now}
}

// SetClock overrides the time used for the export date.
func (e *Exporter) SetClock(now func() time.Time) {
	if now != nil {
		e.now = now
	}
}

// PathFor returns exports/<YYYY-MM-DD>/snapshot.json for t in UTC.
func PathFor(t time.Time) string {
	return path.Join(Prefix, t.UTC().Format("2006-01-02"), fileName)
}

// Build collects every entity into a snapshot without writing it.
func (e *Exporter) Build(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{Version: Version, ExportedAt: e.now().UTC()}

	var err error
	if snap.Systems, err = e.store.ListSystems(ctx, repository.ListSystemsParams{}); err != nil {
		return nil, fmt.Errorf("listing systems: %w", err)
	}
	if snap.Backtests, err = e.store.ListBacktests(ctx, repository.ListBacktestsParams{}); err != nil {
		return nil, fmt.Errorf("listing backtests: %w", err)
	}
	if snap.Goals, err = e.store.ListGoals(ctx, repository.ListGoalsParams{}); err != nil {
		return nil, fmt.Errorf("listing goals: %w", err)
	}
	if snap.Notes, err = e.allNotes(ctx); err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	if snap.Templates, err = e.store.ListTemplates(ctx, repository.ListTemplatesParams{}); err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}
	if snap.Tags, err = e.store.ListTags(ctx); err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	return snap, nil
}

// notes are paged by the store
func (e *Exporter) allNotes(ctx context.Context) ([]models.Note, error) {
	var out []models.Note
	for offset := 0; ; offset += pageSize {
		page, err := e.store.ListNotes(ctx, repository.ListNotesParams{Limit: pageSize, Offset: offset})
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < pageSize {
			return out, nil
		}
	}
}

// Export writes today's snapshot, replacing an earlier one from the same day.
func (e *Exporter) Export(ctx context.Context) (string, *Snapshot, error) {
	snap, err := e.Build(ctx)
	if err != nil {
		return "", nil, err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("encoding snapshot: %w", err)
	}

	p := PathFor(snap.ExportedAt)
	if err := e.storage.Write(ctx, p, data); err != nil {
		return "", nil, fmt.Errorf("writing %s: %w", p, err)
	}

	counts := snap.Counts()
	e.logger.Info("snapshot exported",
		zap.String("path", p),
		zap.Int("bytes", len(data)),
		zap.Int("systems", counts["systems"]),
		zap.Int("backtests", counts["backtests"]),
		zap.Int("goals", counts["goals"]),
	)
	return p, snap, nil
}

// List returns stored snapshot paths, newest first.
func (e *Exporter) List(ctx context.Context) ([]string, error) {
	paths, err := e.storage.List(ctx, Prefix)
	if err != nil {
		return nil, err
	}
	out := paths[:0]
	for _, p := range paths {
		if strings.HasSuffix(p, "/"+fileName) {
			out = append(out, p)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out, nil
}

// Load reads a snapshot back from storage.
func (e *Exporter) Load(ctx context.Context, p string) (*Snapshot, error) {
	data, err := e.storage.Read(ctx, p)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, core.WrapError(core.ErrValidation, fmt.Errorf("decoding %s: %w", p, err))
	}
	if snap.Version > Version {
		return nil, core.Invalid("snapshot version %d is newer than supported %d", snap.Version, Version)
	}
	return &snap, nil
}
