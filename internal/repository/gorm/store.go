// Package gormrepository implements repository.Repository on gorm.
package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/newthinker/backtrack/internal/core"
	"github.com/newthinker/backtrack/internal/repository"
)

var _ repository.Repository = (*Store)(nil)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ready reports a Store built without a database as a store failure.
func (s *Store) ready() error {
	if s == nil || s.db == nil {
		return core.WrapError(core.ErrStoreFailed, errors.New("database not configured"))
	}
	return nil
}

// InTx runs fn in a transaction bound to ctx.
func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if err := s.ready(); err != nil {
		return err
	}
	return storeErr(s.db.WithContext(ctx).Transaction(fn))
}

// storeErr maps driver errors onto core error codes.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	var ce *core.Error
	if errors.As(err, &ce) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return core.WrapError(core.ErrNotFound, err)
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueViolation(err):
		return core.WrapError(core.ErrConflict, err)
	default:
		return core.WrapError(core.ErrStoreFailed, err)
	}
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func notFound(kind, id string) error {
	return &core.Error{Code: core.ErrNotFound.Code, Message: kind + " " + id + " not found"}
}

func normalizeLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func utc(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func clearTags(tx *gorm.DB, model any) error {
	return tx.Model(model).Association("Tags").Clear()
}
