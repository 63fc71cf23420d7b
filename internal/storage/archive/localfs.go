package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/newthinker/backtrack/internal/core"
)

// LocalFS implements Storage under a base directory.
type LocalFS struct {
	basePath string
}

// NewLocalFS creates the base directory if needed.
func NewLocalFS(basePath string) (*LocalFS, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, fmt.Errorf("creating base path: %w", err))
	}
	return &LocalFS{basePath: basePath}, nil
}

// fullPath resolves path inside basePath and rejects escapes.
func (l *LocalFS) fullPath(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash("/" + path))
	if clean == string(filepath.Separator) {
		return "", core.Invalid("empty archive path")
	}
	full := filepath.Join(l.basePath, clean)
	rel, err := filepath.Rel(l.basePath, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", core.Invalid("archive path %q escapes base directory", path)
	}
	return full, nil
}

// Write replaces the file atomically via a temp file in the same directory.
func (l *LocalFS) Write(ctx context.Context, path string, data []byte) error {
	full, err := l.fullPath(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return core.WrapError(core.ErrStoreFailed, fmt.Errorf("creating directories: %w", err))
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return core.WrapError(core.ErrStoreFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	return nil
}

func (l *LocalFS) Read(ctx context.Context, path string) ([]byte, error) {
	full, err := l.fullPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, core.WrapError(core.ErrNotFound, fmt.Errorf("archive %s", path))
	}
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	return data, nil
}

func (l *LocalFS) List(ctx context.Context, prefix string) ([]string, error) {
	paths := []string{}
	root := l.basePath
	if prefix != "" {
		full, err := l.fullPath(prefix)
		if err != nil {
			return nil, err
		}
		root = full
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(l.basePath, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	sort.Strings(paths)
	return paths, nil
}

func (l *LocalFS) Delete(ctx context.Context, path string) error {
	full, err := l.fullPath(path)
	if err != nil {
		return err
	}
	err = os.Remove(full)
	if errors.Is(err, fs.ErrNotExist) {
		return core.WrapError(core.ErrNotFound, fmt.Errorf("archive %s", path))
	}
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	return nil
}

func (l *LocalFS) Exists(ctx context.Context, path string) (bool, error) {
	full, err := l.fullPath(path)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, core.WrapError(core.ErrStoreFailed, err)
	}
	return true, nil
}
