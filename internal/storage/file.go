package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pauljones0/shift-code-watcher/internal/models"
)

// FileStore keeps the known set in a JSON file on local disk.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(_ context.Context) (models.KnownSet, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Info("State file not found. Assuming first run.", "path", s.path)
			return models.NewKnownSet(), nil
		}
		return models.KnownSet{}, fmt.Errorf("failed to read state file %s: %w", s.path, err)
	}

	set, err := Decode(data)
	if err != nil {
		return models.KnownSet{}, &models.StoreCorruptError{Location: s.path, Err: err}
	}
	slog.Info("Loaded known codes", "path", s.path, "count", set.Len())
	return set, nil
}

// Save writes to a temporary file in the target directory, syncs it and
// renames it over the state file, so a crash leaves either the old or the
// new content on disk.
func (s *FileStore) Save(_ context.Context, set models.KnownSet) error {
	data, err := Encode(set)
	if err != nil {
		return &models.StoreWriteError{Location: s.path, Err: err}
	}

	if err := writeFileAtomic(s.path, data); err != nil {
		return &models.StoreWriteError{Location: s.path, Err: err}
	}
	slog.Info("Saved known codes", "path", s.path, "count", set.Len())
	return nil
}

func (s *FileStore) Close() error { return nil }

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	committed = true
	return nil
}
