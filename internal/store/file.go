package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
)

// File keeps one JSON snapshot per session under dir, written atomically.
type File struct {
	dir string
}

func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &File{dir: dir}, nil
}

func (f *File) path(sessionID string) string {
	return filepath.Join(f.dir, sessionID+".json")
}

func (f *File) Save(_ context.Context, sessionID string, snapshot []byte) error {
	if err := checkID(sessionID); err != nil {
		return err
	}
	path := f.path(sessionID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, snapshot, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (f *File) Load(_ context.Context, sessionID string) ([]byte, error) {
	if err := checkID(sessionID); err != nil {
		return nil, ErrNotFound
	}
	blob, err := os.ReadFile(f.path(sessionID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return blob, nil
}
