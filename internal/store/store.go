// Package store persists opaque session snapshots keyed by session id.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
)

var ErrNotFound = errors.New("session snapshot not found")

type Store interface {
	Save(ctx context.Context, sessionID string, snapshot []byte) error
	Load(ctx context.Context, sessionID string) ([]byte, error)
}

var validID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidID reports whether id is usable as a key by every backend.
func ValidID(id string) bool {
	return validID.MatchString(id)
}

func checkID(id string) error {
	if !ValidID(id) {
		return fmt.Errorf("invalid session id %q", id)
	}
	return nil
}

type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: map[string][]byte{}}
}

func (m *Memory) Save(_ context.Context, sessionID string, snapshot []byte) error {
	if err := checkID(sessionID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[sessionID] = append([]byte(nil), snapshot...)
	return nil
}

func (m *Memory) Load(_ context.Context, sessionID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	blob, ok := m.data[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), blob...), nil
}
