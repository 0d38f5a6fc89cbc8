// Package session persists working configurations so a customer can resume
// where they left off. Configurations are stored as JSON keyed by package id.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/eugenenazirov/catering-configurator/internal/domain"
)

var (
	// ErrNotFound is returned when nothing is saved for a package.
	ErrNotFound = errors.New("no saved configuration")
	// ErrInvalidKey is returned for an empty package id.
	ErrInvalidKey = errors.New("package id is required")
)

// Store saves and loads configurations by package id.
type Store interface {
	Save(ctx context.Context, packageID string, cfg domain.CurrentConfig) error
	Load(ctx context.Context, packageID string) (domain.CurrentConfig, error)
	Delete(ctx context.Context, packageID string) error
}

// MemoryStore keeps serialized configurations in memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Save stores a serialized copy of cfg.
func (m *MemoryStore) Save(ctx context.Context, packageID string, cfg domain.CurrentConfig) error {
	key, err := normalizeKey(packageID)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode configuration: %w", err)
	}

	m.mu.Lock()
	m.data[key] = raw
	m.mu.Unlock()
	return nil
}

// Load decodes the configuration saved for packageID.
func (m *MemoryStore) Load(ctx context.Context, packageID string) (domain.CurrentConfig, error) {
	key, err := normalizeKey(packageID)
	if err != nil {
		return domain.CurrentConfig{}, err
	}

	m.mu.RLock()
	raw, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return domain.CurrentConfig{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return decode(raw)
}

// Delete removes the configuration saved for packageID.
func (m *MemoryStore) Delete(ctx context.Context, packageID string) error {
	key, err := normalizeKey(packageID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func normalizeKey(packageID string) (string, error) {
	key := strings.TrimSpace(packageID)
	if key == "" {
		return "", ErrInvalidKey
	}
	return key, nil
}

func decode(raw []byte) (domain.CurrentConfig, error) {
	var cfg domain.CurrentConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return domain.CurrentConfig{}, fmt.Errorf("decode configuration: %w", err)
	}
	return cfg, nil
}
