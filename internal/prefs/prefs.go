// Package prefs persists the dashboard's selected data-source mode across restarts.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/posture-dashboard/internal/cache"
	"github.com/miradorstack/posture-dashboard/internal/models"
)

// ErrNotSet reports that no mode has been persisted yet.
var ErrNotSet = errors.New("mode preference not set")

// Store reads and writes the persisted mode.
type Store interface {
	Load(ctx context.Context) (models.Mode, error)
	Save(ctx context.Context, mode models.Mode) error
}

// Resolve loads the persisted mode, falling back to def when nothing was saved
// or the stored value is unusable.
func Resolve(ctx context.Context, store Store, def models.Mode) (models.Mode, error) {
	mode, err := store.Load(ctx)
	switch {
	case err == nil:
		return mode, nil
	case errors.Is(err, ErrNotSet):
		return def, nil
	default:
		return def, err
	}
}

type fileDocument struct {
	Mode string `yaml:"mode"`
}

// FileStore keeps the preference in a small YAML document on disk.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a FileStore writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the mode from disk.
func (s *FileStore) Load(context.Context) (models.Mode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotSet
		}
		return "", fmt.Errorf("read preferences: %w", err)
	}
	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("parse preferences: %w", err)
	}
	if doc.Mode == "" {
		return "", ErrNotSet
	}
	return models.ParseMode(doc.Mode)
}

// Save writes the mode atomically.
func (s *FileStore) Save(_ context.Context, mode models.Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := yaml.Marshal(fileDocument{Mode: string(mode)})
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".prefs-*")
	if err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write preferences: %w", err)
	}
	return nil
}

// CacheStore keeps the preference under a single key of a cache.Provider.
type CacheStore struct {
	provider cache.Provider
	key      string
}

// NewCacheStore returns a CacheStore using key on provider.
func NewCacheStore(provider cache.Provider, key string) *CacheStore {
	return &CacheStore{provider: provider, key: key}
}

// Load reads the mode from the cache.
func (s *CacheStore) Load(ctx context.Context) (models.Mode, error) {
	raw, err := s.provider.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return "", ErrNotSet
		}
		return "", fmt.Errorf("load preference %s: %w", s.key, err)
	}
	return models.ParseMode(string(raw))
}

// Save writes the mode without expiry.
func (s *CacheStore) Save(ctx context.Context, mode models.Mode) error {
	if err := s.provider.Set(ctx, s.key, []byte(mode), 0); err != nil {
		return fmt.Errorf("save preference %s: %w", s.key, err)
	}
	return nil
}
