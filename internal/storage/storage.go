package storage

import (
	"errors"
	"sync"
	"time"

	"github.com/eugenenazirov/cfgbind/internal/snapshot"
)

var (
	// ErrNotLoaded indicates no snapshot has been stored yet.
	ErrNotLoaded = errors.New("no configuration snapshot loaded")
)

// Snapshot is a bound configuration tree together with where and when it was loaded.
type Snapshot struct {
	Config     snapshot.RootConfig
	Source     string
	LoadedAt   time.Time
	Generation uint64
}

// Storage provides access to the current configuration snapshot.
type Storage interface {
	Current() (Snapshot, error)
	Replace(cfg snapshot.RootConfig, source string) Snapshot
}

// Option configures MemoryStorage behaviour.
type Option func(*MemoryStorage)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *MemoryStorage) {
		s.clock = clock
	}
}

// MemoryStorage keeps the current snapshot in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu      sync.RWMutex
	current Snapshot
	loaded  bool
	clock   func() time.Time
}

// NewMemoryStorage returns an empty store.
func NewMemoryStorage(opts ...Option) *MemoryStorage {
	s := &MemoryStorage{
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns a copy of the stored snapshot.
func (s *MemoryStorage) Current() (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		return Snapshot{}, ErrNotLoaded
	}
	return s.current, nil
}

// Replace swaps in a new snapshot and returns it. The previous snapshot is
// discarded, never modified.
func (s *MemoryStorage) Replace(cfg snapshot.RootConfig, source string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = Snapshot{
		Config:     cfg,
		Source:     source,
		LoadedAt:   s.clock(),
		Generation: s.current.Generation + 1,
	}
	s.loaded = true
	return s.current
}
