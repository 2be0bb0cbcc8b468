package storage

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/eugenenazirov/cfgbind/internal/binder"
	"github.com/eugenenazirov/cfgbind/internal/snapshot"
)

func sampleConfig(port int) snapshot.RootConfig {
	return snapshot.RootConfig{
		Endpoint: snapshot.EndpointConfig{
			Interface: snapshot.InterfaceConfig{Port: port},
			Name:      binder.Some("svc"),
			Path:      "/",
			URL:       "http://example.net",
		},
	}
}

func TestCurrentBeforeReplace(t *testing.T) {
	t.Parallel()

	store := NewMemoryStorage()
	if _, err := store.Current(); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
}

func TestReplaceStampsSnapshot(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStorage(WithClock(func() time.Time { return now }))

	first := store.Replace(sampleConfig(8080), "a.yaml")
	if first.Generation != 1 || first.Source != "a.yaml" || !first.LoadedAt.Equal(now) {
		t.Fatalf("unexpected first snapshot: %+v", first)
	}

	now = now.Add(time.Minute)
	second := store.Replace(sampleConfig(9090), "b.yaml")
	if second.Generation != 2 || !second.LoadedAt.Equal(now) {
		t.Fatalf("unexpected second snapshot: %+v", second)
	}

	got, err := store.Current()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Config.Endpoint.Interface.Port != 9090 || got.Source != "b.yaml" {
		t.Fatalf("expected latest snapshot, got %+v", got)
	}
	if first.Config.Endpoint.Interface.Port != 8080 {
		t.Fatalf("previous snapshot must be left intact, got %+v", first)
	}
}

func TestCurrentReturnsCopy(t *testing.T) {
	t.Parallel()

	store := NewMemoryStorage()
	store.Replace(sampleConfig(8080), "a.yaml")

	got, err := store.Current()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got.Config.Endpoint.Interface.Port = 1

	again, err := store.Current()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.Config.Endpoint.Interface.Port != 8080 {
		t.Fatalf("expected stored snapshot to be unaffected, got %d", again.Config.Endpoint.Interface.Port)
	}
}

func TestMemoryStorageConcurrentAccess(t *testing.T) {
	store := NewMemoryStorage()
	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(2)

		go func(offset int) {
			defer wg.Done()
			store.Replace(sampleConfig(8000+offset), "concurrent.yaml")
		}(i)

		go func() {
			defer wg.Done()
			if _, err := store.Current(); err != nil && !errors.Is(err, ErrNotLoaded) {
				t.Errorf("Current failed: %v", err)
			}
		}()
	}

	wg.Wait()

	got, err := store.Current()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Generation != 32 {
		t.Fatalf("expected 32 generations, got %d", got.Generation)
	}
}
