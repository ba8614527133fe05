package violations

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/hermetic-ci/hermetic/pkg/domain"
)

func TestMemoryStore_SaveLoadDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	rec := SessionRecord{
		Summary: Summary{Network: 2, Process: 1},
		ByTest: map[domain.TestID][]domain.ViolationType{
			"t::x": {domain.ViolationNetwork, domain.ViolationNetwork, domain.ViolationProcess},
		},
	}

	if err := store.Save(ctx, "sess-1", rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Load(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Summary.Total() != 3 {
		t.Errorf("Expected total 3, got %d", got.Summary.Total())
	}

	if err := store.Delete(ctx, "sess-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Load(ctx, "sess-1"); err != ErrSessionNotFound {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestRedisStore_SaveLoad(t *testing.T) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore(s.Addr(), 0, "")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	ctx := context.Background()
	rec := SessionRecord{
		Summary: Summary{Filesystem: 1, Sleep: 2},
		ByTest: map[domain.TestID][]domain.ViolationType{
			"t::y": {domain.ViolationFilesystem},
			"t::z": {domain.ViolationSleep, domain.ViolationSleep},
		},
	}

	if err := store.Save(ctx, "sess-2", rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Load(ctx, "sess-2")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Summary.Total() != 3 {
		t.Errorf("Expected total 3, got %d", got.Summary.Total())
	}
	if len(got.ByTest["t::z"]) != 2 {
		t.Errorf("Expected 2 sleep violations, got %d", len(got.ByTest["t::z"]))
	}
}

func TestRedisStore_LoadMissing(t *testing.T) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore(s.Addr(), 0, "")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if _, err := store.Load(context.Background(), "nope"); err != ErrSessionNotFound {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestRedisStore_Delete(t *testing.T) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore(s.Addr(), 0, "")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Save(ctx, "sess-3", SessionRecord{}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Delete(ctx, "sess-3"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Load(ctx, "sess-3"); err != ErrSessionNotFound {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}
