package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"course-ledger-service/internal/domain"
	"golang.org/x/sync/errgroup"
)

func TestProgressStoreCompareAndSwap(t *testing.T) {
	_, client := newTestClient(t)
	store := NewProgressStore(client)
	ctx := context.Background()
	key := domain.ProgressKey{TenantID: "t1", UserID: "u1", CourseID: "c1"}

	if _, err := store.FindProgress(ctx, key); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	rec := domain.NewProgressRecord(key, time.Now())
	first, err := store.UpsertProgress(ctx, rec)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.Version != 1 {
		t.Fatalf("expected version 1, got %d", first.Version)
	}
	if _, err := store.UpsertProgress(ctx, rec); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected duplicate create to conflict, got %v", err)
	}

	first.StartAttempt(time.Now())
	second, err := store.UpsertProgress(ctx, first)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := store.UpsertProgress(ctx, first); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected stale update to conflict, got %v", err)
	}

	got, err := store.FindProgress(ctx, key)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Version != second.Version || got.CurrentAttempt != 1 || got.OpenAttempt != 1 {
		t.Fatalf("unexpected stored record: %+v", got)
	}
}

func TestProgressStoreMissingRecordUpdate(t *testing.T) {
	_, client := newTestClient(t)
	store := NewProgressStore(client)
	rec := domain.NewProgressRecord(domain.ProgressKey{TenantID: "t1", UserID: "u1", CourseID: "c1"}, time.Now())
	rec.Version = 2
	if _, err := store.UpsertProgress(context.Background(), rec); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProgressStoreConcurrentWritersOneWins(t *testing.T) {
	_, client := newTestClient(t)
	store := NewProgressStore(client)
	ctx := context.Background()
	key := domain.ProgressKey{TenantID: "t1", UserID: "u1", CourseID: "c1"}
	base, err := store.UpsertProgress(ctx, domain.NewProgressRecord(key, time.Now()))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	const writers = 6
	results := make([]error, writers)
	var g errgroup.Group
	for i := 0; i < writers; i++ {
		i := i
		g.Go(func() error {
			rec := base.Clone()
			rec.StartAttempt(time.Now())
			_, results[i] = store.UpsertProgress(ctx, rec)
			return nil
		})
	}
	_ = g.Wait()

	wins := 0
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case !errors.Is(err, domain.ErrVersionConflict):
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
	got, _ := store.FindProgress(ctx, key)
	if got.Version != 2 {
		t.Fatalf("expected version 2, got %d", got.Version)
	}
}
