package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"course-ledger-service/internal/domain"
)

// ProgressStore is an in-memory ledger store with version compare-and-swap.
type ProgressStore struct {
	mu   sync.RWMutex
	docs map[domain.ProgressKey][]byte
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{docs: make(map[domain.ProgressKey][]byte)}
}

func (s *ProgressStore) FindProgress(_ context.Context, key domain.ProgressKey) (domain.ProgressRecord, error) {
	s.mu.RLock()
	raw, ok := s.docs[key]
	s.mu.RUnlock()
	if !ok {
		return domain.ProgressRecord{}, fmt.Errorf("progress %s/%s/%s: %w", key.TenantID, key.UserID, key.CourseID, domain.ErrNotFound)
	}
	var rec domain.ProgressRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.ProgressRecord{}, fmt.Errorf("decode progress: %w", err)
	}
	return rec, nil
}

func (s *ProgressStore) UpsertProgress(_ context.Context, rec domain.ProgressRecord) (domain.ProgressRecord, error) {
	key := rec.ProgressKey
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	if raw, ok := s.docs[key]; ok {
		var stored struct {
			Version int64 `json:"version"`
		}
		if err := json.Unmarshal(raw, &stored); err != nil {
			return domain.ProgressRecord{}, fmt.Errorf("decode progress: %w", err)
		}
		current = stored.Version
	} else if rec.Version != 0 {
		return domain.ProgressRecord{}, fmt.Errorf("progress %s/%s/%s: %w", key.TenantID, key.UserID, key.CourseID, domain.ErrNotFound)
	}
	if current != rec.Version {
		return domain.ProgressRecord{}, fmt.Errorf("progress at version %d, got %d: %w", current, rec.Version, domain.ErrVersionConflict)
	}

	rec.Version = current + 1
	raw, err := json.Marshal(rec)
	if err != nil {
		return domain.ProgressRecord{}, fmt.Errorf("encode progress: %w", err)
	}
	s.docs[key] = raw
	return rec, nil
}
