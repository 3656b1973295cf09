package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"course-ledger-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// ProgressStore keeps each ledger as a JSON document and guards writes with
// WATCH so that a concurrent writer aborts the transaction.
//
//	SET progress:{tenantID}:{userID}:{courseID} <json>
type ProgressStore struct {
	client *redis.Client
}

func NewProgressStore(client *redis.Client) *ProgressStore {
	return &ProgressStore{client: client}
}

func (s *ProgressStore) FindProgress(ctx context.Context, key domain.ProgressKey) (domain.ProgressRecord, error) {
	raw, err := s.client.Get(ctx, progressKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.ProgressRecord{}, fmt.Errorf("progress %s/%s/%s: %w", key.TenantID, key.UserID, key.CourseID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.ProgressRecord{}, fmt.Errorf("read progress: %w", err)
	}
	var rec domain.ProgressRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.ProgressRecord{}, fmt.Errorf("decode progress: %w", err)
	}
	return rec, nil
}

func (s *ProgressStore) UpsertProgress(ctx context.Context, rec domain.ProgressRecord) (domain.ProgressRecord, error) {
	key := progressKey(rec.ProgressKey)
	var stored domain.ProgressRecord

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := currentVersion(ctx, tx, key)
		if err != nil {
			return err
		}
		if current < 0 {
			if rec.Version != 0 {
				return fmt.Errorf("progress %s: %w", key, domain.ErrNotFound)
			}
			current = 0
		}
		if current != rec.Version {
			return fmt.Errorf("progress at version %d, got %d: %w", current, rec.Version, domain.ErrVersionConflict)
		}

		next := rec
		next.Version = current + 1
		raw, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode progress: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, 0)
			return nil
		})
		if err != nil {
			return err
		}
		stored = next
		return nil
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return domain.ProgressRecord{}, fmt.Errorf("progress %s changed during write: %w", key, domain.ErrVersionConflict)
	}
	if err != nil {
		return domain.ProgressRecord{}, err
	}
	return stored, nil
}

// currentVersion returns -1 when the key does not exist.
func currentVersion(ctx context.Context, tx *redis.Tx, key string) (int64, error) {
	raw, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return -1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read progress: %w", err)
	}
	var doc struct {
		Version int64 `json:"version"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return 0, fmt.Errorf("decode progress: %w", err)
	}
	return doc.Version, nil
}

func progressKey(k domain.ProgressKey) string {
	return fmt.Sprintf("progress:%s:%s:%s", k.TenantID, k.UserID, k.CourseID)
}
