package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"course-ledger-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ProgressStore keeps one JSONB ledger row per (tenant, user, course).
type ProgressStore struct {
	pool *pgxpool.Pool
}

func NewProgressStore(pool *pgxpool.Pool) *ProgressStore {
	return &ProgressStore{pool: pool}
}

func (s *ProgressStore) FindProgress(ctx context.Context, key domain.ProgressKey) (domain.ProgressRecord, error) {
	var (
		raw     []byte
		version int64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT data, version FROM progress WHERE tenant_id=$1 AND user_id=$2 AND course_id=$3`,
		key.TenantID, key.UserID, key.CourseID,
	).Scan(&raw, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ProgressRecord{}, fmt.Errorf("progress %s/%s/%s: %w", key.TenantID, key.UserID, key.CourseID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.ProgressRecord{}, fmt.Errorf("load progress: %w", err)
	}
	var rec domain.ProgressRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.ProgressRecord{}, fmt.Errorf("unmarshal progress: %w", err)
	}
	rec.Version = version
	return rec, nil
}

func (s *ProgressStore) UpsertProgress(ctx context.Context, rec domain.ProgressRecord) (domain.ProgressRecord, error) {
	expected := rec.Version
	rec.Version = expected + 1
	raw, err := json.Marshal(rec)
	if err != nil {
		return domain.ProgressRecord{}, fmt.Errorf("marshal progress: %w", err)
	}
	key := rec.ProgressKey

	if expected == 0 {
		tag, err := s.pool.Exec(ctx,
			`INSERT INTO progress (tenant_id, user_id, course_id, data, version, updated_at)
			 VALUES ($1, $2, $3, $4, 1, now())
			 ON CONFLICT (tenant_id, user_id, course_id) DO NOTHING`,
			key.TenantID, key.UserID, key.CourseID, raw,
		)
		if err != nil {
			return domain.ProgressRecord{}, fmt.Errorf("insert progress: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ProgressRecord{}, fmt.Errorf("progress %s/%s/%s already exists: %w", key.TenantID, key.UserID, key.CourseID, domain.ErrVersionConflict)
		}
		return rec, nil
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE progress SET data=$1, version=version+1, updated_at=now()
		 WHERE tenant_id=$2 AND user_id=$3 AND course_id=$4 AND version=$5`,
		raw, key.TenantID, key.UserID, key.CourseID, expected,
	)
	if err != nil {
		return domain.ProgressRecord{}, fmt.Errorf("update progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ProgressRecord{}, s.missOrConflict(ctx, key, expected)
	}
	return rec, nil
}

func (s *ProgressStore) missOrConflict(ctx context.Context, key domain.ProgressKey, expected int64) error {
	var current int64
	err := s.pool.QueryRow(ctx,
		`SELECT version FROM progress WHERE tenant_id=$1 AND user_id=$2 AND course_id=$3`,
		key.TenantID, key.UserID, key.CourseID,
	).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("progress %s/%s/%s: %w", key.TenantID, key.UserID, key.CourseID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("load progress version: %w", err)
	}
	return fmt.Errorf("progress at version %d, got %d: %w", current, expected, domain.ErrVersionConflict)
}
