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

// CourseStore keeps course documents as JSONB with a version column used for
// compare-and-swap updates.
type CourseStore struct {
	pool *pgxpool.Pool
}

func NewCourseStore(pool *pgxpool.Pool) *CourseStore {
	return &CourseStore{pool: pool}
}

func (s *CourseStore) GetCourse(ctx context.Context, tenantID, courseID string) (domain.Course, error) {
	var (
		raw     []byte
		version int64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT data, version FROM courses WHERE tenant_id=$1 AND id=$2`,
		tenantID, courseID,
	).Scan(&raw, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Course{}, fmt.Errorf("course %s/%s: %w", tenantID, courseID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Course{}, fmt.Errorf("load course: %w", err)
	}
	var course domain.Course
	if err := json.Unmarshal(raw, &course); err != nil {
		return domain.Course{}, fmt.Errorf("unmarshal course: %w", err)
	}
	course.Version = version
	return course, nil
}

func (s *CourseStore) CreateCourse(ctx context.Context, course domain.Course) (domain.Course, error) {
	course.Version = 1
	raw, err := json.Marshal(course)
	if err != nil {
		return domain.Course{}, fmt.Errorf("marshal course: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO courses (tenant_id, id, status, data, version, updated_at)
		 VALUES ($1, $2, $3, $4, 1, $5)
		 ON CONFLICT (tenant_id, id) DO NOTHING`,
		course.TenantID, course.ID, string(course.Status), raw, course.UpdatedAt,
	)
	if err != nil {
		return domain.Course{}, fmt.Errorf("insert course: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Course{}, fmt.Errorf("course %s/%s already exists: %w", course.TenantID, course.ID, domain.ErrVersionConflict)
	}
	return course, nil
}

func (s *CourseStore) ReplaceCourse(ctx context.Context, course domain.Course) (domain.Course, error) {
	expected := course.Version
	course.Version = expected + 1
	raw, err := json.Marshal(course)
	if err != nil {
		return domain.Course{}, fmt.Errorf("marshal course: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE courses SET status=$1, data=$2, version=version+1, updated_at=$3
		 WHERE tenant_id=$4 AND id=$5 AND version=$6`,
		string(course.Status), raw, course.UpdatedAt, course.TenantID, course.ID, expected,
	)
	if err != nil {
		return domain.Course{}, fmt.Errorf("update course: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Course{}, s.missOrConflict(ctx, course.TenantID, course.ID, expected)
	}
	return course, nil
}

func (s *CourseStore) missOrConflict(ctx context.Context, tenantID, courseID string, expected int64) error {
	var current int64
	err := s.pool.QueryRow(ctx, `SELECT version FROM courses WHERE tenant_id=$1 AND id=$2`, tenantID, courseID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("course %s/%s: %w", tenantID, courseID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("load course version: %w", err)
	}
	return fmt.Errorf("course at version %d, got %d: %w", current, expected, domain.ErrVersionConflict)
}
