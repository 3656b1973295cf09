package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"course-ledger-service/internal/domain"
)

type courseKey struct {
	tenantID string
	courseID string
}

// CourseStore keeps course documents as JSON so callers never share memory with the store.
type CourseStore struct {
	mu   sync.RWMutex
	docs map[courseKey][]byte
}

func NewCourseStore() *CourseStore {
	return &CourseStore{docs: make(map[courseKey][]byte)}
}

func (s *CourseStore) GetCourse(_ context.Context, tenantID, courseID string) (domain.Course, error) {
	s.mu.RLock()
	raw, ok := s.docs[courseKey{tenantID, courseID}]
	s.mu.RUnlock()
	if !ok {
		return domain.Course{}, fmt.Errorf("course %s/%s: %w", tenantID, courseID, domain.ErrNotFound)
	}
	var c domain.Course
	if err := json.Unmarshal(raw, &c); err != nil {
		return domain.Course{}, fmt.Errorf("decode course: %w", err)
	}
	return c, nil
}

func (s *CourseStore) CreateCourse(_ context.Context, c domain.Course) (domain.Course, error) {
	key := courseKey{c.TenantID, c.ID}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[key]; ok {
		return domain.Course{}, fmt.Errorf("course %s/%s exists: %w", c.TenantID, c.ID, domain.ErrVersionConflict)
	}
	c.Version = 1
	return c, s.putLocked(key, c)
}

func (s *CourseStore) ReplaceCourse(_ context.Context, c domain.Course) (domain.Course, error) {
	key := courseKey{c.TenantID, c.ID}
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.docs[key]
	if !ok {
		return domain.Course{}, fmt.Errorf("course %s/%s: %w", c.TenantID, c.ID, domain.ErrNotFound)
	}
	var current struct {
		Version int64 `json:"version"`
	}
	if err := json.Unmarshal(raw, &current); err != nil {
		return domain.Course{}, fmt.Errorf("decode course: %w", err)
	}
	if current.Version != c.Version {
		return domain.Course{}, fmt.Errorf("course %s/%s at version %d, got %d: %w",
			c.TenantID, c.ID, current.Version, c.Version, domain.ErrVersionConflict)
	}
	c.Version++
	return c, s.putLocked(key, c)
}

func (s *CourseStore) putLocked(key courseKey, c domain.Course) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode course: %w", err)
	}
	s.docs[key] = raw
	return nil
}
