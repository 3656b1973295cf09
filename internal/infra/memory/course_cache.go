package memory

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"course-ledger-service/internal/app"
	"course-ledger-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// CourseCache is a read-through TTL cache in front of a CourseStore. Writes go
// to the backing store and refresh the cached copy; a version conflict evicts it.
type CourseCache struct {
	backing app.CourseStore
	ttl     time.Duration
	clock   func() time.Time
	sf      singleflight.Group
	rnd     *rand.Rand
	rndMu   sync.Mutex

	mu    sync.RWMutex
	cache map[courseKey]cachedCourse
}

type cachedCourse struct {
	course    domain.Course
	expiresAt time.Time
}

func NewCourseCache(backing app.CourseStore, ttl time.Duration) *CourseCache {
	return &CourseCache{
		backing: backing,
		ttl:     ttl,
		clock:   time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:   make(map[courseKey]cachedCourse),
	}
}

func (c *CourseCache) GetCourse(ctx context.Context, tenantID, courseID string) (domain.Course, error) {
	key := courseKey{tenantID, courseID}
	if course, ok := c.lookup(key); ok {
		return course, nil
	}

	result, err, _ := c.sf.Do(tenantID+"/"+courseID, func() (interface{}, error) {
		if course, ok := c.lookup(key); ok {
			return course, nil
		}
		course, err := c.backing.GetCourse(ctx, tenantID, courseID)
		if err != nil {
			return domain.Course{}, err
		}
		c.store(course)
		return course, nil
	})
	if err != nil {
		return domain.Course{}, err
	}
	return cloneCourse(result.(domain.Course)), nil
}

func (c *CourseCache) CreateCourse(ctx context.Context, course domain.Course) (domain.Course, error) {
	stored, err := c.backing.CreateCourse(ctx, course)
	if err != nil {
		return domain.Course{}, err
	}
	c.store(stored)
	return stored, nil
}

func (c *CourseCache) ReplaceCourse(ctx context.Context, course domain.Course) (domain.Course, error) {
	stored, err := c.backing.ReplaceCourse(ctx, course)
	if err != nil {
		if errors.Is(err, domain.ErrVersionConflict) || errors.Is(err, domain.ErrNotFound) {
			c.evict(courseKey{course.TenantID, course.ID})
		}
		return domain.Course{}, err
	}
	c.store(stored)
	return stored, nil
}

func (c *CourseCache) lookup(key courseKey) (domain.Course, bool) {
	now := c.clock()
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
		return cloneCourse(entry.course), true
	}
	return domain.Course{}, false
}

func (c *CourseCache) store(course domain.Course) {
	expires := c.clock().Add(c.ttlWithJitter())
	c.mu.Lock()
	c.cache[courseKey{course.TenantID, course.ID}] = cachedCourse{course: cloneCourse(course), expiresAt: expires}
	c.mu.Unlock()
}

func (c *CourseCache) evict(key courseKey) {
	c.mu.Lock()
	delete(c.cache, key)
	c.mu.Unlock()
}

func (c *CourseCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func cloneCourse(c domain.Course) domain.Course {
	out := c
	out.Modules = make([]domain.Module, len(c.Modules))
	for i, m := range c.Modules {
		m.Lessons = append([]string(nil), m.Lessons...)
		out.Modules[i] = m
	}
	out.RequestedChanges = append([]string(nil), c.RequestedChanges...)
	return out
}
