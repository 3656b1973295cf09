package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"course-ledger-service/internal/app"
	"course-ledger-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// CourseCache caches course documents in Redis and falls back to the backing
// store on a miss. Documents are stored as JSON under course:{tenantID}:{courseID}.
type CourseCache struct {
	client  *redis.Client
	backing app.CourseStore
	ttl     time.Duration
	log     logrus.FieldLogger
	sf      singleflight.Group
	rnd     *rand.Rand
	rndMu   sync.Mutex
}

func NewCourseCache(client *redis.Client, backing app.CourseStore, ttl time.Duration, log logrus.FieldLogger) *CourseCache {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CourseCache{
		client:  client,
		backing: backing,
		ttl:     ttl,
		log:     log,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CourseCache) GetCourse(ctx context.Context, tenantID, courseID string) (domain.Course, error) {
	key := courseCacheKey(tenantID, courseID)
	if course, ok := c.lookup(ctx, key); ok {
		return course, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// another caller may have filled it while we waited
		if course, ok := c.lookup(ctx, key); ok {
			return course, nil
		}
		course, err := c.backing.GetCourse(ctx, tenantID, courseID)
		if err != nil {
			return domain.Course{}, err
		}
		c.store(ctx, course)
		return course, nil
	})
	if err != nil {
		return domain.Course{}, err
	}
	return result.(domain.Course), nil
}

func (c *CourseCache) CreateCourse(ctx context.Context, course domain.Course) (domain.Course, error) {
	stored, err := c.backing.CreateCourse(ctx, course)
	if err != nil {
		return domain.Course{}, err
	}
	c.store(ctx, stored)
	return stored, nil
}

func (c *CourseCache) ReplaceCourse(ctx context.Context, course domain.Course) (domain.Course, error) {
	stored, err := c.backing.ReplaceCourse(ctx, course)
	if err != nil {
		if errors.Is(err, domain.ErrVersionConflict) || errors.Is(err, domain.ErrNotFound) {
			c.evict(ctx, courseCacheKey(course.TenantID, course.ID))
		}
		return domain.Course{}, err
	}
	c.store(ctx, stored)
	return stored, nil
}

func (c *CourseCache) lookup(ctx context.Context, key string) (domain.Course, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.WithError(err).WithField("key", key).Debug("course cache read failed")
		}
		return domain.Course{}, false
	}
	var course domain.Course
	if err := json.Unmarshal(raw, &course); err != nil {
		c.evict(ctx, key)
		return domain.Course{}, false
	}
	return course, true
}

// store is best effort; a failed write only costs a later miss.
func (c *CourseCache) store(ctx context.Context, course domain.Course) {
	raw, err := json.Marshal(course)
	if err != nil {
		return
	}
	key := courseCacheKey(course.TenantID, course.ID)
	if err := c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err(); err != nil {
		c.log.WithError(err).WithField("key", key).Debug("course cache write failed")
	}
}

func (c *CourseCache) evict(ctx context.Context, key string) {
	_ = c.client.Del(ctx, key).Err()
}

func (c *CourseCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func courseCacheKey(tenantID, courseID string) string {
	return fmt.Sprintf("course:%s:%s", tenantID, courseID)
}
