package redis

import (
	"context"
	"fmt"
	"sort"

	"course-ledger-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Achievement ids unlocked by AchievementChecker.
const (
	AchievementFirstCourse   = "first-course"
	AchievementXP1000        = "xp-1000"
	AchievementPerfectionist = "perfectionist"
	AchievementCertified     = "certified"
)

const (
	fieldCourses      = "coursesCompleted"
	fieldXP           = "xpEarned"
	fieldPerfect      = "perfectScores"
	fieldCertificates = "certificatesEarned"
)

type threshold struct {
	achievement string
	field       string
	min         int64
}

var thresholds = []threshold{
	{AchievementFirstCourse, fieldCourses, 1},
	{AchievementXP1000, fieldXP, 1000},
	{AchievementPerfectionist, fieldPerfect, 1},
	{AchievementCertified, fieldCertificates, 1},
}

// AchievementChecker accumulates learner stats and records unlocked achievements.
//
//	HINCRBY stats:{tenantID}:{userID} {field} {delta}
//	SADD    achievements:{tenantID}:{userID} {achievement}
type AchievementChecker struct {
	client *redis.Client
	log    logrus.FieldLogger
}

func NewAchievementChecker(client *redis.Client, log logrus.FieldLogger) *AchievementChecker {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AchievementChecker{client: client, log: log}
}

func (a *AchievementChecker) CheckAndUnlock(ctx context.Context, tenantID, userID string, delta domain.StatsDelta) error {
	if delta.IsZero() {
		return nil
	}
	statsKey := statsKey(tenantID, userID)

	pipe := a.client.TxPipeline()
	incrs := map[string]*redis.IntCmd{}
	for field, n := range map[string]int{
		fieldCourses:      delta.CoursesCompleted,
		fieldXP:           delta.XPEarned,
		fieldPerfect:      delta.PerfectScores,
		fieldCertificates: delta.CertificatesEarned,
	} {
		if n != 0 {
			incrs[field] = pipe.HIncrBy(ctx, statsKey, field, int64(n))
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("update stats: %w", err)
	}

	setKey := unlockedKey(tenantID, userID)
	for _, t := range thresholds {
		cmd, ok := incrs[t.field]
		if !ok || cmd.Val() < t.min {
			continue
		}
		added, err := a.client.SAdd(ctx, setKey, t.achievement).Result()
		if err != nil {
			return fmt.Errorf("unlock %s: %w", t.achievement, err)
		}
		if added > 0 {
			a.log.WithFields(logrus.Fields{
				"tenantId":    tenantID,
				"userId":      userID,
				"achievement": t.achievement,
			}).Info("achievement unlocked")
		}
	}
	return nil
}

// Stats returns the accumulated counters for a learner.
func (a *AchievementChecker) Stats(ctx context.Context, tenantID, userID string) (domain.StatsDelta, error) {
	var s struct {
		CoursesCompleted   int `redis:"coursesCompleted"`
		XPEarned           int `redis:"xpEarned"`
		PerfectScores      int `redis:"perfectScores"`
		CertificatesEarned int `redis:"certificatesEarned"`
	}
	if err := a.client.HGetAll(ctx, statsKey(tenantID, userID)).Scan(&s); err != nil {
		return domain.StatsDelta{}, fmt.Errorf("read stats: %w", err)
	}
	return domain.StatsDelta(s), nil
}

// Unlocked lists a learner's achievements in sorted order.
func (a *AchievementChecker) Unlocked(ctx context.Context, tenantID, userID string) ([]string, error) {
	ids, err := a.client.SMembers(ctx, unlockedKey(tenantID, userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read achievements: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

func statsKey(tenantID, userID string) string {
	return fmt.Sprintf("stats:%s:%s", tenantID, userID)
}

func unlockedKey(tenantID, userID string) string {
	return fmt.Sprintf("achievements:%s:%s", tenantID, userID)
}
