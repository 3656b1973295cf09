package memory

import (
	"context"
	"sync"
	"time"

	"course-ledger-service/internal/app"
	"course-ledger-service/internal/domain"
	"github.com/google/uuid"
)

// AuditLog keeps audit events in memory, newest last.
type AuditLog struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

func (a *AuditLog) Log(_ context.Context, event domain.AuditEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
	return nil
}

// Events returns a copy of the recorded events.
func (a *AuditLog) Events() []domain.AuditEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.AuditEvent(nil), a.events...)
}

// CertificateIssuer issues certificates with random ids.
type CertificateIssuer struct {
	mu     sync.Mutex
	issued []domain.Certificate
	now    func() time.Time
}

func NewCertificateIssuer() *CertificateIssuer {
	return &CertificateIssuer{now: time.Now}
}

func (c *CertificateIssuer) CreateCertificate(_ context.Context, req app.CertificateRequest) (domain.Certificate, error) {
	cert := domain.Certificate{
		ID:           uuid.NewString(),
		TenantID:     req.TenantID,
		UserID:       req.UserID,
		CourseID:     req.CourseID,
		CourseTitle:  req.CourseTitle,
		UserFullName: req.UserFullName,
		IssuedAt:     c.now().UTC(),
	}
	c.mu.Lock()
	c.issued = append(c.issued, cert)
	c.mu.Unlock()
	return cert, nil
}

// Issued returns a copy of every issued certificate.
func (c *CertificateIssuer) Issued() []domain.Certificate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Certificate(nil), c.issued...)
}

type learnerKey struct {
	tenantID string
	userID   string
}

// AchievementTracker sums stats deltas per learner.
type AchievementTracker struct {
	mu    sync.Mutex
	stats map[learnerKey]domain.StatsDelta
}

func NewAchievementTracker() *AchievementTracker {
	return &AchievementTracker{stats: make(map[learnerKey]domain.StatsDelta)}
}

func (t *AchievementTracker) CheckAndUnlock(_ context.Context, tenantID, userID string, delta domain.StatsDelta) error {
	key := learnerKey{tenantID, userID}
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stats[key]
	s.CoursesCompleted += delta.CoursesCompleted
	s.XPEarned += delta.XPEarned
	s.PerfectScores += delta.PerfectScores
	s.CertificatesEarned += delta.CertificatesEarned
	t.stats[key] = s
	return nil
}

// Stats returns the accumulated totals for a learner.
func (t *AchievementTracker) Stats(tenantID, userID string) domain.StatsDelta {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats[learnerKey{tenantID, userID}]
}
