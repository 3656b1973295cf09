package app

import (
	"context"

	"course-ledger-service/internal/domain"
)

// CourseStore is keyed access to course documents.
// ReplaceCourse must reject a course whose Version differs from the stored one
// with domain.ErrVersionConflict, and return the stored course with the bumped version.
type CourseStore interface {
	GetCourse(ctx context.Context, tenantID, courseID string) (domain.Course, error)
	CreateCourse(ctx context.Context, course domain.Course) (domain.Course, error)
	ReplaceCourse(ctx context.Context, course domain.Course) (domain.Course, error)
}

// ProgressStore holds one ledger per (tenant, user, course).
// UpsertProgress creates when Version is 0 and the key is absent, replaces when
// Version matches, and fails with domain.ErrVersionConflict otherwise.
type ProgressStore interface {
	FindProgress(ctx context.Context, key domain.ProgressKey) (domain.ProgressRecord, error)
	UpsertProgress(ctx context.Context, record domain.ProgressRecord) (domain.ProgressRecord, error)
}

// CertificateRequest identifies the certificate to issue.
type CertificateRequest struct {
	TenantID     string
	UserID       string
	CourseID     string
	CourseTitle  string
	UserFullName string
}

// CertificateIssuer creates certificates; failures are tolerated by the ledger.
type CertificateIssuer interface {
	CreateCertificate(ctx context.Context, req CertificateRequest) (domain.Certificate, error)
}

// AchievementChecker unlocks achievements from a stats delta.
type AchievementChecker interface {
	CheckAndUnlock(ctx context.Context, tenantID, userID string, delta domain.StatsDelta) error
}

// AuditLogger records audit events.
type AuditLogger interface {
	Log(ctx context.Context, event domain.AuditEvent) error
}

// ProgressPublisher fans ledger updates out to live subscribers.
type ProgressPublisher interface {
	Publish(update domain.ProgressUpdate)
}
