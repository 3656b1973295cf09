package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"course-ledger-service/internal/app"
	"course-ledger-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
)

// AuditLogger appends audit events to the audit_events table.
type AuditLogger struct {
	pool *pgxpool.Pool
}

func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

func (a *AuditLogger) Log(ctx context.Context, event domain.AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	meta := event.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}
	_, err = a.pool.Exec(ctx,
		`INSERT INTO audit_events (id, tenant_id, actor_id, action, resource_id, metadata, at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, event.TenantID, event.ActorID, event.Action, event.ResourceID, raw, event.At,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Events lists a resource's audit trail, oldest first.
func (a *AuditLogger) Events(ctx context.Context, tenantID, resourceID string) ([]domain.AuditEvent, error) {
	rows, err := a.pool.Query(ctx,
		`SELECT id::text, tenant_id, actor_id, action, resource_id, metadata, at
		 FROM audit_events WHERE tenant_id=$1 AND resource_id=$2 ORDER BY at, id`,
		tenantID, resourceID,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		var (
			e   domain.AuditEvent
			raw []byte
		)
		if err := rows.Scan(&e.ID, &e.TenantID, &e.ActorID, &e.Action, &e.ResourceID, &raw, &e.At); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if err := json.Unmarshal(raw, &e.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal audit metadata: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// CertificateIssuer records certificates; issuing twice for the same learner
// and course returns the existing certificate.
type CertificateIssuer struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewCertificateIssuer(pool *pgxpool.Pool) *CertificateIssuer {
	return &CertificateIssuer{pool: pool, now: time.Now}
}

func (c *CertificateIssuer) CreateCertificate(ctx context.Context, req app.CertificateRequest) (domain.Certificate, error) {
	cert := domain.Certificate{
		TenantID:     req.TenantID,
		UserID:       req.UserID,
		CourseID:     req.CourseID,
		CourseTitle:  req.CourseTitle,
		UserFullName: req.UserFullName,
	}
	err := c.pool.QueryRow(ctx,
		`INSERT INTO certificates (id, tenant_id, user_id, course_id, course_title, user_full_name, issued_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (tenant_id, user_id, course_id) DO UPDATE SET course_title=certificates.course_title
		 RETURNING id::text, issued_at`,
		uuid.NewString(), req.TenantID, req.UserID, req.CourseID, req.CourseTitle, req.UserFullName, c.now().UTC(),
	).Scan(&cert.ID, &cert.IssuedAt)
	if err != nil {
		return domain.Certificate{}, fmt.Errorf("insert certificate: %w", err)
	}
	return cert, nil
}
