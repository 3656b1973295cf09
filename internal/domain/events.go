package domain

import "time"

// AuditEvent is emitted once per successful lifecycle transition or ledger completion.
type AuditEvent struct {
	ID         string         `json:"id,omitempty"`
	TenantID   string         `json:"tenantId"`
	ActorID    string         `json:"actorId"`
	Action     string         `json:"action"`
	ResourceID string         `json:"resourceId"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	At         time.Time      `json:"at"`
}

// StatsDelta is what a completion adds to a learner's achievement counters.
type StatsDelta struct {
	CoursesCompleted   int `json:"coursesCompleted"`
	XPEarned           int `json:"xpEarned"`
	PerfectScores      int `json:"perfectScores"`
	CertificatesEarned int `json:"certificatesEarned"`
}

// IsZero reports whether the delta changes nothing.
func (d StatsDelta) IsZero() bool {
	return d == StatsDelta{}
}

// Certificate is the issuer's record of an awarded certificate.
type Certificate struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenantId"`
	UserID       string    `json:"userId"`
	CourseID     string    `json:"courseId"`
	CourseTitle  string    `json:"courseTitle"`
	UserFullName string    `json:"userFullName"`
	IssuedAt     time.Time `json:"issuedAt"`
}

// ProgressUpdate is pushed to feed subscribers after a ledger commit.
type ProgressUpdate struct {
	TenantID          string         `json:"tenantId"`
	UserID            string         `json:"userId"`
	CourseID          string         `json:"courseId"`
	AttemptNumber     int            `json:"attemptNumber"`
	Status            ProgressStatus `json:"status"`
	BestScore         float64        `json:"bestScore"`
	Progress          float64        `json:"progress"`
	TotalXPEarned     int            `json:"totalXpEarned"`
	XPAwarded         int            `json:"xpAwarded"`
	CertificateEarned bool           `json:"certificateEarned"`
	At                time.Time      `json:"at"`
}
