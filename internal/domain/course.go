package domain

import "time"

// CourseStatus is the closed set of lifecycle states a course can be in.
type CourseStatus string

const (
	StatusDraft         CourseStatus = "draft"
	StatusPendingReview CourseStatus = "pending-review"
	StatusPublished     CourseStatus = "published"
	StatusArchived      CourseStatus = "archived"
)

// Valid reports whether s is one of the known statuses.
func (s CourseStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPendingReview, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// CompletionMode selects which rules govern whether an attempt completes a course.
type CompletionMode string

const (
	ModeModulesOnly       CompletionMode = "modules-only"
	ModeModulesAndQuizzes CompletionMode = "modules-and-quizzes"
	ModeExam              CompletionMode = "exam-mode"
	ModeStudyGuide        CompletionMode = "study-guide"
)

// Module is an ordered group of lessons inside a course.
type Module struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Lessons []string `json:"lessons,omitempty"`
}

// Course is the document kept per (tenantId, courseId).
type Course struct {
	TenantID    string       `json:"tenantId"`
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Category    string       `json:"category"`
	Modules     []Module     `json:"modules"`
	Status      CourseStatus `json:"status"`

	CreatedBy        string   `json:"createdBy"`
	ReviewerID       string   `json:"reviewerId,omitempty"`
	ReviewComments   string   `json:"reviewComments,omitempty"`
	RequestedChanges []string `json:"requestedChanges,omitempty"`

	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
	SubmittedForReviewAt *time.Time `json:"submittedForReviewAt,omitempty"`
	PublishedAt          *time.Time `json:"publishedAt,omitempty"`
	ArchivedAt           *time.Time `json:"archivedAt,omitempty"`

	CompletionPolicy

	// TotalXP is the XP pool for a full 0→100 improvement; 0 uses the service default.
	TotalXP int `json:"totalXp,omitempty"`

	Version int64 `json:"version"`
}

// CompletionPolicy holds the course fields read by the completion evaluator.
type CompletionPolicy struct {
	CompletionMode                  CompletionMode `json:"completionMode"`
	RequireAllQuizzesPassed         bool           `json:"requireAllQuizzesPassed"`
	MinimumScoreForCompletion       *float64       `json:"minimumScoreForCompletion,omitempty"`
	CertificateEnabled              bool           `json:"certificateEnabled"`
	CertificateRequiresPassingScore bool           `json:"certificateRequiresPassingScore"`
	MinimumScoreForCertificate      *float64       `json:"minimumScoreForCertificate,omitempty"`
}

// Role is the caller's role as asserted by the upstream identity layer.
type Role string

const (
	RoleLearner       Role = "learner"
	RoleInstructor    Role = "instructor"
	RoleReviewer      Role = "reviewer"
	RoleTenantAdmin   Role = "tenant-admin"
	RolePlatformAdmin Role = "platform-admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleLearner, RoleInstructor, RoleReviewer, RoleTenantAdmin, RolePlatformAdmin:
		return true
	}
	return false
}

// CanReview reports whether the role may approve, reject or request changes.
func (r Role) CanReview() bool {
	switch r {
	case RoleReviewer, RoleTenantAdmin, RolePlatformAdmin:
		return true
	}
	return false
}

// Privileged reports whether the role may publish without review.
func (r Role) Privileged() bool {
	return r == RoleTenantAdmin || r == RolePlatformAdmin
}

// Actor is the pre-validated identity of whoever invokes an operation.
type Actor struct {
	UserID   string `json:"userId"`
	TenantID string `json:"tenantId"`
	Role     Role   `json:"role"`
}

// CanManage reports whether the actor may edit, archive or delete the course.
func (a Actor) CanManage(c Course) bool {
	return a.UserID == c.CreatedBy || a.Role.Privileged()
}
