package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"course-ledger-service/internal/domain"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CourseLifecycle enforces the course status state machine.
type CourseLifecycle struct {
	courses    CourseStore
	audit      AuditLogger
	log        logrus.FieldLogger
	now        func() time.Time
	maxRetries int
}

// LifecycleOption customizes a CourseLifecycle.
type LifecycleOption func(*CourseLifecycle)

// WithLifecycleClock overrides time.Now, mainly for tests.
func WithLifecycleClock(now func() time.Time) LifecycleOption {
	return func(l *CourseLifecycle) { l.now = now }
}

// WithLifecycleLogger sets the logger used for audit failures and retries.
func WithLifecycleLogger(log logrus.FieldLogger) LifecycleOption {
	return func(l *CourseLifecycle) { l.log = log }
}

// WithLifecycleRetries bounds how often a conflicting write is recomputed.
func WithLifecycleRetries(n int) LifecycleOption {
	return func(l *CourseLifecycle) {
		if n > 0 {
			l.maxRetries = n
		}
	}
}

func NewCourseLifecycle(courses CourseStore, audit AuditLogger, opts ...LifecycleOption) *CourseLifecycle {
	l := &CourseLifecycle{
		courses:    courses,
		audit:      audit,
		log:        logrus.StandardLogger(),
		now:        time.Now,
		maxRetries: defaultMaxCommitRetries,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Create validates the input and stores a new draft owned by the actor.
func (l *CourseLifecycle) Create(ctx context.Context, actor domain.Actor, in domain.NewCourse) (domain.Course, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Category = strings.TrimSpace(in.Category)
	if err := domain.Validate(in); err != nil {
		return domain.Course{}, err
	}
	if actor.Role == domain.RoleLearner {
		return domain.Course{}, fmt.Errorf("create course: %w", domain.ErrPermissionDenied)
	}

	now := l.now().UTC()
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	mode := in.CompletionMode
	if mode == "" {
		mode = domain.ModeModulesOnly
	}
	modules := in.Modules
	if modules == nil {
		modules = []domain.Module{}
	}
	course := domain.Course{
		TenantID:    actor.TenantID,
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Modules:     modules,
		Status:      domain.StatusDraft,
		CreatedBy:   actor.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
		TotalXP:     in.TotalXP,
		CompletionPolicy: domain.CompletionPolicy{
			CompletionMode:                  mode,
			RequireAllQuizzesPassed:         in.RequireAllQuizzesPassed,
			MinimumScoreForCompletion:       in.MinimumScoreForCompletion,
			CertificateEnabled:              in.CertificateEnabled,
			CertificateRequiresPassingScore: in.CertificateRequiresPassingScore,
			MinimumScoreForCertificate:      in.MinimumScoreForCertificate,
		},
	}
	stored, err := l.courses.CreateCourse(ctx, course)
	if err != nil {
		return domain.Course{}, err
	}
	l.emit(ctx, actor, domain.ActionCreate, stored.ID, map[string]any{"title": stored.Title})
	return stored, nil
}

// Get returns a course of the given tenant.
func (l *CourseLifecycle) Get(ctx context.Context, tenantID, courseID string) (domain.Course, error) {
	return l.courses.GetCourse(ctx, tenantID, courseID)
}

// Update merges patch into the course without changing its status.
func (l *CourseLifecycle) Update(ctx context.Context, actor domain.Actor, courseID string, patch domain.CoursePatch) (domain.Course, error) {
	if err := domain.Validate(patch); err != nil {
		return domain.Course{}, err
	}
	var updated domain.Course
	err := commitWithRetry(ctx, l.log, l.maxRetries, string(domain.ActionUpdate), func() error {
		c, err := l.courses.GetCourse(ctx, actor.TenantID, courseID)
		if err != nil {
			return err
		}
		if !actor.CanManage(c) {
			return fmt.Errorf("update course %s: %w", courseID, domain.ErrPermissionDenied)
		}
		patch.Apply(&c)
		c.UpdatedAt = l.now().UTC()
		updated, err = l.courses.ReplaceCourse(ctx, c)
		return err
	})
	if err != nil {
		return domain.Course{}, err
	}
	l.emit(ctx, actor, domain.ActionUpdate, updated.ID, nil)
	return updated, nil
}

// SubmitForReview moves the actor's own draft to pending-review.
func (l *CourseLifecycle) SubmitForReview(ctx context.Context, actor domain.Actor, courseID string) (domain.Course, error) {
	return l.transition(ctx, actor, courseID, domain.ActionSubmitForReview, requireOwner,
		func(c *domain.Course, now time.Time) map[string]any {
			c.SubmittedForReviewAt = &now
			return nil
		})
}

// Approve publishes a course that is pending review.
func (l *CourseLifecycle) Approve(ctx context.Context, actor domain.Actor, courseID string) (domain.Course, error) {
	return l.transition(ctx, actor, courseID, domain.ActionApprove, requireReviewer,
		func(c *domain.Course, now time.Time) map[string]any {
			c.PublishedAt = &now
			c.ReviewerID = actor.UserID
			return nil
		})
}

// PublishDirectly publishes a draft or pending course without review.
func (l *CourseLifecycle) PublishDirectly(ctx context.Context, actor domain.Actor, courseID string) (domain.Course, error) {
	return l.transition(ctx, actor, courseID, domain.ActionPublishDirectly, requirePrivileged,
		func(c *domain.Course, now time.Time) map[string]any {
			bypassed := c.Status == domain.StatusDraft
			c.PublishedAt = &now
			return map[string]any{"bypassedReview": bypassed}
		})
}

// Reject returns a pending course to draft with the reviewer's comments.
func (l *CourseLifecycle) Reject(ctx context.Context, actor domain.Actor, courseID, comments string) (domain.Course, error) {
	return l.transition(ctx, actor, courseID, domain.ActionReject, requireReviewer,
		func(c *domain.Course, _ time.Time) map[string]any {
			c.ReviewComments = comments
			c.ReviewerID = actor.UserID
			c.SubmittedForReviewAt = nil
			return map[string]any{"comments": comments}
		})
}

// RequestChanges returns a pending course to draft with a list of required changes.
func (l *CourseLifecycle) RequestChanges(ctx context.Context, actor domain.Actor, courseID string, changes []string) (domain.Course, error) {
	return l.transition(ctx, actor, courseID, domain.ActionRequestChanges, requireReviewer,
		func(c *domain.Course, _ time.Time) map[string]any {
			c.RequestedChanges = append([]string(nil), changes...)
			c.ReviewerID = actor.UserID
			c.SubmittedForReviewAt = nil
			return map[string]any{"requestedChanges": changes}
		})
}

// Archive retires a published course.
func (l *CourseLifecycle) Archive(ctx context.Context, actor domain.Actor, courseID string) (domain.Course, error) {
	return l.transition(ctx, actor, courseID, domain.ActionArchive, requireManager,
		func(c *domain.Course, now time.Time) map[string]any {
			c.ArchivedAt = &now
			return nil
		})
}

// Unarchive republishes an archived course. A course that was never published
// can only come back through a privileged actor, otherwise soft-delete would
// bypass review.
func (l *CourseLifecycle) Unarchive(ctx context.Context, actor domain.Actor, courseID string) (domain.Course, error) {
	return l.transition(ctx, actor, courseID, domain.ActionUnarchive, requireRepublisher,
		func(c *domain.Course, _ time.Time) map[string]any {
			c.ArchivedAt = nil
			return nil
		})
}

// Delete soft-deletes a course by archiving it from any status. Deleting an
// archived course is a no-op.
func (l *CourseLifecycle) Delete(ctx context.Context, actor domain.Actor, courseID string) (domain.Course, error) {
	return l.transitionUnless(ctx, actor, courseID, domain.ActionDelete, requireManager,
		func(c *domain.Course, now time.Time) map[string]any {
			c.ArchivedAt = &now
			return map[string]any{"soft": true}
		},
		func(c domain.Course) bool { return c.Status == domain.StatusArchived })
}

type authorizer func(actor domain.Actor, c domain.Course) error

type mutator func(c *domain.Course, now time.Time) map[string]any

// transition checks the state guard, then the actor, then applies mutate and
// writes the course. Nothing is written when either check fails.
func (l *CourseLifecycle) transition(ctx context.Context, actor domain.Actor, courseID string, action domain.Action, authorize authorizer, mutate mutator) (domain.Course, error) {
	return l.transitionUnless(ctx, actor, courseID, action, authorize, mutate, nil)
}

// transitionUnless is transition with a settled predicate evaluated on each
// fresh read. A settled course is authorized and returned unchanged, with no
// write and no audit event.
func (l *CourseLifecycle) transitionUnless(ctx context.Context, actor domain.Actor, courseID string, action domain.Action, authorize authorizer, mutate mutator, settled func(domain.Course) bool) (domain.Course, error) {
	var (
		updated domain.Course
		meta    map[string]any
		noop    bool
	)
	err := commitWithRetry(ctx, l.log, l.maxRetries, string(action), func() error {
		c, err := l.courses.GetCourse(ctx, actor.TenantID, courseID)
		if err != nil {
			return err
		}
		noop = settled != nil && settled(c)
		if noop {
			updated = c
			return authorize(actor, c)
		}
		if err := domain.CheckTransition(c.Status, action); err != nil {
			return err
		}
		if err := authorize(actor, c); err != nil {
			return err
		}
		from := c.Status
		to, _ := domain.Target(action)
		now := l.now().UTC()

		meta = mutate(&c, now)
		if meta == nil {
			meta = make(map[string]any, 2)
		}
		meta["from"] = string(from)
		meta["to"] = string(to)
		c.Status = to
		c.UpdatedAt = now

		updated, err = l.courses.ReplaceCourse(ctx, c)
		return err
	})
	if err != nil {
		return domain.Course{}, err
	}
	if noop {
		return updated, nil
	}
	l.emit(ctx, actor, action, updated.ID, meta)
	return updated, nil
}

// emit logs the audit event; its failure never affects the transition.
func (l *CourseLifecycle) emit(ctx context.Context, actor domain.Actor, action domain.Action, courseID string, meta map[string]any) {
	if l.audit == nil {
		return
	}
	effects := newEffectBatch(l.log.WithFields(logrus.Fields{
		"tenantId": actor.TenantID,
		"actorId":  actor.UserID,
		"courseId": courseID,
		"action":   string(action),
	}))
	effects.run("audit", func() error {
		return l.audit.Log(ctx, domain.AuditEvent{
			ID:         uuid.NewString(),
			TenantID:   actor.TenantID,
			ActorID:    actor.UserID,
			Action:     string(action),
			ResourceID: courseID,
			Metadata:   meta,
			At:         l.now().UTC(),
		})
	})
}

func requireOwner(actor domain.Actor, c domain.Course) error {
	if actor.UserID != c.CreatedBy {
		return fmt.Errorf("only the author may submit course %s: %w", c.ID, domain.ErrPermissionDenied)
	}
	return nil
}

func requireReviewer(actor domain.Actor, c domain.Course) error {
	if !actor.Role.CanReview() {
		return fmt.Errorf("role %q cannot review course %s: %w", actor.Role, c.ID, domain.ErrPermissionDenied)
	}
	return nil
}

func requirePrivileged(actor domain.Actor, c domain.Course) error {
	if !actor.Role.Privileged() {
		return fmt.Errorf("role %q cannot publish course %s directly: %w", actor.Role, c.ID, domain.ErrPermissionDenied)
	}
	return nil
}

func requireManager(actor domain.Actor, c domain.Course) error {
	if !actor.CanManage(c) {
		return fmt.Errorf("actor %s cannot manage course %s: %w", actor.UserID, c.ID, domain.ErrPermissionDenied)
	}
	return nil
}

func requireRepublisher(actor domain.Actor, c domain.Course) error {
	if err := requireManager(actor, c); err != nil {
		return err
	}
	if c.PublishedAt == nil && !actor.Role.Privileged() {
		return fmt.Errorf("course %s was never published; role %q cannot restore it: %w", c.ID, actor.Role, domain.ErrPermissionDenied)
	}
	return nil
}
