package app

import (
	"context"
	"errors"
	"time"

	"course-ledger-service/internal/domain"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LedgerDeps are the stores and collaborators a ProgressLedger talks to.
// Certificates, Achievements, Audit and Feed are optional.
type LedgerDeps struct {
	Courses      CourseStore
	Progress     ProgressStore
	Certificates CertificateIssuer
	Achievements AchievementChecker
	Audit        AuditLogger
	Feed         ProgressPublisher
	Log          logrus.FieldLogger
}

// LedgerOptions tune scoring and commit behaviour.
type LedgerOptions struct {
	// TotalCourseXP is used for courses that leave TotalXP unset.
	TotalCourseXP int
	// MaxCommitRetries bounds recomputation after a version conflict.
	MaxCommitRetries int
	Now              func() time.Time
}

// ProgressLedger records attempts and awards differential XP.
type ProgressLedger struct {
	deps LedgerDeps
	opts LedgerOptions
}

func NewProgressLedger(deps LedgerDeps, opts LedgerOptions) *ProgressLedger {
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}
	if opts.TotalCourseXP <= 0 {
		opts.TotalCourseXP = domain.DefaultCourseXP
	}
	if opts.MaxCommitRetries <= 0 {
		opts.MaxCommitRetries = defaultMaxCommitRetries
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ProgressLedger{deps: deps, opts: opts}
}

// CompleteAttemptRequest is the learner's report for the open attempt.
type CompleteAttemptRequest struct {
	domain.ProgressKey
	FinalScore       float64                 `json:"finalScore"`
	CompletedLessons []string                `json:"completedLessons"`
	QuizScores       []domain.QuizSubmission `json:"quizScores"`
	// UserFullName is printed on an issued certificate.
	UserFullName string `json:"userFullName,omitempty"`
}

// CompletionResult is returned from a successful CompleteAttempt.
type CompletionResult struct {
	AttemptNumber     int                `json:"attemptNumber"`
	Progress          float64            `json:"progress"`
	XPAwarded         int                `json:"xpAwarded"`
	Breakdown         domain.XPBreakdown `json:"breakdown"`
	CertificateEarned bool               `json:"certificateEarned"`
	CertificateID     string             `json:"certificateId,omitempty"`
}

// Progress returns the ledger for key.
func (l *ProgressLedger) Progress(ctx context.Context, key domain.ProgressKey) (domain.ProgressRecord, error) {
	return l.deps.Progress.FindProgress(ctx, key)
}

// Assign creates a not-started ledger if none exists yet.
func (l *ProgressLedger) Assign(ctx context.Context, key domain.ProgressKey) (domain.ProgressRecord, error) {
	if _, err := l.deps.Courses.GetCourse(ctx, key.TenantID, key.CourseID); err != nil {
		return domain.ProgressRecord{}, err
	}
	var rec domain.ProgressRecord
	err := commitWithRetry(ctx, l.deps.Log, l.opts.MaxCommitRetries, "assign", func() error {
		existing, err := l.deps.Progress.FindProgress(ctx, key)
		if err == nil {
			rec = existing
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		rec, err = l.deps.Progress.UpsertProgress(ctx, domain.NewProgressRecord(key, l.opts.Now().UTC()))
		return err
	})
	return rec, err
}

// StartAttempt opens a new attempt, creating the ledger on first use. Any
// attempt still open is abandoned.
func (l *ProgressLedger) StartAttempt(ctx context.Context, key domain.ProgressKey) (domain.ProgressRecord, error) {
	if _, err := l.deps.Courses.GetCourse(ctx, key.TenantID, key.CourseID); err != nil {
		return domain.ProgressRecord{}, err
	}
	var stored domain.ProgressRecord
	err := commitWithRetry(ctx, l.deps.Log, l.opts.MaxCommitRetries, "start_attempt", func() error {
		now := l.opts.Now().UTC()
		rec, err := l.deps.Progress.FindProgress(ctx, key)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			rec = domain.NewProgressRecord(key, now)
		case err != nil:
			return err
		default:
			rec = rec.Clone()
		}
		rec.StartAttempt(now)
		stored, err = l.deps.Progress.UpsertProgress(ctx, rec)
		return err
	})
	if err != nil {
		return domain.ProgressRecord{}, err
	}
	return stored, nil
}

// completion carries what the commit phase decided into the side-effect phase.
type completion struct {
	course      domain.Course
	prior       domain.ProgressRecord
	stored      domain.ProgressRecord
	xp          domain.XPResult
	attempt     int
	issueCert   bool
	firstFinish bool
}

// CompleteAttempt closes the open attempt. The ledger write is committed
// first; certificate issuance, achievements, audit and the feed run afterwards
// and their failures are logged, never returned.
func (l *ProgressLedger) CompleteAttempt(ctx context.Context, req CompleteAttemptRequest) (CompletionResult, error) {
	if err := domain.ValidateScore("finalScore", req.FinalScore); err != nil {
		return CompletionResult{}, err
	}
	for _, q := range req.QuizScores {
		if q.QuizID == "" {
			return CompletionResult{}, domain.NewValidationError("quizScores", "quizId is required")
		}
		if err := domain.ValidateScore("quizScores."+q.QuizID, q.Score); err != nil {
			return CompletionResult{}, err
		}
	}

	var done completion
	err := commitWithRetry(ctx, l.deps.Log, l.opts.MaxCommitRetries, "complete_attempt", func() error {
		var err error
		done, err = l.commitCompletion(ctx, req)
		return err
	})
	if err != nil {
		return CompletionResult{}, err
	}

	certID := l.runCompletionEffects(ctx, req, done)
	if certID == "" {
		certID = done.stored.CertificateID
	}

	return CompletionResult{
		AttemptNumber:     done.attempt,
		Progress:          done.stored.Progress,
		XPAwarded:         done.xp.XPEarned,
		Breakdown:         done.xp.Breakdown,
		CertificateEarned: done.stored.CertificateEarned,
		CertificateID:     certID,
	}, nil
}

func (l *ProgressLedger) commitCompletion(ctx context.Context, req CompleteAttemptRequest) (completion, error) {
	course, err := l.deps.Courses.GetCourse(ctx, req.TenantID, req.CourseID)
	if err != nil {
		return completion{}, err
	}
	prior, err := l.deps.Progress.FindProgress(ctx, req.ProgressKey)
	if err != nil {
		return completion{}, err
	}
	rec := prior.Clone()
	open, ok := rec.Open()
	if !ok {
		return completion{}, domain.ErrNoActiveAttempt
	}
	attempt := open.AttemptNumber

	if err := domain.EvaluateCompletion(course.CompletionPolicy, req.FinalScore, req.QuizScores); err != nil {
		return completion{}, err
	}

	totalXP := course.TotalXP
	if totalXP <= 0 {
		totalXP = l.opts.TotalCourseXP
	}
	xp := domain.CalculateXP(req.FinalScore, prior.BestScore, totalXP)

	now := l.opts.Now().UTC()
	rec.CloseAttempt(domain.AttemptOutcome{
		FinalScore:       req.FinalScore,
		XPEarned:         xp.XPEarned,
		CompletedLessons: req.CompletedLessons,
		QuizScores:       req.QuizScores,
	}, now)

	issue := domain.CertificateEligible(course.CompletionPolicy, req.FinalScore) && !prior.CertificateEarned
	if issue {
		rec.CertificateEarned = true
	}

	stored, err := l.deps.Progress.UpsertProgress(ctx, rec)
	if err != nil {
		return completion{}, err
	}
	return completion{
		course:      course,
		prior:       prior,
		stored:      stored,
		xp:          xp,
		attempt:     attempt,
		issueCert:   issue,
		firstFinish: !hasCompletedAttempt(prior),
	}, nil
}

// runCompletionEffects returns the id of a certificate issued during this call.
func (l *ProgressLedger) runCompletionEffects(ctx context.Context, req CompleteAttemptRequest, done completion) string {
	effects := newEffectBatch(l.deps.Log.WithFields(logrus.Fields{
		"tenantId": req.TenantID,
		"userId":   req.UserID,
		"courseId": req.CourseID,
		"attempt":  done.attempt,
	}))

	var certID string
	if done.issueCert && l.deps.Certificates != nil {
		effects.run("certificate", func() error {
			cert, err := l.deps.Certificates.CreateCertificate(ctx, CertificateRequest{
				TenantID:     req.TenantID,
				UserID:       req.UserID,
				CourseID:     req.CourseID,
				CourseTitle:  done.course.Title,
				UserFullName: req.UserFullName,
			})
			if err != nil {
				return err
			}
			if err := l.attachCertificate(ctx, req.ProgressKey, cert.ID); err != nil {
				return err
			}
			certID = cert.ID
			return nil
		})
	}

	delta := domain.StatsDelta{XPEarned: done.xp.XPEarned}
	if done.firstFinish {
		delta.CoursesCompleted = 1
	}
	if req.FinalScore >= domain.PerfectScore && done.prior.BestScore < domain.PerfectScore {
		delta.PerfectScores = 1
	}
	if done.issueCert {
		delta.CertificatesEarned = 1
	}
	if l.deps.Achievements != nil && !delta.IsZero() {
		effects.run("achievements", func() error {
			return l.deps.Achievements.CheckAndUnlock(ctx, req.TenantID, req.UserID, delta)
		})
	}

	if l.deps.Audit != nil {
		effects.run("audit", func() error {
			return l.deps.Audit.Log(ctx, domain.AuditEvent{
				ID:         uuid.NewString(),
				TenantID:   req.TenantID,
				ActorID:    req.UserID,
				Action:     "attempt.completed",
				ResourceID: req.CourseID,
				Metadata: map[string]any{
					"attemptNumber":     done.attempt,
					"finalScore":        req.FinalScore,
					"xpAwarded":         done.xp.XPEarned,
					"certificateEarned": done.stored.CertificateEarned,
				},
				At: l.opts.Now().UTC(),
			})
		})
	}

	if l.deps.Feed != nil {
		effects.run("feed", func() error {
			l.deps.Feed.Publish(domain.ProgressUpdate{
				TenantID:          req.TenantID,
				UserID:            req.UserID,
				CourseID:          req.CourseID,
				AttemptNumber:     done.attempt,
				Status:            done.stored.Status,
				BestScore:         done.stored.BestScore,
				Progress:          done.stored.Progress,
				TotalXPEarned:     done.stored.TotalXPEarned,
				XPAwarded:         done.xp.XPEarned,
				CertificateEarned: done.stored.CertificateEarned,
				At:                l.opts.Now().UTC(),
			})
			return nil
		})
	}
	return certID
}

// attachCertificate stores the issued id unless another completion already did.
func (l *ProgressLedger) attachCertificate(ctx context.Context, key domain.ProgressKey, certID string) error {
	return commitWithRetry(ctx, l.deps.Log, l.opts.MaxCommitRetries, "attach_certificate", func() error {
		rec, err := l.deps.Progress.FindProgress(ctx, key)
		if err != nil {
			return err
		}
		if rec.CertificateID != "" {
			return nil
		}
		rec = rec.Clone()
		rec.CertificateID = certID
		_, err = l.deps.Progress.UpsertProgress(ctx, rec)
		return err
	})
}

func hasCompletedAttempt(rec domain.ProgressRecord) bool {
	for _, a := range rec.Attempts {
		if a.State == domain.AttemptCompleted {
			return true
		}
	}
	return false
}
