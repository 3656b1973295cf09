package domain

import (
	"sort"
	"time"
)

// ProgressStatus is the record-level state of a learner on a course.
type ProgressStatus string

const (
	ProgressNotStarted ProgressStatus = "not-started"
	ProgressInProgress ProgressStatus = "in-progress"
	ProgressCompleted  ProgressStatus = "completed"
)

// AttemptState distinguishes the open attempt from closed ones.
type AttemptState string

const (
	AttemptOpen      AttemptState = "open"
	AttemptCompleted AttemptState = "completed"
	// AttemptAbandoned is an attempt superseded by a later start; its completedAt stays unset.
	AttemptAbandoned AttemptState = "abandoned"
)

// ProgressKey identifies one ledger.
type ProgressKey struct {
	TenantID string `json:"tenantId"`
	UserID   string `json:"userId"`
	CourseID string `json:"courseId"`
}

// QuizScore is the per-quiz aggregate kept on the record.
type QuizScore struct {
	Score       float64   `json:"score"`
	Attempts    int       `json:"attempts"`
	CompletedAt time.Time `json:"completedAt"`
}

// QuizSubmission is one quiz result reported with an attempt.
type QuizSubmission struct {
	QuizID string  `json:"quizId"`
	Score  float64 `json:"score"`
}

// Attempt is one pass through a course, embedded in its ProgressRecord.
type Attempt struct {
	AttemptNumber    int              `json:"attemptNumber"`
	State            AttemptState     `json:"state"`
	StartedAt        time.Time        `json:"startedAt"`
	CompletedAt      *time.Time       `json:"completedAt,omitempty"`
	AbandonedAt      *time.Time       `json:"abandonedAt,omitempty"`
	FinalScore       float64          `json:"finalScore"`
	XPEarned         int              `json:"xpEarned"`
	CompletedLessons []string         `json:"completedLessons"`
	QuizScores       []QuizSubmission `json:"quizScores"`
}

// ProgressRecord is the ledger for one (tenant, user, course).
type ProgressRecord struct {
	ProgressKey

	Status            ProgressStatus       `json:"status"`
	BestScore         float64              `json:"bestScore"`
	Progress          float64              `json:"progress"`
	CompletedLessons  []string             `json:"completedLessons"`
	QuizScores        map[string]QuizScore `json:"quizScores"`
	TotalXPEarned     int                  `json:"totalXpEarned"`
	CurrentAttempt    int                  `json:"currentAttempt"`
	Attempts          []Attempt            `json:"attempts"`
	CertificateEarned bool                 `json:"certificateEarned"`
	CertificateID     string               `json:"certificateId,omitempty"`
	LastAccessedAt    time.Time            `json:"lastAccessedAt"`

	// OpenAttempt is the attemptNumber of the open attempt, 0 when none is open.
	OpenAttempt int `json:"openAttempt"`

	Version int64 `json:"version"`
}

// NewProgressRecord returns an empty not-started ledger.
func NewProgressRecord(key ProgressKey, now time.Time) ProgressRecord {
	return ProgressRecord{
		ProgressKey:      key,
		Status:           ProgressNotStarted,
		CompletedLessons: []string{},
		QuizScores:       make(map[string]QuizScore),
		Attempts:         []Attempt{},
		LastAccessedAt:   now,
	}
}

// Clone returns a deep copy so a failed commit never leaks half-applied changes.
func (r ProgressRecord) Clone() ProgressRecord {
	out := r
	out.CompletedLessons = append([]string(nil), r.CompletedLessons...)
	out.QuizScores = make(map[string]QuizScore, len(r.QuizScores))
	for k, v := range r.QuizScores {
		out.QuizScores[k] = v
	}
	out.Attempts = make([]Attempt, len(r.Attempts))
	for i, a := range r.Attempts {
		a.CompletedLessons = append([]string(nil), a.CompletedLessons...)
		a.QuizScores = append([]QuizSubmission(nil), a.QuizScores...)
		out.Attempts[i] = a
	}
	return out
}

// Open returns the open attempt, if any.
func (r *ProgressRecord) Open() (*Attempt, bool) {
	if r.OpenAttempt == 0 || r.OpenAttempt != r.CurrentAttempt {
		return nil, false
	}
	idx := r.OpenAttempt - 1
	if idx < 0 || idx >= len(r.Attempts) || r.Attempts[idx].State != AttemptOpen {
		return nil, false
	}
	return &r.Attempts[idx], true
}

// StartAttempt abandons any open attempt and appends a new one.
func (r *ProgressRecord) StartAttempt(now time.Time) Attempt {
	if open, ok := r.Open(); ok {
		at := now
		open.State = AttemptAbandoned
		open.AbandonedAt = &at
	}
	r.CurrentAttempt++
	a := Attempt{
		AttemptNumber:    r.CurrentAttempt,
		State:            AttemptOpen,
		StartedAt:        now,
		CompletedLessons: []string{},
		QuizScores:       []QuizSubmission{},
	}
	r.Attempts = append(r.Attempts, a)
	r.OpenAttempt = a.AttemptNumber
	r.Status = ProgressInProgress
	r.LastAccessedAt = now
	return a
}

// AttemptOutcome is what a completed attempt contributes to its ledger.
type AttemptOutcome struct {
	FinalScore       float64
	XPEarned         int
	CompletedLessons []string
	QuizScores       []QuizSubmission
}

// CloseAttempt applies a completed attempt to the record. The caller must have
// verified that an attempt is open.
func (r *ProgressRecord) CloseAttempt(out AttemptOutcome, now time.Time) {
	open, ok := r.Open()
	if !ok {
		return
	}
	at := now
	open.State = AttemptCompleted
	open.CompletedAt = &at
	open.FinalScore = out.FinalScore
	open.XPEarned = out.XPEarned
	open.CompletedLessons = uniqueSorted(out.CompletedLessons)
	open.QuizScores = append([]QuizSubmission(nil), out.QuizScores...)
	r.OpenAttempt = 0

	if out.FinalScore > r.BestScore {
		r.BestScore = out.FinalScore
		r.Progress = out.FinalScore
	}
	r.TotalXPEarned += out.XPEarned
	r.Status = ProgressCompleted
	r.CompletedLessons = uniqueSorted(append(r.CompletedLessons, out.CompletedLessons...))

	if r.QuizScores == nil {
		r.QuizScores = make(map[string]QuizScore)
	}
	for _, q := range out.QuizScores {
		existing, ok := r.QuizScores[q.QuizID]
		if !ok {
			r.QuizScores[q.QuizID] = QuizScore{Score: q.Score, Attempts: 1, CompletedAt: now}
			continue
		}
		if q.Score > existing.Score {
			existing.Score = q.Score
		}
		existing.Attempts++
		existing.CompletedAt = now
		r.QuizScores[q.QuizID] = existing
	}
	r.LastAccessedAt = now
}

func uniqueSorted(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
