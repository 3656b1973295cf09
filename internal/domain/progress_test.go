package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = ProgressKey{TenantID: "t1", UserID: "u1", CourseID: "c1"}

func TestStartAttemptTwiceLeavesOneOpen(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rec := NewProgressRecord(testKey, now)

	rec.StartAttempt(now)
	rec.StartAttempt(now.Add(time.Minute))

	assert.Equal(t, 2, rec.CurrentAttempt)
	require.Len(t, rec.Attempts, 2)
	assert.Equal(t, AttemptAbandoned, rec.Attempts[0].State)
	assert.Nil(t, rec.Attempts[0].CompletedAt)
	assert.Equal(t, AttemptOpen, rec.Attempts[1].State)

	open, ok := rec.Open()
	require.True(t, ok)
	assert.Equal(t, 2, open.AttemptNumber)
	assert.Equal(t, ProgressInProgress, rec.Status)
}

func TestCloseAttemptMergesLedger(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rec := NewProgressRecord(testKey, now)

	rec.StartAttempt(now)
	rec.CloseAttempt(AttemptOutcome{
		FinalScore:       80,
		XPEarned:         425,
		CompletedLessons: []string{"l2", "l1", "l1"},
		QuizScores:       []QuizSubmission{{QuizID: "q1", Score: 60}},
	}, now)

	rec.StartAttempt(now)
	rec.CloseAttempt(AttemptOutcome{
		FinalScore:       70,
		CompletedLessons: []string{"l3"},
		QuizScores:       []QuizSubmission{{QuizID: "q1", Score: 50}, {QuizID: "q2", Score: 90}},
	}, now)

	assert.Equal(t, 80.0, rec.BestScore)
	assert.Equal(t, 80.0, rec.Progress)
	assert.Equal(t, 425, rec.TotalXPEarned)
	assert.Equal(t, ProgressCompleted, rec.Status)
	assert.Equal(t, []string{"l1", "l2", "l3"}, rec.CompletedLessons)
	assert.Equal(t, QuizScore{Score: 60, Attempts: 2, CompletedAt: now}, rec.QuizScores["q1"])
	assert.Equal(t, 1, rec.QuizScores["q2"].Attempts)
	assert.Equal(t, []string{"l3"}, rec.Attempts[1].CompletedLessons)
	assert.Equal(t, 0, rec.OpenAttempt)

	_, ok := rec.Open()
	assert.False(t, ok)
}

func TestCloneIsDeep(t *testing.T) {
	now := time.Now()
	rec := NewProgressRecord(testKey, now)
	rec.StartAttempt(now)

	cp := rec.Clone()
	cp.CloseAttempt(AttemptOutcome{FinalScore: 90, CompletedLessons: []string{"l1"}, QuizScores: []QuizSubmission{{QuizID: "q", Score: 1}}}, now)

	assert.Equal(t, AttemptOpen, rec.Attempts[0].State)
	assert.Empty(t, rec.CompletedLessons)
	assert.Empty(t, rec.QuizScores)
	assert.Equal(t, 0.0, rec.BestScore)
}
