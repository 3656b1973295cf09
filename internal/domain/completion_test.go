package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func score(v float64) *float64 { return &v }

func TestEvaluateCompletionMinimumScore(t *testing.T) {
	p := CompletionPolicy{MinimumScoreForCompletion: score(60)}

	require.NoError(t, EvaluateCompletion(p, 60, nil))

	err := EvaluateCompletion(p, 59.5, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCompletionPolicyViolation))
	var pv *PolicyViolationError
	require.True(t, errors.As(err, &pv))
	assert.Contains(t, pv.Reason, "below the minimum")
}

func TestEvaluateCompletionRequiredQuizzes(t *testing.T) {
	p := CompletionPolicy{CompletionMode: ModeModulesAndQuizzes, RequireAllQuizzesPassed: true}

	require.NoError(t, EvaluateCompletion(p, 90, []QuizSubmission{{QuizID: "q1", Score: 70}}))

	err := EvaluateCompletion(p, 90, []QuizSubmission{{QuizID: "q1", Score: 95}, {QuizID: "q2", Score: 69}})
	require.ErrorIs(t, err, ErrCompletionPolicyViolation)
	assert.Contains(t, err.Error(), "q2")

	p.MinimumScoreForCompletion = score(80)
	err = EvaluateCompletion(p, 90, []QuizSubmission{{QuizID: "q1", Score: 75}})
	require.ErrorIs(t, err, ErrCompletionPolicyViolation)
}

func TestEvaluateCompletionIgnoresQuizzesOutsideQuizMode(t *testing.T) {
	p := CompletionPolicy{CompletionMode: ModeModulesOnly, RequireAllQuizzesPassed: true}
	require.NoError(t, EvaluateCompletion(p, 90, []QuizSubmission{{QuizID: "q1", Score: 10}}))
}

func TestCertificateEligible(t *testing.T) {
	assert.False(t, CertificateEligible(CompletionPolicy{}, 100))
	assert.True(t, CertificateEligible(CompletionPolicy{CertificateEnabled: true}, 10))

	passing := CompletionPolicy{CertificateEnabled: true, CertificateRequiresPassingScore: true}
	assert.True(t, CertificateEligible(passing, 70))
	assert.False(t, CertificateEligible(passing, 69))

	passing.MinimumScoreForCertificate = score(90)
	assert.False(t, CertificateEligible(passing, 85))
	assert.True(t, CertificateEligible(passing, 90))
}

func TestValidateScore(t *testing.T) {
	assert.NoError(t, ValidateScore("finalScore", 0))
	assert.NoError(t, ValidateScore("finalScore", 100))
	assert.ErrorIs(t, ValidateScore("finalScore", -1), ErrValidation)
	assert.ErrorIs(t, ValidateScore("finalScore", 100.5), ErrValidation)
}
