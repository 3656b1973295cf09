package domain

import (
	"fmt"
	"math"
)

// DefaultPassingScore is used wherever a course leaves a threshold unset.
const DefaultPassingScore = 70.0

// EvaluateCompletion decides whether an attempt is accepted as a completion.
// It returns a *PolicyViolationError describing the first rule that fails.
//
// Quiz scores are compared against the course-level threshold, not the
// passing score configured on each quiz, which is not available here.
func EvaluateCompletion(p CompletionPolicy, finalScore float64, quizzes []QuizSubmission) error {
	if p.MinimumScoreForCompletion != nil && finalScore < *p.MinimumScoreForCompletion {
		return &PolicyViolationError{Reason: fmt.Sprintf(
			"final score %.1f is below the minimum of %.1f required for completion",
			finalScore, *p.MinimumScoreForCompletion)}
	}
	if p.CompletionMode == ModeModulesAndQuizzes && p.RequireAllQuizzesPassed {
		threshold := DefaultPassingScore
		if p.MinimumScoreForCompletion != nil {
			threshold = *p.MinimumScoreForCompletion
		}
		for _, q := range quizzes {
			if q.Score < threshold {
				return &PolicyViolationError{Reason: fmt.Sprintf(
					"quiz %s scored %.1f, all quizzes must reach %.1f",
					q.QuizID, q.Score, threshold)}
			}
		}
	}
	return nil
}

// CertificateEligible reports whether an accepted completion earns a certificate.
func CertificateEligible(p CompletionPolicy, finalScore float64) bool {
	if !p.CertificateEnabled {
		return false
	}
	if !p.CertificateRequiresPassingScore {
		return true
	}
	threshold := DefaultPassingScore
	if p.MinimumScoreForCertificate != nil {
		threshold = *p.MinimumScoreForCertificate
	}
	return finalScore >= threshold
}

// ValidateScore rejects scores outside 0..100.
func ValidateScore(field string, score float64) error {
	if score < 0 || score > PerfectScore || math.IsNaN(score) {
		return NewValidationError(field, "must be between 0 and 100")
	}
	return nil
}
