package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateNewCourse(t *testing.T) {
	require.NoError(t, Validate(NewCourse{Title: "Go Basics", Category: "programming"}))

	err := Validate(NewCourse{Title: "Go", CompletionMode: "binge"})
	require.ErrorIs(t, err, ErrValidation)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "title")
	assert.Contains(t, ve.Fields, "category")
	assert.Contains(t, ve.Fields, "completionMode")
}

func TestValidateRejectsOutOfRangeThreshold(t *testing.T) {
	err := Validate(NewCourse{Title: "Go Basics", Category: "programming", MinimumScoreForCompletion: score(140)})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCoursePatchApply(t *testing.T) {
	c := Course{Title: "Old", Category: "a", Status: StatusPublished}
	title := "  New title "
	enabled := true
	CoursePatch{Title: &title, CertificateEnabled: &enabled, MinimumScoreForCertificate: score(80)}.Apply(&c)

	assert.Equal(t, "New title", c.Title)
	assert.Equal(t, "a", c.Category)
	assert.True(t, c.CertificateEnabled)
	assert.Equal(t, 80.0, *c.MinimumScoreForCertificate)
	assert.Equal(t, StatusPublished, c.Status)
}
