package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckTransitionTable(t *testing.T) {
	allowed := map[Action][]CourseStatus{
		ActionSubmitForReview: {StatusDraft},
		ActionApprove:         {StatusPendingReview},
		ActionPublishDirectly: {StatusDraft, StatusPendingReview},
		ActionReject:          {StatusPendingReview},
		ActionRequestChanges:  {StatusPendingReview},
		ActionArchive:         {StatusPublished},
		ActionUnarchive:       {StatusArchived},
		ActionDelete:          {StatusDraft, StatusPendingReview, StatusPublished},
	}
	statuses := []CourseStatus{StatusDraft, StatusPendingReview, StatusPublished, StatusArchived}

	for action, from := range allowed {
		for _, status := range statuses {
			err := CheckTransition(status, action)
			if contains(from, status) {
				assert.NoError(t, err, "%s from %s", action, status)
				continue
			}
			require.Error(t, err, "%s from %s", action, status)
			assert.True(t, errors.Is(err, ErrInvalidStateTransition))
			var te *TransitionError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, status, te.From)
		}
	}
}

func TestTransitionErrorCarriesStates(t *testing.T) {
	err := CheckTransition(StatusPublished, ActionSubmitForReview)
	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, StatusPublished, te.From)
	assert.Equal(t, StatusPendingReview, te.To)
	assert.Contains(t, err.Error(), "published")
}

func TestReachable(t *testing.T) {
	assert.ElementsMatch(t, []CourseStatus{StatusPendingReview, StatusPublished, StatusArchived}, Reachable(StatusDraft))
	assert.ElementsMatch(t, []CourseStatus{StatusPublished}, Reachable(StatusArchived))
	for _, s := range Reachable(StatusPendingReview) {
		assert.True(t, s.Valid())
	}
}

func TestUnknownActionIsRejected(t *testing.T) {
	err := CheckTransition(StatusDraft, Action("course.teleported"))
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func contains(list []CourseStatus, s CourseStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
