package domain

// Action names a lifecycle operation; the string doubles as the audit action.
type Action string

const (
	ActionCreate          Action = "course.created"
	ActionUpdate          Action = "course.updated"
	ActionSubmitForReview Action = "course.submitted_for_review"
	ActionApprove         Action = "course.approved"
	ActionPublishDirectly Action = "course.published_directly"
	ActionReject          Action = "course.rejected"
	ActionRequestChanges  Action = "course.changes_requested"
	ActionArchive         Action = "course.archived"
	ActionUnarchive       Action = "course.unarchived"
	ActionDelete          Action = "course.deleted"
)

type transition struct {
	from []CourseStatus
	to   CourseStatus
}

// transitions is the complete set of guarded status changes. Operations not
// listed here (create, update) do not move the status.
var transitions = map[Action]transition{
	ActionSubmitForReview: {from: []CourseStatus{StatusDraft}, to: StatusPendingReview},
	ActionApprove:         {from: []CourseStatus{StatusPendingReview}, to: StatusPublished},
	ActionPublishDirectly: {from: []CourseStatus{StatusDraft, StatusPendingReview}, to: StatusPublished},
	ActionReject:          {from: []CourseStatus{StatusPendingReview}, to: StatusDraft},
	ActionRequestChanges:  {from: []CourseStatus{StatusPendingReview}, to: StatusDraft},
	ActionArchive:         {from: []CourseStatus{StatusPublished}, to: StatusArchived},
	ActionUnarchive:       {from: []CourseStatus{StatusArchived}, to: StatusPublished},
	ActionDelete:          {from: []CourseStatus{StatusDraft, StatusPendingReview, StatusPublished}, to: StatusArchived},
}

// Target returns the status an action moves a course to.
func Target(action Action) (CourseStatus, bool) {
	t, ok := transitions[action]
	return t.to, ok
}

// CheckTransition returns a *TransitionError when action may not run from the given status.
func CheckTransition(from CourseStatus, action Action) error {
	t, ok := transitions[action]
	if !ok {
		return &TransitionError{Action: action, From: from}
	}
	for _, allowed := range t.from {
		if allowed == from {
			return nil
		}
	}
	return &TransitionError{Action: action, From: from, To: t.to}
}

// Reachable lists every status an action can take a course to from the given status.
func Reachable(from CourseStatus) []CourseStatus {
	seen := make(map[CourseStatus]bool)
	var out []CourseStatus
	for _, action := range allActions {
		if CheckTransition(from, action) != nil {
			continue
		}
		to := transitions[action].to
		if !seen[to] {
			seen[to] = true
			out = append(out, to)
		}
	}
	return out
}

var allActions = []Action{
	ActionSubmitForReview,
	ActionApprove,
	ActionPublishDirectly,
	ActionReject,
	ActionRequestChanges,
	ActionArchive,
	ActionUnarchive,
	ActionDelete,
}
