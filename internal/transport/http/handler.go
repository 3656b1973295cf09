package http

import (
	"context"
	"fmt"
	"net/http"

	"course-ledger-service/internal/app"
	"course-ledger-service/internal/domain"
	"github.com/sirupsen/logrus"
)

// Handler exposes the course lifecycle and progress ledger as JSON endpoints.
type Handler struct {
	lifecycle *app.CourseLifecycle
	ledger    *app.ProgressLedger
	log       logrus.FieldLogger
}

func NewHandler(lifecycle *app.CourseLifecycle, ledger *app.ProgressLedger, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{lifecycle: lifecycle, ledger: ledger, log: log}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /courses", h.withActor(h.createCourse))
	mux.HandleFunc("GET /courses/{courseId}", h.withActor(h.getCourse))
	mux.HandleFunc("PATCH /courses/{courseId}", h.withActor(h.updateCourse))
	mux.HandleFunc("DELETE /courses/{courseId}", h.withActor(h.deleteCourse))

	mux.HandleFunc("POST /courses/{courseId}/submit", h.withActor(h.simpleTransition(h.lifecycle.SubmitForReview)))
	mux.HandleFunc("POST /courses/{courseId}/approve", h.withActor(h.simpleTransition(h.lifecycle.Approve)))
	mux.HandleFunc("POST /courses/{courseId}/publish", h.withActor(h.simpleTransition(h.lifecycle.PublishDirectly)))
	mux.HandleFunc("POST /courses/{courseId}/archive", h.withActor(h.simpleTransition(h.lifecycle.Archive)))
	mux.HandleFunc("POST /courses/{courseId}/unarchive", h.withActor(h.simpleTransition(h.lifecycle.Unarchive)))
	mux.HandleFunc("POST /courses/{courseId}/reject", h.withActor(h.rejectCourse))
	mux.HandleFunc("POST /courses/{courseId}/request-changes", h.withActor(h.requestChanges))

	mux.HandleFunc("POST /courses/{courseId}/assign", h.withActor(h.assign))
	mux.HandleFunc("POST /courses/{courseId}/attempts", h.withActor(h.startAttempt))
	mux.HandleFunc("POST /courses/{courseId}/attempts/complete", h.withActor(h.completeAttempt))
	mux.HandleFunc("GET /courses/{courseId}/progress", h.withActor(h.progress))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
}

func (h *Handler) createCourse(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	var in domain.NewCourse
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.log, err)
		return
	}
	course, err := h.lifecycle.Create(r.Context(), actor, in)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, course)
}

func (h *Handler) getCourse(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	course, err := h.lifecycle.Get(r.Context(), actor.TenantID, r.PathValue("courseId"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

func (h *Handler) updateCourse(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	var patch domain.CoursePatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, h.log, err)
		return
	}
	course, err := h.lifecycle.Update(r.Context(), actor, r.PathValue("courseId"), patch)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

func (h *Handler) deleteCourse(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	course, err := h.lifecycle.Delete(r.Context(), actor, r.PathValue("courseId"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

type transitionFunc func(ctx context.Context, actor domain.Actor, courseID string) (domain.Course, error)

func (h *Handler) simpleTransition(fn transitionFunc) actorHandler {
	return func(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
		course, err := fn(r.Context(), actor, r.PathValue("courseId"))
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		writeJSON(w, http.StatusOK, course)
	}
}

type rejectBody struct {
	Comments string `json:"comments"`
}

func (h *Handler) rejectCourse(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	var body rejectBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, h.log, err)
		return
	}
	course, err := h.lifecycle.Reject(r.Context(), actor, r.PathValue("courseId"), body.Comments)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

type requestChangesBody struct {
	Changes []string `json:"changes"`
}

func (h *Handler) requestChanges(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	var body requestChangesBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, h.log, err)
		return
	}
	course, err := h.lifecycle.RequestChanges(r.Context(), actor, r.PathValue("courseId"), body.Changes)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

type assignBody struct {
	UserID string `json:"userId"`
}

// assign lets staff enrol a learner; a learner may only enrol themselves.
func (h *Handler) assign(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	var body assignBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, h.log, err)
		return
	}
	learner, err := targetLearner(actor, body.UserID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	rec, err := h.ledger.Assign(r.Context(), progressKey(actor, learner, r))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) startAttempt(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	rec, err := h.ledger.StartAttempt(r.Context(), progressKey(actor, actor.UserID, r))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

type completeBody struct {
	FinalScore       float64                 `json:"finalScore"`
	CompletedLessons []string                `json:"completedLessons"`
	QuizScores       []domain.QuizSubmission `json:"quizScores"`
	UserFullName     string                  `json:"userFullName"`
}

func (h *Handler) completeAttempt(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	var body completeBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, h.log, err)
		return
	}
	res, err := h.ledger.CompleteAttempt(r.Context(), app.CompleteAttemptRequest{
		ProgressKey:      progressKey(actor, actor.UserID, r),
		FinalScore:       body.FinalScore,
		CompletedLessons: body.CompletedLessons,
		QuizScores:       body.QuizScores,
		UserFullName:     body.UserFullName,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) progress(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	learner, err := targetLearner(actor, r.URL.Query().Get("userId"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	rec, err := h.ledger.Progress(r.Context(), progressKey(actor, learner, r))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func targetLearner(actor domain.Actor, userID string) (string, error) {
	if userID == "" || userID == actor.UserID {
		return actor.UserID, nil
	}
	if actor.Role == domain.RoleLearner {
		return "", fmt.Errorf("act for another learner: %w", domain.ErrPermissionDenied)
	}
	return userID, nil
}

func progressKey(actor domain.Actor, userID string, r *http.Request) domain.ProgressKey {
	return domain.ProgressKey{TenantID: actor.TenantID, UserID: userID, CourseID: r.PathValue("courseId")}
}
