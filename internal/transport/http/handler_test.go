package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"course-ledger-service/internal/app"
	"course-ledger-service/internal/domain"
	"course-ledger-service/internal/infra/memory"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

type testServer struct {
	*httptest.Server
	feed *app.ProgressFeed
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	courses := memory.NewCourseStore()
	audit := memory.NewAuditLog()
	feed := app.NewProgressFeed()
	lifecycle := app.NewCourseLifecycle(courses, audit, app.WithLifecycleLogger(logger))
	ledger := app.NewProgressLedger(app.LedgerDeps{
		Courses:      courses,
		Progress:     memory.NewProgressStore(),
		Certificates: memory.NewCertificateIssuer(),
		Achievements: memory.NewAchievementTracker(),
		Audit:        audit,
		Feed:         feed,
		Log:          logger,
	}, app.LedgerOptions{})

	mux := http.NewServeMux()
	NewHandler(lifecycle, ledger, logger).Register(mux)
	mux.HandleFunc("GET /ws/progress", NewWSHandler(feed, logger).ServeWS)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, feed: feed}
}

type identity struct {
	user, tenant string
	role         domain.Role
}

var (
	instructor = identity{"author-1", "t1", domain.RoleInstructor}
	reviewer   = identity{"rev-1", "t1", domain.RoleReviewer}
	student    = identity{"learner-1", "t1", domain.RoleLearner}
)

func (s *testServer) do(t *testing.T, who identity, method, path string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if who.user != "" {
		req.Header.Set(HeaderUserID, who.user)
		req.Header.Set(HeaderTenantID, who.tenant)
		req.Header.Set(HeaderRole, string(who.role))
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (s *testServer) publishedCourse(t *testing.T, in map[string]any) domain.Course {
	t.Helper()
	var c domain.Course
	if code := s.do(t, instructor, http.MethodPost, "/courses", in, &c); code != http.StatusCreated {
		t.Fatalf("create: status %d", code)
	}
	if code := s.do(t, instructor, http.MethodPost, "/courses/"+c.ID+"/submit", nil, &c); code != http.StatusOK {
		t.Fatalf("submit: status %d", code)
	}
	if code := s.do(t, reviewer, http.MethodPost, "/courses/"+c.ID+"/approve", nil, &c); code != http.StatusOK {
		t.Fatalf("approve: status %d", code)
	}
	return c
}

func TestCourseLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	c := srv.publishedCourse(t, map[string]any{"title": "Go Basics", "category": "programming"})
	if c.Status != domain.StatusPublished || c.ReviewerID != reviewer.user {
		t.Fatalf("unexpected course %+v", c)
	}

	var errBody errorBody
	code := srv.do(t, instructor, http.MethodPost, "/courses/"+c.ID+"/submit", nil, &errBody)
	if code != http.StatusConflict || errBody.Error != "invalid_state_transition" {
		t.Fatalf("expected 409 invalid_state_transition, got %d %+v", code, errBody)
	}

	code = srv.do(t, reviewer, http.MethodPost, "/courses/"+c.ID+"/publish", nil, &errBody)
	if code != http.StatusConflict {
		t.Fatalf("expected publish of published course to conflict, got %d", code)
	}

	code = srv.do(t, instructor, http.MethodDelete, "/courses/"+c.ID, nil, &c)
	if code != http.StatusOK || c.Status != domain.StatusArchived {
		t.Fatalf("expected archived after delete, got %d %s", code, c.Status)
	}
}

func TestErrorMapping(t *testing.T) {
	srv := newTestServer(t)

	var errBody errorBody
	if code := srv.do(t, identity{}, http.MethodGet, "/courses/x", nil, &errBody); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", code)
	}
	if code := srv.do(t, instructor, http.MethodGet, "/courses/missing", nil, &errBody); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
	code := srv.do(t, instructor, http.MethodPost, "/courses", map[string]any{"title": "Go"}, &errBody)
	if code != http.StatusBadRequest || errBody.Fields["category"] == "" {
		t.Fatalf("expected 400 with category field, got %d %+v", code, errBody)
	}
	if code := srv.do(t, student, http.MethodPost, "/courses", map[string]any{"title": "Go Basics", "category": "x"}, &errBody); code != http.StatusForbidden {
		t.Fatalf("expected 403 for learner create, got %d", code)
	}
}

func TestAttemptFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	c := srv.publishedCourse(t, map[string]any{
		"title":                           "Go Basics",
		"category":                        "programming",
		"certificateEnabled":              true,
		"certificateRequiresPassingScore": true,
		"minimumScoreForCertificate":      85,
	})
	base := "/courses/" + c.ID

	var errBody errorBody
	if code := srv.do(t, student, http.MethodPost, base+"/attempts/complete", map[string]any{"finalScore": 80}, &errBody); code != http.StatusNotFound {
		t.Fatalf("expected 404 before any attempt, got %d", code)
	}

	var rec domain.ProgressRecord
	if code := srv.do(t, student, http.MethodPost, base+"/attempts", nil, &rec); code != http.StatusCreated || rec.OpenAttempt != 1 {
		t.Fatalf("start: %d %+v", code, rec)
	}

	var res app.CompletionResult
	if code := srv.do(t, student, http.MethodPost, base+"/attempts/complete", map[string]any{"finalScore": 80}, &res); code != http.StatusOK {
		t.Fatalf("complete: status %d", code)
	}
	if res.XPAwarded != 425 || res.CertificateEarned {
		t.Fatalf("unexpected result %+v", res)
	}

	if code := srv.do(t, student, http.MethodPost, base+"/attempts/complete", map[string]any{"finalScore": 90}, &errBody); code != http.StatusConflict || errBody.Error != "no_active_attempt" {
		t.Fatalf("expected 409 no_active_attempt, got %d %+v", code, errBody)
	}

	_ = srv.do(t, student, http.MethodPost, base+"/attempts", nil, &rec)
	if code := srv.do(t, student, http.MethodPost, base+"/attempts/complete", map[string]any{"finalScore": 100}, &res); code != http.StatusOK {
		t.Fatalf("retake: status %d", code)
	}
	if res.XPAwarded != 125 || !res.CertificateEarned || res.CertificateID == "" {
		t.Fatalf("unexpected retake result %+v", res)
	}

	if code := srv.do(t, instructor, http.MethodGet, base+"/progress?userId="+student.user, nil, &rec); code != http.StatusOK {
		t.Fatalf("progress: status %d", code)
	}
	if rec.BestScore != 100 || rec.TotalXPEarned != 550 || len(rec.Attempts) != 2 {
		t.Fatalf("unexpected ledger %+v", rec)
	}

	other := identity{"learner-2", "t1", domain.RoleLearner}
	if code := srv.do(t, other, http.MethodGet, base+"/progress?userId="+student.user, nil, &errBody); code != http.StatusForbidden {
		t.Fatalf("expected 403 reading another learner, got %d", code)
	}
}

func TestAssignIsIdempotent(t *testing.T) {
	srv := newTestServer(t)
	c := srv.publishedCourse(t, map[string]any{"title": "Go Basics", "category": "programming"})

	var first, second domain.ProgressRecord
	body := map[string]any{"userId": student.user}
	if code := srv.do(t, instructor, http.MethodPost, "/courses/"+c.ID+"/assign", body, &first); code != http.StatusOK {
		t.Fatalf("assign: status %d", code)
	}
	_ = srv.do(t, instructor, http.MethodPost, "/courses/"+c.ID+"/assign", body, &second)
	if first.Version != second.Version || second.Status != domain.ProgressNotStarted || second.UserID != student.user {
		t.Fatalf("expected idempotent assign, got %+v then %+v", first, second)
	}
}
