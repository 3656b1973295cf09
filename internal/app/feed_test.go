package app_test

import (
	"context"
	"testing"

	"course-ledger-service/internal/app"
	"course-ledger-service/internal/domain"
	"course-ledger-service/internal/infra/memory"
)

func TestFeedReceivesCompletion(t *testing.T) {
	ctx := context.Background()
	courses := memory.NewCourseStore()
	if _, err := courses.CreateCourse(ctx, domain.Course{TenantID: learner.TenantID, ID: learner.CourseID, Title: "Go"}); err != nil {
		t.Fatalf("seed course: %v", err)
	}
	feed := app.NewProgressFeed()
	ledger := app.NewProgressLedger(app.LedgerDeps{
		Courses:  courses,
		Progress: memory.NewProgressStore(),
		Feed:     feed,
	}, app.LedgerOptions{})

	ch, cancel := feed.Subscribe(learner.TenantID, learner.UserID)
	defer cancel()

	if _, err := ledger.StartAttempt(ctx, learner); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := ledger.CompleteAttempt(ctx, app.CompleteAttemptRequest{ProgressKey: learner, FinalScore: 80}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	update := <-ch
	if update.XPAwarded != 425 || update.BestScore != 80 || update.AttemptNumber != 1 {
		t.Fatalf("unexpected update %+v", update)
	}
}

func TestFeedDropsStaleUpdatesForSlowSubscribers(t *testing.T) {
	feed := app.NewProgressFeed()
	ch, cancel := feed.Subscribe("t1", "u1")
	defer cancel()

	for i := 1; i <= 20; i++ {
		feed.Publish(domain.ProgressUpdate{TenantID: "t1", UserID: "u1", AttemptNumber: i})
	}

	var last domain.ProgressUpdate
	for len(ch) > 0 {
		last = <-ch
	}
	if last.AttemptNumber != 20 {
		t.Fatalf("expected newest update to survive, got %d", last.AttemptNumber)
	}
}

func TestFeedCancelRemovesSubscriber(t *testing.T) {
	feed := app.NewProgressFeed()
	_, cancel := feed.Subscribe("t1", "u1")
	neighbour, cancelOther := feed.Subscribe("t1", "u2")
	defer cancelOther()

	cancel()
	cancel()
	if n := feed.Subscribers("t1", "u1"); n != 0 {
		t.Fatalf("expected no subscribers, got %d", n)
	}

	feed.Publish(domain.ProgressUpdate{TenantID: "t1", UserID: "u1"})
	if len(neighbour) != 0 {
		t.Fatalf("update leaked to another learner")
	}
}
