package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-assessment-service/internal/app"
	"quiz-assessment-service/internal/domain"
	"quiz-assessment-service/internal/infra/memory"
)

func TestSweepCompletesOnlyExpiredAssignments(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	store := memory.NewAssignmentStore()
	service := newTestService(t, store, defaultSettings(), clk)

	stale, _ := service.Start(ctx, alice(), domain.RequestMeta{})
	if _, err := service.SaveAnswer(ctx, stale.Assignment.ID, "u1", "q1", []string{"4"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	clk.Advance(50 * time.Minute)
	fresh, _ := service.Start(ctx, domain.Identity{UserID: "u2"}, domain.RequestMeta{})
	clk.Advance(15 * time.Minute)

	sweeper := app.NewSweeper(store, service.Engine(), time.Minute).WithClock(clk.Now)
	report, err := sweeper.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if report.Found != 1 || report.Completed != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}

	result, err := store.GetResult(ctx, stale.Assignment.ID)
	if err != nil {
		t.Fatalf("expected result for swept assignment: %v", err)
	}
	if !result.AutoSubmitted || result.Score != 1 || result.UserName != "Alice" {
		t.Fatalf("unexpected swept result: %+v", result)
	}
	if a, _ := store.GetAssignment(ctx, fresh.Assignment.ID); a.IsCompleted {
		t.Fatalf("active assignment must not be swept")
	}

	report, _ = sweeper.SweepOnce(ctx)
	if report.Found != 0 || store.ResultCount(stale.Assignment.ID) != 1 {
		t.Fatalf("second sweep must not complete again: %+v", report)
	}
}

type heldLock struct{ calls int }

func (l *heldLock) TryLock(context.Context, time.Duration) (func(), bool, error) {
	l.calls++
	return nil, false, nil
}

func TestSweepSkipsTickWithoutLock(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	store := memory.NewAssignmentStore()
	service := newTestService(t, store, defaultSettings(), clk)
	started, _ := service.Start(ctx, alice(), domain.RequestMeta{})
	clk.Advance(2 * time.Hour)

	lock := &heldLock{}
	sweeper := app.NewSweeper(store, service.Engine(), time.Minute).WithClock(clk.Now).WithLock(lock, time.Minute)
	report, err := sweeper.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if lock.calls != 1 || report.Found != 0 {
		t.Fatalf("expected skipped tick, got calls=%d report=%+v", lock.calls, report)
	}
	if a, _ := store.GetAssignment(ctx, started.Assignment.ID); a.IsCompleted {
		t.Fatalf("assignment completed without holding the lock")
	}
}

type flakyStore struct {
	*memory.AssignmentStore
	failID string
}

func (s flakyStore) MarkCompleted(ctx context.Context, id string, c domain.Completion) (bool, error) {
	if id == s.failID {
		return false, errors.New("deadlock detected")
	}
	return s.AssignmentStore.MarkCompleted(ctx, id, c)
}

func TestSweepIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	inner := memory.NewAssignmentStore()
	service := newTestService(t, inner, defaultSettings(), clk)

	first, _ := service.Start(ctx, alice(), domain.RequestMeta{})
	second, _ := service.Start(ctx, domain.Identity{UserID: "u2"}, domain.RequestMeta{})
	clk.Advance(2 * time.Hour)

	store := flakyStore{AssignmentStore: inner, failID: first.Assignment.ID}
	engine := app.NewCompletionEngineWithClock(store, threeQuestionCatalog(), clk.Now)
	report, err := app.NewSweeper(store, engine, time.Minute).WithClock(clk.Now).SweepOnce(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if report.Found != 2 || report.Completed != 1 || report.Failed != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if a, _ := inner.GetAssignment(ctx, second.Assignment.ID); !a.IsCompleted {
		t.Fatalf("healthy assignment should be swept despite the failure")
	}
	if a, _ := inner.GetAssignment(ctx, first.Assignment.ID); a.IsCompleted {
		t.Fatalf("failed assignment should stay pending for the next tick")
	}
}
