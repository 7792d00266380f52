package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quiz-assessment-service/internal/app"
	"quiz-assessment-service/internal/domain"
	"quiz-assessment-service/internal/infra/memory"
)

func TestCompleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	store := memory.NewAssignmentStore()
	service := newTestService(t, store, defaultSettings(), clk)
	started, _ := service.Start(ctx, alice(), domain.RequestMeta{})
	id := started.Assignment.ID

	engine := app.NewCompletionEngineWithClock(store, threeQuestionCatalog(), clk.Now)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(auto bool) {
			defer wg.Done()
			won, err := engine.Complete(ctx, id, auto)
			if err != nil {
				t.Errorf("complete: %v", err)
				return
			}
			if won {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i%2 == 0)
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winning completion, got %d", wins)
	}
	if n := store.ResultCount(id); n != 1 {
		t.Fatalf("expected exactly one result, got %d", n)
	}

	clk.Advance(time.Hour)
	won, err := engine.Complete(ctx, id, true)
	if err != nil || won {
		t.Fatalf("expected no-op on completed assignment, got won=%v err=%v", won, err)
	}
}

type failingResultStore struct {
	*memory.AssignmentStore
}

func (s failingResultStore) InsertResult(context.Context, domain.Result) error {
	return errors.New("disk full")
}

func TestCompleteReportsMissingResult(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	store := failingResultStore{memory.NewAssignmentStore()}
	service := newTestService(t, store, defaultSettings(), clk)
	started, _ := service.Start(ctx, alice(), domain.RequestMeta{})

	_, err := service.Submit(ctx, started.Assignment.ID, "u1", nil, nil)
	if !errors.Is(err, domain.ErrResultNotRecorded) {
		t.Fatalf("expected result not recorded, got %v", err)
	}
	if domain.IsPrecondition(err) {
		t.Fatalf("missing result must not look like a quiz-rule failure")
	}

	a, _ := store.GetAssignment(ctx, started.Assignment.ID)
	if !a.IsCompleted {
		t.Fatalf("expected assignment to stay completed")
	}
}

type failingListStore struct {
	*memory.AssignmentStore
}

func (s failingListStore) ListQuestions(context.Context, string) ([]domain.AssignmentQuestion, error) {
	return nil, errors.New("connection reset")
}

func TestCompleteWrapsStorageFailures(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewAssignmentStore()
	a, err := inner.CreateAssignment(ctx, domain.Assignment{UserID: "u1", AssignedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	engine := app.NewCompletionEngine(failingListStore{inner}, threeQuestionCatalog())
	_, err = engine.Complete(ctx, a.ID, false)
	var storageErr *domain.StorageError
	if !errors.As(err, &storageErr) || storageErr.AssignmentID != a.ID {
		t.Fatalf("expected storage error for %s, got %v", a.ID, err)
	}

	got, _ := inner.GetAssignment(ctx, a.ID)
	if got.IsCompleted {
		t.Fatalf("failed completion must leave the assignment in progress")
	}
}

// answerDuringCompletionStore saves an answer for q1 from another goroutine right after
// the completion engine has read the question rows.
type answerDuringCompletionStore struct {
	*memory.AssignmentStore
	once    sync.Once
	saveErr chan error
}

func (s *answerDuringCompletionStore) ListQuestions(ctx context.Context, assignmentID string) ([]domain.AssignmentQuestion, error) {
	rows, err := s.AssignmentStore.ListQuestions(ctx, assignmentID)
	s.once.Do(func() {
		started := make(chan struct{})
		go func() {
			close(started)
			s.saveErr <- s.AssignmentStore.SaveAnswer(ctx, assignmentID, "q1", domain.AnswerUpdate{
				SelectedAnswer: `"4"`,
				IsCorrect:      true,
				PointsEarned:   1,
				AnsweredAt:     time.Now(),
			})
		}()
		<-started
		time.Sleep(20 * time.Millisecond)
	})
	return rows, err
}

func TestCompleteExcludesConcurrentAnswerSave(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	inner := memory.NewAssignmentStore()
	service := newTestService(t, inner, defaultSettings(), clk)
	started, err := service.Start(ctx, alice(), domain.RequestMeta{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	id := started.Assignment.ID

	store := &answerDuringCompletionStore{AssignmentStore: inner, saveErr: make(chan error, 1)}
	engine := app.NewCompletionEngineWithClock(store, threeQuestionCatalog(), clk.Now)
	won, err := engine.Complete(ctx, id, false)
	if err != nil || !won {
		t.Fatalf("complete: won=%v err=%v", won, err)
	}

	if err := <-store.saveErr; !errors.Is(err, domain.ErrAlreadyCompleted) {
		t.Fatalf("expected save racing completion to fail with already completed, got %v", err)
	}
	row, err := inner.GetQuestion(ctx, id, "q1")
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if row.SelectedAnswer != nil || row.IsCorrect || row.PointsEarned != 0 {
		t.Fatalf("answer stored after completion: %+v", row)
	}
	result, err := inner.GetResult(ctx, id)
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	if result.Score != 0 || result.CorrectAnswers != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestPercentage(t *testing.T) {
	cases := []struct {
		score, total int
		want         float64
	}{
		{1, 3, 33.33},
		{2, 3, 66.67},
		{0, 0, 0},
		{5, 5, 100},
		{1, 8, 12.5},
	}
	for _, tc := range cases {
		if got := app.Percentage(tc.score, tc.total); got != tc.want {
			t.Fatalf("percentage(%d, %d) = %v, want %v", tc.score, tc.total, got, tc.want)
		}
	}
}

func TestBreakdownGroupsByFrozenCategory(t *testing.T) {
	rows := []domain.AssignmentQuestion{
		{CategoryID: 2, IsCorrect: true, PointsEarned: 2, PointsPossible: 2},
		{CategoryID: 0, PointsPossible: 1},
		{CategoryID: 2, PointsPossible: 1},
	}
	names := map[int64]string{0: domain.UncategorizedName, 2: "Geography"}
	stats := app.Breakdown(rows, func(id int64) string { return names[id] })

	if len(stats) != 2 {
		t.Fatalf("expected 2 groups, got %+v", stats)
	}
	if stats[0].Name != domain.UncategorizedName || stats[0].Total != 1 {
		t.Fatalf("unexpected first group: %+v", stats[0])
	}
	if g := stats[1]; g.Correct != 1 || g.Total != 2 || g.PointsEarned != 2 || g.PointsPossible != 3 {
		t.Fatalf("unexpected geography group: %+v", g)
	}

	encoded, err := app.EncodeBreakdown(stats)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := app.DecodeBreakdown(encoded)
	if err != nil || len(decoded) != 2 || decoded[1] != stats[1] {
		t.Fatalf("breakdown did not survive storage: %+v (%v)", decoded, err)
	}
}
