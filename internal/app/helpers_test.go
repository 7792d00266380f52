package app_test

import (
	"sync"
	"testing"
	"time"

	"quiz-assessment-service/internal/app"
	"quiz-assessment-service/internal/domain"
	"quiz-assessment-service/internal/infra/memory"
)

// clock is a settable test clock.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func defaultSettings() domain.Settings {
	return domain.Settings{
		TimeLimit:        time.Hour,
		QuestionsPerQuiz: 3,
		Distribution:     domain.DistributionProportional,
	}
}

func threeQuestionCatalog() *memory.Catalog {
	return memory.NewCatalog(
		[]domain.Category{{ID: 1, Name: "Math"}, {ID: 2, Name: "Geography"}},
		[]domain.Question{
			{ID: "q1", CategoryID: 1, Type: domain.QuestionSingle, Prompt: "2 + 2?", Choices: []string{"3", "4"}, Correct: "4", Points: 1, Published: true},
			{ID: "q2", CategoryID: 1, Type: domain.QuestionMultiple, Prompt: "Primes?", Choices: []string{"2", "3", "4"}, Correct: "2,3", Points: 1, Published: true},
			{ID: "q3", CategoryID: 2, Type: domain.QuestionText, Prompt: "Capital of France?", Correct: "Paris", Points: 1, Published: true},
		},
	)
}

func newTestService(t *testing.T, repo app.AssignmentRepository, settings domain.Settings, clk *clock) *app.AssignmentService {
	t.Helper()
	service, err := app.NewAssignmentServiceWithClock(repo, threeQuestionCatalog(), settings, clk.Now)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

func alice() domain.Identity {
	return domain.Identity{UserID: "u1", DisplayName: "Alice", Email: "alice@example.com"}
}
