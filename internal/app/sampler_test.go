package app_test

import (
	"context"
	"errors"
	"testing"

	"quiz-assessment-service/internal/app"
	"quiz-assessment-service/internal/domain"
	"quiz-assessment-service/internal/infra/memory"
)

func TestCategoryQuota(t *testing.T) {
	cases := []struct {
		target, count, total, want int
	}{
		{40, 10, 100, 4},
		{40, 1, 100, 1}, // rounds to 0, floor of 1
		{2, 3, 4, 2},
		{2, 1, 4, 1},
		{10, 5, 5, 10},
		{10, 0, 0, 0},
	}
	for _, tc := range cases {
		if got := app.CategoryQuota(tc.target, tc.count, tc.total); got != tc.want {
			t.Fatalf("quota(%d, %d, %d) = %d, want %d", tc.target, tc.count, tc.total, got, tc.want)
		}
	}
}

func TestSampleProportionalTruncatesLaterCategories(t *testing.T) {
	catalog := memory.NewCatalog(
		[]domain.Category{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}},
		[]domain.Question{
			{ID: "a1", CategoryID: 1, Type: domain.QuestionSingle, Correct: "x", Published: true},
			{ID: "a2", CategoryID: 1, Type: domain.QuestionSingle, Correct: "x", Published: true},
			{ID: "a3", CategoryID: 1, Type: domain.QuestionSingle, Correct: "x", Published: true},
			{ID: "b1", CategoryID: 2, Type: domain.QuestionSingle, Correct: "x", Published: true},
		},
	)
	sampler := app.NewSampler(catalog)

	for i := 0; i < 20; i++ {
		picked, err := sampler.Sample(context.Background(), 2, domain.DistributionProportional)
		if err != nil {
			t.Fatalf("sample: %v", err)
		}
		if len(picked) != 2 {
			t.Fatalf("expected 2 questions, got %d", len(picked))
		}
		for _, q := range picked {
			if q.CategoryID != 1 {
				t.Fatalf("expected both questions from A, got %+v", picked)
			}
		}
	}
}

func TestSampleReturnsDistinctPublishedQuestions(t *testing.T) {
	catalog := threeQuestionCatalog()
	catalog.Put(domain.Question{ID: "draft", CategoryID: 1, Type: domain.QuestionSingle, Correct: "x"})
	sampler := app.NewSampler(catalog)

	for _, mode := range []domain.Distribution{domain.DistributionProportional, domain.DistributionUniform} {
		picked, err := sampler.Sample(context.Background(), 10, mode)
		if err != nil {
			t.Fatalf("%s: sample: %v", mode, err)
		}
		if len(picked) != 3 {
			t.Fatalf("%s: expected all 3 published questions, got %d", mode, len(picked))
		}
		seen := map[string]bool{}
		for _, q := range picked {
			if !q.Published || seen[q.ID] {
				t.Fatalf("%s: unexpected question %+v in %+v", mode, q, picked)
			}
			seen[q.ID] = true
		}
	}
}

func TestSampleUniformReturnsExactTarget(t *testing.T) {
	catalog := threeQuestionCatalog()
	for _, id := range []string{"q4", "q5", "q6", "q7"} {
		catalog.Put(domain.Question{ID: id, CategoryID: 2, Type: domain.QuestionText, Correct: "x", Points: 1, Published: true})
	}
	sampler := app.NewSampler(catalog)

	for i := 0; i < 20; i++ {
		picked, err := sampler.Sample(context.Background(), 4, domain.DistributionUniform)
		if err != nil {
			t.Fatalf("sample: %v", err)
		}
		if len(picked) != 4 {
			t.Fatalf("expected exactly 4 questions from a pool of 7, got %d", len(picked))
		}
		seen := map[string]bool{}
		for _, q := range picked {
			if seen[q.ID] {
				t.Fatalf("duplicate question %s in %+v", q.ID, picked)
			}
			seen[q.ID] = true
		}
	}
}

func TestSampleEmptyCatalog(t *testing.T) {
	sampler := app.NewSampler(memory.NewCatalog(nil, nil))
	if _, err := sampler.Sample(context.Background(), 5, domain.DistributionProportional); !errors.Is(err, domain.ErrNoQuestionsAvailable) {
		t.Fatalf("expected no questions available, got %v", err)
	}
	if _, err := sampler.Sample(context.Background(), 0, domain.DistributionUniform); !errors.Is(err, domain.ErrInvalidSettings) {
		t.Fatalf("expected invalid settings, got %v", err)
	}
}
