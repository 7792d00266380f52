package app_test

import (
	"testing"

	"quiz-assessment-service/internal/app"
	"quiz-assessment-service/internal/domain"
)

func TestIsCorrect(t *testing.T) {
	single := domain.Question{Type: domain.QuestionSingle, Correct: "Blue"}
	multiple := domain.Question{Type: domain.QuestionMultiple, Correct: "a, b"}
	text := domain.Question{Type: domain.QuestionText, Correct: "Paris"}

	cases := []struct {
		name   string
		q      domain.Question
		answer domain.Answer
		want   bool
	}{
		{"single exact", single, domain.SingleAnswer("Blue"), true},
		{"single trimmed", single, domain.SingleAnswer(" Blue "), true},
		{"single case sensitive", single, domain.SingleAnswer("blue"), false},
		{"multiple any order", multiple, domain.MultipleAnswer("B", "a"), true},
		{"multiple subset", multiple, domain.MultipleAnswer("a"), false},
		{"multiple superset", multiple, domain.MultipleAnswer("a", "b", "c"), false},
		{"multiple duplicate selection", multiple, domain.MultipleAnswer("a", "A", "b"), false},
		{"multiple one different", multiple, domain.MultipleAnswer("a", "c"), false},
		{"text case insensitive", text, domain.TextAnswer(" paris"), true},
		{"text wrong", text, domain.TextAnswer("Lyon"), false},
		{"empty answer", text, domain.TextAnswer("  "), false},
		{"empty key", domain.Question{Type: domain.QuestionText}, domain.TextAnswer("x"), false},
		{"unknown type", domain.Question{Type: "essay", Correct: "x"}, domain.TextAnswer("x"), false},
	}
	for _, tc := range cases {
		if got := app.IsCorrect(tc.q, tc.answer); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestPointsForIsBinary(t *testing.T) {
	if app.PointsFor(true, 3) != 3 || app.PointsFor(false, 3) != 0 {
		t.Fatalf("expected all-or-nothing points")
	}
}
