package app

import (
	"slices"
	"strings"

	"quiz-assessment-service/internal/domain"
)

type answerChecker func(answer domain.Answer, correct string) bool

var answerCheckers = map[domain.QuestionType]answerChecker{
	domain.QuestionSingle:   checkSingle,
	domain.QuestionMultiple: checkMultiple,
	domain.QuestionText:     checkText,
}

// IsCorrect grades answer against the question's correct-answer spec. Scoring is binary.
func IsCorrect(q domain.Question, answer domain.Answer) bool {
	if answer.IsEmpty() || strings.TrimSpace(q.Correct) == "" {
		return false
	}
	check, ok := answerCheckers[q.Type]
	if !ok {
		return false
	}
	return check(answer, q.Correct)
}

// PointsFor returns the points earned for a graded answer.
func PointsFor(correct bool, possible int) int {
	if correct {
		return possible
	}
	return 0
}

func checkSingle(answer domain.Answer, correct string) bool {
	return strings.TrimSpace(answer.Value) == strings.TrimSpace(correct)
}

// checkMultiple requires the exact set of choices, ignoring order and case.
func checkMultiple(answer domain.Answer, correct string) bool {
	got := normalizeChoiceSet(answer.Values)
	want := normalizeChoiceSet(strings.Split(correct, ","))
	return len(got) > 0 && slices.Equal(got, want)
}

func checkText(answer domain.Answer, correct string) bool {
	return strings.EqualFold(strings.TrimSpace(answer.Value), strings.TrimSpace(correct))
}

func normalizeChoiceSet(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}
