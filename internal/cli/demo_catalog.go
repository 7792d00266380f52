package cli

import "quiz-assessment-service/internal/domain"

// demoCategories and demoQuestions back the in-memory mode and `migrate --seed`.
func demoCategories() []domain.Category {
	return []domain.Category{
		{ID: 1, Name: "Arithmetic"},
		{ID: 2, Name: "Geography"},
		{ID: 3, Name: "Computing"},
	}
}

func demoQuestions() []domain.Question {
	return []domain.Question{
		{ID: "arith-1", CategoryID: 1, Type: domain.QuestionSingle, Prompt: "What is 2 + 2?", Choices: []string{"3", "4", "5"}, Correct: "4", Points: 1, Published: true},
		{ID: "arith-2", CategoryID: 1, Type: domain.QuestionSingle, Prompt: "What is 7 x 6?", Choices: []string{"42", "36", "48"}, Correct: "42", Points: 1, Published: true},
		{ID: "arith-3", CategoryID: 1, Type: domain.QuestionMultiple, Prompt: "Which of these are prime?", Choices: []string{"2", "3", "4", "9"}, Correct: "2,3", Points: 2, Published: true},
		{ID: "arith-4", CategoryID: 1, Type: domain.QuestionText, Prompt: "Write one hundred in digits.", Correct: "100", Points: 1, Published: true},
		{ID: "geo-1", CategoryID: 2, Type: domain.QuestionText, Prompt: "What is the capital of France?", Correct: "Paris", Points: 1, Published: true},
		{ID: "geo-2", CategoryID: 2, Type: domain.QuestionSingle, Prompt: "Which is the largest ocean?", Choices: []string{"Atlantic", "Pacific", "Indian"}, Correct: "Pacific", Points: 1, Published: true},
		{ID: "geo-3", CategoryID: 2, Type: domain.QuestionMultiple, Prompt: "Which countries border Spain?", Choices: []string{"France", "Portugal", "Italy", "Andorra"}, Correct: "France,Portugal,Andorra", Points: 2, Published: true},
		{ID: "comp-1", CategoryID: 3, Type: domain.QuestionSingle, Prompt: "How many bits are in a byte?", Choices: []string{"4", "8", "16"}, Correct: "8", Points: 1, Published: true},
		{ID: "comp-2", CategoryID: 3, Type: domain.QuestionText, Prompt: "Which protocol upgrades an HTTP connection for full-duplex messaging?", Correct: "WebSocket", Points: 1, Published: true},
		{ID: "comp-draft", CategoryID: 3, Type: domain.QuestionSingle, Prompt: "Draft question", Choices: []string{"a", "b"}, Correct: "a", Points: 1, Published: false},
	}
}
