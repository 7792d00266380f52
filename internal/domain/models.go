package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// QuestionType selects how a stored answer is compared with the correct-answer spec.
type QuestionType string

const (
	QuestionSingle   QuestionType = "single"
	QuestionMultiple QuestionType = "multiple"
	QuestionText     QuestionType = "text"
)

// Distribution controls how the sampler weighs categories.
type Distribution string

const (
	DistributionProportional Distribution = "proportional"
	DistributionUniform      Distribution = "uniform"
)

// UncategorizedName labels questions whose category is unknown to the catalog.
const UncategorizedName = "Uncategorized"

// GuestUserName is recorded on results when the identity provider gave no display name.
const GuestUserName = "Guest User"

// Category groups catalog questions. Count is the number of published questions in it.
type Category struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Question is a catalog entry. Correct holds the correct-answer spec: a single value for
// single/text questions, a comma separated list for multiple.
type Question struct {
	ID         string       `json:"id"`
	CategoryID int64        `json:"categoryId"`
	Type       QuestionType `json:"type"`
	Prompt     string       `json:"prompt"`
	Choices    []string     `json:"choices,omitempty"`
	Correct    string       `json:"correct"`
	Points     int          `json:"points"` // defaults to 1 if zero
	Published  bool         `json:"published"`
}

// PointValue returns the question's points, treating unset as 1.
func (q Question) PointValue() int {
	if q.Points <= 0 {
		return 1
	}
	return q.Points
}

// Answer is a user's raw answer tagged with the question type it was given for.
// Single and text answers use Value; multiple-choice answers use Values.
type Answer struct {
	Kind   QuestionType
	Value  string
	Values []string
}

func SingleAnswer(v string) Answer { return Answer{Kind: QuestionSingle, Value: v} }

func MultipleAnswer(vs ...string) Answer { return Answer{Kind: QuestionMultiple, Values: vs} }

func TextAnswer(v string) Answer { return Answer{Kind: QuestionText, Value: v} }

// NewAnswer builds the answer variant for kind from raw client values.
// Scalar kinds take the first value.
func NewAnswer(kind QuestionType, raw []string) Answer {
	if kind == QuestionMultiple {
		return MultipleAnswer(raw...)
	}
	if len(raw) == 0 {
		return Answer{Kind: kind}
	}
	return Answer{Kind: kind, Value: raw[0]}
}

// IsEmpty reports whether the answer carries nothing worth storing.
func (a Answer) IsEmpty() bool {
	if a.Kind == QuestionMultiple {
		for _, v := range a.Values {
			if strings.TrimSpace(v) != "" {
				return false
			}
		}
		return true
	}
	return strings.TrimSpace(a.Value) == ""
}

// Serialize renders the answer for the selected_answer column.
// Multiple-choice answers are stored as a JSON array.
func (a Answer) Serialize() string {
	if a.Kind == QuestionMultiple {
		data, _ := json.Marshal(a.Values)
		return string(data)
	}
	return a.Value
}

// ParseStoredAnswer reverses Serialize.
func ParseStoredAnswer(kind QuestionType, stored string) Answer {
	if kind == QuestionMultiple {
		var values []string
		if err := json.Unmarshal([]byte(stored), &values); err != nil {
			values = []string{stored}
		}
		return MultipleAnswer(values...)
	}
	return Answer{Kind: kind, Value: stored}
}

// Settings are the quiz rules the sampler and assignment service run with.
type Settings struct {
	TimeLimit        time.Duration
	QuestionsPerQuiz int
	Distribution     Distribution
	AllowRetake      bool
}

// Validate rejects settings the lifecycle cannot run with.
func (s Settings) Validate() error {
	if s.TimeLimit <= 0 || s.QuestionsPerQuiz <= 0 {
		return ErrInvalidSettings
	}
	switch s.Distribution {
	case DistributionProportional, DistributionUniform:
		return nil
	default:
		return ErrInvalidSettings
	}
}

// Identity is the authenticated user as supplied by the identity provider.
type Identity struct {
	UserID      string
	DisplayName string
	Email       string
}

// RequestMeta is informational request data captured when an assignment starts.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// AssignmentState is the lifecycle position of an assignment.
type AssignmentState string

const (
	StateNone       AssignmentState = "none"
	StateInProgress AssignmentState = "in_progress"
	StateCompleted  AssignmentState = "completed"
)

// Assignment is one user's quiz attempt. Score, TotalPoints, Percentage and TimeTaken
// are only meaningful once IsCompleted is set, after which they never change.
type Assignment struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	UserName       string     `json:"userName"`
	UserEmail      string     `json:"userEmail"`
	AssignedAt     time.Time  `json:"assignedAt"`
	ExpiresAt      time.Time  `json:"expiresAt"`
	IsCompleted    bool       `json:"isCompleted"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	TotalQuestions int        `json:"totalQuestions"`
	Score          int        `json:"score"`
	TotalPoints    int        `json:"totalPoints"`
	Percentage     float64    `json:"percentage"`
	TimeTaken      int        `json:"timeTaken"` // seconds
	IPAddress      string     `json:"ipAddress"`
	UserAgent      string     `json:"userAgent"`
}

// State reports the lifecycle state. Expiry alone never moves an assignment out of
// StateInProgress; only completion does.
func (a Assignment) State() AssignmentState {
	if a.ID == "" {
		return StateNone
	}
	if a.IsCompleted {
		return StateCompleted
	}
	return StateInProgress
}

// IsExpired reports whether the deadline has been reached at now.
func (a Assignment) IsExpired(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}

// IsActive reports whether the assignment is in progress and still before its deadline.
func (a Assignment) IsActive(now time.Time) bool {
	return !a.IsCompleted && !a.IsExpired(now)
}

// PendingCompletion reports an in-progress assignment whose deadline has passed.
func (a Assignment) PendingCompletion(now time.Time) bool {
	return !a.IsCompleted && a.IsExpired(now)
}

// RemainingSeconds is the time left before the deadline, clamped at zero.
func (a Assignment) RemainingSeconds(now time.Time) int {
	if a.IsExpired(now) {
		return 0
	}
	return int(a.ExpiresAt.Sub(now) / time.Second)
}

// AssignmentQuestion is one sampled question slot. CategoryID is frozen at sampling time.
type AssignmentQuestion struct {
	AssignmentID   string     `json:"assignmentId"`
	QuestionID     string     `json:"questionId"`
	Position       int        `json:"position"`
	CategoryID     int64      `json:"categoryId"`
	SelectedAnswer *string    `json:"selectedAnswer,omitempty"`
	IsCorrect      bool       `json:"isCorrect"`
	PointsEarned   int        `json:"pointsEarned"`
	PointsPossible int        `json:"pointsPossible"`
	AnsweredAt     *time.Time `json:"answeredAt,omitempty"`
}

// Attempted reports whether a non-empty answer was stored.
func (q AssignmentQuestion) Attempted() bool {
	return q.SelectedAnswer != nil && strings.TrimSpace(*q.SelectedAnswer) != "" &&
		*q.SelectedAnswer != "null" && *q.SelectedAnswer != "[]"
}

// AnswerUpdate is the state written into an AssignmentQuestion by the answer recorder.
type AnswerUpdate struct {
	SelectedAnswer string
	IsCorrect      bool
	PointsEarned   int
	AnsweredAt     time.Time
}

// AnswerOutcome is what saving a single answer reports back.
type AnswerOutcome struct {
	QuestionID   string `json:"questionId"`
	Skipped      bool   `json:"skipped,omitempty"`
	IsCorrect    bool   `json:"isCorrect"`
	PointsEarned int    `json:"pointsEarned"`
}

// Completion holds the aggregate fields frozen onto an assignment when it completes.
type Completion struct {
	CompletedAt time.Time
	Score       int
	TotalPoints int
	Percentage  float64
	TimeTaken   int
}

// CategoryStat is one entry of a result's category breakdown.
type CategoryStat struct {
	CategoryID     int64  `json:"categoryId"`
	Name           string `json:"name"`
	Correct        int    `json:"correct"`
	Total          int    `json:"total"`
	PointsEarned   int    `json:"pointsEarned"`
	PointsPossible int    `json:"pointsPossible"`
}

// Result is the append-only record produced once per completed assignment.
type Result struct {
	AssignmentID      string         `json:"assignmentId"`
	UserID            string         `json:"userId"`
	UserName          string         `json:"userName"`
	UserEmail         string         `json:"userEmail"`
	Score             int            `json:"score"`
	TotalPoints       int            `json:"totalPoints"`
	Percentage        float64        `json:"percentage"`
	TotalQuestions    int            `json:"totalQuestions"`
	CorrectAnswers    int            `json:"correctAnswers"`
	TimeTaken         int            `json:"timeTaken"`
	StartTime         time.Time      `json:"startTime"`
	EndTime           time.Time      `json:"endTime"`
	IPAddress         string         `json:"ipAddress"`
	UserAgent         string         `json:"userAgent"`
	CategoryBreakdown []CategoryStat `json:"categoryBreakdown"`
	AutoSubmitted     bool           `json:"autoSubmitted"`
}

// QuestionView is a question as shown to the quiz taker; it never carries the answer key.
type QuestionView struct {
	ID             string       `json:"id"`
	Position       int          `json:"position"`
	CategoryID     int64        `json:"categoryId"`
	Type           QuestionType `json:"type"`
	Prompt         string       `json:"prompt"`
	Choices        []string     `json:"choices,omitempty"`
	Points         int          `json:"points"`
	SelectedAnswer *string      `json:"selectedAnswer,omitempty"`
}

// StartedAssignment is returned when a quiz starts.
type StartedAssignment struct {
	Assignment       Assignment     `json:"assignment"`
	Questions        []QuestionView `json:"questions"`
	TimeLimitSeconds int            `json:"timeLimitSeconds"`
}

// AssignmentView is an in-progress assignment as resumed by its owner.
type AssignmentView struct {
	Assignment       Assignment     `json:"assignment"`
	Questions        []QuestionView `json:"questions"`
	RemainingSeconds int            `json:"remainingSeconds"`
}

// ReviewItem is one question of a completed assignment as shown on the results report.
type ReviewItem struct {
	QuestionID     string  `json:"questionId"`
	Prompt         string  `json:"prompt"`
	CategoryName   string  `json:"categoryName"`
	SelectedAnswer *string `json:"selectedAnswer,omitempty"`
	IsCorrect      bool    `json:"isCorrect"`
	PointsEarned   int     `json:"pointsEarned"`
	PointsPossible int     `json:"pointsPossible"`
}

// ResultView is the frozen result plus its per-question review.
type ResultView struct {
	Result       Result       `json:"result"`
	Questions    []ReviewItem `json:"questions"`
	Attempted    int          `json:"attempted"`
	NotAttempted int          `json:"notAttempted"`
}
