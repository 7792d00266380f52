package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"quiz-assessment-service/internal/domain"
)

// AssignmentStore is an in-memory implementation of app.AssignmentRepository.
// Each method runs under mu. Completion spans several calls, so it also holds the
// per-assignment lock from LockAssignment, which SaveAnswer takes before mu.
type AssignmentStore struct {
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	mu          sync.RWMutex
	assignments map[string]*domain.Assignment
	questions   map[string][]domain.AssignmentQuestion
	results     []domain.Result
	newID       func() string
}

func NewAssignmentStore() *AssignmentStore {
	return &AssignmentStore{
		locks:       make(map[string]*sync.Mutex),
		assignments: make(map[string]*domain.Assignment),
		questions:   make(map[string][]domain.AssignmentQuestion),
		newID:       uuid.NewString,
	}
}

func (s *AssignmentStore) CreateAssignment(_ context.Context, a domain.Assignment, questions []domain.AssignmentQuestion) (domain.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.assignments {
		if existing.UserID == a.UserID && !existing.IsCompleted {
			return domain.Assignment{}, domain.ErrAlreadyActive
		}
	}

	a.ID = s.newID()
	a.IsCompleted = false
	a.CompletedAt = nil
	a.TotalQuestions = len(questions)
	stored := a
	s.assignments[a.ID] = &stored

	rows := make([]domain.AssignmentQuestion, len(questions))
	for i, q := range questions {
		q.AssignmentID = a.ID
		q.Position = i
		rows[i] = q
	}
	s.questions[a.ID] = rows
	return a, nil
}

func (s *AssignmentStore) GetAssignment(_ context.Context, assignmentID string) (domain.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[assignmentID]
	if !ok {
		return domain.Assignment{}, domain.ErrNotFound
	}
	return *a, nil
}

func (s *AssignmentStore) ListOpen(_ context.Context, userID string) ([]domain.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Assignment
	for _, a := range s.assignments {
		if a.UserID == userID && !a.IsCompleted {
			out = append(out, *a)
		}
	}
	sortByAssignedAt(out)
	return out, nil
}

func (s *AssignmentStore) HasCompleted(_ context.Context, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.assignments {
		if a.UserID == userID && a.IsCompleted {
			return true, nil
		}
	}
	return false, nil
}

func (s *AssignmentStore) ListQuestions(_ context.Context, assignmentID string) ([]domain.AssignmentQuestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.questions[assignmentID]
	out := make([]domain.AssignmentQuestion, len(rows))
	for i, row := range rows {
		out[i] = copyQuestion(row)
	}
	return out, nil
}

func (s *AssignmentStore) GetQuestion(_ context.Context, assignmentID, questionID string) (domain.AssignmentQuestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, row := range s.questions[assignmentID] {
		if row.QuestionID == questionID {
			return copyQuestion(row), nil
		}
	}
	return domain.AssignmentQuestion{}, domain.ErrQuestionNotFound
}

// LockAssignment blocks answer saving for the assignment until unlock is called.
func (s *AssignmentStore) LockAssignment(_ context.Context, assignmentID string) (func(), error) {
	l := s.assignmentLock(assignmentID)
	l.Lock()
	return l.Unlock, nil
}

func (s *AssignmentStore) assignmentLock(assignmentID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[assignmentID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[assignmentID] = l
	}
	return l
}

func (s *AssignmentStore) SaveAnswer(_ context.Context, assignmentID, questionID string, update domain.AnswerUpdate) error {
	l := s.assignmentLock(assignmentID)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.assignments[assignmentID]
	if !ok {
		return domain.ErrNotFound
	}
	if a.IsCompleted {
		return domain.ErrAlreadyCompleted
	}
	rows := s.questions[assignmentID]
	for i := range rows {
		if rows[i].QuestionID != questionID {
			continue
		}
		selected := update.SelectedAnswer
		answeredAt := update.AnsweredAt
		rows[i].SelectedAnswer = &selected
		rows[i].IsCorrect = update.IsCorrect
		rows[i].PointsEarned = update.PointsEarned
		rows[i].AnsweredAt = &answeredAt
		return nil
	}
	return domain.ErrQuestionNotFound
}

func (s *AssignmentStore) MarkCompleted(_ context.Context, assignmentID string, c domain.Completion) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.assignments[assignmentID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if a.IsCompleted {
		return false, nil
	}
	completedAt := c.CompletedAt
	a.IsCompleted = true
	a.CompletedAt = &completedAt
	a.Score = c.Score
	a.TotalPoints = c.TotalPoints
	a.Percentage = c.Percentage
	a.TimeTaken = c.TimeTaken
	return true, nil
}

func (s *AssignmentStore) InsertResult(_ context.Context, r domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
	return nil
}

func (s *AssignmentStore) GetResult(_ context.Context, assignmentID string) (domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.results) - 1; i >= 0; i-- {
		if s.results[i].AssignmentID == assignmentID {
			return s.results[i], nil
		}
	}
	return domain.Result{}, domain.ErrResultNotFound
}

// ResultCount reports how many results are stored for an assignment.
func (s *AssignmentStore) ResultCount(assignmentID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.results {
		if r.AssignmentID == assignmentID {
			n++
		}
	}
	return n
}

func (s *AssignmentStore) ListExpired(_ context.Context, now time.Time) ([]domain.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Assignment
	for _, a := range s.assignments {
		if a.PendingCompletion(now) {
			out = append(out, *a)
		}
	}
	sortByAssignedAt(out)
	return out, nil
}

func sortByAssignedAt(assignments []domain.Assignment) {
	sort.Slice(assignments, func(i, j int) bool {
		return assignments[i].AssignedAt.Before(assignments[j].AssignedAt)
	})
}

func copyQuestion(row domain.AssignmentQuestion) domain.AssignmentQuestion {
	if row.SelectedAnswer != nil {
		v := *row.SelectedAnswer
		row.SelectedAnswer = &v
	}
	if row.AnsweredAt != nil {
		t := *row.AnsweredAt
		row.AnsweredAt = &t
	}
	return row
}
