package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"quiz-assessment-service/internal/domain"
)

// Catalog is the read-only question source the lifecycle samples and grades against.
type Catalog interface {
	GetQuestion(ctx context.Context, questionID string) (domain.Question, error)
	// ListCategoriesWithCounts returns categories holding at least one published question, in catalog order.
	ListCategoriesWithCounts(ctx context.Context) ([]domain.Category, error)
	// RandomQuestions returns up to count distinct published questions in random order.
	// A nil categoryID draws from the whole catalog.
	RandomQuestions(ctx context.Context, categoryID *int64, count int) ([]domain.Question, error)
	CategoryName(ctx context.Context, categoryID int64) (string, error)
}

// AssignmentRepository persists assignments, their question slots and results.
type AssignmentRepository interface {
	// CreateAssignment stores the assignment and its question rows together, assigning the id.
	// It fails with domain.ErrAlreadyActive if the user already has an uncompleted assignment.
	CreateAssignment(ctx context.Context, a domain.Assignment, questions []domain.AssignmentQuestion) (domain.Assignment, error)
	GetAssignment(ctx context.Context, assignmentID string) (domain.Assignment, error)
	// ListOpen returns the user's assignments that are not completed.
	ListOpen(ctx context.Context, userID string) ([]domain.Assignment, error)
	HasCompleted(ctx context.Context, userID string) (bool, error)
	ListQuestions(ctx context.Context, assignmentID string) ([]domain.AssignmentQuestion, error)
	GetQuestion(ctx context.Context, assignmentID, questionID string) (domain.AssignmentQuestion, error)
	// SaveAnswer updates one question row, failing with domain.ErrAlreadyCompleted if the
	// assignment completed in the meantime.
	SaveAnswer(ctx context.Context, assignmentID, questionID string, update domain.AnswerUpdate) error
	// MarkCompleted flips the assignment to completed only if it is still in progress and
	// reports whether this call performed the flip.
	MarkCompleted(ctx context.Context, assignmentID string, c domain.Completion) (bool, error)
	InsertResult(ctx context.Context, r domain.Result) error
	GetResult(ctx context.Context, assignmentID string) (domain.Result, error)
	// ListExpired returns uncompleted assignments whose deadline is at or before now.
	ListExpired(ctx context.Context, now time.Time) ([]domain.Assignment, error)
}

// Transactor is implemented by repositories able to run several writes atomically.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(repo AssignmentRepository) error) error
}

// AssignmentLocker is implemented by repositories without transactions. The returned lock
// excludes answer saving for the assignment until unlock is called.
type AssignmentLocker interface {
	LockAssignment(ctx context.Context, assignmentID string) (unlock func(), err error)
}

// AssignmentService implements the quiz taker's operations over one assignment.
type AssignmentService struct {
	repo     AssignmentRepository
	catalog  Catalog
	sampler  *Sampler
	engine   *CompletionEngine
	settings domain.Settings
	now      func() time.Time
}

func NewAssignmentService(repo AssignmentRepository, catalog Catalog, settings domain.Settings) (*AssignmentService, error) {
	return NewAssignmentServiceWithClock(repo, catalog, settings, time.Now)
}

// NewAssignmentServiceWithClock is used by tests for deterministic deadlines.
func NewAssignmentServiceWithClock(repo AssignmentRepository, catalog Catalog, settings domain.Settings, now func() time.Time) (*AssignmentService, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &AssignmentService{
		repo:     repo,
		catalog:  catalog,
		sampler:  NewSampler(catalog),
		engine:   NewCompletionEngineWithClock(repo, catalog, now),
		settings: settings,
		now:      now,
	}, nil
}

// Engine exposes the completion engine shared with the expiry sweep.
func (s *AssignmentService) Engine() *CompletionEngine {
	return s.engine
}

// Start opens a new assignment for the user with a freshly sampled question set.
func (s *AssignmentService) Start(ctx context.Context, user domain.Identity, meta domain.RequestMeta) (domain.StartedAssignment, error) {
	if user.UserID == "" {
		return domain.StartedAssignment{}, domain.ErrLoginRequired
	}

	now := s.now()
	open, err := s.repo.ListOpen(ctx, user.UserID)
	if err != nil {
		return domain.StartedAssignment{}, domain.Storage("list open assignments", "", err)
	}
	for _, a := range open {
		if a.IsActive(now) {
			return domain.StartedAssignment{}, domain.ErrAlreadyActive
		}
		// Past its deadline but not swept yet; close it before judging retakes.
		if _, err := s.engine.Complete(ctx, a.ID, true); err != nil {
			return domain.StartedAssignment{}, err
		}
	}

	if !s.settings.AllowRetake {
		completed, err := s.repo.HasCompleted(ctx, user.UserID)
		if err != nil {
			return domain.StartedAssignment{}, domain.Storage("check completed assignments", "", err)
		}
		if completed {
			return domain.StartedAssignment{}, domain.ErrRetakeNotAllowed
		}
	}

	picked, err := s.sampler.Sample(ctx, s.settings.QuestionsPerQuiz, s.settings.Distribution)
	if err != nil {
		return domain.StartedAssignment{}, err
	}

	name := user.DisplayName
	if name == "" {
		name = domain.GuestUserName
	}
	assignment := domain.Assignment{
		UserID:         user.UserID,
		UserName:       name,
		UserEmail:      user.Email,
		AssignedAt:     now,
		ExpiresAt:      now.Add(s.settings.TimeLimit),
		TotalQuestions: len(picked),
		IPAddress:      meta.IPAddress,
		UserAgent:      meta.UserAgent,
	}
	rows := make([]domain.AssignmentQuestion, 0, len(picked))
	for i, q := range picked {
		rows = append(rows, domain.AssignmentQuestion{
			QuestionID:     q.ID,
			Position:       i,
			CategoryID:     q.CategoryID,
			PointsPossible: q.PointValue(),
		})
	}

	created, err := s.repo.CreateAssignment(ctx, assignment, rows)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyActive) {
			return domain.StartedAssignment{}, err
		}
		log.Printf("start assignment for user %s: %v", user.UserID, err)
		return domain.StartedAssignment{}, domain.Storage("create assignment", "", err)
	}

	views := make([]domain.QuestionView, 0, len(picked))
	for i, q := range picked {
		views = append(views, questionView(q, rows[i]))
	}
	return domain.StartedAssignment{
		Assignment:       created,
		Questions:        views,
		TimeLimitSeconds: int(s.settings.TimeLimit / time.Second),
	}, nil
}

// Get returns an in-progress assignment to its owner for resuming.
func (s *AssignmentService) Get(ctx context.Context, assignmentID, userID string) (domain.AssignmentView, error) {
	a, err := s.owned(ctx, assignmentID, userID)
	if err != nil {
		return domain.AssignmentView{}, err
	}
	if a.IsCompleted {
		return domain.AssignmentView{}, domain.ErrAlreadyCompleted
	}

	rows, err := s.repo.ListQuestions(ctx, assignmentID)
	if err != nil {
		return domain.AssignmentView{}, domain.Storage("list assignment questions", assignmentID, err)
	}
	views := make([]domain.QuestionView, 0, len(rows))
	for _, row := range rows {
		q, err := s.catalog.GetQuestion(ctx, row.QuestionID)
		if errors.Is(err, domain.ErrQuestionNotFound) {
			// Withdrawn from the catalog after sampling; the slot still counts when scoring.
			continue
		}
		if err != nil {
			return domain.AssignmentView{}, fmt.Errorf("load question %s: %w", row.QuestionID, err)
		}
		views = append(views, questionView(q, row))
	}
	return domain.AssignmentView{
		Assignment:       a,
		Questions:        views,
		RemainingSeconds: a.RemainingSeconds(s.now()),
	}, nil
}

// SaveAnswer records the user's answer for one question of their in-progress assignment.
// Blank answers are skipped and never overwrite a stored answer.
func (s *AssignmentService) SaveAnswer(ctx context.Context, assignmentID, userID, questionID string, raw []string) (domain.AnswerOutcome, error) {
	a, err := s.owned(ctx, assignmentID, userID)
	if err != nil {
		return domain.AnswerOutcome{}, err
	}
	if a.IsCompleted {
		return domain.AnswerOutcome{}, domain.ErrAlreadyCompleted
	}
	return s.recordAnswer(ctx, assignmentID, questionID, raw)
}

func (s *AssignmentService) recordAnswer(ctx context.Context, assignmentID, questionID string, raw []string) (domain.AnswerOutcome, error) {
	row, err := s.repo.GetQuestion(ctx, assignmentID, questionID)
	if errors.Is(err, domain.ErrQuestionNotFound) {
		return domain.AnswerOutcome{}, domain.ErrQuestionNotInAssignment
	}
	if err != nil {
		return domain.AnswerOutcome{}, domain.Storage("get assignment question", assignmentID, err)
	}

	q, err := s.catalog.GetQuestion(ctx, questionID)
	if err != nil {
		return domain.AnswerOutcome{}, fmt.Errorf("load question %s: %w", questionID, err)
	}

	answer := domain.NewAnswer(q.Type, raw)
	if answer.IsEmpty() {
		return domain.AnswerOutcome{QuestionID: questionID, Skipped: true}, nil
	}

	correct := IsCorrect(q, answer)
	earned := PointsFor(correct, row.PointsPossible)
	err = s.repo.SaveAnswer(ctx, assignmentID, questionID, domain.AnswerUpdate{
		SelectedAnswer: answer.Serialize(),
		IsCorrect:      correct,
		PointsEarned:   earned,
		AnsweredAt:     s.now(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyCompleted) {
			return domain.AnswerOutcome{}, err
		}
		log.Printf("save answer %s for assignment %s: %v", questionID, assignmentID, err)
		return domain.AnswerOutcome{}, domain.Storage("save answer", assignmentID, err)
	}
	return domain.AnswerOutcome{QuestionID: questionID, IsCorrect: correct, PointsEarned: earned}, nil
}

// Submit saves the answers sent with the submission and completes the assignment.
// answers holds choice answers keyed by question id, textAnswers free-text ones.
func (s *AssignmentService) Submit(ctx context.Context, assignmentID, userID string, answers map[string][]string, textAnswers map[string]string) (domain.ResultView, error) {
	a, err := s.owned(ctx, assignmentID, userID)
	if err != nil {
		return domain.ResultView{}, err
	}
	if a.IsCompleted {
		return domain.ResultView{}, domain.ErrAlreadyCompleted
	}

	rows, err := s.repo.ListQuestions(ctx, assignmentID)
	if err != nil {
		return domain.ResultView{}, domain.Storage("list assignment questions", assignmentID, err)
	}
	for _, row := range rows {
		var raw []string
		if values, ok := answers[row.QuestionID]; ok {
			raw = values
		} else if text, ok := textAnswers[row.QuestionID]; ok {
			raw = []string{text}
		} else {
			continue
		}
		_, err := s.recordAnswer(ctx, assignmentID, row.QuestionID, raw)
		if errors.Is(err, domain.ErrAlreadyCompleted) {
			// The sweep got there first; its completion stands.
			break
		}
		if err != nil {
			return domain.ResultView{}, err
		}
	}

	if _, err := s.engine.Complete(ctx, assignmentID, false); err != nil {
		return domain.ResultView{}, err
	}
	return s.Result(ctx, assignmentID, userID)
}

// Result returns the frozen result of a completed assignment to its owner.
func (s *AssignmentService) Result(ctx context.Context, assignmentID, userID string) (domain.ResultView, error) {
	a, err := s.owned(ctx, assignmentID, userID)
	if err != nil {
		return domain.ResultView{}, err
	}
	if !a.IsCompleted {
		return domain.ResultView{}, domain.ErrResultNotFound
	}

	result, err := s.repo.GetResult(ctx, assignmentID)
	if err != nil {
		return domain.ResultView{}, domain.Storage("get result", assignmentID, err)
	}
	rows, err := s.repo.ListQuestions(ctx, assignmentID)
	if err != nil {
		return domain.ResultView{}, domain.Storage("list assignment questions", assignmentID, err)
	}

	names := newCategoryNames(s.catalog)
	view := domain.ResultView{Result: result, Questions: make([]domain.ReviewItem, 0, len(rows))}
	for _, row := range rows {
		item := domain.ReviewItem{
			QuestionID:     row.QuestionID,
			CategoryName:   names.lookup(ctx, row.CategoryID),
			SelectedAnswer: row.SelectedAnswer,
			IsCorrect:      row.IsCorrect,
			PointsEarned:   row.PointsEarned,
			PointsPossible: row.PointsPossible,
		}
		if q, err := s.catalog.GetQuestion(ctx, row.QuestionID); err == nil {
			item.Prompt = q.Prompt
		}
		if row.Attempted() {
			view.Attempted++
		}
		view.Questions = append(view.Questions, item)
	}
	view.NotAttempted = len(rows) - view.Attempted
	return view, nil
}

// owned loads an assignment, hiding assignments that belong to another user.
func (s *AssignmentService) owned(ctx context.Context, assignmentID, userID string) (domain.Assignment, error) {
	if userID == "" {
		return domain.Assignment{}, domain.ErrLoginRequired
	}
	a, err := s.repo.GetAssignment(ctx, assignmentID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Assignment{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Assignment{}, domain.Storage("get assignment", assignmentID, err)
	}
	if a.UserID != userID {
		return domain.Assignment{}, domain.ErrNotFound
	}
	return a, nil
}

func questionView(q domain.Question, row domain.AssignmentQuestion) domain.QuestionView {
	return domain.QuestionView{
		ID:             q.ID,
		Position:       row.Position,
		CategoryID:     row.CategoryID,
		Type:           q.Type,
		Prompt:         q.Prompt,
		Choices:        q.Choices,
		Points:         row.PointsPossible,
		SelectedAnswer: row.SelectedAnswer,
	}
}
