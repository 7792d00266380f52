package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-assessment-service/internal/app"
	"quiz-assessment-service/internal/domain"
)

const uniqueViolation = "23505"

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// AssignmentStore persists assignments, their question rows and results in Postgres.
type AssignmentStore struct {
	q querier
	// inTx marks a store bound to a transaction opened by WithinTx; assignment reads
	// then lock the row so completion serializes with answer saving.
	inTx bool
}

func NewAssignmentStore(pool *pgxpool.Pool) *AssignmentStore {
	return &AssignmentStore{q: pool}
}

// WithinTx runs fn against a store bound to one transaction.
func (s *AssignmentStore) WithinTx(ctx context.Context, fn func(repo app.AssignmentRepository) error) error {
	if s.inTx {
		return fn(s)
	}
	tx, err := s.q.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&AssignmentStore{q: tx, inTx: true}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const assignmentColumns = `id::text, user_id, user_name, user_email, assigned_at, expires_at,
	is_completed, completed_at, total_questions, score, total_points, percentage, time_taken,
	ip_address, user_agent`

func scanAssignment(row pgx.Row) (domain.Assignment, error) {
	var a domain.Assignment
	err := row.Scan(&a.ID, &a.UserID, &a.UserName, &a.UserEmail, &a.AssignedAt, &a.ExpiresAt,
		&a.IsCompleted, &a.CompletedAt, &a.TotalQuestions, &a.Score, &a.TotalPoints, &a.Percentage,
		&a.TimeTaken, &a.IPAddress, &a.UserAgent)
	return a, err
}

func (s *AssignmentStore) CreateAssignment(ctx context.Context, a domain.Assignment, questions []domain.AssignmentQuestion) (domain.Assignment, error) {
	var created domain.Assignment
	err := s.WithinTx(ctx, func(repo app.AssignmentRepository) error {
		tx := repo.(*AssignmentStore)
		row := tx.q.QueryRow(ctx, `
			INSERT INTO assignments (user_id, user_name, user_email, assigned_at, expires_at,
				total_questions, ip_address, user_agent)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING `+assignmentColumns,
			a.UserID, a.UserName, a.UserEmail, a.AssignedAt, a.ExpiresAt,
			len(questions), a.IPAddress, a.UserAgent)
		var err error
		created, err = scanAssignment(row)
		if err != nil {
			return err
		}

		rows := make([][]interface{}, len(questions))
		for i, q := range questions {
			rows[i] = []interface{}{created.ID, q.QuestionID, i, q.CategoryID, q.PointsPossible}
		}
		_, err = tx.q.CopyFrom(ctx,
			pgx.Identifier{"assignment_questions"},
			[]string{"assignment_id", "question_id", "position", "category_id", "points_possible"},
			pgx.CopyFromRows(rows))
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "assignments_one_open_per_user" {
			return domain.Assignment{}, domain.ErrAlreadyActive
		}
		return domain.Assignment{}, fmt.Errorf("create assignment: %w", err)
	}
	return created, nil
}

func (s *AssignmentStore) GetAssignment(ctx context.Context, assignmentID string) (domain.Assignment, error) {
	if _, err := uuid.Parse(assignmentID); err != nil {
		return domain.Assignment{}, domain.ErrNotFound
	}
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`
	if s.inTx {
		query += ` FOR UPDATE`
	}
	a, err := scanAssignment(s.q.QueryRow(ctx, query, assignmentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Assignment{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Assignment{}, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

func (s *AssignmentStore) ListOpen(ctx context.Context, userID string) ([]domain.Assignment, error) {
	return s.listAssignments(ctx, `SELECT `+assignmentColumns+` FROM assignments
		WHERE user_id = $1 AND NOT is_completed ORDER BY assigned_at`, userID)
}

func (s *AssignmentStore) ListExpired(ctx context.Context, now time.Time) ([]domain.Assignment, error) {
	return s.listAssignments(ctx, `SELECT `+assignmentColumns+` FROM assignments
		WHERE NOT is_completed AND expires_at <= $1 ORDER BY assigned_at`, now)
}

func (s *AssignmentStore) listAssignments(ctx context.Context, query string, args ...interface{}) ([]domain.Assignment, error) {
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var out []domain.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *AssignmentStore) HasCompleted(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := s.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM assignments WHERE user_id = $1 AND is_completed)`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("has completed: %w", err)
	}
	return exists, nil
}

const questionColumns = `assignment_id::text, question_id, position, category_id, selected_answer,
	is_correct, points_earned, points_possible, answered_at`

func scanQuestion(row pgx.Row) (domain.AssignmentQuestion, error) {
	var q domain.AssignmentQuestion
	err := row.Scan(&q.AssignmentID, &q.QuestionID, &q.Position, &q.CategoryID, &q.SelectedAnswer,
		&q.IsCorrect, &q.PointsEarned, &q.PointsPossible, &q.AnsweredAt)
	return q, err
}

func (s *AssignmentStore) ListQuestions(ctx context.Context, assignmentID string) ([]domain.AssignmentQuestion, error) {
	if _, err := uuid.Parse(assignmentID); err != nil {
		return nil, nil
	}
	rows, err := s.q.Query(ctx, `SELECT `+questionColumns+` FROM assignment_questions
		WHERE assignment_id = $1 ORDER BY position`, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var out []domain.AssignmentQuestion
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *AssignmentStore) GetQuestion(ctx context.Context, assignmentID, questionID string) (domain.AssignmentQuestion, error) {
	if _, err := uuid.Parse(assignmentID); err != nil {
		return domain.AssignmentQuestion{}, domain.ErrQuestionNotFound
	}
	q, err := scanQuestion(s.q.QueryRow(ctx, `SELECT `+questionColumns+` FROM assignment_questions
		WHERE assignment_id = $1 AND question_id = $2`, assignmentID, questionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AssignmentQuestion{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.AssignmentQuestion{}, fmt.Errorf("get question: %w", err)
	}
	return q, nil
}

// SaveAnswer share-locks the assignment row before writing so a concurrent completion
// either sees this answer or makes it fail with domain.ErrAlreadyCompleted.
func (s *AssignmentStore) SaveAnswer(ctx context.Context, assignmentID, questionID string, update domain.AnswerUpdate) error {
	return s.WithinTx(ctx, func(repo app.AssignmentRepository) error {
		tx := repo.(*AssignmentStore)

		var completed bool
		err := tx.q.QueryRow(ctx,
			`SELECT is_completed FROM assignments WHERE id = $1 FOR SHARE`, assignmentID).Scan(&completed)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock assignment: %w", err)
		}
		if completed {
			return domain.ErrAlreadyCompleted
		}

		tag, err := tx.q.Exec(ctx, `
			UPDATE assignment_questions
			SET selected_answer = $3, is_correct = $4, points_earned = $5, answered_at = $6
			WHERE assignment_id = $1 AND question_id = $2`,
			assignmentID, questionID, update.SelectedAnswer, update.IsCorrect, update.PointsEarned, update.AnsweredAt)
		if err != nil {
			return fmt.Errorf("update answer: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrQuestionNotFound
		}
		return nil
	})
}

func (s *AssignmentStore) MarkCompleted(ctx context.Context, assignmentID string, c domain.Completion) (bool, error) {
	tag, err := s.q.Exec(ctx, `
		UPDATE assignments
		SET is_completed = TRUE, completed_at = $2, score = $3, total_points = $4,
			percentage = $5, time_taken = $6
		WHERE id = $1 AND NOT is_completed`,
		assignmentID, c.CompletedAt, c.Score, c.TotalPoints, c.Percentage, c.TimeTaken)
	if err != nil {
		return false, fmt.Errorf("mark completed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *AssignmentStore) InsertResult(ctx context.Context, r domain.Result) error {
	breakdown, err := app.EncodeBreakdown(r.CategoryBreakdown)
	if err != nil {
		return fmt.Errorf("encode breakdown: %w", err)
	}
	_, err = s.q.Exec(ctx, `
		INSERT INTO results (assignment_id, user_id, user_name, user_email, score, total_points,
			percentage, total_questions, correct_answers, time_taken, start_time, end_time,
			ip_address, user_agent, category_breakdown, auto_submitted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		r.AssignmentID, r.UserID, r.UserName, r.UserEmail, r.Score, r.TotalPoints,
		r.Percentage, r.TotalQuestions, r.CorrectAnswers, r.TimeTaken, r.StartTime, r.EndTime,
		r.IPAddress, r.UserAgent, breakdown, r.AutoSubmitted)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (s *AssignmentStore) GetResult(ctx context.Context, assignmentID string) (domain.Result, error) {
	if _, err := uuid.Parse(assignmentID); err != nil {
		return domain.Result{}, domain.ErrResultNotFound
	}
	var (
		r         domain.Result
		breakdown string
	)
	err := s.q.QueryRow(ctx, `
		SELECT assignment_id::text, user_id, user_name, user_email, score, total_points,
			percentage, total_questions, correct_answers, time_taken, start_time, end_time,
			ip_address, user_agent, category_breakdown, auto_submitted
		FROM results WHERE assignment_id = $1
		ORDER BY id DESC LIMIT 1`, assignmentID).Scan(
		&r.AssignmentID, &r.UserID, &r.UserName, &r.UserEmail, &r.Score, &r.TotalPoints,
		&r.Percentage, &r.TotalQuestions, &r.CorrectAnswers, &r.TimeTaken, &r.StartTime, &r.EndTime,
		&r.IPAddress, &r.UserAgent, &breakdown, &r.AutoSubmitted)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Result{}, domain.ErrResultNotFound
	}
	if err != nil {
		return domain.Result{}, fmt.Errorf("get result: %w", err)
	}
	if r.CategoryBreakdown, err = app.DecodeBreakdown(breakdown); err != nil {
		return domain.Result{}, fmt.Errorf("decode breakdown: %w", err)
	}
	return r, nil
}
