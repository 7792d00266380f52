package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-assessment-service/internal/domain"
)

// Catalog reads categories and questions from Postgres.
type Catalog struct {
	pool *pgxpool.Pool
}

func NewCatalog(pool *pgxpool.Pool) *Catalog {
	return &Catalog{pool: pool}
}

const catalogQuestionColumns = `id, category_id, question_type, prompt, choices, correct_answer, points, published`

func scanCatalogQuestion(row pgx.Row) (domain.Question, error) {
	var (
		q       domain.Question
		qType   string
		choices []byte
	)
	if err := row.Scan(&q.ID, &q.CategoryID, &qType, &q.Prompt, &choices, &q.Correct, &q.Points, &q.Published); err != nil {
		return domain.Question{}, err
	}
	q.Type = domain.QuestionType(qType)
	if len(choices) > 0 {
		if err := json.Unmarshal(choices, &q.Choices); err != nil {
			return domain.Question{}, fmt.Errorf("unmarshal choices of %s: %w", q.ID, err)
		}
	}
	return q, nil
}

func (c *Catalog) GetQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	q, err := scanCatalogQuestion(c.pool.QueryRow(ctx,
		`SELECT `+catalogQuestionColumns+` FROM questions WHERE id = $1`, questionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("load question: %w", err)
	}
	return q, nil
}

func (c *Catalog) ListCategoriesWithCounts(ctx context.Context) ([]domain.Category, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT c.id, c.name, COUNT(q.id)
		FROM categories c
		JOIN questions q ON q.category_id = c.id AND q.published
		GROUP BY c.id, c.name
		ORDER BY c.id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		var cat domain.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Count); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, cat)
	}
	return out, rows.Err()
}

func (c *Catalog) RandomQuestions(ctx context.Context, categoryID *int64, count int) ([]domain.Question, error) {
	if count <= 0 {
		return nil, nil
	}
	rows, err := c.pool.Query(ctx, `
		SELECT `+catalogQuestionColumns+`
		FROM questions
		WHERE published AND ($1::bigint IS NULL OR category_id = $1)
		ORDER BY random()
		LIMIT $2`, categoryID, count)
	if err != nil {
		return nil, fmt.Errorf("random questions: %w", err)
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		q, err := scanCatalogQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (c *Catalog) CategoryName(ctx context.Context, categoryID int64) (string, error) {
	var name string
	err := c.pool.QueryRow(ctx, `SELECT name FROM categories WHERE id = $1`, categoryID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrCategoryNotFound
	}
	if err != nil {
		return "", fmt.Errorf("category name: %w", err)
	}
	return name, nil
}

// Seed upserts categories and questions in one transaction.
func (c *Catalog) Seed(ctx context.Context, categories []domain.Category, questions []domain.Question) error {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, cat := range categories {
		if _, err := tx.Exec(ctx, `
			INSERT INTO categories (id, name) VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`, cat.ID, cat.Name); err != nil {
			return fmt.Errorf("seed category %d: %w", cat.ID, err)
		}
	}
	for _, q := range questions {
		choices, err := json.Marshal(q.Choices)
		if err != nil {
			return fmt.Errorf("marshal choices of %s: %w", q.ID, err)
		}
		if q.Choices == nil {
			choices = []byte("[]")
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO questions (id, category_id, question_type, prompt, choices, correct_answer, points, published)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				category_id = EXCLUDED.category_id, question_type = EXCLUDED.question_type,
				prompt = EXCLUDED.prompt, choices = EXCLUDED.choices,
				correct_answer = EXCLUDED.correct_answer, points = EXCLUDED.points,
				published = EXCLUDED.published`,
			q.ID, q.CategoryID, string(q.Type), q.Prompt, string(choices), q.Correct, q.PointValue(), q.Published); err != nil {
			return fmt.Errorf("seed question %s: %w", q.ID, err)
		}
	}
	return tx.Commit(ctx)
}
