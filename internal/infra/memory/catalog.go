package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"

	"quiz-assessment-service/internal/domain"
)

// Catalog is an in-memory question catalog (useful for tests/demos).
type Catalog struct {
	mu         sync.RWMutex
	categories []domain.Category
	questions  map[string]domain.Question
	order      []string
}

func NewCatalog(categories []domain.Category, questions []domain.Question) *Catalog {
	c := &Catalog{questions: make(map[string]domain.Question, len(questions))}
	c.categories = append(c.categories, categories...)
	for _, q := range questions {
		c.put(q)
	}
	return c
}

// Put adds or replaces a question.
func (c *Catalog) Put(q domain.Question) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(q)
}

func (c *Catalog) put(q domain.Question) {
	if _, ok := c.questions[q.ID]; !ok {
		c.order = append(c.order, q.ID)
	}
	c.questions[q.ID] = q
}

func (c *Catalog) GetQuestion(_ context.Context, questionID string) (domain.Question, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.questions[questionID]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, nil
}

// ListCategoriesWithCounts returns categories with published questions, ordered by id.
func (c *Catalog) ListCategoriesWithCounts(_ context.Context) ([]domain.Category, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	counts := make(map[int64]int)
	for _, q := range c.questions {
		if q.Published {
			counts[q.CategoryID]++
		}
	}
	out := make([]domain.Category, 0, len(c.categories))
	for _, cat := range c.categories {
		if n := counts[cat.ID]; n > 0 {
			cat.Count = n
			out = append(out, cat)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *Catalog) RandomQuestions(_ context.Context, categoryID *int64, count int) ([]domain.Question, error) {
	if count <= 0 {
		return nil, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	pool := make([]domain.Question, 0, len(c.order))
	for _, id := range c.order {
		q := c.questions[id]
		if !q.Published {
			continue
		}
		if categoryID != nil && q.CategoryID != *categoryID {
			continue
		}
		pool = append(pool, q)
	}
	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if len(pool) > count {
		pool = pool[:count]
	}
	return pool, nil
}

func (c *Catalog) CategoryName(_ context.Context, categoryID int64) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, cat := range c.categories {
		if cat.ID == categoryID {
			return cat.Name, nil
		}
	}
	return "", domain.ErrCategoryNotFound
}
