package memory

import (
	"context"
	"testing"
	"time"

	"quiz-assessment-service/internal/domain"
)

func TestCachedCatalogCachesQuestions(t *testing.T) {
	backing := &countingCatalog{Catalog: sampleCatalog()}
	cached := NewCachedCatalog(backing, time.Minute)

	if _, err := cached.GetQuestion(context.Background(), "a1"); err != nil {
		t.Fatalf("get question: %v", err)
	}
	if backing.questionCalls != 1 {
		t.Fatalf("expected backing catalog once, got %d", backing.questionCalls)
	}

	if _, err := cached.GetQuestion(context.Background(), "a1"); err != nil {
		t.Fatalf("get question 2: %v", err)
	}
	if backing.questionCalls != 1 {
		t.Fatalf("expected cache hit, backing calls %d", backing.questionCalls)
	}
}

func TestCachedCatalogExpiresEntries(t *testing.T) {
	backing := &countingCatalog{Catalog: sampleCatalog()}
	cached := NewCachedCatalog(backing, time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cached.clock = func() time.Time { return now }

	if _, err := cached.CategoryName(context.Background(), 1); err != nil {
		t.Fatalf("category name: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := cached.CategoryName(context.Background(), 1); err != nil {
		t.Fatalf("category name 2: %v", err)
	}
	if backing.categoryCalls != 2 {
		t.Fatalf("expected reload after ttl, got %d calls", backing.categoryCalls)
	}
}

func TestCachedCatalogDoesNotCacheMisses(t *testing.T) {
	backing := &countingCatalog{Catalog: sampleCatalog()}
	cached := NewCachedCatalog(backing, time.Minute)

	if _, err := cached.GetQuestion(context.Background(), "missing"); err != domain.ErrQuestionNotFound {
		t.Fatalf("expected question not found, got %v", err)
	}
	_, _ = cached.GetQuestion(context.Background(), "missing")
	if backing.questionCalls != 2 {
		t.Fatalf("expected misses to reach backing catalog, got %d", backing.questionCalls)
	}
}

type countingCatalog struct {
	*Catalog
	questionCalls int
	categoryCalls int
}

func (c *countingCatalog) GetQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	c.questionCalls++
	return c.Catalog.GetQuestion(ctx, questionID)
}

func (c *countingCatalog) CategoryName(ctx context.Context, categoryID int64) (string, error) {
	c.categoryCalls++
	return c.Catalog.CategoryName(ctx, categoryID)
}
