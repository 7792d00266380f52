package app

import (
	"context"
	"fmt"
	"math"

	"quiz-assessment-service/internal/domain"
)

// Sampler picks the ordered question set for a new assignment.
type Sampler struct {
	catalog Catalog
}

func NewSampler(catalog Catalog) *Sampler {
	return &Sampler{catalog: catalog}
}

// Sample returns at most target distinct published questions.
//
// In proportional mode every category with questions contributes
// max(1, round(target*count/total)) questions, concatenated in catalog order and then
// truncated to target. Truncation drops from the categories listed last, so later
// categories can end up under-represented.
func (s *Sampler) Sample(ctx context.Context, target int, mode domain.Distribution) ([]domain.Question, error) {
	if target <= 0 {
		return nil, domain.ErrInvalidSettings
	}

	categories, err := s.catalog.ListCategoriesWithCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	totalAvailable := 0
	for _, c := range categories {
		if c.Count > 0 {
			totalAvailable += c.Count
		}
	}
	if totalAvailable == 0 {
		return nil, domain.ErrNoQuestionsAvailable
	}

	var selected []domain.Question
	switch mode {
	case domain.DistributionProportional:
		for _, c := range categories {
			if c.Count <= 0 {
				continue
			}
			want := CategoryQuota(target, c.Count, totalAvailable)
			categoryID := c.ID
			picked, err := s.catalog.RandomQuestions(ctx, &categoryID, want)
			if err != nil {
				return nil, fmt.Errorf("sample category %d: %w", c.ID, err)
			}
			selected = append(selected, picked...)
		}
	case domain.DistributionUniform:
		picked, err := s.catalog.RandomQuestions(ctx, nil, target)
		if err != nil {
			return nil, fmt.Errorf("sample catalog: %w", err)
		}
		selected = picked
	default:
		return nil, domain.ErrInvalidSettings
	}

	selected = dedupeQuestions(selected)
	if len(selected) > target {
		selected = selected[:target]
	}
	if len(selected) == 0 {
		return nil, domain.ErrNoQuestionsAvailable
	}
	return selected, nil
}

// CategoryQuota is the proportional share of target for a category holding count of total questions.
func CategoryQuota(target, count, total int) int {
	if total <= 0 {
		return 0
	}
	share := math.Round(float64(target) * float64(count) / float64(total))
	return max(1, int(share))
}

func dedupeQuestions(questions []domain.Question) []domain.Question {
	seen := make(map[string]struct{}, len(questions))
	out := questions[:0]
	for _, q := range questions {
		if _, ok := seen[q.ID]; ok {
			continue
		}
		seen[q.ID] = struct{}{}
		out = append(out, q)
	}
	return out
}
