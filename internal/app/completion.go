package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"quiz-assessment-service/internal/domain"
)

// CompletionEngine performs the one-way in-progress to completed transition.
// Both explicit submission and the expiry sweep go through Complete.
type CompletionEngine struct {
	repo    AssignmentRepository
	catalog Catalog
	now     func() time.Time
}

func NewCompletionEngine(repo AssignmentRepository, catalog Catalog) *CompletionEngine {
	return NewCompletionEngineWithClock(repo, catalog, time.Now)
}

// NewCompletionEngineWithClock is test-only for deterministic timestamps.
func NewCompletionEngineWithClock(repo AssignmentRepository, catalog Catalog, now func() time.Time) *CompletionEngine {
	return &CompletionEngine{repo: repo, catalog: catalog, now: now}
}

// Complete scores and freezes the assignment and records its result. It reports whether
// this call performed the transition; completing an already completed assignment is a
// successful no-op.
//
// When the repository supports transactions the flip and the result insert commit
// together. A repository that only offers an AssignmentLocker holds off answer saves
// from the row read until the result is stored. Otherwise a failed insert after a successful flip leaves the assignment
// completed without a result and is reported as domain.ErrResultNotRecorded.
func (e *CompletionEngine) Complete(ctx context.Context, assignmentID string, autoSubmitted bool) (bool, error) {
	if tx, ok := e.repo.(Transactor); ok {
		var won bool
		err := tx.WithinTx(ctx, func(repo AssignmentRepository) error {
			var err error
			won, err = e.complete(ctx, repo, assignmentID, autoSubmitted)
			return err
		})
		if err != nil {
			return false, err
		}
		return won, nil
	}
	if locker, ok := e.repo.(AssignmentLocker); ok {
		unlock, err := locker.LockAssignment(ctx, assignmentID)
		if err != nil {
			return false, domain.Storage("lock assignment", assignmentID, err)
		}
		defer unlock()
	}
	return e.complete(ctx, e.repo, assignmentID, autoSubmitted)
}

func (e *CompletionEngine) complete(ctx context.Context, repo AssignmentRepository, assignmentID string, autoSubmitted bool) (bool, error) {
	a, err := repo.GetAssignment(ctx, assignmentID)
	if err != nil {
		return false, domain.Storage("get assignment", assignmentID, err)
	}
	if a.IsCompleted {
		return false, nil
	}

	rows, err := repo.ListQuestions(ctx, assignmentID)
	if err != nil {
		return false, domain.Storage("list assignment questions", assignmentID, err)
	}

	now := e.now()
	totals := Aggregate(rows)
	completion := domain.Completion{
		CompletedAt: now,
		Score:       totals.Score,
		TotalPoints: totals.TotalPoints,
		Percentage:  Percentage(totals.Score, totals.TotalPoints),
		TimeTaken:   int(now.Sub(a.AssignedAt) / time.Second),
	}

	won, err := repo.MarkCompleted(ctx, assignmentID, completion)
	if err != nil {
		log.Printf("complete assignment %s: mark completed: %v", assignmentID, err)
		return false, domain.Storage("mark completed", assignmentID, err)
	}
	if !won {
		return false, nil
	}

	result := domain.Result{
		AssignmentID:      a.ID,
		UserID:            a.UserID,
		UserName:          a.UserName,
		UserEmail:         a.UserEmail,
		Score:             completion.Score,
		TotalPoints:       completion.TotalPoints,
		Percentage:        completion.Percentage,
		TotalQuestions:    len(rows),
		CorrectAnswers:    totals.Correct,
		TimeTaken:         completion.TimeTaken,
		StartTime:         a.AssignedAt,
		EndTime:           now,
		IPAddress:         a.IPAddress,
		UserAgent:         a.UserAgent,
		CategoryBreakdown: e.breakdown(ctx, rows),
		AutoSubmitted:     autoSubmitted,
	}
	if result.UserName == "" {
		result.UserName = domain.GuestUserName
	}
	if err := repo.InsertResult(ctx, result); err != nil {
		if _, transactional := e.repo.(Transactor); transactional {
			return false, domain.Storage("insert result", assignmentID, err)
		}
		log.Printf("complete assignment %s: result insert failed after completion: %v", assignmentID, err)
		return false, fmt.Errorf("%w: assignment %s: %w", domain.ErrResultNotRecorded, assignmentID, err)
	}
	return true, nil
}

// Totals are the per-assignment sums used for scoring.
type Totals struct {
	Score       int
	TotalPoints int
	Correct     int
}

// Aggregate sums earned and possible points and counts correct rows.
// Unanswered rows contribute their insert-time defaults.
func Aggregate(rows []domain.AssignmentQuestion) Totals {
	var t Totals
	for _, row := range rows {
		t.Score += row.PointsEarned
		t.TotalPoints += row.PointsPossible
		if row.IsCorrect {
			t.Correct++
		}
	}
	return t
}

var hundred = decimal.NewFromInt(100)

// Percentage returns score/total*100 rounded half-up to two decimals, or 0 without points.
func Percentage(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	pct := decimal.NewFromInt(int64(score)).
		Div(decimal.NewFromInt(int64(total))).
		Mul(hundred).
		Round(2)
	f, _ := pct.Float64()
	return f
}

// Breakdown groups rows by their frozen category, ordered by category id.
func Breakdown(rows []domain.AssignmentQuestion, name func(categoryID int64) string) []domain.CategoryStat {
	byID := make(map[int64]*domain.CategoryStat)
	for _, row := range rows {
		stat, ok := byID[row.CategoryID]
		if !ok {
			stat = &domain.CategoryStat{CategoryID: row.CategoryID, Name: name(row.CategoryID)}
			byID[row.CategoryID] = stat
		}
		stat.Total++
		if row.IsCorrect {
			stat.Correct++
		}
		stat.PointsEarned += row.PointsEarned
		stat.PointsPossible += row.PointsPossible
	}

	out := make([]domain.CategoryStat, 0, len(byID))
	for _, stat := range byID {
		out = append(out, *stat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryID < out[j].CategoryID })
	return out
}

func (e *CompletionEngine) breakdown(ctx context.Context, rows []domain.AssignmentQuestion) []domain.CategoryStat {
	names := newCategoryNames(e.catalog)
	return Breakdown(rows, func(id int64) string { return names.lookup(ctx, id) })
}

// EncodeBreakdown serializes a breakdown for the results table.
func EncodeBreakdown(stats []domain.CategoryStat) (string, error) {
	if stats == nil {
		stats = []domain.CategoryStat{}
	}
	data, err := json.Marshal(stats)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeBreakdown reverses EncodeBreakdown.
func DecodeBreakdown(raw string) ([]domain.CategoryStat, error) {
	if raw == "" {
		return nil, nil
	}
	var stats []domain.CategoryStat
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// categoryNames memoizes catalog category names for one report.
type categoryNames struct {
	catalog Catalog
	names   map[int64]string
}

func newCategoryNames(catalog Catalog) *categoryNames {
	return &categoryNames{catalog: catalog, names: make(map[int64]string)}
}

func (c *categoryNames) lookup(ctx context.Context, id int64) string {
	if name, ok := c.names[id]; ok {
		return name
	}
	name := domain.UncategorizedName
	if id != 0 {
		n, err := c.catalog.CategoryName(ctx, id)
		switch {
		case err == nil && n != "":
			name = n
		case err != nil && !errors.Is(err, domain.ErrCategoryNotFound):
			log.Printf("category name %d: %v", id, err)
		}
	}
	c.names[id] = name
	return name
}
