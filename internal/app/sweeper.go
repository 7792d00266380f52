package app

import (
	"context"
	"log"
	"time"

	"quiz-assessment-service/internal/domain"
)

// SweepLock keeps several service instances from sweeping at the same tick.
type SweepLock interface {
	// TryLock acquires the lock for ttl. ok is false when another holder owns it.
	TryLock(ctx context.Context, ttl time.Duration) (release func(), ok bool, err error)
}

// SweepReport summarizes one sweep tick.
type SweepReport struct {
	Found     int
	Completed int
	Skipped   int // already completed by someone else
	Failed    int
}

// Sweeper force-completes assignments whose deadline has passed.
type Sweeper struct {
	repo     AssignmentRepository
	engine   *CompletionEngine
	interval time.Duration
	lock     SweepLock
	lockTTL  time.Duration
	now      func() time.Time
}

func NewSweeper(repo AssignmentRepository, engine *CompletionEngine, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{
		repo:     repo,
		engine:   engine,
		interval: interval,
		lockTTL:  interval,
		now:      time.Now,
	}
}

// WithLock makes every tick run under lock; ticks that cannot acquire it are skipped.
func (s *Sweeper) WithLock(lock SweepLock, ttl time.Duration) *Sweeper {
	s.lock = lock
	if ttl > 0 {
		s.lockTTL = ttl
	}
	return s
}

// WithClock overrides the sweep's notion of now.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// Run sweeps once per interval until ctx is canceled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("expiry sweep running every %s", s.interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				log.Printf("sweep: %v", err)
			}
		}
	}
}

// SweepOnce completes every expired in-progress assignment. A failure on one assignment
// is logged and does not stop the others; it is retried on the next tick.
func (s *Sweeper) SweepOnce(ctx context.Context) (SweepReport, error) {
	var report SweepReport

	if s.lock != nil {
		release, ok, err := s.lock.TryLock(ctx, s.lockTTL)
		if err != nil {
			return report, err
		}
		if !ok {
			return report, nil
		}
		defer release()
	}

	expired, err := s.repo.ListExpired(ctx, s.now())
	if err != nil {
		return report, domain.Storage("list expired assignments", "", err)
	}
	report.Found = len(expired)

	for _, a := range expired {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		won, err := s.engine.Complete(ctx, a.ID, true)
		switch {
		case err != nil:
			report.Failed++
			log.Printf("sweep: complete assignment %s: %v", a.ID, err)
		case won:
			report.Completed++
		default:
			report.Skipped++
		}
	}
	if report.Found > 0 {
		log.Printf("sweep: found=%d completed=%d skipped=%d failed=%d",
			report.Found, report.Completed, report.Skipped, report.Failed)
	}
	return report, nil
}
