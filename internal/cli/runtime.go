package cli

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"quiz-assessment-service/internal/app"
	"quiz-assessment-service/internal/config"
	"quiz-assessment-service/internal/infra/memory"
	"quiz-assessment-service/internal/infra/postgres"
	infraredis "quiz-assessment-service/internal/infra/redis"
)

// runtime holds the storage adapters selected by the config.
type runtime struct {
	repo    app.AssignmentRepository
	catalog app.Catalog
	redis   *redis.Client
	pool    *pgxpool.Pool
}

// openRuntime connects Postgres when configured, else falls back to the in-memory store
// and the demo catalog. Catalog lookups are cached in Redis when an address is set.
func openRuntime(ctx context.Context, cfg config.Config) (*runtime, error) {
	rt := &runtime{}

	var backing app.Catalog
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		rt.pool = pool
		rt.repo = postgres.NewAssignmentStore(pool)
		backing = postgres.NewCatalog(pool)
	} else {
		log.Printf("postgres url not configured, using in-memory store with demo catalog")
		rt.repo = memory.NewAssignmentStore()
		backing = memory.NewCatalog(demoCategories(), demoQuestions())
	}

	if cfg.Redis.Addr != "" {
		rt.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	if rt.redis != nil {
		rt.catalog = infraredis.NewCatalogCache(rt.redis, backing, catalogTTL)
	} else {
		rt.catalog = memory.NewCachedCatalog(backing, catalogTTL)
	}
	return rt, nil
}

// sweeper builds the expiry sweep, locked through Redis when several instances may run it.
func (rt *runtime) sweeper(cfg config.Config, engine *app.CompletionEngine) *app.Sweeper {
	sweeper := app.NewSweeper(rt.repo, engine, cfg.SweepInterval())
	if rt.redis != nil {
		sweeper.WithLock(infraredis.NewSweepLock(rt.redis, ""), config.TTLDuration(cfg.Sweep.LockTTL, time.Minute))
	}
	return sweeper
}

func (rt *runtime) Close() {
	if rt.redis != nil {
		_ = rt.redis.Close()
	}
	if rt.pool != nil {
		rt.pool.Close()
	}
}
