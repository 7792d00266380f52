package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-assessment-service/internal/app"
	"quiz-assessment-service/internal/domain"
)

// CatalogCache caches catalog lookups in Redis and falls back to the backing catalog on a miss.
// Questions are stored as JSON:  SET catalog:question:{id} {json}
// Category names share a hash:   HSET catalog:categories {id} {name}
// Random draws and category counts always go to the backing catalog.
type CatalogCache struct {
	app.Catalog
	client *redis.Client
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewCatalogCache(client *redis.Client, backing app.Catalog, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		Catalog: backing,
		client:  client,
		ttl:     ttl,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CatalogCache) GetQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	key := questionKey(questionID)
	if q, ok := c.cachedQuestion(ctx, key); ok {
		return q, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if q, ok := c.cachedQuestion(ctx, key); ok {
			return q, nil
		}
		q, err := c.Catalog.GetQuestion(ctx, questionID)
		if err != nil {
			return domain.Question{}, err
		}
		if data, err := json.Marshal(q); err == nil {
			_ = c.client.Set(ctx, key, data, c.ttlWithJitter()).Err()
		}
		return q, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

func (c *CatalogCache) cachedQuestion(ctx context.Context, key string) (domain.Question, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.Question{}, false
	}
	var q domain.Question
	if err := json.Unmarshal(data, &q); err != nil {
		return domain.Question{}, false
	}
	return q, true
}

func (c *CatalogCache) CategoryName(ctx context.Context, categoryID int64) (string, error) {
	field := strconv.FormatInt(categoryID, 10)
	name, err := c.client.HGet(ctx, categoriesKey, field).Result()
	if err == nil {
		return name, nil
	}

	result, err, _ := c.sf.Do("category:"+field, func() (interface{}, error) {
		name, err := c.client.HGet(ctx, categoriesKey, field).Result()
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, redis.Nil) {
			// cache unavailable; serve from the catalog without refilling
			return c.Catalog.CategoryName(ctx, categoryID)
		}

		name, err = c.Catalog.CategoryName(ctx, categoryID)
		if err != nil {
			return "", err
		}
		pipe := c.client.Pipeline()
		pipe.HSet(ctx, categoriesKey, field, name)
		if ttl := c.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, categoriesKey, ttl)
		}
		_, _ = pipe.Exec(ctx)
		return name, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// Invalidate drops the cached entry of a question, e.g. after an edit in the catalog.
func (c *CatalogCache) Invalidate(ctx context.Context, questionID string) error {
	return c.client.Del(ctx, questionKey(questionID)).Err()
}

const categoriesKey = "catalog:categories"

func questionKey(questionID string) string {
	return "catalog:question:" + questionID
}

func (c *CatalogCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
