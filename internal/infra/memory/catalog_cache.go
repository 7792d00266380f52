package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-assessment-service/internal/app"
	"quiz-assessment-service/internal/domain"
)

// CachedCatalog caches question and category lookups with TTL to avoid repeated DB hits.
// Category counts and random draws always go to the backing catalog.
type CachedCatalog struct {
	app.Catalog
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu         sync.RWMutex
	questions  map[string]cachedQuestion
	categories map[int64]cachedName
}

type cachedQuestion struct {
	question  domain.Question
	expiresAt time.Time
}

type cachedName struct {
	name      string
	expiresAt time.Time
}

func NewCachedCatalog(backing app.Catalog, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{
		Catalog:    backing,
		ttl:        ttl,
		clock:      time.Now,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
		questions:  make(map[string]cachedQuestion),
		categories: make(map[int64]cachedName),
	}
}

func (c *CachedCatalog) GetQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.questions[questionID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.question, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do("q:"+questionID, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.questions[questionID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.question, nil
		}
		c.mu.RUnlock()

		q, err := c.Catalog.GetQuestion(ctx, questionID)
		if err != nil {
			return domain.Question{}, err
		}

		expiresAt := now.Add(c.ttlWithJitter())
		c.mu.Lock()
		c.questions[questionID] = cachedQuestion{question: q, expiresAt: expiresAt}
		c.mu.Unlock()
		return q, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

func (c *CachedCatalog) CategoryName(ctx context.Context, categoryID int64) (string, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.categories[categoryID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.name, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do("c:"+strconv.FormatInt(categoryID, 10), func() (interface{}, error) {
		name, err := c.Catalog.CategoryName(ctx, categoryID)
		if err != nil {
			return "", err
		}
		expiresAt := c.clock().Add(c.ttlWithJitter())
		c.mu.Lock()
		c.categories[categoryID] = cachedName{name: name, expiresAt: expiresAt}
		c.mu.Unlock()
		return name, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *CachedCatalog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
