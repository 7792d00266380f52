package redis

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SweepLock is a lease lock shared by all service instances, so one expiry sweep runs per tick.
type SweepLock struct {
	client *redis.Client
	key    string
}

func NewSweepLock(client *redis.Client, key string) *SweepLock {
	if key == "" {
		key = "quiz:sweep:lock"
	}
	return &SweepLock{client: client, key: key}
}

func (l *SweepLock) TryLock(ctx context.Context, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		// the caller's context may already be done
		if err := releaseScript.Run(context.Background(), l.client, []string{l.key}, token).Err(); err != nil {
			log.Printf("release sweep lock: %v", err)
		}
	}
	return release, true, nil
}
