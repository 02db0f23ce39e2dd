package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/quote-harvester/internal/repository"
)

const siteLockPrefix = "harvester:lock:"

// Compare-and-act scripts so a worker never touches a lease it lost.
var (
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// SiteLockImpl provides a concrete implementation for the SiteLock interface using Redis keys with a TTL.
type SiteLockImpl struct {
	client redis.UniversalClient
}

// NewSiteLock creates a new instance of SiteLockImpl.
func NewSiteLock(client redis.UniversalClient) *SiteLockImpl {
	return &SiteLockImpl{client: client}
}

func (l *SiteLockImpl) key(siteKey string) string {
	return siteLockPrefix + siteKey
}

// Acquire sets the lease key only if it does not exist yet.
func (l *SiteLockImpl) Acquire(ctx context.Context, siteKey, owner string, ttl time.Duration) error {
	ok, err := l.client.SetNX(ctx, l.key(siteKey), owner, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire lock for %s: %w", siteKey, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", siteKey, repository.ErrLockHeld)
	}
	return nil
}

// Refresh extends the lease while owner still holds it.
func (l *SiteLockImpl) Refresh(ctx context.Context, siteKey, owner string, ttl time.Duration) error {
	res, err := refreshScript.Run(ctx, l.client, []string{l.key(siteKey)}, owner, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("failed to refresh lock for %s: %w", siteKey, err)
	}
	if res == 0 {
		return fmt.Errorf("%s: %w", siteKey, repository.ErrLockHeld)
	}
	return nil
}

// Release deletes the lease key if owner still holds it.
func (l *SiteLockImpl) Release(ctx context.Context, siteKey, owner string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key(siteKey)}, owner).Err(); err != nil {
		return fmt.Errorf("failed to release lock for %s: %w", siteKey, err)
	}
	return nil
}

var _ repository.SiteLock = (*SiteLockImpl)(nil)
