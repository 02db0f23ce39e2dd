package repository

import (
	"context"
	"time"
)

// SiteLock guarantees a single logical worker per site across processes.
type SiteLock interface {
	// Acquire takes the lease for siteKey on behalf of owner. It returns ErrLockHeld
	// when someone else holds it.
	Acquire(ctx context.Context, siteKey, owner string, ttl time.Duration) error
	// Refresh extends a lease that owner still holds.
	Refresh(ctx context.Context, siteKey, owner string, ttl time.Duration) error
	// Release drops the lease if owner still holds it.
	Release(ctx context.Context, siteKey, owner string) error
}
