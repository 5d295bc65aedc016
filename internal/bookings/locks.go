package bookings

import (
	"context"
	"time"

	pkgerrors "github.com/dmarroquin/kitloop-backend/pkg/errors"
	"github.com/dmarroquin/kitloop-backend/pkg/redis"
)

const unitLockScope = "unit"

// UnitLocks implements UnitLocker on top of redis SETNX locks.
type UnitLocks struct {
	client *redis.Client
	ttl    time.Duration
}

// NewUnitLocks builds the redis-backed unit locker.
func NewUnitLocks(client *redis.Client, ttl time.Duration) *UnitLocks {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &UnitLocks{client: client, ttl: ttl}
}

// WithLock runs fn while holding the unit lock. Contention surfaces as a
// conflict so the caller can retry instead of queueing on the row lock.
func (u *UnitLocks) WithLock(ctx context.Context, unitID string, fn func() error) error {
	if u == nil || u.client == nil {
		return fn()
	}
	lock := redis.NewLock(u.client, unitLockScope, unitID, u.ttl)
	ok, err := lock.Acquire(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire unit lock")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "interval no longer available")
	}
	defer func() { _ = lock.Release(ctx) }()
	return fn()
}
