package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Lock is a best-effort distributed lock backed by SETNX. It narrows the
// window for concurrent writers; row-level locking in the database remains
// the source of truth for exclusivity.
type Lock struct {
	client *Client
	key    string
	token  string
	ttl    time.Duration
}

// LockStore is the subset of Client used by locks.
type LockStore interface {
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	Get(context.Context, string) (string, error)
	Del(context.Context, ...string) error
	LockKey(scope, id string) string
}

// NewLock builds a lock for the given scope/id pair.
func NewLock(client *Client, scope, id string, ttl time.Duration) *Lock {
	return &Lock{
		client: client,
		key:    client.LockKey(scope, id),
		token:  uuid.NewString(),
		ttl:    ttl,
	}
}

// Acquire attempts to take the lock. It returns false when another holder
// owns the key.
func (l *Lock) Acquire(ctx context.Context) (bool, error) {
	if l.client == nil {
		return false, errors.New("lock requires a redis client")
	}
	return l.client.SetNX(ctx, l.key, l.token, l.ttl)
}

// Release drops the lock only if this instance still holds it.
func (l *Lock) Release(ctx context.Context) error {
	if l.client == nil {
		return errors.New("lock requires a redis client")
	}
	current, err := l.client.Get(ctx, l.key)
	if err != nil {
		if errors.Is(err, ErrNil) {
			return nil
		}
		return err
	}
	if current != l.token {
		return nil
	}
	return l.client.Del(ctx, l.key)
}
