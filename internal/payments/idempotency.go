package payments

import (
	"context"
	"errors"
	"time"

	"github.com/dmarroquin/kitloop-backend/pkg/redis"
)

const verifyScope = "gateway:verify"

// Guard dedupes gateway callbacks using Redis SETNX with a TTL. Keys follow
// the `kl:idempotency:gateway:verify:<order_id>|<payment_id>` pattern. The
// database unique constraint on the order id remains the hard stop; the
// guard just short-circuits replays cheaply.
type Guard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

// NewGuard builds the callback replay guard.
func NewGuard(store redis.IdempotencyStore, ttl time.Duration) (*Guard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Guard{store: store, ttl: ttl}, nil
}

// CheckAndMark returns true when the order/payment pair was already seen and
// otherwise marks it for the configured TTL.
func (g *Guard) CheckAndMark(ctx context.Context, orderID, paymentID string) (bool, error) {
	set, err := g.store.SetNX(ctx, g.key(orderID, paymentID), "1", g.ttl)
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Release drops the mark so a failed verification can be retried.
func (g *Guard) Release(ctx context.Context, orderID, paymentID string) error {
	return g.store.Del(ctx, g.key(orderID, paymentID))
}

func (g *Guard) key(orderID, paymentID string) string {
	return g.store.IdempotencyKey(verifyScope, orderID+"|"+paymentID)
}
