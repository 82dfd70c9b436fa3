package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/coinvault/coinvault/internal/lock"
)

const defaultStoreTimeout = 5 * time.Second

// Guard bounds every store call by a timeout and serialises mutations through
// per-user locks. Services share one Guard.
type Guard struct {
	store   Store
	locker  lock.Locker
	timeout time.Duration
}

// NewGuard wraps store. A nil locker falls back to an in-process one.
func NewGuard(store Store, locker lock.Locker, timeout time.Duration) *Guard {
	if locker == nil {
		locker = lock.NewLocal()
	}
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return &Guard{store: store, locker: locker, timeout: timeout}
}

// Store exposes the wrapped store for reads.
func (g *Guard) Store() Store { return g.store }

// WithTimeout derives the bounded context used for a single store operation.
func (g *Guard) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, g.timeout)
}

// Mutate locks userIDs, then runs fn through Store.Update under the store
// timeout. Lock and store failures are wrapped so they surface as internal
// errors; domain errors returned by fn pass through untouched.
func (g *Guard) Mutate(ctx context.Context, userIDs []string, fn func(users []*User) error) error {
	ctx, cancel := g.WithTimeout(ctx)
	defer cancel()

	release, err := g.locker.Lock(ctx, userIDs...)
	if err != nil {
		return fmt.Errorf("lock users: %w", err)
	}
	defer release()

	if err := g.store.Update(ctx, userIDs, fn); err != nil {
		if KindOf(err) != KindInternal {
			return err
		}
		return fmt.Errorf("update users: %w", err)
	}
	return nil
}

// Lock takes the per-user locks without touching the store. Used where a
// write is not an Update, such as account creation.
func (g *Guard) Lock(ctx context.Context, userIDs ...string) (func(), error) {
	release, err := g.locker.Lock(ctx, userIDs...)
	if err != nil {
		return nil, fmt.Errorf("lock users: %w", err)
	}
	return release, nil
}
