// Package lock serialises mutations per user record. Callers name every key
// they need up front; keys are always taken in sorted order so two requests
// touching the same pair of users can never deadlock.
package lock

import (
	"context"
	"errors"
	"slices"
)

// ErrTimeout is returned when a lock could not be acquired before the context
// expired.
var ErrTimeout = errors.New("lock: acquisition timed out")

// Locker grants exclusive access to a set of keys. The returned release
// function must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (func(), error)
}

func ordered(keys []string) []string {
	out := slices.Clone(keys)
	slices.Sort(out)
	return slices.Compact(out)
}

func releaseAll(releases []func()) func() {
	return func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
}

func timeoutErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return ctx.Err()
}
