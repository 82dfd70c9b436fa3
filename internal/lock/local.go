package lock

import (
	"context"
	"sync"
)

type entry struct {
	ch   chan struct{}
	refs int
}

// Local is an in-process keyed mutex. Entries are dropped once nobody holds or
// waits for them.
type Local struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewLocal creates an empty keyed mutex.
func NewLocal() *Local {
	return &Local{entries: make(map[string]*entry)}
}

// Lock acquires every key in sorted order, waiting until ctx is done.
func (l *Local) Lock(ctx context.Context, keys ...string) (func(), error) {
	var held []func()
	for _, key := range ordered(keys) {
		release, err := l.acquire(ctx, key)
		if err != nil {
			releaseAll(held)()
			return nil, err
		}
		held = append(held, release)
	}
	return releaseAll(held), nil
}

func (l *Local) acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, e)
		return nil, timeoutErr(ctx)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.unref(key, e)
		})
	}, nil
}

func (l *Local) unref(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

func (l *Local) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
