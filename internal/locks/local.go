package locks

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	pkgerrors "github.com/angelmondragon/pieshop-backend/pkg/errors"
)

// Local is an in-process keyed lock. Entries are reference counted and
// dropped once no caller holds or waits on them.
type Local struct {
	mu      sync.Mutex
	entries map[string]*localEntry
	wait    time.Duration
}

type localEntry struct {
	sem  *semaphore.Weighted
	refs int
}

// NewLocal builds a keyed lock; wait <= 0 waits until the context is done.
func NewLocal(wait time.Duration) *Local {
	return &Local{entries: make(map[string]*localEntry), wait: wait}
}

func (l *Local) Lock(ctx context.Context, key string) (Unlock, error) {
	entry := l.acquireEntry(key)

	waitCtx, cancel := waitContext(ctx, l.wait)
	defer cancel()
	if err := entry.sem.Acquire(waitCtx, 1); err != nil {
		l.releaseEntry(key, entry)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "timed out waiting for lock")
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			entry.sem.Release(1)
			l.releaseEntry(key, entry)
		})
	}, nil
}

func (l *Local) acquireEntry(key string) *localEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &localEntry{sem: semaphore.NewWeighted(1)}
		l.entries[key] = entry
	}
	entry.refs++
	return entry
}

func (l *Local) releaseEntry(key string, entry *localEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, key)
	}
}

func (l *Local) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
