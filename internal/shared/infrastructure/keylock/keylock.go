// Package keylock serializes work per idempotency key.
//
// The outbox acquires a key's lock around its check-then-act draft
// creation and around every state transition, so two overlapping
// scheduler ticks (or a human and the autonomous path) can never act
// on the same logical target at once.
package keylock

import (
	"context"
	"sync"
)

// Guard serializes critical sections per key.
type Guard interface {
	// Acquire blocks until the key's lock is held or ctx is done.
	// The returned release function must be called exactly once.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// MutexGuard is an in-process Guard. Locks are reference counted and
// removed from the map once no goroutine holds or waits on them.
type MutexGuard struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// NewMutexGuard creates an in-process key guard.
func NewMutexGuard() *MutexGuard {
	return &MutexGuard{locks: make(map[string]*keyLock)}
}

// Acquire implements Guard.
func (g *MutexGuard) Acquire(ctx context.Context, key string) (func(), error) {
	g.mu.Lock()
	l, ok := g.locks[key]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		g.locks[key] = l
	}
	l.refs++
	g.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		g.put(key, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			<-l.ch
			g.put(key, l)
		})
	}
	return release, nil
}

func (g *MutexGuard) put(key string, l *keyLock) {
	g.mu.Lock()
	defer g.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(g.locks, key)
	}
}
