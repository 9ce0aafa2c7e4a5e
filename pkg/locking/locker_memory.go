package locking

import (
	"context"
	"sync"
	"time"
)

// LockerMemory is an in-process LockerInterface. Locks are held until released, ttl is ignored.
type LockerMemory struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewLockerMemory builds a new LockerMemory instance
func NewLockerMemory() *LockerMemory {
	return &LockerMemory{locks: map[string]chan struct{}{}}
}

// Acquire blocks until key is free or ctx is done
func (l *LockerMemory) Acquire(ctx context.Context, key string, _ time.Duration) (LockInterface, error) {
	slot := l.slot(key)

	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return &LockMemory{
		key: key,
		release: func() {
			<-slot
		},
	}, nil
}

func (l *LockerMemory) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot, ok := l.locks[key]
	if !ok {
		slot = make(chan struct{}, 1)
		l.locks[key] = slot
	}

	return slot
}

// LockMemory is a memory implementation of a LockInterface
type LockMemory struct {
	key     string
	once    sync.Once
	release func()
}

// Key returns a key
func (l *LockMemory) Key() string {
	return l.key
}

// Release releases a LockMemory, releasing twice is a no-op
func (l *LockMemory) Release(_ context.Context) error {
	l.once.Do(l.release)
	return nil
}
