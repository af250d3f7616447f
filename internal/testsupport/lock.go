package testsupport

import (
	"context"
	"sync"
	"time"
)

// Lock is an in-process RunLock.
type Lock struct {
	mu   sync.Mutex
	held map[string]bool
	Err  error
}

func NewLock() *Lock {
	return &Lock{held: make(map[string]bool)}
}

func (l *Lock) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return nil, false, l.Err
	}
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
		return nil
	}, true, nil
}

func (l *Lock) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[key]
}
