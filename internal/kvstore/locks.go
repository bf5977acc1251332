package kvstore

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type heldLock struct {
	token   string
	expires time.Time
}

// localLocks is the Locker of single-process backends. Every DocumentStore
// sharing the backend value contends on the same table.
type localLocks struct {
	mu   sync.Mutex
	held map[string]heldLock
	now  func() time.Time
}

func newLocalLocks() *localLocks {
	return &localLocks{held: make(map[string]heldLock), now: time.Now}
}

func (l *localLocks) acquire(lockKey string, ttl time.Duration) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if h, ok := l.held[lockKey]; ok && now.Before(h.expires) {
		return "", false
	}
	token := uuid.New().String()
	l.held[lockKey] = heldLock{token: token, expires: now.Add(ttl)}
	return token, true
}

func (l *localLocks) release(lockKey, token string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if h, ok := l.held[lockKey]; ok && h.token == token {
		delete(l.held, lockKey)
	}
}
