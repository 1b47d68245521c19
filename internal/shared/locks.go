package shared

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// IngestionLockKey is the redis key guarding the single-writer ingestion section.
const IngestionLockKey = "ingestion:lock"

// ErrLockHeld is returned when another holder owns the lock.
var ErrLockHeld = errors.New("lock held by another process")

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Lock is an advisory mutual-exclusion guard. A nil redis client degrades to a
// process-local guard.
type Lock struct {
	client *redis.Client
	key    string
	ttl    time.Duration

	mu    sync.Mutex
	local bool
}

// NewLock constructs a lock for key with the given lease.
func NewLock(client *redis.Client, key string, ttl time.Duration) *Lock {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Lock{client: client, key: key, ttl: ttl}
}

// Acquire takes the lock without waiting. The returned release func is safe to
// call more than once.
func (l *Lock) Acquire(ctx context.Context) (func(), error) {
	l.mu.Lock()
	if l.local {
		l.mu.Unlock()
		return nil, ErrLockHeld
	}
	l.local = true
	l.mu.Unlock()

	releaseLocal := func() {
		l.mu.Lock()
		l.local = false
		l.mu.Unlock()
	}

	if l.client == nil {
		var once sync.Once
		return func() { once.Do(releaseLocal) }, nil
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		releaseLocal()
		return nil, err
	}
	if !ok {
		releaseLocal()
		return nil, ErrLockHeld
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Release with a fresh context so a cancelled request still frees the lease.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = releaseScript.Run(releaseCtx, l.client, []string{l.key}, token).Err()
			releaseLocal()
		})
	}, nil
}
