package triage

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrScanRunning is returned when another scan holds the lock.
var ErrScanRunning = errors.New("scan already running")

// DefaultLockKey is the Redis key guarding scans.
const DefaultLockKey = "gearguard:ai-scan:lock"

// Locker grants exclusive access to the scan. release must be called once.
type Locker interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// RedisLocker uses SET NX with a TTL so a crashed holder cannot block forever.
type RedisLocker struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisLocker builds a cluster-wide lock.
func NewRedisLocker(client *redis.Client, key string, ttl time.Duration) *RedisLocker {
	if key == "" {
		key = DefaultLockKey
	}
	return &RedisLocker{client: client, key: key, ttl: ttl}
}

// releaseScript deletes the key only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0`)

// Acquire takes the lock or returns ErrScanRunning.
func (l *RedisLocker) Acquire(ctx context.Context) (func(), error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrScanRunning
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.client, []string{l.key}, token).Err()
	}, nil
}

// LocalLocker guards scans within one process.
type LocalLocker struct {
	held atomic.Bool
}

// Acquire takes the lock or returns ErrScanRunning.
func (l *LocalLocker) Acquire(context.Context) (func(), error) {
	if !l.held.CompareAndSwap(false, true) {
		return nil, ErrScanRunning
	}
	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			l.held.Store(false)
		}
	}, nil
}
