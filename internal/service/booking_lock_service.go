package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"itp-scheduler/internal/scheduling"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// Errors
// =============================================================================

// ErrLockTimeout is returned when the date lock could not be taken in time.
var ErrLockTimeout = errors.New("booking day is busy, try again")

// releaseLockScript deletes the lock only if we still own it.
// Runs via EVALSHA after the first call.
var releaseLockScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// =============================================================================
// Constants
// =============================================================================

const (
	RedisBookingLockKeyPrefix = "booking:lock:"

	// Poll interval while the Redis lock is held by another instance
	lockRetryInterval = 25 * time.Millisecond

	// Timeout for the Redis release call, independent of the request context
	lockReleaseTimeout = 2 * time.Second

	// Interval for cleaning up stale mutexes
	mutexCleanupInterval = 10 * time.Minute

	// How long a mutex must be unused before cleanup
	mutexStaleThreshold = 10 * time.Minute
)

// =============================================================================
// Types
// =============================================================================

// BookingLocker serializes booking writers per calendar date before they
// reach the database, where the booking_days row lock is the final guard.
//
// Lock ordering (to prevent deadlocks):
// 1. Acquire the date mutex
// 2. Acquire the Redis lock (when Redis is enabled)
// 3. Begin the DB transaction
type BookingLocker struct {
	redisClient *redis.Client
	log         *logrus.Logger
	ttl         time.Duration

	// Per-date mutex, keyed by "YYYY-MM-DD"
	dateMu sync.Map // map[string]*mutexWithTimestamp

	// Graceful shutdown
	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool
}

// mutexWithTimestamp tracks mutex usage for cleanup
type mutexWithTimestamp struct {
	mu       sync.Mutex
	lastUsed atomic.Int64 // Unix timestamp
}

// =============================================================================
// Constructor
// =============================================================================

// NewBookingLocker starts the mutex cleanup goroutine. redisClient may be nil.
// Call Stop() during graceful shutdown.
func NewBookingLocker(redisClient *redis.Client, log *logrus.Logger, ttl time.Duration) *BookingLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	l := &BookingLocker{
		redisClient: redisClient,
		log:         log,
		ttl:         ttl,
		stopChan:    make(chan struct{}),
	}

	l.wg.Add(1)
	go l.cleanupMutexMapLoop()

	return l
}

// =============================================================================
// Lifecycle Methods
// =============================================================================

// Stop gracefully shuts down the locker.
// Safe to call multiple times.
func (l *BookingLocker) Stop() {
	if l.stopped.CompareAndSwap(false, true) {
		close(l.stopChan)
		l.wg.Wait()
		l.log.Info("BookingLocker stopped")
	}
}

// =============================================================================
// Public Methods
// =============================================================================

// Lock takes the date lock and returns its release function.
// The release function is safe to call once; it never fails the caller.
func (l *BookingLocker) Lock(ctx context.Context, date time.Time) (func(), error) {
	key := scheduling.DateOnly(date).Format(scheduling.DateLayout)

	mt := l.getDateMutex(key)
	if err := lockWithContext(ctx, &mt.mu); err != nil {
		return nil, err
	}

	if l.redisClient == nil {
		return func() {
			mt.lastUsed.Store(time.Now().Unix())
			mt.mu.Unlock()
		}, nil
	}

	token, err := l.acquireRedisLock(ctx, key)
	if err != nil {
		mt.mu.Unlock()
		return nil, err
	}

	return func() {
		l.releaseRedisLock(key, token)
		mt.lastUsed.Store(time.Now().Unix())
		mt.mu.Unlock()
	}, nil
}

// =============================================================================
// Private Helper Methods
// =============================================================================

// lockWithContext polls TryLock so a cancelled request stops waiting.
func lockWithContext(ctx context.Context, mu *sync.Mutex) error {
	if mu.TryLock() {
		return nil
	}
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
		case <-ticker.C:
			if mu.TryLock() {
				return nil
			}
		}
	}
}

func (l *BookingLocker) acquireRedisLock(ctx context.Context, key string) (string, error) {
	token, err := randomLockToken()
	if err != nil {
		return "", err
	}
	redisKey := RedisBookingLockKeyPrefix + key
	deadline := time.Now().Add(l.ttl)

	for {
		ok, err := l.redisClient.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			l.log.Warnf("Failed to acquire Redis lock %s: %+v", redisKey, err)
			return "", fmt.Errorf("acquire redis lock %s: %w", redisKey, err)
		}
		if ok {
			return token, nil
		}
		if time.Now().After(deadline) {
			return "", ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
		case <-time.After(lockRetryInterval):
		}
	}
}

func (l *BookingLocker) releaseRedisLock(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), lockReleaseTimeout)
	defer cancel()

	redisKey := RedisBookingLockKeyPrefix + key
	if err := releaseLockScript.Run(ctx, l.redisClient, []string{redisKey}, token).Err(); err != nil {
		// The TTL frees the key eventually
		l.log.Warnf("Failed to release Redis lock %s: %+v", redisKey, err)
	}
}

func randomLockToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// getDateMutex returns mutex for a specific date key
func (l *BookingLocker) getDateMutex(key string) *mutexWithTimestamp {
	mt, _ := l.dateMu.LoadOrStore(key, &mutexWithTimestamp{})
	result := mt.(*mutexWithTimestamp)
	result.lastUsed.Store(time.Now().Unix())
	return result
}

// cleanupMutexMapLoop runs in background to clean stale mutexes
func (l *BookingLocker) cleanupMutexMapLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(mutexCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			l.log.Debug("Mutex cleanup goroutine stopping")
			return
		case <-ticker.C:
			l.cleanupStaleMutexes(time.Now().Add(-mutexStaleThreshold))
		}
	}
}

// cleanupStaleMutexes removes unused mutexes. lastUsed is checked under the
// lock so a concurrent getDateMutex cannot be missed.
func (l *BookingLocker) cleanupStaleMutexes(cutoff time.Time) int {
	cutoffTime := cutoff.Unix()
	var cleaned int

	l.dateMu.Range(func(key, value any) bool {
		mt, ok := value.(*mutexWithTimestamp)
		if !ok {
			return true
		}

		if mt.mu.TryLock() {
			if mt.lastUsed.Load() < cutoffTime {
				l.dateMu.Delete(key)
				cleaned++
			}
			mt.mu.Unlock()
		}
		return true
	})

	if cleaned > 0 {
		l.log.Debugf("Cleaned up %d stale mutexes", cleaned)
	}
	return cleaned
}
