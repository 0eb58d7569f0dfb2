package service

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestBookingLocker_SerializesSameDate(t *testing.T) {
	l := NewBookingLocker(nil, quietLogger(), time.Second)
	defer l.Stop()

	date := time.Date(2030, 3, 4, 15, 30, 0, 0, time.UTC)
	var (
		wg      sync.WaitGroup
		inside  atomic.Int32
		maxSeen atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), date)
			if err != nil {
				t.Error(err)
				return
			}
			n := inside.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			time.Sleep(2 * time.Millisecond)
			inside.Add(-1)
			unlock()
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, maxSeen.Load())
}

func TestBookingLocker_DatesAreIndependent(t *testing.T) {
	l := NewBookingLocker(nil, quietLogger(), time.Second)
	defer l.Stop()
	ctx := context.Background()

	unlockMonday, err := l.Lock(ctx, time.Date(2030, 3, 4, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	defer unlockMonday()

	unlockTuesday, err := l.Lock(ctx, time.Date(2030, 3, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	unlockTuesday()
}

func TestBookingLocker_ContextCancelled(t *testing.T) {
	l := NewBookingLocker(nil, quietLogger(), time.Second)
	defer l.Stop()
	date := time.Date(2030, 3, 4, 0, 0, 0, 0, time.UTC)

	unlock, err := l.Lock(context.Background(), date)
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, date)
	require.ErrorIs(t, err, ErrLockTimeout)
}

func TestBookingLocker_CleanupStaleMutexes(t *testing.T) {
	l := NewBookingLocker(nil, quietLogger(), time.Second)
	defer l.Stop()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, time.Date(2030, 3, 4, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	unlock()

	held, err := l.Lock(ctx, time.Date(2030, 3, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	// Everything counts as stale; the held mutex must survive anyway.
	require.Equal(t, 1, l.cleanupStaleMutexes(time.Now().Add(time.Hour)))
	held()

	require.Equal(t, 1, l.cleanupStaleMutexes(time.Now().Add(time.Hour)))
	require.Zero(t, l.cleanupStaleMutexes(time.Now().Add(time.Hour)))
}

func TestBookingLocker_StopIsIdempotent(t *testing.T) {
	l := NewBookingLocker(nil, quietLogger(), time.Second)
	l.Stop()
	l.Stop()
}
