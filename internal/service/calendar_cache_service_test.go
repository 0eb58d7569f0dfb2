package service

import (
	"context"
	"testing"
	"time"

	"itp-scheduler/internal/domain/entity"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCalendarCache(t *testing.T) (*CalendarCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCalendarCache(client, quietLogger()), mr
}

func testRules() *CalendarRules {
	return &CalendarRules{
		WorkingHours: entity.DefaultWorkingHours(),
		Holidays:     []entity.Holiday{{Date: time.Date(2030, 12, 25, 0, 0, 0, 0, time.UTC), Name: "Craciun", IsRecurring: true}},
	}
}

func TestCalendarCache_RoundTrip(t *testing.T) {
	c, mr := newTestCalendarCache(t)
	ctx := context.Background()

	_, ok := c.Get(ctx)
	require.False(t, ok)

	generation, ok := c.Generation(ctx)
	require.True(t, ok)
	require.Zero(t, generation)

	require.True(t, c.Set(ctx, testRules(), generation))
	require.Equal(t, 10*time.Minute, mr.TTL(RedisCalendarRulesKey))

	rules, ok := c.Get(ctx)
	require.True(t, ok)
	require.Len(t, rules.WorkingHours, 7)
	require.Equal(t, "Craciun", rules.Holidays[0].Name)
}

func TestCalendarCache_StaleGenerationIsDropped(t *testing.T) {
	c, _ := newTestCalendarCache(t)
	ctx := context.Background()

	before, ok := c.Generation(ctx)
	require.True(t, ok)

	c.Invalidate(ctx)
	require.False(t, c.Set(ctx, testRules(), before))
	_, ok = c.Get(ctx)
	require.False(t, ok)

	after, ok := c.Generation(ctx)
	require.True(t, ok)
	require.Equal(t, before+1, after)
	require.True(t, c.Set(ctx, testRules(), after))
}

func TestCalendarCache_Disabled(t *testing.T) {
	c := NewCalendarCache(nil, quietLogger())
	ctx := context.Background()

	_, ok := c.Generation(ctx)
	require.False(t, ok)
	require.False(t, c.Set(ctx, testRules(), 0))
	c.Invalidate(ctx)
	_, ok = c.Get(ctx)
	require.False(t, ok)
}
