package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"itp-scheduler/internal/domain/entity"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	RedisCalendarRulesKey      = "calendar:rules:v1"
	RedisCalendarGenerationKey = "calendar:rules:generation"

	calendarCacheTTL     = 10 * time.Minute
	calendarCacheTimeout = 500 * time.Millisecond
)

// setIfGenerationScript writes the rules only while the generation is still
// the one the caller observed before reading the database.
var setIfGenerationScript = redis.NewScript(`
local current = redis.call("GET", KEYS[2]) or "0"
if current ~= ARGV[2] then
	return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
return 1
`)

// CalendarRules is the cached copy of working hours and holidays.
type CalendarRules struct {
	WorkingHours []entity.WorkingHours `json:"working_hours"`
	Holidays     []entity.Holiday      `json:"holidays"`
}

// CalendarCache keeps calendar rules in Redis. Every method is a no-op when
// Redis is disabled and cache errors only ever cause a miss.
type CalendarCache struct {
	redisClient *redis.Client
	log         *logrus.Logger
}

func NewCalendarCache(redisClient *redis.Client, log *logrus.Logger) *CalendarCache {
	return &CalendarCache{redisClient: redisClient, log: log}
}

func (c *CalendarCache) Get(ctx context.Context) (*CalendarRules, bool) {
	if c == nil || c.redisClient == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, calendarCacheTimeout)
	defer cancel()

	raw, err := c.redisClient.Get(ctx, RedisCalendarRulesKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warnf("Failed to read calendar cache: %+v", err)
		}
		return nil, false
	}

	var rules CalendarRules
	if err := json.Unmarshal(raw, &rules); err != nil {
		c.log.Warnf("Failed to decode calendar cache: %+v", err)
		return nil, false
	}
	return &rules, true
}

// Generation returns the current invalidation counter. ok is false when
// Redis is disabled or unreachable, in which case nothing should be cached.
func (c *CalendarCache) Generation(ctx context.Context) (generation int64, ok bool) {
	if c == nil || c.redisClient == nil {
		return 0, false
	}
	ctx, cancel := context.WithTimeout(ctx, calendarCacheTimeout)
	defer cancel()

	generation, err := c.redisClient.Get(ctx, RedisCalendarGenerationKey).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, true
		}
		c.log.Warnf("Failed to read calendar cache generation: %+v", err)
		return 0, false
	}
	return generation, true
}

// Set stores rules read under generation. A write is dropped when an
// invalidation happened since, so stale rules never outlive a calendar change.
func (c *CalendarCache) Set(ctx context.Context, rules *CalendarRules, generation int64) bool {
	if c == nil || c.redisClient == nil {
		return false
	}
	raw, err := json.Marshal(rules)
	if err != nil {
		c.log.Warnf("Failed to encode calendar cache: %+v", err)
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, calendarCacheTimeout)
	defer cancel()
	stored, err := setIfGenerationScript.Run(ctx, c.redisClient,
		[]string{RedisCalendarRulesKey, RedisCalendarGenerationKey},
		raw, strconv.FormatInt(generation, 10), calendarCacheTTL.Milliseconds(),
	).Int()
	if err != nil {
		c.log.Warnf("Failed to write calendar cache: %+v", err)
		return false
	}
	return stored == 1
}

// Invalidate bumps the generation before dropping the cached rules.
func (c *CalendarCache) Invalidate(ctx context.Context) {
	if c == nil || c.redisClient == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, calendarCacheTimeout)
	defer cancel()
	_, err := c.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, RedisCalendarGenerationKey)
		pipe.Del(ctx, RedisCalendarRulesKey)
		return nil
	})
	if err != nil {
		c.log.Warnf("Failed to invalidate calendar cache: %+v", err)
	}
}
