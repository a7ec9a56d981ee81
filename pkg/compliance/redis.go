package compliance

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const (
	rateKeyPrefix   = "cadence:rate"
	optOutKeyPrefix = "cadence:optout"

	// Window keys expire well after the window closes; expiry is only
	// garbage collection, the key encodes the window boundary.
	hourKeyTTL = 2 * time.Hour
	dayKeyTTL  = 48 * time.Hour
)

// RedisRateCounter shares fixed-window counts across workers through
// Redis. INCR-then-undo keeps check-and-increment effectively atomic: a
// reservation that overshoots a limit is rolled back before denying.
type RedisRateCounter struct {
	client redis.UniversalClient
}

func NewRedisRateCounter(client redis.UniversalClient) *RedisRateCounter {
	return &RedisRateCounter{client: client}
}

func (c *RedisRateCounter) Reserve(ctx context.Context, channel string, now time.Time, hourlyLimit, dailyLimit int) (bool, time.Time, error) {
	hourKey := fmt.Sprintf("%s:%s:hour:%s", rateKeyPrefix, channel, hourWindow(now).UTC().Format("2006010215"))
	dayKey := fmt.Sprintf("%s:%s:day:%s", rateKeyPrefix, channel, dayWindow(now).UTC().Format("20060102"))

	pipe := c.client.TxPipeline()
	hourIncr := pipe.Incr(ctx, hourKey)
	dayIncr := pipe.Incr(ctx, dayKey)
	pipe.Expire(ctx, hourKey, hourKeyTTL)
	pipe.Expire(ctx, dayKey, dayKeyTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, time.Time{}, fmt.Errorf("failed to increment rate counters: %w", err)
	}

	overHour := hourlyLimit > 0 && hourIncr.Val() > int64(hourlyLimit)
	overDay := dailyLimit > 0 && dayIncr.Val() > int64(dailyLimit)

	if !overHour && !overDay {
		return true, time.Time{}, nil
	}

	undo := c.client.TxPipeline()
	undo.Decr(ctx, hourKey)
	undo.Decr(ctx, dayKey)

	if _, err := undo.Exec(ctx); err != nil {
		return false, time.Time{}, fmt.Errorf("failed to roll back rate counters: %w", err)
	}

	if overHour {
		return false, nextHour(now), nil
	}

	return false, nextDay(now), nil
}

// RedisOptOutStore keeps per-channel unsubscribe sets in Redis. Entries
// never expire: opting out is permanent.
type RedisOptOutStore struct {
	client redis.UniversalClient
}

func NewRedisOptOutStore(client redis.UniversalClient) *RedisOptOutStore {
	return &RedisOptOutStore{client: client}
}

func (s *RedisOptOutStore) IsOptedOut(ctx context.Context, channel, contactID string) (bool, error) {
	member, err := s.client.SIsMember(ctx, optOutKeyPrefix+":"+channel, contactID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check opt-out set: %w", err)
	}

	return member, nil
}

func (s *RedisOptOutStore) RecordOptOut(ctx context.Context, channel, contactID string) error {
	if err := s.client.SAdd(ctx, optOutKeyPrefix+":"+channel, contactID).Err(); err != nil {
		return fmt.Errorf("failed to record opt-out: %w", err)
	}

	return nil
}
