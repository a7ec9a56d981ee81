package compliance

import (
	"context"
	"sync"
	"time"
)

// MemoryRateCounter keeps fixed calendar-window counts in process memory.
// Suitable for a single-node deployment and for tests; multi-node setups
// should use the Redis counter so all workers share one budget.
type MemoryRateCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewMemoryRateCounter() *MemoryRateCounter {
	return &MemoryRateCounter{counts: make(map[string]int)}
}

// Reserve checks both windows and increments them under one lock, so the
// capacity check and the count are a single operation.
func (c *MemoryRateCounter) Reserve(_ context.Context, channel string, now time.Time, hourlyLimit, dailyLimit int) (bool, time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hourKey := channel + ":hour:" + hourWindow(now).Format("2006010215")
	dayKey := channel + ":day:" + dayWindow(now).Format("20060102")

	if hourlyLimit > 0 && c.counts[hourKey] >= hourlyLimit {
		return false, nextHour(now), nil
	}

	if dailyLimit > 0 && c.counts[dayKey] >= dailyLimit {
		return false, nextDay(now), nil
	}

	c.counts[hourKey]++
	c.counts[dayKey]++

	return true, time.Time{}, nil
}

func hourWindow(now time.Time) time.Time {
	return now.Truncate(time.Hour)
}

func dayWindow(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

func nextHour(now time.Time) time.Time {
	return hourWindow(now).Add(time.Hour)
}

func nextDay(now time.Time) time.Time {
	return dayWindow(now).AddDate(0, 0, 1)
}
