package cmd

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/cadencehq/cadence/pkg/compliance"
)

// NewComplianceStores builds the opt-out store and rate counter. With a
// Redis URL the stores are shared across workers; without one they are
// in-memory and suited for a single process only.
func NewComplianceStores(redisURL string) (compliance.OptOutStore, compliance.RateCounter) {
	if redisURL == "" {
		return compliance.NewMemoryOptOutStore(), compliance.NewMemoryRateCounter()
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		panic(fmt.Errorf("failed to parse redis url: %w", err))
	}

	client := redis.NewClient(opts)

	return compliance.NewRedisOptOutStore(client), compliance.NewRedisRateCounter(client)
}
