package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	domain "p2p-credit-origination/internal/domain/marketplace"
)

// MemoryClaimer arbitrates claims inside one process.
type MemoryClaimer struct {
	mu     sync.Mutex
	claims map[string]domain.Resolution
}

func NewMemoryClaimer() *MemoryClaimer {
	return &MemoryClaimer{claims: map[string]domain.Resolution{}}
}

func (c *MemoryClaimer) Claim(_ context.Context, listingID string, r domain.Resolution) (domain.Resolution, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.claims[listingID]; ok {
		return cur, false, nil
	}
	c.claims[listingID] = r
	return r, true, nil
}

// Forget drops a settled claim.
func (c *MemoryClaimer) Forget(listingID string) {
	c.mu.Lock()
	delete(c.claims, listingID)
	c.mu.Unlock()
}

const claimKeyPrefix = "mkt:claim:"

// RedisClaimer records each listing's winning outcome with SETNX. Listings
// live on the Board of the instance that published them, so the claim only
// arbitrates between that instance's goroutines; what redis adds is an outcome
// that outlives the board entry until the TTL runs out.
type RedisClaimer struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisClaimer(rdb *redis.Client, ttl time.Duration) *RedisClaimer {
	return &RedisClaimer{rdb: rdb, ttl: ttl}
}

func claimKey(listingID string) string { return claimKeyPrefix + listingID }

func (c *RedisClaimer) Claim(ctx context.Context, listingID string, r domain.Resolution) (domain.Resolution, bool, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return domain.Resolution{}, false, err
	}
	key := claimKey(listingID)
	// the winner's key can expire between SETNX and GET; one retry covers it
	for i := 0; i < 2; i++ {
		ok, err := c.rdb.SetNX(ctx, key, payload, c.ttl).Result()
		if err != nil {
			return domain.Resolution{}, false, err
		}
		if ok {
			return r, true, nil
		}
		raw, err := c.rdb.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return domain.Resolution{}, false, err
		}
		var cur domain.Resolution
		if err := json.Unmarshal(raw, &cur); err != nil {
			return domain.Resolution{}, false, err
		}
		return cur, false, nil
	}
	return domain.Resolution{}, false, errors.New("claim key churned during arbitration")
}
