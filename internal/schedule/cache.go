package schedule

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache keeps recently fetched group schedules in Redis so repeated day views
// don't hammer the campus API. Raw entries cache well: sessions are recomputed
// from them on every load and never stored.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache creates a schedule cache with the given entry TTL.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

func cacheKey(groupID, semester string) string {
	return "classtrack:schedule:" + groupID + ":" + semester
}

// Get returns the cached response for the group and semester, if present.
// Any Redis or decode failure reads as a miss.
func (c *Cache) Get(ctx context.Context, groupID, semester string) (*ScheduleResponse, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, cacheKey(groupID, semester)).Bytes()
	if err != nil {
		return nil, false
	}
	var resp ScheduleResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

// Put stores a response under the group and semester key.
func (c *Cache) Put(ctx context.Context, groupID, semester string, resp *ScheduleResponse) error {
	if c == nil || c.client == nil || resp == nil {
		return nil
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(groupID, semester), raw, c.ttl).Err()
}
