package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"factory-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

const shortageKeyFmt = "plans:%d:shortages"

// Cache wraps an optional Redis client. Every method is a no-op on a nil or
// disconnected cache, so callers never branch on availability.
type Cache struct {
	client      *redis.Client
	shortageTTL time.Duration
}

// Options configures the Redis connection
type Options struct {
	Addr        string
	Password    string
	DB          int
	ShortageTTL time.Duration
}

// New connects to Redis. On a failed ping it returns the error together with a
// disabled cache for graceful degradation.
func New(opts Options) (*Cache, error) {
	ttl := opts.ShortageTTL
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return &Cache{shortageTTL: ttl}, err
	}
	return &Cache{client: client, shortageTTL: ttl}, nil
}

// Disabled returns a cache that never hits
func Disabled() *Cache {
	return &Cache{}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

func (c *Cache) Close() error {
	if !c.enabled() {
		return nil
	}
	return c.client.Close()
}

// IsHealthy returns true if the Redis connection is working
func (c *Cache) IsHealthy(ctx context.Context) bool {
	if !c.enabled() {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.client.Ping(ctx).Err() == nil
}

// GetShortages returns the cached projection of a plan
func (c *Cache) GetShortages(ctx context.Context, planID int) ([]models.MaterialShortage, bool) {
	if !c.enabled() {
		return nil, false
	}
	data, err := c.client.Get(ctx, fmt.Sprintf(shortageKeyFmt, planID)).Bytes()
	if err != nil {
		return nil, false
	}
	var shortages []models.MaterialShortage
	if err := json.Unmarshal(data, &shortages); err != nil {
		return nil, false
	}
	return shortages, true
}

// SetShortages caches a plan's projection for the configured TTL
func (c *Cache) SetShortages(ctx context.Context, planID int, shortages []models.MaterialShortage) {
	if !c.enabled() {
		return
	}
	data, err := json.Marshal(shortages)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, fmt.Sprintf(shortageKeyFmt, planID), data, c.shortageTTL).Err(); err != nil {
		log.Printf("[Cache] Failed to cache shortages for plan %d: %v", planID, err)
	}
}

// InvalidatePlan drops everything cached for a plan
// Called when: CreatePlan, UpdatePlan, DeletePlan, SplitTask, MergeTask,
// RescheduleTask, PlaceTask
func (c *Cache) InvalidatePlan(ctx context.Context, planID int) {
	if !c.enabled() {
		return
	}
	c.client.Del(ctx, fmt.Sprintf(shortageKeyFmt, planID))
}
