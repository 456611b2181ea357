package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"errors"        // Error inspection
	"strconv"       // Generation numbers in keys
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Structured logging
)

// DefaultCacheTTL is how long a cached list stays valid
const DefaultCacheTTL = 60 * time.Second

// generationTTL keeps a user's generation counter well past any list cached under it
const generationTTL = 24 * time.Hour

// Cache kinds held per user
const (
	CacheCategories = "categories"
	CacheExpenses   = "expenses"
	CacheIncomes    = "incomes"
)

// Cache is a read-through JSON cache over Redis. A nil *Cache, or one built
// without a client, is a no-op: every lookup misses and writes are dropped.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCache wraps rdb; a nil client yields a disabled cache
func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL // Fall back to the default TTL
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

// Enabled reports whether a Redis client is attached
func (c *Cache) Enabled() bool {
	return c != nil && c.rdb != nil
}

// generationKey holds the counter InvalidateUser bumps
func generationKey(userID string) string {
	return "budget:user:" + userID + ":gen"
}

// UserKey builds the cache key of one list owned by a user at a generation
func UserKey(userID string, generation int64, kind string) string {
	return "budget:user:" + userID + ":v" + strconv.FormatInt(generation, 10) + ":" + kind
}

// ListKey returns the key of a user's list under the current generation.
// Callers must resolve it before loading the list: a list loaded across an
// invalidation is then written under the old generation, where no reader
// looks any more.
func (c *Cache) ListKey(ctx context.Context, userID, kind string) (string, error) {
	if !c.Enabled() {
		return UserKey(userID, 0, kind), nil
	}
	gen, err := c.rdb.Get(ctx, generationKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		gen = 0 // No mutation seen yet
	} else if err != nil {
		return "", err
	}
	return UserKey(userID, gen, kind), nil
}

// Get retrieves a value from Redis and unmarshals it into dest
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.Enabled() {
		return false, nil // Disabled cache always misses
	}
	val, err := c.rdb.Get(ctx, key).Result() // Get value from Redis
	if errors.Is(err, redis.Nil) {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, err // Corrupt entry counts as a miss for the caller
	}
	return true, nil
}

// Set stores a value in Redis with the cache TTL
func (c *Cache) Set(ctx context.Context, key string, value any) error {
	if !c.Enabled() {
		return nil
	}
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return c.rdb.Set(ctx, key, b, c.ttl).Err() // Set value in Redis with TTL
}

// InvalidateUser moves the user to a new cache generation, orphaning every
// list cached so far. Failures are logged, not returned: a stale entry expires
// with the TTL anyway.
func (c *Cache) InvalidateUser(ctx context.Context, userID string) {
	if !c.Enabled() || userID == "" {
		return
	}
	key := generationKey(userID)
	pipe := c.rdb.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, generationTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id": userID,
			"error":   err.Error(),
		}).Warn("Failed to invalidate cache")
	}
}
