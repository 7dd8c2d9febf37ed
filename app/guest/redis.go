package guest

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// incrementBelow bumps KEYS[1] iff it is below ARGV[1]. Returns -1 when the
// limit is reached. ARGV[2] is an optional expiry in seconds. A stored value
// that is not a non-negative integer is reset to 0 first, matching Read.
var incrementBelow = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]))
if current == nil or current < 0 or current ~= math.floor(current) then
	current = 0
	redis.call("SET", KEYS[1], "0")
end
if current >= tonumber(ARGV[1]) then
	return -1
end
local n = redis.call("INCR", KEYS[1])
local ttl = tonumber(ARGV[2])
if ttl > 0 then
	redis.call("EXPIRE", KEYS[1], ttl)
end
return n
`)

// RedisStore shares guest counters across instances. Values are decimal
// strings under guest_usage_count:<guest id>.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore returns a store whose counters expire after ttl; zero keeps
// them until deleted.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// NewRedisClient parses a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (s *RedisStore) Read(ctx context.Context, guestID string) (int, error) {
	raw, err := s.client.Get(ctx, storageKey(guestID)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get: %w", err)
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		// A corrupt value counts as a fresh guest; Increment resets it the
		// same way.
		return 0, nil
	}
	return n, nil
}

func (s *RedisStore) Increment(ctx context.Context, guestID string, limit int) (int, error) {
	res, err := incrementBelow.Run(ctx, s.client,
		[]string{storageKey(guestID)},
		limit, int64(s.ttl/time.Second),
	).Int()
	if err != nil {
		return 0, fmt.Errorf("redis increment: %w", err)
	}
	if res < 0 {
		return limit, ErrLimitReached
	}
	return res, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
