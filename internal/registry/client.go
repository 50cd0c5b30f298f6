package registry

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// Entry is one reservation record as found during a scan. Value holds the
// raw stored string (epoch milliseconds when healthy); Exists is false
// when the key vanished between scan and read.
type Entry struct {
	Key    string
	Value  string
	Exists bool
}

// Client is the reservation registry: a Redis keyspace holding one
// TTL-guarded entry per reserved card. The card store stays authoritative
// for status; these keys only guard the window between allocation and
// confirmation.
type Client struct {
	rdb    *redis.Client
	prefix string
}

// NewClient creates a new registry client and verifies connectivity
func NewClient(addr, password string, db int, keyPrefix string) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb, prefix: keyPrefix}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Key returns the registry key for a card ID
func (c *Client) Key(cardID int64) string {
	return fmt.Sprintf("%s:%d", c.prefix, cardID)
}

// CardIDFromKey derives the card ID back out of a registry key
func (c *Client) CardIDFromKey(key string) (int64, error) {
	idStr, ok := strings.CutPrefix(key, c.prefix+":")
	if !ok {
		return 0, fmt.Errorf("key %q outside registry namespace %q", key, c.prefix)
	}
	return strconv.ParseInt(idStr, 10, 64)
}

// Put writes a reservation entry stamped with the given instant,
// expiring after ttl
func (c *Client) Put(ctx context.Context, cardID int64, at time.Time, ttl time.Duration) error {
	value := strconv.FormatInt(at.UnixMilli(), 10)
	return c.rdb.Set(ctx, c.Key(cardID), value, ttl).Err()
}

// Exists reports whether a reservation entry exists for the card
func (c *Client) Exists(ctx context.Context, cardID int64) (bool, error) {
	n, err := c.rdb.Exists(ctx, c.Key(cardID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete removes the reservation entry for a card
func (c *Client) Delete(ctx context.Context, cardID int64) error {
	return c.rdb.Del(ctx, c.Key(cardID)).Err()
}

// DeleteKeys removes raw registry keys collected by a scan
func (c *Client) DeleteKeys(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// Scan walks the registry namespace and reads every entry's value.
// A key that disappears mid-scan is returned with Exists=false so the
// caller can still clean it up.
func (c *Client) Scan(ctx context.Context) ([]Entry, error) {
	var (
		entries []Entry
		cursor  uint64
	)

	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, c.prefix+":*", 1000).Result()
		if err != nil {
			return nil, fmt.Errorf("registry scan failed: %w", err)
		}

		for _, key := range keys {
			value, err := c.rdb.Get(ctx, key).Result()
			if err == redis.Nil {
				entries = append(entries, Entry{Key: key, Exists: false})
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("registry read failed for %s: %w", key, err)
			}
			entries = append(entries, Entry{Key: key, Value: value, Exists: true})
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return entries, nil
}
