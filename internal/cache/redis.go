package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Domenick1991/travelbooking/config"
	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisCache holds the flight read cache and the seat assignment locks.
type RedisCache struct {
	client     redis.Cmdable
	flightsTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, flightsTTL time.Duration) *RedisCache {
	return NewRedisCacheWithClient(
		redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		flightsTTL,
	)
}

func NewRedisCacheWithClient(client redis.Cmdable, flightsTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, flightsTTL: flightsTTL}
}

func (c *RedisCache) Close() error {
	if cl, ok := c.client.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// GetFlights returns nil without error on a cache miss.
func (c *RedisCache) GetFlights(ctx context.Context) ([]domain.Flight, error) {
	var flights []domain.Flight
	ok, err := c.get(ctx, flightsKey(), &flights)
	if err != nil || !ok {
		return nil, err
	}
	return flights, nil
}

func (c *RedisCache) SetFlights(ctx context.Context, flights []domain.Flight) error {
	return c.set(ctx, flightsKey(), flights)
}

func (c *RedisCache) GetFlight(ctx context.Context, id int64) (*domain.Flight, error) {
	var f domain.Flight
	ok, err := c.get(ctx, flightKey(id), &f)
	if err != nil || !ok {
		return nil, err
	}
	return &f, nil
}

func (c *RedisCache) SetFlight(ctx context.Context, f *domain.Flight) error {
	return c.set(ctx, flightKey(f.ID), f)
}

// InvalidateFlights drops the list and the given flights after their seat
// counters changed.
func (c *RedisCache) InvalidateFlights(ctx context.Context, flightIDs ...int64) error {
	keys := invalidationKeys(flightIDs)
	return c.client.Del(ctx, keys...).Err()
}

func (c *RedisCache) AcquireSeatLock(ctx context.Context, flightID int64, seat string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, seatLockKey(flightID, seat), "locked", ttl).Result()
}

func (c *RedisCache) ReleaseSeatLock(ctx context.Context, flightID int64, seat string) error {
	return c.client.Del(ctx, seatLockKey(flightID, seat)).Err()
}

func (c *RedisCache) get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (c *RedisCache) set(ctx context.Context, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, c.flightsTTL).Err()
}

func invalidationKeys(flightIDs []int64) []string {
	keys := make([]string, 0, len(flightIDs)+1)
	keys = append(keys, flightsKey())
	for _, id := range flightIDs {
		keys = append(keys, flightKey(id))
	}
	return keys
}

func flightsKey() string {
	return "cache:flights"
}

func flightKey(id int64) string {
	return fmt.Sprintf("cache:flight:%d", id)
}

func seatLockKey(flightID int64, seat string) string {
	return fmt.Sprintf("lock:flight:%d:seat:%s", flightID, seat)
}
