package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/hotelaccess/config"
	"github.com/Domenick1991/hotelaccess/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client       *redis.Client
	roomTypesTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, roomTypesTTL time.Duration) *RedisCache {
	return NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}), roomTypesTTL)
}

func NewRedisCacheFromClient(client *redis.Client, roomTypesTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, roomTypesTTL: roomTypesTTL}
}

// GetRoomTypes returns (nil, nil) on a cache miss.
func (c *RedisCache) GetRoomTypes(ctx context.Context, minOccupancy int) ([]domain.RoomType, error) {
	data, err := c.client.Get(ctx, roomTypesKey(minOccupancy)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var types []domain.RoomType
	if err := json.Unmarshal(data, &types); err != nil {
		return nil, err
	}
	return types, nil
}

func (c *RedisCache) SetRoomTypes(ctx context.Context, minOccupancy int, types []domain.RoomType) error {
	payload, err := json.Marshal(types)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, roomTypesKey(minOccupancy), payload, c.roomTypesTTL).Err()
}

// AcquireIssuanceGuard marks a booking as having a credential request in flight.
// It only deflects duplicate provider calls; the store still enforces one active key.
func (c *RedisCache) AcquireIssuanceGuard(ctx context.Context, bookingID string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, issuanceKey(bookingID), "issuing", ttl).Result()
}

func (c *RedisCache) ReleaseIssuanceGuard(ctx context.Context, bookingID string) error {
	return c.client.Del(ctx, issuanceKey(bookingID)).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func roomTypesKey(minOccupancy int) string {
	return fmt.Sprintf("cache:room_types:min:%d", minOccupancy)
}

func issuanceKey(bookingID string) string {
	return fmt.Sprintf("lock:booking:%s:issuance", bookingID)
}
