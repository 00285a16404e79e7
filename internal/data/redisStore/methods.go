package redisStore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

func (s *Store) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return s.client.Set(ctx, key, value, expiration).Err()
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	return s.client.Get(ctx, key).Result()
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

func (s *Store) IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	count, err := s.getCount(ctx, key)
	return count > 0, err
}

func (s *Store) getCount(ctx context.Context, key string) (int64, error) {
	return s.client.Exists(ctx, key).Result()
}

// this for the message store

// ListPush appends value and refreshes the key's TTL in one round trip.
func (s *Store) ListPush(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, value)
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Store) ListGetAll(ctx context.Context, key string) ([]string, error) {
	return s.listGetPreviousXMessages(ctx, key, 0)
}

// ListGetLast returns the newest n entries, oldest first. n <= 0 returns the whole list.
func (s *Store) ListGetLast(ctx context.Context, key string, n int) ([]string, error) {
	if n <= 0 {
		return s.ListGetAll(ctx, key)
	}
	return s.listGetPreviousXMessages(ctx, key, -int64(n))
}

func (s *Store) listGetPreviousXMessages(ctx context.Context, key string, start int64) ([]string, error) {
	return s.client.LRange(ctx, key, start, -1).Result()
}
