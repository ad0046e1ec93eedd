package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps carts server-side, keyed by session id.
type RedisStore struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client:  client,
		baseTTL: 7 * 24 * time.Hour,
	}
}

func (r *RedisStore) Get(ctx context.Context, key string) (Cart, error) {
	data, err := r.client.Get(ctx, cacheKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	return decodeCart(data)
}

func (r *RedisStore) Save(ctx context.Context, key string, c Cart) error {
	if len(c) == 0 {
		if err := r.Delete(ctx, key); err != nil && !errors.Is(err, ErrCartNotFound) {
			return err
		}
		return nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	if err := r.client.Set(ctx, cacheKey(key), data, r.ttl()).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	n, err := r.client.Del(ctx, cacheKey(key)).Result()
	if err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	if n == 0 {
		return ErrCartNotFound
	}
	return nil
}

// Mutate runs fn under WATCH so concurrent writers to one cart cannot lose updates.
func (r *RedisStore) Mutate(ctx context.Context, key string, fn func(Cart) (Cart, error)) error {
	k := cacheKey(key)
	txf := func(tx *redis.Tx) error {
		current := Cart{}
		data, err := tx.Get(ctx, k).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("redis get failed: %w", err)
		default:
			if current, err = decodeCart(data); err != nil {
				return err
			}
		}

		next, err := fn(current.Clone())
		if err != nil {
			return err
		}

		var payload []byte
		if len(next) > 0 {
			if payload, err = json.Marshal(next); err != nil {
				return fmt.Errorf("marshal cart failed: %w", err)
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if payload == nil {
				pipe.Del(ctx, k)
				return nil
			}
			pipe.Set(ctx, k, payload, r.ttl())
			return nil
		})
		return err
	}

	for i := 0; i < maxMutateAttempts; i++ {
		err := r.client.Watch(ctx, txf, k)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrConcurrentUpdate
}

func (r *RedisStore) ttl() time.Duration {
	return r.baseTTL + time.Duration(rand.Intn(12))*time.Hour
}

func decodeCart(data []byte) (Cart, error) {
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	if c == nil {
		c = Cart{}
	}
	return c, nil
}

func cacheKey(key string) string {
	return fmt.Sprintf("cart:%s", key)
}
