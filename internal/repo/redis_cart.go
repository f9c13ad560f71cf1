package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Skotchmaster/shopping/internal/models"
	"github.com/redis/go-redis/v9"
)

const defaultMaxRetries = 5

// RedisCartStore keeps each cart as a JSON document under cart:<customer>.
// Writes use WATCH/MULTI and retry when another writer touched the key.
type RedisCartStore struct {
	client     *redis.Client
	maxRetries int
}

type redisCart struct {
	Version int64             `json:"version"`
	Items   []models.CartItem `json:"items"`
}

func NewRedisCartStore(client *redis.Client) *RedisCartStore {
	return &RedisCartStore{
		client:     client,
		maxRetries: defaultMaxRetries,
	}
}

func (r *RedisCartStore) Get(ctx context.Context, customerID string) ([]models.CartItem, error) {
	cart, _, err := readRedisCart(ctx, r.client, cartKey(customerID))
	if err != nil {
		return nil, err
	}
	return cart.Items, nil
}

func (r *RedisCartStore) GetVersioned(ctx context.Context, customerID string) ([]models.CartItem, int64, error) {
	cart, _, err := readRedisCart(ctx, r.client, cartKey(customerID))
	if err != nil {
		return nil, 0, err
	}
	return cart.Items, cart.Version, nil
}

func (r *RedisCartStore) Update(ctx context.Context, customerID string, fn MutateFunc) ([]models.CartItem, error) {
	var out []models.CartItem

	err := r.write(ctx, customerID, func(cart redisCart, _ bool) (*redisCart, error) {
		next, err := fn(cart.Items)
		if err != nil {
			return nil, err
		}
		out = models.CloneItems(nonNil(next))
		return &redisCart{Version: cart.Version + 1, Items: nonNil(next)}, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Clear empties an existing cart and leaves absent carts absent.
func (r *RedisCartStore) Clear(ctx context.Context, customerID string) error {
	return r.write(ctx, customerID, func(cart redisCart, exists bool) (*redisCart, error) {
		if !exists {
			return nil, nil
		}
		return &redisCart{Version: cart.Version + 1, Items: []models.CartItem{}}, nil
	})
}

func (r *RedisCartStore) ClearVersion(ctx context.Context, customerID string, version int64) (bool, error) {
	cleared := false

	err := r.write(ctx, customerID, func(cart redisCart, exists bool) (*redisCart, error) {
		cleared = cart.Version == version
		if !cleared || !exists {
			return nil, nil
		}
		return &redisCart{Version: cart.Version + 1, Items: []models.CartItem{}}, nil
	})
	if err != nil {
		return false, err
	}
	return cleared, nil
}

// write runs fn on the current cart inside WATCH and stores what it returns.
// A nil cart from fn leaves the key untouched.
func (r *RedisCartStore) write(ctx context.Context, customerID string, fn func(cart redisCart, exists bool) (*redisCart, error)) error {
	key := cartKey(customerID)

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			current, exists, err := readRedisCart(ctx, tx, key)
			if err != nil {
				return err
			}

			next, err := fn(current, exists)
			if err != nil || next == nil {
				return err
			}

			data, err := json.Marshal(next)
			if err != nil {
				return fmt.Errorf("marshal cart failed: %w", err)
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, 0)
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}

	return ErrConflict
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readRedisCart(ctx context.Context, c stringGetter, key string) (redisCart, bool, error) {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return redisCart{Items: []models.CartItem{}}, false, nil
	}
	if err != nil {
		return redisCart{}, false, fmt.Errorf("redis get failed: %w", err)
	}

	var cart redisCart
	if err := json.Unmarshal(data, &cart); err != nil {
		return redisCart{}, false, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	cart.Items = nonNil(cart.Items)
	return cart, true, nil
}

func cartKey(customerID string) string {
	return fmt.Sprintf("cart:%s", customerID)
}

func nonNil(items []models.CartItem) []models.CartItem {
	if items == nil {
		return []models.CartItem{}
	}
	return items
}
