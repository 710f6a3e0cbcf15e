package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Store holds opaque values under string keys for a bounded time.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte) error
	Delete(ctx context.Context, key string) error
	// Incr atomically adds one to a decimal counter, creating it at 1.
	// The counter can be read back with Get.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

func GetJSON[V any](ctx context.Context, s Store, key string) (V, bool, error) {
	var v V

	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return v, false, err
	}

	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return v, true, nil
}

func SetJSON[V any](ctx context.Context, s Store, key string, v V) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}
