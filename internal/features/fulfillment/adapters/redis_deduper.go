package adapters

import (
	"context"
	"fmt"
	"time"

	"card-fulfillment/internal/core/cache"
)

const deliveryKeyPrefix = "webhook:delivery:"

// RedisDeduper implements ports.DeliveryDeduper on top of the shared cache.
type RedisDeduper struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewRedisDeduper creates a deduper that remembers deliveries for ttl.
func NewRedisDeduper(c cache.Cache, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{
		cache: c,
		ttl:   ttl,
	}
}

// FirstDelivery records key and reports whether this is the first time it was seen within the TTL.
func (d *RedisDeduper) FirstDelivery(ctx context.Context, key string) (bool, error) {
	stored, err := d.cache.SetIfAbsent(ctx, deliveryKeyPrefix+key, []byte(time.Now().UTC().Format(time.RFC3339)), d.ttl)
	if err != nil {
		return false, fmt.Errorf("dedup: failed to record delivery: %w", err)
	}
	return stored, nil
}

// Release removes key so the next delivery is processed.
func (d *RedisDeduper) Release(ctx context.Context, key string) error {
	if err := d.cache.Delete(ctx, deliveryKeyPrefix+key); err != nil {
		return fmt.Errorf("dedup: failed to release delivery: %w", err)
	}
	return nil
}
