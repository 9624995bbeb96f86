package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/SIRI-bit-tech/courier-web/internal/models"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// SnapshotCache keeps the current-state snapshot per package in redis, keyed
// package:<tracking>:current, JSON-encoded. Best effort: the service works
// without it, just slower.
type SnapshotCache struct {
	c *redis.Client
}

func New(addr string) *SnapshotCache {
	return &SnapshotCache{
		c: redis.NewClient(&redis.Options{
			Addr: addr,
		}),
	}
}

func snapshotKey(trackingNumber string) string {
	return "package:" + trackingNumber + ":current"
}

func (r *SnapshotCache) GetCurrent(ctx context.Context, trackingNumber string) (*models.PackageSnapshot, bool, error) {
	b, err := r.c.Get(ctx, snapshotKey(trackingNumber)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "redis get")
	}

	var snap models.PackageSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		// битая запись равносильна промаху
		return nil, false, nil
	}
	return &snap, true, nil
}

func (r *SnapshotCache) SetCurrent(ctx context.Context, trackingNumber string, snap *models.PackageSnapshot, ttl time.Duration) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "marshal snapshot")
	}
	if err := r.c.Set(ctx, snapshotKey(trackingNumber), b, ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}
