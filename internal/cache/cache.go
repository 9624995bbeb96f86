package cache

import (
	"context"
	"time"

	"github.com/SIRI-bit-tech/courier-web/internal/models"
)

// SnapshotCache holds the public current-state snapshot per tracking number.
// A miss is (nil, false, nil). A nil cache (or zero TTL) disables caching
// entirely.
type SnapshotCache interface {
	GetCurrent(ctx context.Context, trackingNumber string) (*models.PackageSnapshot, bool, error)
	SetCurrent(ctx context.Context, trackingNumber string, snap *models.PackageSnapshot, ttl time.Duration) error
}
