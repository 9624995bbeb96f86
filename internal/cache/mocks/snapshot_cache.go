package mocks

import (
	"context"
	"time"

	"github.com/SIRI-bit-tech/courier-web/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockSnapshotCache struct {
	mock.Mock
}

func (m *MockSnapshotCache) GetCurrent(ctx context.Context, trackingNumber string) (*models.PackageSnapshot, bool, error) {
	args := m.Called(ctx, trackingNumber)
	var snap *models.PackageSnapshot
	if args.Get(0) != nil {
		snap = args.Get(0).(*models.PackageSnapshot)
	}
	return snap, args.Bool(1), args.Error(2)
}

func (m *MockSnapshotCache) SetCurrent(ctx context.Context, trackingNumber string, snap *models.PackageSnapshot, ttl time.Duration) error {
	args := m.Called(ctx, trackingNumber, snap, ttl)
	return args.Error(0)
}
