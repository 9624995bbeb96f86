package mocks

import (
	"context"

	"github.com/SIRI-bit-tech/courier-web/internal/models"
	"github.com/SIRI-bit-tech/courier-web/internal/storage/pgcourier"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreatePackage(ctx context.Context, in models.PackageCreateInput) (*models.Package, error) {
	args := m.Called(ctx, in)
	pkg, _ := args.Get(0).(*models.Package)
	return pkg, args.Error(1)
}

func (m *MockRepository) ApplyStatusUpdate(ctx context.Context, upd pgcourier.StatusUpdate) (*models.Package, *models.TrackingEvent, error) {
	args := m.Called(ctx, upd)
	pkg, _ := args.Get(0).(*models.Package)
	ev, _ := args.Get(1).(*models.TrackingEvent)
	return pkg, ev, args.Error(2)
}

func (m *MockRepository) GetByID(ctx context.Context, id uint64) (*models.Package, error) {
	args := m.Called(ctx, id)
	pkg, _ := args.Get(0).(*models.Package)
	return pkg, args.Error(1)
}

func (m *MockRepository) GetByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Package, error) {
	args := m.Called(ctx, trackingNumber)
	pkg, _ := args.Get(0).(*models.Package)
	return pkg, args.Error(1)
}

func (m *MockRepository) ListByOwner(ctx context.Context, ownerID uint64, limit int) ([]*models.Package, error) {
	args := m.Called(ctx, ownerID, limit)
	pkgs, _ := args.Get(0).([]*models.Package)
	return pkgs, args.Error(1)
}

func (m *MockRepository) ListRecentEvents(ctx context.Context, packageID uint64, limit int) ([]*models.TrackingEvent, error) {
	args := m.Called(ctx, packageID, limit)
	evs, _ := args.Get(0).([]*models.TrackingEvent)
	return evs, args.Error(1)
}
