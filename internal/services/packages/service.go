package packages

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/SIRI-bit-tech/courier-web/internal/broker/messages"
	"github.com/SIRI-bit-tech/courier-web/internal/cache"
	"github.com/SIRI-bit-tech/courier-web/internal/models"
	"github.com/SIRI-bit-tech/courier-web/internal/realtime"
	"github.com/SIRI-bit-tech/courier-web/internal/storage/pgcourier"
	"github.com/pkg/errors"
)

const recentEventsInSnapshot = 10

type Repository interface {
	CreatePackage(ctx context.Context, in models.PackageCreateInput) (*models.Package, error)
	ApplyStatusUpdate(ctx context.Context, upd pgcourier.StatusUpdate) (*models.Package, *models.TrackingEvent, error)
	GetByID(ctx context.Context, id uint64) (*models.Package, error)
	GetByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Package, error)
	ListByOwner(ctx context.Context, ownerID uint64, limit int) ([]*models.Package, error)
	ListRecentEvents(ctx context.Context, packageID uint64, limit int) ([]*models.TrackingEvent, error)
}

// Broadcaster is the in-process bus the pipeline publishes to. Failures are
// logged at the call site and never surface to the status-change caller.
type Broadcaster interface {
	Publish(t realtime.Topic, msg any) error
}

// Producer enqueues the durable after-commit feed (secondary notifications
// hang off it via the notifier worker).
type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Service owns the update pipeline: persist, then broadcast, then enqueue —
// in that order, with only the persist step allowed to fail the call.
type Service struct {
	repo     Repository
	cache    cache.SnapshotCache
	bus      Broadcaster
	producer Producer

	statusTopic        string
	currentTTL         time.Duration
	enforceTransitions bool
}

func New(repo Repository, c cache.SnapshotCache, bus Broadcaster, producer Producer, statusTopic string, currentTTL time.Duration, enforceTransitions bool) *Service {
	return &Service{
		repo:               repo,
		cache:              c,
		bus:                bus,
		producer:           producer,
		statusTopic:        statusTopic,
		currentTTL:         currentTTL,
		enforceTransitions: enforceTransitions,
	}
}

// CreatePackage persists a new package (with its bootstrap events), then
// announces it on the tracking topic, the owner's notifications topic and the
// durable feed. The tracking publish feeds subscribers who joined the topic
// before the package existed.
func (s *Service) CreatePackage(ctx context.Context, in models.PackageCreateInput) (*models.Package, error) {
	if in.OwnerID == 0 {
		return nil, errors.New("ownerId is required")
	}
	if in.RecipientName == "" {
		return nil, errors.New("recipientName is required")
	}

	pkg, err := s.repo.CreatePackage(ctx, in)
	if err != nil {
		return nil, err
	}

	if err := s.bus.Publish(realtime.TrackingTopic(pkg.TrackingNumber), realtime.SnapshotFrame{
		Type: realtime.TypePackageStatus,
		Data: summarize(pkg, false),
	}); err != nil {
		slog.Error("publish package_status failed", "topic", "tracking", "tracking_number", pkg.TrackingNumber, "err", err)
	}

	if err := s.bus.Publish(realtime.NotificationsTopic(pkg.OwnerID), realtime.SnapshotFrame{
		Type: realtime.TypeNewPackage,
		Data: summarize(pkg, true),
	}); err != nil {
		slog.Error("publish new_package failed", "tracking_number", pkg.TrackingNumber, "err", err)
	}

	s.enqueueStatusChanged(pkg, "Package created")
	return pkg, nil
}

// UpdateStatus is the status-change entry point. Persistence failures abort
// the call; everything after the commit is best effort.
func (s *Service) UpdateStatus(ctx context.Context, in models.StatusUpdateInput) (*models.Package, error) {
	if !models.IsValidStatus(in.NewStatus) {
		return nil, errors.Errorf("unknown status %q", in.NewStatus)
	}
	if in.Description == "" {
		in.Description = "Package status updated to " + in.NewStatus
	}

	pkg, ev, err := s.repo.ApplyStatusUpdate(ctx, pgcourier.StatusUpdate{
		PackageID:          in.PackageID,
		NewStatus:          in.NewStatus,
		Description:        in.Description,
		Location:           in.Location,
		Latitude:           in.Latitude,
		Longitude:          in.Longitude,
		ActorID:            in.ActorID,
		EnforceTransitions: s.enforceTransitions,
	})
	if err != nil {
		return nil, err
	}

	s.refreshSnapshotCache(ctx, pkg)

	// Two independent publishes: one topic failing must not stop the other.
	trackingSnap := summarize(pkg, false)
	if err := s.bus.Publish(realtime.TrackingTopic(pkg.TrackingNumber), realtime.SnapshotFrame{
		Type: realtime.TypePackageUpdate,
		Data: trackingSnap,
	}); err != nil {
		slog.Error("publish package_update failed", "topic", "tracking", "tracking_number", pkg.TrackingNumber, "err", err)
	}

	ownerSnap := summarize(pkg, true)
	if err := s.bus.Publish(realtime.NotificationsTopic(pkg.OwnerID), realtime.SnapshotFrame{
		Type: realtime.TypePackageUpdate,
		Data: ownerSnap,
	}); err != nil {
		slog.Error("publish package_update failed", "topic", "notifications", "owner_id", pkg.OwnerID, "err", err)
	}

	s.enqueueStatusChanged(pkg, ev.Description)
	return pkg, nil
}

// enqueueStatusChanged hands the committed change to the durable feed.
// Fire-and-forget: the worker drives the notification sink from there.
func (s *Service) enqueueStatusChanged(pkg *models.Package, description string) {
	if s.producer == nil {
		return
	}
	msg := messages.StatusChanged{
		PackageID:      pkg.ID,
		TrackingNumber: pkg.TrackingNumber,
		Status:         pkg.Status,
		Description:    description,
		OwnerID:        pkg.OwnerID,
		OwnerEmail:     pkg.OwnerEmail,
		RecipientName:  pkg.RecipientName,
		OccurredAt:     pkg.UpdatedAt,
	}
	if msg.Location == "" && pkg.CurrentLocation != nil {
		msg.Location = *pkg.CurrentLocation
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		value, err := json.Marshal(msg)
		if err != nil {
			slog.Error("marshal status-changed message", "err", err)
			return
		}
		if err := s.producer.Publish(ctx, s.statusTopic, []byte(pkg.TrackingNumber), value); err != nil {
			slog.Error("enqueue secondary notification failed", "tracking_number", pkg.TrackingNumber, "err", err)
		}
	}()
}

// TrackingSnapshot returns the current public snapshot, cache-aside through
// redis when configured.
func (s *Service) TrackingSnapshot(ctx context.Context, trackingNumber string) (*models.PackageSnapshot, error) {
	if s.cacheEnabled() {
		if snap, ok, err := s.cache.GetCurrent(ctx, trackingNumber); err == nil && ok {
			return snap, nil
		}
	}

	pkg, err := s.repo.GetByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return nil, err
	}
	snap, err := s.buildFullSnapshot(ctx, pkg)
	if err != nil {
		return nil, err
	}

	if s.cacheEnabled() {
		_ = s.cache.SetCurrent(ctx, trackingNumber, snap, s.currentTTL)
	}
	return snap, nil
}

// UserPackagesSnapshot returns summaries of the owner's packages for the
// notifications-topic snapshot, newest first.
func (s *Service) UserPackagesSnapshot(ctx context.Context, ownerID uint64) ([]*models.PackageSnapshot, error) {
	pkgs, err := s.repo.ListByOwner(ctx, ownerID, 50)
	if err != nil {
		return nil, err
	}
	out := make([]*models.PackageSnapshot, 0, len(pkgs))
	for _, p := range pkgs {
		out = append(out, summarize(p, true))
	}
	return out, nil
}

func (s *Service) ListEvents(ctx context.Context, packageID uint64, limit int) ([]*models.TrackingEvent, error) {
	return s.repo.ListRecentEvents(ctx, packageID, limit)
}

func (s *Service) GetByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Package, error) {
	return s.repo.GetByTrackingNumber(ctx, trackingNumber)
}

func (s *Service) GetByID(ctx context.Context, id uint64) (*models.Package, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) cacheEnabled() bool {
	return s.cache != nil && s.currentTTL > 0
}

func (s *Service) refreshSnapshotCache(ctx context.Context, pkg *models.Package) {
	if !s.cacheEnabled() {
		return
	}
	snap, err := s.buildFullSnapshot(ctx, pkg)
	if err != nil {
		slog.Warn("refresh snapshot cache failed", "tracking_number", pkg.TrackingNumber, "err", err)
		return
	}
	_ = s.cache.SetCurrent(ctx, pkg.TrackingNumber, snap, s.currentTTL)
}

func (s *Service) buildFullSnapshot(ctx context.Context, pkg *models.Package) (*models.PackageSnapshot, error) {
	evs, err := s.repo.ListRecentEvents(ctx, pkg.ID, recentEventsInSnapshot)
	if err != nil {
		return nil, err
	}

	snap := summarize(pkg, true)
	snap.TrackingEvents = make([]models.EventSnapshot, 0, len(evs))
	for _, e := range evs {
		createdBy := "System"
		if e.CreatedBy != nil {
			createdBy = "User"
		}
		snap.TrackingEvents = append(snap.TrackingEvents, models.EventSnapshot{
			ID:          e.ID,
			Status:      e.Status,
			Description: e.Description,
			Location:    e.Location,
			Timestamp:   e.Timestamp,
			CreatedBy:   createdBy,
		})
	}
	return snap, nil
}

// summarize builds the broadcast-facing snapshot. The owner variant carries
// the package id and recipient summary; the public tracking variant does not.
func summarize(pkg *models.Package, forOwner bool) *models.PackageSnapshot {
	snap := &models.PackageSnapshot{
		TrackingNumber:    pkg.TrackingNumber,
		Status:            pkg.Status,
		CurrentLocation:   pkg.CurrentLocation,
		Latitude:          pkg.CurrentLatitude,
		Longitude:         pkg.CurrentLongitude,
		EstimatedDelivery: pkg.EstimatedDelivery,
		LastUpdated:       pkg.UpdatedAt,
		OwnerID:           pkg.OwnerID,
	}
	if forOwner {
		snap.PackageID = pkg.ID
		snap.RecipientName = pkg.RecipientName
		snap.RecipientAddress = pkg.RecipientAddress
	}
	return snap
}
