package pgcourier

import (
	"context"
	"strings"
	"time"

	"github.com/SIRI-bit-tech/courier-web/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// GenerateTrackingNumber returns a fresh public tracking identifier in the
// SCXXXXXXXX form the original service used.
func GenerateTrackingNumber() string {
	return "SC" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// CreatePackage inserts a package and its two bootstrap events ("created" and
// "pending") in a single transaction. The projection status and the latest
// event status start out equal and stay equal from here on.
func (s *Storage) CreatePackage(ctx context.Context, in models.PackageCreateInput) (*models.Package, error) {
	now := time.Now().UTC()
	trackingNumber := GenerateTrackingNumber()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, wrapPersistence(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id uint64
	err = tx.QueryRow(ctx, `
INSERT INTO packages (
  tracking_number, owner_id, owner_email, recipient_name, recipient_address,
  status, estimated_delivery, created_at, updated_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
RETURNING id
`, trackingNumber, in.OwnerID, in.OwnerEmail, in.RecipientName, in.RecipientAddress,
		models.StatusPending, in.EstimatedDelivery, now).Scan(&id)
	if err != nil {
		return nil, wrapPersistence(err, "insert package")
	}

	bootstrap := []struct {
		status      string
		description string
	}{
		{"created", "Package created and ready for pickup at " + in.SenderAddress},
		{models.StatusPending, "Package is pending pickup"},
	}

	for _, e := range bootstrap {
		_, err = tx.Exec(ctx, `
INSERT INTO tracking_events (package_id, status, description, location, timestamp, created_by)
VALUES ($1,$2,$3,$4, clock_timestamp(), $5)
`, id, e.status, e.description, in.SenderAddress, in.OwnerID)
		if err != nil {
			return nil, wrapPersistence(err, "insert bootstrap event")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, wrapPersistence(err, "commit tx")
	}

	return s.GetByID(ctx, id)
}

// StatusUpdate is one status change applied atomically: projection fields and
// the corresponding event either both land or neither does.
type StatusUpdate struct {
	PackageID   uint64
	NewStatus   string
	Description string
	Location    string
	Latitude    *float64
	Longitude   *float64
	ActorID     *uint64

	// EnforceTransitions rejects changes the status state machine does not
	// allow. When off, any valid status may be set from any prior one.
	EnforceTransitions bool
}

// ApplyStatusUpdate locks the package row, updates the projection and appends
// exactly one tracking event. The row lock serializes concurrent updates to
// the same package; updates to different packages do not contend.
func (s *Storage) ApplyStatusUpdate(ctx context.Context, upd StatusUpdate) (*models.Package, *models.TrackingEvent, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, wrapPersistence(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var currentStatus string
	err = tx.QueryRow(ctx, `
SELECT status FROM packages WHERE id = $1 FOR UPDATE
`, upd.PackageID).Scan(&currentStatus)
	if err == pgx.ErrNoRows {
		return nil, nil, models.ErrNotFound
	}
	if err != nil {
		return nil, nil, wrapPersistence(err, "lock package")
	}

	if upd.EnforceTransitions && !models.CanTransition(currentStatus, upd.NewStatus) {
		return nil, nil, errors.Wrapf(models.ErrInvalidTransition, "%s -> %s", currentStatus, upd.NewStatus)
	}

	// RETURNING pins the returned projection to this event: a read after
	// commit could already see a later concurrent update.
	pkg, err := scanPackage(tx.QueryRow(ctx, `
UPDATE packages
SET
  status = $2,
  current_location = $3,
  current_latitude = COALESCE($4, current_latitude),
  current_longitude = COALESCE($5, current_longitude),
  updated_at = now()
WHERE id = $1
RETURNING`+packageColumns+`
`, upd.PackageID, upd.NewStatus, nullableText(upd.Location), upd.Latitude, upd.Longitude))
	if err != nil {
		return nil, nil, err
	}

	var ev models.TrackingEvent
	err = tx.QueryRow(ctx, `
INSERT INTO tracking_events (package_id, status, description, location, latitude, longitude, timestamp, created_by)
VALUES ($1,$2,$3,$4,$5,$6, clock_timestamp(), $7)
RETURNING id, package_id, status, description, location, latitude, longitude, timestamp, created_by
`, upd.PackageID, upd.NewStatus, upd.Description, upd.Location, upd.Latitude, upd.Longitude, upd.ActorID).Scan(
		&ev.ID, &ev.PackageID, &ev.Status, &ev.Description, &ev.Location,
		&ev.Latitude, &ev.Longitude, &ev.Timestamp, &ev.CreatedBy,
	)
	if err != nil {
		return nil, nil, wrapPersistence(err, "insert tracking event")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, wrapPersistence(err, "commit tx")
	}

	return pkg, &ev, nil
}

const packageColumns = `
  id, tracking_number, owner_id, owner_email, recipient_name, recipient_address,
  status, current_location, current_latitude, current_longitude,
  estimated_delivery, created_at, updated_at`

func (s *Storage) GetByID(ctx context.Context, id uint64) (*models.Package, error) {
	row := s.db.QueryRow(ctx, `SELECT`+packageColumns+` FROM packages WHERE id = $1`, id)
	return scanPackage(row)
}

func (s *Storage) GetByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Package, error) {
	row := s.db.QueryRow(ctx, `SELECT`+packageColumns+` FROM packages WHERE tracking_number = $1`, trackingNumber)
	return scanPackage(row)
}

// ListByOwner returns the owner's packages, newest first.
func (s *Storage) ListByOwner(ctx context.Context, ownerID uint64, limit int) ([]*models.Package, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
SELECT`+packageColumns+`
FROM packages
WHERE owner_id = $1
ORDER BY created_at DESC
LIMIT $2
`, ownerID, limit)
	if err != nil {
		return nil, wrapPersistence(err, "select packages by owner")
	}
	defer rows.Close()

	var out []*models.Package
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, wrapPersistence(rows.Err(), "rows")
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPackage(row rowScanner) (*models.Package, error) {
	var p models.Package
	err := row.Scan(
		&p.ID, &p.TrackingNumber, &p.OwnerID, &p.OwnerEmail,
		&p.RecipientName, &p.RecipientAddress,
		&p.Status, &p.CurrentLocation, &p.CurrentLatitude, &p.CurrentLongitude,
		&p.EstimatedDelivery, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, wrapPersistence(err, "scan package")
	}
	return &p, nil
}

func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
