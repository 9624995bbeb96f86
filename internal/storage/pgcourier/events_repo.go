package pgcourier

import (
	"context"

	"github.com/SIRI-bit-tech/courier-web/internal/models"
)

// ListRecentEvents returns the package's events newest first. The event log is
// the ordering authority: timestamps are assigned by the database at insert
// time inside the update transaction.
func (s *Storage) ListRecentEvents(ctx context.Context, packageID uint64, limit int) ([]*models.TrackingEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := s.db.Query(ctx, `
SELECT
  id, package_id, status, description, location, latitude, longitude, timestamp, created_by
FROM tracking_events
WHERE package_id = $1
ORDER BY timestamp DESC, id DESC
LIMIT $2
`, packageID, limit)
	if err != nil {
		return nil, wrapPersistence(err, "select events")
	}
	defer rows.Close()

	var out []*models.TrackingEvent
	for rows.Next() {
		var e models.TrackingEvent
		if err := rows.Scan(
			&e.ID, &e.PackageID, &e.Status, &e.Description, &e.Location,
			&e.Latitude, &e.Longitude, &e.Timestamp, &e.CreatedBy,
		); err != nil {
			return nil, wrapPersistence(err, "scan event")
		}
		out = append(out, &e)
	}
	if rows.Err() != nil {
		return nil, wrapPersistence(rows.Err(), "rows")
	}
	return out, nil
}
