package models

import "time"

// TrackingEvent is one immutable row in the per-package event log. Events are
// append-only: nothing edits or deletes them after insert.
type TrackingEvent struct {
	ID          uint64
	PackageID   uint64
	Status      string
	Description string
	Location    string
	Latitude    *float64
	Longitude   *float64
	Timestamp   time.Time
	CreatedBy   *uint64 // nil => "system"
}
