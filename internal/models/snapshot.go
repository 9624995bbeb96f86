package models

import "time"

// PackageSnapshot is the point-in-time summary sent to live subscribers on
// connect, on request_update and after every committed status change. It is
// also what the redis snapshot cache stores as JSON.
type PackageSnapshot struct {
	PackageID         uint64     `json:"package_id,omitempty"`
	TrackingNumber    string     `json:"tracking_number"`
	Status            string     `json:"status"`
	CurrentLocation   *string    `json:"current_location"`
	Latitude          *float64   `json:"latitude"`
	Longitude         *float64   `json:"longitude"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
	LastUpdated       time.Time  `json:"last_updated"`
	RecipientName     string     `json:"recipient_name,omitempty"`
	RecipientAddress  string     `json:"recipient_address,omitempty"`
	OwnerID           uint64     `json:"sender_id"`

	TrackingEvents []EventSnapshot `json:"tracking_events,omitempty"`
}

type EventSnapshot struct {
	ID          uint64    `json:"id"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Timestamp   time.Time `json:"timestamp"`
	CreatedBy   string    `json:"created_by"`
}
