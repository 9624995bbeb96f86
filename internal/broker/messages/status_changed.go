package messages

import "time"

// StatusChanged is published to the status-changed topic after every
// committed package state change. It is the durable after-commit feed the
// notifier worker consumes; losing a message never loses the persisted event.
type StatusChanged struct {
	PackageID      uint64 `json:"package_id"`
	TrackingNumber string `json:"tracking_number"`

	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`

	OwnerID       uint64 `json:"owner_id"`
	OwnerEmail    string `json:"owner_email,omitempty"`
	RecipientName string `json:"recipient_name,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}
