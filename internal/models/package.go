package models

import "time"

// Статусы посылки. Порядок ниже — "прямой" маршрут доставки.
const (
	StatusPending        = "pending"
	StatusPickedUp       = "picked_up"
	StatusInTransit      = "in_transit"
	StatusOutForDelivery = "out_for_delivery"
	StatusDelivered      = "delivered"
	StatusFailedDelivery = "failed_delivery"
	StatusReturned       = "returned"
	StatusCancelled      = "cancelled"
	StatusOnHold         = "on_hold"
)

// Terminal statuses: no further transitions are accepted from these.
var terminalStatuses = map[string]struct{}{
	StatusDelivered: {},
	StatusReturned:  {},
	StatusCancelled: {},
}

// forwardNext maps each status to the set of statuses reachable from it when
// transition enforcement is on. Side exits (failed_delivery, returned,
// cancelled, on_hold) are reachable from any non-terminal state; on_hold may
// resume anywhere on the forward path.
var forwardNext = map[string][]string{
	StatusPending:        {StatusPickedUp},
	StatusPickedUp:       {StatusInTransit},
	StatusInTransit:      {StatusOutForDelivery},
	StatusOutForDelivery: {StatusDelivered},
	StatusFailedDelivery: {StatusOutForDelivery, StatusInTransit},
	StatusOnHold:         {StatusPickedUp, StatusInTransit, StatusOutForDelivery, StatusDelivered},
}

var validStatuses = map[string]struct{}{
	StatusPending:        {},
	StatusPickedUp:       {},
	StatusInTransit:      {},
	StatusOutForDelivery: {},
	StatusDelivered:      {},
	StatusFailedDelivery: {},
	StatusReturned:       {},
	StatusCancelled:      {},
	StatusOnHold:         {},
}

func IsValidStatus(s string) bool {
	_, ok := validStatuses[s]
	return ok
}

func IsTerminalStatus(s string) bool {
	_, ok := terminalStatuses[s]
	return ok
}

// CanTransition reports whether from→to is an accepted transition under the
// enforced state machine. A terminal state accepts nothing. Side exits and
// on_hold are accepted from every non-terminal state.
func CanTransition(from, to string) bool {
	if !IsValidStatus(to) || IsTerminalStatus(from) {
		return false
	}
	switch to {
	case StatusFailedDelivery, StatusReturned, StatusCancelled, StatusOnHold:
		return true
	}
	for _, next := range forwardNext[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Package struct {
	ID             uint64
	TrackingNumber string
	OwnerID        uint64
	OwnerEmail     string

	RecipientName    string
	RecipientAddress string

	Status            string
	CurrentLocation   *string
	CurrentLatitude   *float64
	CurrentLongitude  *float64
	EstimatedDelivery *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

type PackageCreateInput struct {
	OwnerID           uint64
	OwnerEmail        string
	RecipientName     string
	RecipientAddress  string
	SenderAddress     string
	EstimatedDelivery *time.Time
}

// StatusUpdateInput is one accepted status-change request. ActorID is nil for
// system-originated changes.
type StatusUpdateInput struct {
	PackageID   uint64
	NewStatus   string
	Description string
	Location    string
	Latitude    *float64
	Longitude   *float64
	ActorID     *uint64
}
