package notifier

import (
	"context"
	"fmt"

	"github.com/SIRI-bit-tech/courier-web/internal/broker/messages"
	"github.com/SIRI-bit-tech/courier-web/internal/models"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// Notification is one outbound message for the external delivery service.
type Notification struct {
	PackageID      uint64 `json:"package_id"`
	TrackingNumber string `json:"tracking_number"`
	Channel        string `json:"channel"`
	Recipient      string `json:"recipient"`
	Subject        string `json:"subject,omitempty"`
	Body           string `json:"body"`
}

// Sink is the external notification collaborator. Callers treat every
// failure as fire-and-forget: log it, move on, never retry here.
type Sink interface {
	Notify(ctx context.Context, n Notification) error
}

var statusSubjects = map[string]string{
	models.StatusPending:        "Package Created - Awaiting Pickup",
	models.StatusPickedUp:       "Package Picked Up",
	models.StatusInTransit:      "Package In Transit",
	models.StatusOutForDelivery: "Package Out for Delivery",
	models.StatusDelivered:      "Package Delivered Successfully",
	models.StatusFailedDelivery: "Delivery Attempt Failed",
	models.StatusReturned:       "Package Returned to Sender",
	models.StatusCancelled:      "Package Cancelled",
	models.StatusOnHold:         "Package On Hold",
}

func SubjectForStatus(status string) string {
	if s, ok := statusSubjects[status]; ok {
		return s
	}
	return "Package Update"
}

// ComposeStatusEmail builds the owner-facing email for one committed status
// change.
func ComposeStatusEmail(msg messages.StatusChanged) Notification {
	location := msg.Location
	if location == "" {
		location = "Processing"
	}
	body := fmt.Sprintf(
		"Your package with tracking number %s has been updated.\n\n"+
			"Status: %s\nCurrent Location: %s\nRecipient: %s\n\n"+
			"Track your package: /track/%s\n",
		msg.TrackingNumber, msg.Status, location, msg.RecipientName, msg.TrackingNumber,
	)
	return Notification{
		PackageID:      msg.PackageID,
		TrackingNumber: msg.TrackingNumber,
		Channel:        ChannelEmail,
		Recipient:      msg.OwnerEmail,
		Subject:        fmt.Sprintf("Courier Update: %s - %s", SubjectForStatus(msg.Status), msg.TrackingNumber),
		Body:           body,
	}
}
