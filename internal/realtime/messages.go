package realtime

import (
	"time"

	"github.com/SIRI-bit-tech/courier-web/internal/models"
)

// Outbound frame types. The transport layer relays these verbatim to the
// physical connection as JSON text frames.
const (
	TypeConnectionEstablished = "connection_established"
	TypePackageStatus         = "package_status"
	TypePackageUpdate         = "package_update"
	TypeUserPackages          = "user_packages"
	TypeNewPackage            = "new_package"
	TypePong                  = "pong"
	TypeError                 = "error"
)

// Inbound frame types the reader loop understands.
const (
	TypePing            = "ping"
	TypeRequestUpdate   = "request_update"
	TypeRequestPackages = "request_packages"
)

type InboundFrame struct {
	Type string `json:"type"`
}

type ConnectionEstablishedFrame struct {
	Type           string `json:"type"`
	TrackingNumber string `json:"tracking_number,omitempty"`
	Authenticated  bool   `json:"authenticated"`
}

type SnapshotFrame struct {
	Type string                  `json:"type"`
	Data *models.PackageSnapshot `json:"data"`
}

type UserPackagesFrame struct {
	Type string                    `json:"type"`
	Data []*models.PackageSnapshot `json:"data"`
}

type PongFrame struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewPong() PongFrame {
	return PongFrame{Type: TypePong, Timestamp: time.Now().UTC().Format(time.RFC3339Nano)}
}

func NewErrorFrame(message string) ErrorFrame {
	return ErrorFrame{Type: TypeError, Message: message}
}
