package courier_api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/SIRI-bit-tech/courier-web/internal/models"
	"github.com/SIRI-bit-tech/courier-web/internal/realtime"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// handleTrackingWS serves the public per-package live feed. No auth required:
// knowing the tracking number is the capability. A valid token is still
// honored so owners get the same feed authenticated.
func (a *CourierAPI) handleTrackingWS(w http.ResponseWriter, r *http.Request) {
	trackingNumber := chi.URLParam(r, "trackingNumber")

	var userID *uint64
	if token := bearerToken(r); token != "" {
		if p, err := a.tokens.Validate(token); err == nil {
			userID = &p.UserID
		}
	}

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", "err", err)
		return
	}

	client := realtime.NewClient(conn, userID)
	if !a.hub.Track(client) {
		client.Stop()
		return
	}

	a.hub.Registry().Join(realtime.TrackingTopic(trackingNumber), client)

	a.sendFrame(client, realtime.ConnectionEstablishedFrame{
		Type:           realtime.TypeConnectionEstablished,
		TrackingNumber: trackingNumber,
		Authenticated:  userID != nil,
	})

	// Snapshot is mandatory: the subscriber must never start from silence.
	// A missing package still gets an error frame, and the subscription
	// stays: the package may be created while the client is watching.
	a.sendTrackingSnapshot(r, client, trackingNumber)

	a.readLoop(conn, client, func(frameType string) {
		switch frameType {
		case realtime.TypePing:
			a.sendFrame(client, realtime.NewPong())
		case realtime.TypeRequestUpdate:
			a.sendTrackingSnapshot(r, client, trackingNumber)
		default:
			a.sendFrame(client, realtime.NewErrorFrame("unknown message type"))
		}
	})
}

// handleNotificationsWS serves the authenticated per-user feed. The token is
// mandatory and the topic is derived from its subject claim, so a user can
// never subscribe to someone else's notifications.
func (a *CourierAPI) handleNotificationsWS(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing access token")
		return
	}
	p, err := a.tokens.Validate(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid access token")
		return
	}

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", "err", err)
		return
	}

	userID := p.UserID
	client := realtime.NewClient(conn, &userID)
	if !a.hub.Track(client) {
		client.Stop()
		return
	}

	topic := realtime.NotificationsTopic(userID)
	if !topic.Authorized(client.UserID()) {
		a.sendFrame(client, realtime.NewErrorFrame("not authorized for this topic"))
		a.hub.Release(client)
		return
	}
	a.hub.Registry().Join(topic, client)

	a.sendFrame(client, realtime.ConnectionEstablishedFrame{
		Type:          realtime.TypeConnectionEstablished,
		Authenticated: true,
	})
	a.sendUserPackages(r, client, userID)

	a.readLoop(conn, client, func(frameType string) {
		switch frameType {
		case realtime.TypePing:
			a.sendFrame(client, realtime.NewPong())
		case realtime.TypeRequestPackages:
			a.sendUserPackages(r, client, userID)
		default:
			a.sendFrame(client, realtime.NewErrorFrame("unknown message type"))
		}
	})
}

// readLoop drains inbound frames until the peer goes away, then releases the
// client. Malformed frames get an error reply and the connection stays open.
func (a *CourierAPI) readLoop(conn *websocket.Conn, client *realtime.Client, handle func(frameType string)) {
	defer a.hub.Release(client)

	_ = conn.SetReadDeadline(time.Now().Add(realtime.PongDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(realtime.PongDeadline))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(realtime.PongDeadline))

		var frame realtime.InboundFrame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Type == "" {
			a.sendFrame(client, realtime.NewErrorFrame("malformed message"))
			continue
		}
		handle(frame.Type)
	}
}

func (a *CourierAPI) sendTrackingSnapshot(r *http.Request, client *realtime.Client, trackingNumber string) {
	snap, err := a.svc.TrackingSnapshot(r.Context(), trackingNumber)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			a.sendFrame(client, realtime.NewErrorFrame("package not found"))
			return
		}
		slog.Error("tracking snapshot failed", "tracking_number", trackingNumber, "err", err)
		a.sendFrame(client, realtime.NewErrorFrame("snapshot unavailable"))
		return
	}
	a.sendFrame(client, realtime.SnapshotFrame{Type: realtime.TypePackageStatus, Data: snap})
}

func (a *CourierAPI) sendUserPackages(r *http.Request, client *realtime.Client, userID uint64) {
	snaps, err := a.svc.UserPackagesSnapshot(r.Context(), userID)
	if err != nil {
		slog.Error("user packages snapshot failed", "user_id", userID, "err", err)
		a.sendFrame(client, realtime.NewErrorFrame("snapshot unavailable"))
		return
	}
	a.sendFrame(client, realtime.UserPackagesFrame{Type: realtime.TypeUserPackages, Data: snaps})
}

func (a *CourierAPI) sendFrame(client *realtime.Client, frame any) {
	data, err := json.Marshal(frame)
	if err != nil {
		slog.Error("marshal outbound frame", "err", err)
		return
	}
	client.Send(data)
}
