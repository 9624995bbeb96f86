package courier_api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/SIRI-bit-tech/courier-web/internal/auth"
	"github.com/SIRI-bit-tech/courier-web/internal/models"
	"github.com/SIRI-bit-tech/courier-web/internal/realtime"
	"github.com/SIRI-bit-tech/courier-web/internal/services/packages"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// CourierAPI serves the REST surface and the live tracking websockets on top
// of the packages service.
type CourierAPI struct {
	svc    *packages.Service
	tokens *auth.TokenService
	hub    *realtime.Hub

	upgrader websocket.Upgrader
}

func New(svc *packages.Service, tokens *auth.TokenService, hub *realtime.Hub) *CourierAPI {
	return &CourierAPI{
		svc:    svc,
		tokens: tokens,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (a *CourierAPI) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/track/{trackingNumber}", a.handleTrack)
		r.Get("/track/{trackingNumber}/events", a.handleTrackEvents)

		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth)
			r.Post("/packages", a.handleCreatePackage)
			r.Get("/packages", a.handleListPackages)
			r.Put("/packages/{packageID}/status", a.handleUpdateStatus)
		})
	})

	r.Get("/ws/tracking/{trackingNumber}", a.handleTrackingWS)
	r.Get("/ws/notifications", a.handleNotificationsWS)

	return r
}

type ctxKey int

const principalKey ctxKey = 0

func principalFrom(ctx context.Context) *auth.Principal {
	p, _ := ctx.Value(principalKey).(*auth.Principal)
	return p
}

// requireAuth resolves the bearer token into a principal. The user id comes
// from the token's subject claim only.
func (a *CourierAPI) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
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
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey, p)))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

type createPackageRequest struct {
	OwnerEmail        string     `json:"owner_email"`
	RecipientName     string     `json:"recipient_name"`
	RecipientAddress  string     `json:"recipient_address"`
	SenderAddress     string     `json:"sender_address"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
}

type updateStatusRequest struct {
	Status      string   `json:"status"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

type packageResponse struct {
	ID                uint64     `json:"id"`
	TrackingNumber    string     `json:"tracking_number"`
	Status            string     `json:"status"`
	RecipientName     string     `json:"recipient_name"`
	RecipientAddress  string     `json:"recipient_address"`
	CurrentLocation   *string    `json:"current_location"`
	Latitude          *float64   `json:"latitude"`
	Longitude         *float64   `json:"longitude"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type eventResponse struct {
	ID          uint64    `json:"id"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Timestamp   time.Time `json:"timestamp"`
}

func toPackageResponse(p *models.Package) packageResponse {
	return packageResponse{
		ID:                p.ID,
		TrackingNumber:    p.TrackingNumber,
		Status:            p.Status,
		RecipientName:     p.RecipientName,
		RecipientAddress:  p.RecipientAddress,
		CurrentLocation:   p.CurrentLocation,
		Latitude:          p.CurrentLatitude,
		Longitude:         p.CurrentLongitude,
		EstimatedDelivery: p.EstimatedDelivery,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func (a *CourierAPI) handleCreatePackage(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())

	var req createPackageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	pkg, err := a.svc.CreatePackage(r.Context(), models.PackageCreateInput{
		OwnerID:           p.UserID,
		OwnerEmail:        req.OwnerEmail,
		RecipientName:     req.RecipientName,
		RecipientAddress:  req.RecipientAddress,
		SenderAddress:     req.SenderAddress,
		EstimatedDelivery: req.EstimatedDelivery,
	})
	if err != nil {
		if errors.Is(err, models.ErrPersistence) {
			writeError(w, http.StatusInternalServerError, "storage unavailable")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toPackageResponse(pkg))
}

func (a *CourierAPI) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	if !p.CanUpdateStatus() {
		writeError(w, http.StatusForbidden, "status updates require a driver or admin role")
		return
	}

	packageID, err := strconv.ParseUint(chi.URLParam(r, "packageID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad package id")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	actorID := p.UserID
	pkg, err := a.svc.UpdateStatus(r.Context(), models.StatusUpdateInput{
		PackageID:   packageID,
		NewStatus:   req.Status,
		Description: req.Description,
		Location:    req.Location,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		ActorID:     &actorID,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, toPackageResponse(pkg))
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, "package not found")
	case errors.Is(err, models.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrPersistence):
		writeError(w, http.StatusInternalServerError, "storage unavailable")
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func (a *CourierAPI) handleListPackages(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())

	snaps, err := a.svc.UserPackagesSnapshot(r.Context(), p.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"packages": snaps})
}

func (a *CourierAPI) handleTrack(w http.ResponseWriter, r *http.Request) {
	snap, err := a.svc.TrackingSnapshot(r.Context(), chi.URLParam(r, "trackingNumber"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, snap)
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, "package not found")
	default:
		writeError(w, http.StatusInternalServerError, "storage unavailable")
	}
}

func (a *CourierAPI) handleTrackEvents(w http.ResponseWriter, r *http.Request) {
	pkg, err := a.svc.GetByTrackingNumber(r.Context(), chi.URLParam(r, "trackingNumber"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(w, http.StatusNotFound, "package not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	evs, err := a.svc.ListEvents(r.Context(), pkg.ID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}

	out := make([]eventResponse, 0, len(evs))
	for _, e := range evs {
		out = append(out, eventResponse{
			ID:          e.ID,
			Status:      e.Status,
			Description: e.Description,
			Location:    e.Location,
			Timestamp:   e.Timestamp,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": out})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
