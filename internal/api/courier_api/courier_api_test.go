package courier_api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SIRI-bit-tech/courier-web/internal/auth"
	"github.com/SIRI-bit-tech/courier-web/internal/models"
	"github.com/SIRI-bit-tech/courier-web/internal/realtime"
	"github.com/SIRI-bit-tech/courier-web/internal/services/packages"
	"github.com/SIRI-bit-tech/courier-web/internal/storage/pgcourier"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

const testSigningKey = "test-signing-key"

type fakeRepo struct {
	pkg      *models.Package
	events   []*models.TrackingEvent
	applyErr error
}

func (f *fakeRepo) CreatePackage(ctx context.Context, in models.PackageCreateInput) (*models.Package, error) {
	out := *f.pkg
	out.OwnerID = in.OwnerID
	out.RecipientName = in.RecipientName
	return &out, nil
}

func (f *fakeRepo) ApplyStatusUpdate(ctx context.Context, upd pgcourier.StatusUpdate) (*models.Package, *models.TrackingEvent, error) {
	if f.applyErr != nil {
		return nil, nil, f.applyErr
	}
	out := *f.pkg
	out.Status = upd.NewStatus
	ev := &models.TrackingEvent{ID: 99, PackageID: out.ID, Status: upd.NewStatus, Description: upd.Description}
	return &out, ev, nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id uint64) (*models.Package, error) {
	if f.pkg == nil || f.pkg.ID != id {
		return nil, models.ErrNotFound
	}
	return f.pkg, nil
}

func (f *fakeRepo) GetByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Package, error) {
	if f.pkg == nil || f.pkg.TrackingNumber != trackingNumber {
		return nil, models.ErrNotFound
	}
	return f.pkg, nil
}

func (f *fakeRepo) ListByOwner(ctx context.Context, ownerID uint64, limit int) ([]*models.Package, error) {
	if f.pkg == nil || f.pkg.OwnerID != ownerID {
		return nil, nil
	}
	return []*models.Package{f.pkg}, nil
}

func (f *fakeRepo) ListRecentEvents(ctx context.Context, packageID uint64, limit int) ([]*models.TrackingEvent, error) {
	return f.events, nil
}

func testAPI(t *testing.T, repo *fakeRepo) (*httptest.Server, *realtime.Hub, *auth.TokenService) {
	t.Helper()

	hub := realtime.NewHub(realtime.NewRegistry())
	t.Cleanup(hub.Stop)

	svc := packages.New(repo, nil, hub, nil, "", 0, true)
	tokens := auth.NewTokenService(testSigningKey)

	api := New(svc, tokens, hub)
	srv := httptest.NewServer(api.Routes())
	t.Cleanup(srv.Close)
	return srv, hub, tokens
}

func seededRepo() *fakeRepo {
	loc := "Sorting hub"
	return &fakeRepo{
		pkg: &models.Package{
			ID:              5,
			TrackingNumber:  "SC11223344",
			OwnerID:         1,
			OwnerEmail:      "u1@example.com",
			RecipientName:   "Ada",
			Status:          models.StatusInTransit,
			CurrentLocation: &loc,
			UpdatedAt:       time.Now().UTC(),
		},
		events: []*models.TrackingEvent{
			{ID: 2, Status: models.StatusInTransit, Description: "Departed hub", Timestamp: time.Now().UTC()},
			{ID: 1, Status: models.StatusPending, Description: "Created", Timestamp: time.Now().UTC()},
		},
	}
}

func bearer(t *testing.T, tokens *auth.TokenService, userID uint64, role string) string {
	t.Helper()
	tok, err := tokens.Issue(userID, role, time.Minute)
	require.NoError(t, err)
	return "Bearer " + tok
}

func doJSON(t *testing.T, method, url, authHeader string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestAPI_Track_PublicSnapshot(t *testing.T) {
	srv, _, _ := testAPI(t, seededRepo())

	resp, err := http.Get(srv.URL + "/api/track/SC11223344")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap models.PackageSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	require.Equal(t, "SC11223344", snap.TrackingNumber)
	require.Equal(t, models.StatusInTransit, snap.Status)
	require.Len(t, snap.TrackingEvents, 2)
}

func TestAPI_Track_NotFound(t *testing.T) {
	srv, _, _ := testAPI(t, seededRepo())

	resp, err := http.Get(srv.URL + "/api/track/SCFFFFFFFF")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_CreatePackage_RequiresAuth(t *testing.T) {
	srv, _, tokens := testAPI(t, seededRepo())

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/packages", "", map[string]string{"recipient_name": "Ada"})
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/packages", bearer(t, tokens, 1, auth.RoleCustomer),
		map[string]string{"recipient_name": "Ada", "recipient_address": "221B Baker St"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out packageResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, "SC11223344", out.TrackingNumber)
}

func TestAPI_UpdateStatus_RoleEnforcement(t *testing.T) {
	srv, _, tokens := testAPI(t, seededRepo())
	body := map[string]string{"status": models.StatusOutForDelivery}

	resp := doJSON(t, http.MethodPut, srv.URL+"/api/packages/5/status", bearer(t, tokens, 1, auth.RoleCustomer), body)
	resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, http.MethodPut, srv.URL+"/api/packages/5/status", bearer(t, tokens, 2, auth.RoleDriver), body)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out packageResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, models.StatusOutForDelivery, out.Status)
}

func TestAPI_UpdateStatus_ErrorMapping(t *testing.T) {
	repo := seededRepo()
	srv, _, tokens := testAPI(t, repo)
	adminAuth := bearer(t, tokens, 3, auth.RoleAdmin)

	repo.applyErr = models.ErrNotFound
	resp := doJSON(t, http.MethodPut, srv.URL+"/api/packages/5/status", adminAuth, map[string]string{"status": models.StatusDelivered})
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	repo.applyErr = models.ErrInvalidTransition
	resp = doJSON(t, http.MethodPut, srv.URL+"/api/packages/5/status", adminAuth, map[string]string{"status": models.StatusPending})
	resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	repo.applyErr = errors.Wrap(models.ErrPersistence, "lock package: connection refused")
	resp = doJSON(t, http.MethodPut, srv.URL+"/api/packages/5/status", adminAuth, map[string]string{"status": models.StatusDelivered})
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	require.Equal(t, "storage unavailable", body.Error, "internal error text must not leak")

	repo.applyErr = nil
	resp = doJSON(t, http.MethodPut, srv.URL+"/api/packages/5/status", adminAuth, map[string]string{"status": "teleported"})
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_ListPackages_OwnScopeOnly(t *testing.T) {
	srv, _, tokens := testAPI(t, seededRepo())

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/packages", bearer(t, tokens, 1, auth.RoleCustomer), nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Packages []*models.PackageSnapshot `json:"packages"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Packages, 1)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/packages", bearer(t, tokens, 42, auth.RoleCustomer), nil)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Empty(t, out.Packages)
}

func TestAPI_TrackEvents(t *testing.T) {
	srv, _, _ := testAPI(t, seededRepo())

	resp, err := http.Get(srv.URL + "/api/track/SC11223344/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Events []eventResponse `json:"events"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Events, 2)
	require.Equal(t, models.StatusInTransit, out.Events[0].Status)
}

func TestAPI_Healthz(t *testing.T) {
	srv, _, _ := testAPI(t, seededRepo())

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
