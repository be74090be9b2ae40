package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgersync/server/internal/models"
)

func TestSyncHandler_Auth(t *testing.T) {
	env := newHandlerEnv(t)
	env.addDevice(t, "phone-1")

	t.Run("rejects missing api key", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/sync/status", nil)
		req.Header.Set(DeviceIDHeader, "phone-1")
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects wrong api key", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/sync/status", nil)
		req.Header.Set("X-API-Key", "wrong-key")
		req.Header.Set(DeviceIDHeader, "phone-1")
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("requires the device header", func(t *testing.T) {
		rec := env.do(t, "GET", "/api/sync/status", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown device is 404", func(t *testing.T) {
		rec := env.do(t, "GET", "/api/sync/status", "ghost", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSyncHandler_PushPull(t *testing.T) {
	env := newHandlerEnv(t)
	env.addDevice(t, "phone-1")
	env.addDevice(t, "phone-2")

	now := time.Now().UTC()

	pushReq := models.SyncPushRequest{
		Changes: []models.SyncChangeRequest{
			{
				EntityType: "item",
				EntityID:   "x1",
				Action:     "create",
				Data:       models.JSONMap{"name": "Rice", "sale_price": 12.0},
				UpdatedAt:  now,
			},
		},
	}

	rec := env.do(t, "POST", "/api/sync/push", "phone-1", pushReq)
	require.Equal(t, http.StatusOK, rec.Code)

	var pushResp models.SyncPushResponse
	decodeBody(t, rec, &pushResp)
	assert.Equal(t, []string{"x1"}, pushResp.Accepted)
	assert.Empty(t, pushResp.Conflicts)
	assert.Empty(t, pushResp.Rejected)
	assert.NotEmpty(t, pushResp.NextCursor)

	rec = env.do(t, "POST", "/api/sync/pull", "phone-2", models.SyncPullRequest{})
	require.Equal(t, http.StatusOK, rec.Code)

	var pullResp models.SyncPullResponse
	decodeBody(t, rec, &pullResp)
	require.Len(t, pullResp.Changes, 1)
	assert.Equal(t, "item", pullResp.Changes[0].EntityType)
	assert.Equal(t, "x1", pullResp.Changes[0].EntityID)
	assert.False(t, pullResp.HasMore)

	// The pusher does not receive its own write back
	rec = env.do(t, "POST", "/api/sync/pull", "phone-1", models.SyncPullRequest{})
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &pullResp)
	assert.Empty(t, pullResp.Changes)
}

func TestSyncHandler_BadRequests(t *testing.T) {
	env := newHandlerEnv(t)
	env.addDevice(t, "phone-1")

	t.Run("pull limit above the cap", func(t *testing.T) {
		rec := env.do(t, "POST", "/api/sync/pull", "phone-1", models.SyncPullRequest{Limit: 5000})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("oversized push batch", func(t *testing.T) {
		changes := make([]models.SyncChangeRequest, 1001)
		for i := range changes {
			changes[i] = models.SyncChangeRequest{
				EntityType: "item",
				EntityID:   "x",
				Action:     "create",
				UpdatedAt:  time.Now().UTC(),
			}
		}
		rec := env.do(t, "POST", "/api/sync/push", "phone-1", models.SyncPushRequest{Changes: changes})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/sync/pull", nil)
		req.Header.Set("X-API-Key", testAPIKey)
		req.Header.Set(DeviceIDHeader, "phone-1")
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSyncHandler_Status(t *testing.T) {
	env := newHandlerEnv(t)
	env.addDevice(t, "phone-1")
	env.addDevice(t, "phone-2")

	rec := env.do(t, "POST", "/api/sync/push", "phone-1", models.SyncPushRequest{
		Changes: []models.SyncChangeRequest{
			{
				EntityType: "customer",
				EntityID:   "c1",
				Action:     "create",
				Data:       models.JSONMap{"name": "Asha"},
				UpdatedAt:  time.Now().UTC(),
			},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, "GET", "/api/sync/status", "phone-2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status models.SyncStatusResponse
	decodeBody(t, rec, &status)
	assert.Equal(t, "phone-2", status.DeviceID)
	assert.Equal(t, 1, status.PendingChangesCount)
}

func TestHealthCheck(t *testing.T) {
	env := newHandlerEnv(t)

	req := httptest.NewRequest("GET", "/api/health", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.HealthResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "healthy", resp.Status)
}
