package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/ledgersync/server/internal/middleware"
	"github.com/ledgersync/server/internal/models"
	"github.com/ledgersync/server/internal/repository"
	"github.com/ledgersync/server/internal/services"
)

const testAPIKey = "test-api-key"

// handlerEnv wires the HTTP surface over an in-memory database
type handlerEnv struct {
	router   *chi.Mux
	business *models.Business
	devices  *repository.DeviceRepository
	sync     *services.SyncService
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()

	db, err := repository.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	changeLog := repository.NewChangeLogRepository(db)
	devices := repository.NewDeviceRepository(db)
	businesses := repository.NewBusinessRepository(db)
	tokens := repository.NewPairingTokenRepository(db)

	registry := services.NewApplierRegistry()
	registry.Register(services.NewItemApplier(repository.NewItemRepository(db)))
	registry.Register(services.NewCustomerApplier(repository.NewCustomerRepository(db)))
	registry.Register(services.NewInvoiceApplier(repository.NewInvoiceRepository(db)))
	registry.Register(services.NewCashTransactionApplier(repository.NewCashTransactionRepository(db)))

	detector := services.NewConflictDetector(changeLog)
	syncService := services.NewSyncService(changeLog, devices, registry, detector)
	deviceService := services.NewDeviceService(devices, businesses, tokens, 5, 15)

	business := models.NewBusiness("Test Shop", models.HashAPIKey(testAPIKey))
	require.NoError(t, businesses.Add(context.Background(), business))

	syncHandler := NewSyncHandler(syncService, nil, nil)
	deviceHandler := NewDeviceHandler(deviceService, nil, nil)
	healthHandler := NewHealthHandler()

	r := chi.NewRouter()
	r.Use(middleware.BusinessAPIKeyAuth(businesses, "X-API-Key", []string{
		"/api/health",
		"/api/devices/pair",
	}))
	r.Get("/api/health", healthHandler.HealthCheck)
	r.Post("/api/sync/pull", syncHandler.Pull)
	r.Post("/api/sync/push", syncHandler.Push)
	r.Get("/api/sync/status", syncHandler.Status)
	r.Post("/api/devices/pairing-token", deviceHandler.IssuePairingToken)
	r.Post("/api/devices/pair", deviceHandler.PairDevice)
	r.Get("/api/devices", deviceHandler.ListDevices)
	r.Delete("/api/devices/{id}", deviceHandler.RevokeDevice)

	return &handlerEnv{
		router:   r,
		business: business,
		devices:  devices,
		sync:     syncService,
	}
}

func (e *handlerEnv) addDevice(t *testing.T, deviceID string) *models.Device {
	t.Helper()
	device, err := models.NewDevice(e.business.ID, deviceID, deviceID, "android")
	require.NoError(t, err)
	require.NoError(t, e.devices.Add(context.Background(), device))
	return device
}

// do performs an authenticated request against the test router
func (e *handlerEnv) do(t *testing.T, method, path, deviceID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("X-API-Key", testAPIKey)
	if deviceID != "" {
		req.Header.Set(DeviceIDHeader, deviceID)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
}
