package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ledgersync/server/internal/models"
	"github.com/ledgersync/server/internal/repository"
)

// syncEnv wires the full sync stack over an in-memory database
type syncEnv struct {
	changeLog  *repository.ChangeLogRepository
	devices    *repository.DeviceRepository
	businesses *repository.BusinessRepository
	tokens     *repository.PairingTokenRepository
	items      *repository.ItemRepository
	customers  *repository.CustomerRepository
	registry   *ApplierRegistry
	sync       *SyncService
	business   *models.Business
}

func newSyncEnv(t *testing.T) *syncEnv {
	t.Helper()

	db, err := repository.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	changeLog := repository.NewChangeLogRepository(db)
	devices := repository.NewDeviceRepository(db)
	businesses := repository.NewBusinessRepository(db)
	tokens := repository.NewPairingTokenRepository(db)
	items := repository.NewItemRepository(db)
	customers := repository.NewCustomerRepository(db)

	registry := NewApplierRegistry()
	registry.Register(NewItemApplier(items))
	registry.Register(NewCustomerApplier(customers))
	registry.Register(NewInvoiceApplier(repository.NewInvoiceRepository(db)))
	registry.Register(NewCashTransactionApplier(repository.NewCashTransactionRepository(db)))

	detector := NewConflictDetector(changeLog)
	syncService := NewSyncService(changeLog, devices, registry, detector)

	business := models.NewBusiness("Test Shop", models.HashAPIKey("test-key"))
	require.NoError(t, businesses.Add(context.Background(), business))

	return &syncEnv{
		changeLog:  changeLog,
		devices:    devices,
		businesses: businesses,
		tokens:     tokens,
		items:      items,
		customers:  customers,
		registry:   registry,
		sync:       syncService,
		business:   business,
	}
}

func (e *syncEnv) addDevice(t *testing.T, deviceID string) *models.Device {
	t.Helper()
	device, err := models.NewDevice(e.business.ID, deviceID, deviceID, "android")
	require.NoError(t, err)
	require.NoError(t, e.devices.Add(context.Background(), device))
	return device
}

func (e *syncEnv) push(t *testing.T, deviceID string, changes ...models.SyncChangeRequest) *models.SyncPushResponse {
	t.Helper()
	resp, err := e.sync.PushChanges(context.Background(), e.business.ID, deviceID, &models.SyncPushRequest{Changes: changes})
	require.NoError(t, err)
	return resp
}

func (e *syncEnv) pull(t *testing.T, deviceID, cursor string) *models.SyncPullResponse {
	t.Helper()
	resp, err := e.sync.PullChanges(context.Background(), e.business.ID, deviceID, &models.SyncPullRequest{Cursor: cursor})
	require.NoError(t, err)
	return resp
}

// brokenApplier fails every operation, standing in for a domain store outage
type brokenApplier struct {
	entityType string
	err        error
}

func (a *brokenApplier) EntityType() string { return a.entityType }

func (a *brokenApplier) Create(ctx context.Context, businessID, entityID string, data models.JSONMap) error {
	return a.err
}

func (a *brokenApplier) Update(ctx context.Context, businessID, entityID string, data models.JSONMap) error {
	return a.err
}

func (a *brokenApplier) Delete(ctx context.Context, businessID, entityID string) error {
	return a.err
}

func itemCreate(entityID, name string, updatedAt time.Time) models.SyncChangeRequest {
	return models.SyncChangeRequest{
		EntityType: "item",
		EntityID:   entityID,
		Action:     "create",
		Data:       models.JSONMap{"name": name, "sale_price": 10.5},
		UpdatedAt:  updatedAt,
	}
}
