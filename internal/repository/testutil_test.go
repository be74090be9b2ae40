package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ledgersync/server/internal/models"
)

func newTestDB(t *testing.T) *testDeps {
	t.Helper()

	db, err := NewSQLiteDB(":memory:")
	require.NoError(t, err)
	// An in-memory database exists per connection; keep exactly one
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	return &testDeps{
		db:         db,
		changeLog:  NewChangeLogRepository(db),
		devices:    NewDeviceRepository(db),
		businesses: NewBusinessRepository(db),
		tokens:     NewPairingTokenRepository(db),
	}
}

type testDeps struct {
	db         interface{ Close() error }
	changeLog  *ChangeLogRepository
	devices    *DeviceRepository
	businesses *BusinessRepository
	tokens     *PairingTokenRepository
}

func (d *testDeps) addBusiness(t *testing.T, name string) *models.Business {
	t.Helper()
	business := models.NewBusiness(name, models.HashAPIKey("key-"+name))
	require.NoError(t, d.businesses.Add(context.Background(), business))
	return business
}

func (d *testDeps) addDevice(t *testing.T, businessID, deviceID string) *models.Device {
	t.Helper()
	device, err := models.NewDevice(businessID, deviceID, deviceID+" name", "android")
	require.NoError(t, err)
	require.NoError(t, d.devices.Add(context.Background(), device))
	return device
}

func (d *testDeps) appendChange(t *testing.T, businessID, deviceID, entityType, entityID string, ts time.Time) *models.ChangeLogEntry {
	t.Helper()
	entry := &models.ChangeLogEntry{
		BusinessID:    businessID,
		DeviceID:      deviceID,
		EntityType:    entityType,
		EntityID:      entityID,
		Action:        models.ActionCreate,
		Data:          models.JSONMap{"name": entityID},
		SyncTimestamp: ts,
	}
	_, err := d.changeLog.Append(context.Background(), entry)
	require.NoError(t, err)
	return entry
}
