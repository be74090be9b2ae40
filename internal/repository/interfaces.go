package repository

import (
	"context"
	"time"

	"github.com/ledgersync/server/internal/models"
)

// ChangeLogRepo defines the append-only change log store
type ChangeLogRepo interface {
	// Append assigns the entry's id (and sync timestamp, if unset) and writes
	// it. Timestamps are clamped so they never decrease within a business.
	Append(ctx context.Context, entry *models.ChangeLogEntry) (string, error)
	// Query returns entries with sync_timestamp > after (all entries when
	// after is the zero time), optionally filtered by entity types, excluding
	// entries written by excludeDeviceID, ascending. It fetches limit+1 rows
	// internally to report hasMore without a second count query.
	Query(ctx context.Context, businessID string, after time.Time, entityTypes []string, excludeDeviceID string, limit int) ([]*models.ChangeLogEntry, bool, error)
	// LatestFor returns the most recent entry for a logical entity, or nil
	LatestFor(ctx context.Context, businessID, entityType, entityID string) (*models.ChangeLogEntry, error)
	// CountAfter counts entries after the cursor, excluding a device's own writes
	CountAfter(ctx context.Context, businessID string, after time.Time, excludeDeviceID string) (int, error)
	// DeleteBefore removes entries older than the cutoff across all businesses
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// DeviceRepo defines device persistence. The sync engine only ever sees
// active devices (GetActive) and owns the cursor (UpdateCursor).
type DeviceRepo interface {
	Add(ctx context.Context, device *models.Device) error
	// Get returns the device regardless of active state, or nil
	Get(ctx context.Context, businessID, deviceID string) (*models.Device, error)
	// GetActive returns the device only if it is active, or nil
	GetActive(ctx context.Context, businessID, deviceID string) (*models.Device, error)
	GetByRowID(ctx context.Context, id string) (*models.Device, error)
	ListActive(ctx context.Context, businessID string) ([]*models.Device, error)
	CountActive(ctx context.Context, businessID string) (int, error)
	Reactivate(ctx context.Context, businessID, deviceID, deviceName, deviceType string) error
	// UpdateCursor advances the sync cursor and last_sync_at. An empty cursor
	// leaves the stored cursor untouched (a valid watermark is never nulled).
	UpdateCursor(ctx context.Context, businessID, deviceID, cursor string, lastSyncAt time.Time) error
	Revoke(ctx context.Context, businessID, id string) (bool, error)
}

// BusinessRepo defines tenant lookup for API key auth
type BusinessRepo interface {
	Add(ctx context.Context, business *models.Business) error
	GetByID(ctx context.Context, id string) (*models.Business, error)
	GetByAPIKeyHash(ctx context.Context, hash string) (*models.Business, error)
}

// PairingTokenRepo defines pairing token persistence
type PairingTokenRepo interface {
	Add(ctx context.Context, token *models.PairingToken) error
	GetByID(ctx context.Context, id string) (*models.PairingToken, error)
	MarkUsed(ctx context.Context, id, deviceID string) error
}

// ItemRepo defines the item domain store
type ItemRepo interface {
	Get(ctx context.Context, businessID, id string) (*models.Item, error)
	Insert(ctx context.Context, item *models.Item) error
	Update(ctx context.Context, item *models.Item) error
	Delete(ctx context.Context, businessID, id string) (bool, error)
}

// CustomerRepo defines the customer domain store
type CustomerRepo interface {
	Get(ctx context.Context, businessID, id string) (*models.Customer, error)
	Insert(ctx context.Context, customer *models.Customer) error
	Update(ctx context.Context, customer *models.Customer) error
	Delete(ctx context.Context, businessID, id string) (bool, error)
}

// InvoiceRepo defines the invoice domain store
type InvoiceRepo interface {
	Get(ctx context.Context, businessID, id string) (*models.Invoice, error)
	Insert(ctx context.Context, invoice *models.Invoice) error
	Update(ctx context.Context, invoice *models.Invoice) error
	Delete(ctx context.Context, businessID, id string) (bool, error)
}

// CashTransactionRepo defines the cash transaction domain store
type CashTransactionRepo interface {
	Get(ctx context.Context, businessID, id string) (*models.CashTransaction, error)
	Insert(ctx context.Context, txn *models.CashTransaction) error
	Update(ctx context.Context, txn *models.CashTransaction) error
	Delete(ctx context.Context, businessID, id string) (bool, error)
}
