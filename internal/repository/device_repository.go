package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ledgersync/server/internal/models"
)

// DeviceRepository implements device persistence
type DeviceRepository struct {
	db *sql.DB
}

// NewDeviceRepository creates a new DeviceRepository
func NewDeviceRepository(db *sql.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

const deviceColumns = `id, business_id, device_id, device_name, device_type, is_active, last_sync_at, sync_cursor, paired_at`

// Add inserts a new device
func (r *DeviceRepository) Add(ctx context.Context, device *models.Device) error {
	query := `INSERT INTO devices (id, business_id, device_id, device_name, device_type, is_active, last_sync_at, sync_cursor, paired_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		device.ID,
		device.BusinessID,
		device.DeviceID,
		device.DeviceName,
		device.DeviceType,
		device.IsActive,
		device.LastSyncAt,
		nullString(device.SyncCursor),
		device.PairedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add device: %w", err)
	}
	return nil
}

// Get retrieves a device regardless of active state
func (r *DeviceRepository) Get(ctx context.Context, businessID, deviceID string) (*models.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE business_id = $1 AND device_id = $2`
	return r.scanOne(r.db.QueryRowContext(ctx, query, businessID, deviceID))
}

// GetActive retrieves a device only if it is active. The sync engine treats
// an inactive device the same as a missing one.
func (r *DeviceRepository) GetActive(ctx context.Context, businessID, deviceID string) (*models.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE business_id = $1 AND device_id = $2 AND is_active = $3`
	return r.scanOne(r.db.QueryRowContext(ctx, query, businessID, deviceID, true))
}

// GetByRowID retrieves a device by its server row id
func (r *DeviceRepository) GetByRowID(ctx context.Context, id string) (*models.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// ListActive returns all active devices for a business, most recently synced first
func (r *DeviceRepository) ListActive(ctx context.Context, businessID string) ([]*models.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices
		WHERE business_id = $1 AND is_active = $2
		ORDER BY last_sync_at DESC`

	rows, err := r.db.QueryContext(ctx, query, businessID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	var devices []*models.Device
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, device)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating devices: %w", err)
	}
	return devices, nil
}

// CountActive counts active devices for a business
func (r *DeviceRepository) CountActive(ctx context.Context, businessID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM devices WHERE business_id = $1 AND is_active = $2`,
		businessID, true,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count devices: %w", err)
	}
	return count, nil
}

// Reactivate flips a previously revoked device back to active
func (r *DeviceRepository) Reactivate(ctx context.Context, businessID, deviceID, deviceName, deviceType string) error {
	query := `UPDATE devices SET is_active = $1, device_name = $2, device_type = $3
		WHERE business_id = $4 AND device_id = $5`

	_, err := r.db.ExecContext(ctx, query, true, deviceName, deviceType, businessID, deviceID)
	if err != nil {
		return fmt.Errorf("failed to reactivate device: %w", err)
	}
	return nil
}

// UpdateCursor advances the device's sync cursor and last sync time. An
// empty cursor leaves the stored watermark untouched.
func (r *DeviceRepository) UpdateCursor(ctx context.Context, businessID, deviceID, cursor string, lastSyncAt time.Time) error {
	var err error
	if cursor == "" {
		_, err = r.db.ExecContext(ctx,
			`UPDATE devices SET last_sync_at = $1 WHERE business_id = $2 AND device_id = $3`,
			lastSyncAt, businessID, deviceID)
	} else {
		_, err = r.db.ExecContext(ctx,
			`UPDATE devices SET sync_cursor = $1, last_sync_at = $2 WHERE business_id = $3 AND device_id = $4`,
			cursor, lastSyncAt, businessID, deviceID)
	}
	if err != nil {
		return fmt.Errorf("failed to update sync cursor: %w", err)
	}
	return nil
}

// Revoke marks a device inactive by row id (immediate effect on sync calls)
func (r *DeviceRepository) Revoke(ctx context.Context, businessID, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE devices SET is_active = $1 WHERE business_id = $2 AND id = $3`,
		false, businessID, id)
	if err != nil {
		return false, fmt.Errorf("failed to revoke device: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *DeviceRepository) scanOne(row *sql.Row) (*models.Device, error) {
	device, err := scanDevice(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return device, nil
}

func scanDevice(s rowScanner) (*models.Device, error) {
	var device models.Device
	var lastSyncAt sql.NullTime
	var syncCursor sql.NullString

	err := s.Scan(
		&device.ID,
		&device.BusinessID,
		&device.DeviceID,
		&device.DeviceName,
		&device.DeviceType,
		&device.IsActive,
		&lastSyncAt,
		&syncCursor,
		&device.PairedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastSyncAt.Valid {
		t := lastSyncAt.Time.UTC()
		device.LastSyncAt = &t
	}
	if syncCursor.Valid {
		device.SyncCursor = syncCursor.String
	}
	return &device, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
