package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ledgersync/server/internal/models"
)

// ChangeLogRepository implements the append-only change log over SQL.
// Appends are serialized so that sync_timestamp never decreases within a
// business; ties keep insertion order via the seq column.
type ChangeLogRepository struct {
	db *sql.DB

	mu     sync.Mutex
	lastTS map[string]time.Time // businessID -> last assigned timestamp
}

// NewChangeLogRepository creates a new ChangeLogRepository
func NewChangeLogRepository(db *sql.DB) *ChangeLogRepository {
	return &ChangeLogRepository{
		db:     db,
		lastTS: make(map[string]time.Time),
	}
}

// Append writes one entry. The entry's ID and SyncTimestamp are assigned
// here if unset; the timestamp is clamped to the last one handed out for the
// business so the log stays non-decreasing under concurrent pushes.
func (r *ChangeLogRepository) Append(ctx context.Context, entry *models.ChangeLogEntry) (string, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	r.mu.Lock()
	ts := entry.SyncTimestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	if last, ok := r.lastTS[entry.BusinessID]; ok && ts.Before(last) {
		ts = last
	}
	r.lastTS[entry.BusinessID] = ts
	r.mu.Unlock()
	entry.SyncTimestamp = ts

	var deviceID sql.NullString
	if entry.DeviceID != "" {
		deviceID = sql.NullString{String: entry.DeviceID, Valid: true}
	}

	query := `INSERT INTO sync_change_log (id, business_id, device_id, entity_type, entity_id, action, data, sync_timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.BusinessID,
		deviceID,
		entry.EntityType,
		entry.EntityID,
		string(entry.Action),
		entry.Data,
		entry.SyncTimestamp,
	)
	if err != nil {
		return "", fmt.Errorf("failed to append change log entry: %w", err)
	}
	return entry.ID, nil
}

// Query returns entries after the cursor in (sync_timestamp, seq) order.
// Fetches limit+1 rows to compute hasMore without a count query.
func (r *ChangeLogRepository) Query(ctx context.Context, businessID string, after time.Time, entityTypes []string, excludeDeviceID string, limit int) ([]*models.ChangeLogEntry, bool, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT seq, id, business_id, device_id, entity_type, entity_id, action, data, sync_timestamp
		FROM sync_change_log WHERE business_id = $1`)
	args := []interface{}{businessID}

	if !after.IsZero() {
		args = append(args, after)
		fmt.Fprintf(&sb, " AND sync_timestamp > $%d", len(args))
	}
	if len(entityTypes) > 0 {
		placeholders := make([]string, len(entityTypes))
		for i, et := range entityTypes {
			args = append(args, et)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		fmt.Fprintf(&sb, " AND entity_type IN (%s)", strings.Join(placeholders, ", "))
	}
	if excludeDeviceID != "" {
		args = append(args, excludeDeviceID)
		fmt.Fprintf(&sb, " AND (device_id IS NULL OR device_id != $%d)", len(args))
	}

	args = append(args, limit+1)
	fmt.Fprintf(&sb, " ORDER BY sync_timestamp ASC, seq ASC LIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, false, fmt.Errorf("failed to query change log: %w", err)
	}
	defer rows.Close()

	var entries []*models.ChangeLogEntry
	for rows.Next() {
		entry, err := scanChangeLogEntry(rows)
		if err != nil {
			return nil, false, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("error iterating change log: %w", err)
	}

	hasMore := len(entries) > limit
	if hasMore {
		entries = entries[:limit]
	}
	return entries, hasMore, nil
}

// LatestFor returns the most recent entry for a logical entity, or nil
func (r *ChangeLogRepository) LatestFor(ctx context.Context, businessID, entityType, entityID string) (*models.ChangeLogEntry, error) {
	query := `SELECT seq, id, business_id, device_id, entity_type, entity_id, action, data, sync_timestamp
		FROM sync_change_log
		WHERE business_id = $1 AND entity_type = $2 AND entity_id = $3
		ORDER BY sync_timestamp DESC, seq DESC LIMIT 1`

	rows, err := r.db.QueryContext(ctx, query, businessID, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest entry: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanChangeLogEntry(rows)
}

// CountAfter counts entries after the cursor, excluding a device's own writes
func (r *ChangeLogRepository) CountAfter(ctx context.Context, businessID string, after time.Time, excludeDeviceID string) (int, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT COUNT(*) FROM sync_change_log WHERE business_id = $1`)
	args := []interface{}{businessID}

	if !after.IsZero() {
		args = append(args, after)
		fmt.Fprintf(&sb, " AND sync_timestamp > $%d", len(args))
	}
	if excludeDeviceID != "" {
		args = append(args, excludeDeviceID)
		fmt.Fprintf(&sb, " AND (device_id IS NULL OR device_id != $%d)", len(args))
	}

	var count int
	if err := r.db.QueryRowContext(ctx, sb.String(), args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pending changes: %w", err)
	}
	return count, nil
}

// DeleteBefore removes entries older than the cutoff across all businesses.
// Used by retention trimming; the sync engine tolerates a trimmed prefix.
func (r *ChangeLogRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM sync_change_log WHERE sync_timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to trim change log: %w", err)
	}
	return result.RowsAffected()
}

func scanChangeLogEntry(rows *sql.Rows) (*models.ChangeLogEntry, error) {
	var entry models.ChangeLogEntry
	var deviceID sql.NullString

	err := rows.Scan(
		&entry.Seq,
		&entry.ID,
		&entry.BusinessID,
		&deviceID,
		&entry.EntityType,
		&entry.EntityID,
		(*string)(&entry.Action),
		&entry.Data,
		&entry.SyncTimestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan change log entry: %w", err)
	}
	if deviceID.Valid {
		entry.DeviceID = deviceID.String
	}
	entry.SyncTimestamp = entry.SyncTimestamp.UTC()
	return &entry, nil
}
