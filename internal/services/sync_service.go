package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ledgersync/server/internal/models"
	"github.com/ledgersync/server/internal/repository"
)

const (
	// DefaultPullLimit is used when a pull request omits the limit
	DefaultPullLimit = 100
	// MaxPullLimit bounds a single pull page
	MaxPullLimit = 1000
	// MaxPushBatch bounds the number of changes in one push call
	MaxPushBatch = 1000
)

// FormatCursor renders a change log watermark for the wire
func FormatCursor(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseCursor parses a wire cursor. RFC3339Nano accepts plain RFC3339 too.
func ParseCursor(cursor string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, cursor)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cursor %q: %w", cursor, err)
	}
	return t.UTC(), nil
}

// SyncService coordinates the pull and push protocols over the change log,
// the device registry, the conflict detector and the applier registry. It
// holds no mutable state of its own; per-tenant timestamp ordering lives in
// the change log store.
type SyncService struct {
	changeLog repository.ChangeLogRepo
	devices   repository.DeviceRepo
	registry  *ApplierRegistry
	detector  *ConflictDetector
}

// NewSyncService creates a new SyncService
func NewSyncService(
	changeLog repository.ChangeLogRepo,
	devices repository.DeviceRepo,
	registry *ApplierRegistry,
	detector *ConflictDetector,
) *SyncService {
	return &SyncService{
		changeLog: changeLog,
		devices:   devices,
		registry:  registry,
		detector:  detector,
	}
}

// PullChanges returns the change log page after the client's cursor,
// excluding the device's own writes. An explicit cursor always wins over the
// stored one; an absent or unparseable cursor means a pull from the start of
// the log, which also covers devices whose cursor predates log retention.
func (s *SyncService) PullChanges(ctx context.Context, businessID, deviceID string, req *models.SyncPullRequest) (*models.SyncPullResponse, error) {
	device, err := s.devices.GetActive(ctx, businessID, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	if device == nil {
		return nil, ErrDeviceNotFound
	}

	var after time.Time
	if req.Cursor != "" {
		if parsed, err := ParseCursor(req.Cursor); err == nil {
			after = parsed
		}
	}

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultPullLimit
	}
	if limit > MaxPullLimit {
		limit = MaxPullLimit
	}

	entries, hasMore, err := s.changeLog.Query(ctx, businessID, after, req.EntityTypes, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query change log: %w", err)
	}

	changes := make([]models.SyncChangeItem, 0, len(entries))
	for _, entry := range entries {
		changes = append(changes, models.SyncChangeItem{
			EntityType:    entry.EntityType,
			EntityID:      entry.EntityID,
			Action:        string(entry.Action),
			Data:          entry.Data,
			SyncTimestamp: entry.SyncTimestamp,
			ChangeID:      entry.ID,
		})
	}

	nextCursor := req.Cursor
	if len(entries) > 0 {
		nextCursor = FormatCursor(entries[len(entries)-1].SyncTimestamp)
	}

	if err := s.advanceCursor(ctx, device, nextCursor); err != nil {
		return nil, err
	}

	return &models.SyncPullResponse{
		Changes:    changes,
		NextCursor: nextCursor,
		HasMore:    hasMore,
		TotalCount: len(changes),
	}, nil
}

// PushChanges applies a batch of client changes. All accepted entries in one
// call share a single batch timestamp; array order is their only relative
// order. Each item is isolated: a conflict or rejection never aborts the
// remaining items, and whatever was applied stays applied.
func (s *SyncService) PushChanges(ctx context.Context, businessID, deviceID string, req *models.SyncPushRequest) (*models.SyncPushResponse, error) {
	device, err := s.devices.GetActive(ctx, businessID, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	if device == nil {
		return nil, ErrDeviceNotFound
	}

	batchTimestamp := time.Now().UTC()

	resp := &models.SyncPushResponse{
		Accepted:  []string{},
		Conflicts: []models.SyncConflict{},
		Rejected:  []models.SyncRejection{},
	}

	// The log store clamps timestamps so they never decrease within a
	// business; the cursor must cover whatever it actually assigned.
	maxTimestamp := batchTimestamp

	for i := range req.Changes {
		change := &req.Changes[i]

		conflict, err := s.detector.Check(ctx, businessID, change.EntityType, change.EntityID, change.UpdatedAt)
		if err != nil {
			resp.Rejected = append(resp.Rejected, models.SyncRejection{
				EntityType: change.EntityType,
				EntityID:   change.EntityID,
				Error:      fmt.Sprintf("failed to check conflict: %v", err),
			})
			continue
		}
		if conflict != nil {
			conflict.ClientData = change.Data
			resp.Conflicts = append(resp.Conflicts, *conflict)
			continue
		}

		if err := s.registry.Apply(ctx, businessID, change); err != nil {
			resp.Rejected = append(resp.Rejected, models.SyncRejection{
				EntityType: change.EntityType,
				EntityID:   change.EntityID,
				Error:      err.Error(),
			})
			continue
		}

		entry := &models.ChangeLogEntry{
			BusinessID:    businessID,
			DeviceID:      deviceID,
			EntityType:    change.EntityType,
			EntityID:      change.EntityID,
			Action:        models.SyncAction(change.Action),
			Data:          change.Data,
			SyncTimestamp: batchTimestamp,
		}
		id, err := s.changeLog.Append(ctx, entry)
		if err != nil {
			resp.Rejected = append(resp.Rejected, models.SyncRejection{
				EntityType: change.EntityType,
				EntityID:   change.EntityID,
				Error:      fmt.Sprintf("failed to record change: %v", err),
			})
			continue
		}
		if entry.SyncTimestamp.After(maxTimestamp) {
			maxTimestamp = entry.SyncTimestamp
		}
		resp.Accepted = append(resp.Accepted, id)
	}

	resp.NextCursor = FormatCursor(maxTimestamp)
	if err := s.advanceCursor(ctx, device, resp.NextCursor); err != nil {
		return nil, err
	}

	return resp, nil
}

// GetStatus reports the device's sync position and how many changes from
// other devices are waiting for it.
func (s *SyncService) GetStatus(ctx context.Context, businessID, deviceID string) (*models.SyncStatusResponse, error) {
	device, err := s.devices.GetActive(ctx, businessID, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	if device == nil {
		return nil, ErrDeviceNotFound
	}

	var after time.Time
	if device.SyncCursor != "" {
		if parsed, err := ParseCursor(device.SyncCursor); err == nil {
			after = parsed
		}
	}

	pending, err := s.changeLog.CountAfter(ctx, businessID, after, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending changes: %w", err)
	}

	return &models.SyncStatusResponse{
		LastSyncAt:          device.LastSyncAt,
		SyncCursor:          device.SyncCursor,
		PendingChangesCount: pending,
		DeviceID:            device.DeviceID,
		IsActive:            device.IsActive,
	}, nil
}

// RecordServerChange appends a server-originated entry (no device id) so
// writes made outside the push path still reach every device on pull.
func (s *SyncService) RecordServerChange(ctx context.Context, businessID, entityType, entityID string, action models.SyncAction, data models.JSONMap) (string, error) {
	if !action.Valid() {
		return "", &BusinessLogicError{Message: fmt.Sprintf("invalid action: %s", action)}
	}
	entry := &models.ChangeLogEntry{
		BusinessID: businessID,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Data:       data,
	}
	id, err := s.changeLog.Append(ctx, entry)
	if err != nil {
		return "", fmt.Errorf("failed to record change: %w", err)
	}
	return id, nil
}

// advanceCursor moves the stored watermark forward, never backward. A client
// re-pulling an old range with an explicit cursor must not regress the
// stored one; last_sync_at is refreshed either way.
func (s *SyncService) advanceCursor(ctx context.Context, device *models.Device, newCursor string) error {
	now := time.Now().UTC()

	cursor := newCursor
	if cursor != "" && device.SyncCursor != "" {
		newTime, errNew := ParseCursor(cursor)
		stored, errStored := ParseCursor(device.SyncCursor)
		if errNew == nil && errStored == nil && !newTime.After(stored) {
			cursor = ""
		}
	}

	if err := s.devices.UpdateCursor(ctx, device.BusinessID, device.DeviceID, cursor, now); err != nil {
		return fmt.Errorf("failed to update cursor: %w", err)
	}
	return nil
}
