package services

import (
	"context"
	"time"

	"github.com/ledgersync/server/internal/models"
	"github.com/ledgersync/server/internal/repository"
)

// ConflictDetector compares an incoming change's claimed base timestamp
// against the change log's latest record for that entity. The comparison is
// wall-clock only; devices with skewed clocks can slip past it. A
// server-assigned per-entity version counter would close that hole, but the
// wire protocol carries timestamps, so the detector does too.
type ConflictDetector struct {
	changeLog repository.ChangeLogRepo
}

// NewConflictDetector creates a new ConflictDetector
func NewConflictDetector(changeLog repository.ChangeLogRepo) *ConflictDetector {
	return &ConflictDetector{changeLog: changeLog}
}

// Check returns a conflict when the server has logged a newer write for the
// entity than the client had seen, or nil when the change may be applied.
// The first write for an entity never conflicts.
func (d *ConflictDetector) Check(ctx context.Context, businessID, entityType, entityID string, clientBase time.Time) (*models.SyncConflict, error) {
	latest, err := d.changeLog.LatestFor(ctx, businessID, entityType, entityID)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, nil
	}
	if latest.SyncTimestamp.After(clientBase) {
		return &models.SyncConflict{
			EntityType:    entityType,
			EntityID:      entityID,
			ServerVersion: latest.SyncTimestamp,
			ClientVersion: clientBase,
			ServerData:    latest.Data,
		}, nil
	}
	return nil, nil
}
