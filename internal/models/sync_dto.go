package models

import "time"

// SyncPullRequest for POST /api/sync/pull. A client-supplied cursor always
// takes precedence over the server-stored one; an absent cursor means a fresh
// pull from the beginning of the log.
type SyncPullRequest struct {
	Cursor      string   `json:"cursor,omitempty"`
	EntityTypes []string `json:"entity_types,omitempty"`
	Limit       int      `json:"limit,omitempty"`
}

// SyncChangeItem is a single change delivered on pull
type SyncChangeItem struct {
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Action        string    `json:"action"`
	Data          JSONMap   `json:"data"`
	SyncTimestamp time.Time `json:"sync_timestamp"`
	ChangeID      string    `json:"change_id"`
}

// SyncPullResponse for POST /api/sync/pull. TotalCount is page-local.
type SyncPullResponse struct {
	Changes    []SyncChangeItem `json:"changes"`
	NextCursor string           `json:"next_cursor,omitempty"`
	HasMore    bool             `json:"has_more"`
	TotalCount int              `json:"total_count"`
}

// SyncChangeRequest is a single change submitted on push. UpdatedAt is the
// client's view of when the entity last changed; it is the base timestamp the
// conflict detector compares against.
type SyncChangeRequest struct {
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Action     string    `json:"action"`
	Data       JSONMap   `json:"data"`
	UpdatedAt  time.Time `json:"updated_at"`
	Version    *int      `json:"version,omitempty"`
}

// SyncPushRequest for POST /api/sync/push
type SyncPushRequest struct {
	Changes []SyncChangeRequest `json:"changes"`
}

// SyncConflict reports a push item whose base state is older than the
// server's latest entry for that entity. Resolution is never set by the
// server; the client decides how to recover.
type SyncConflict struct {
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	ServerVersion time.Time `json:"server_version"`
	ClientVersion time.Time `json:"client_version"`
	ServerData    JSONMap   `json:"server_data"`
	ClientData    JSONMap   `json:"client_data"`
	Resolution    string    `json:"resolution,omitempty"`
}

// SyncRejection is a push item that failed to apply
type SyncRejection struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Error      string `json:"error"`
}

// SyncPushResponse for POST /api/sync/push
type SyncPushResponse struct {
	Accepted   []string        `json:"accepted"`
	Conflicts  []SyncConflict  `json:"conflicts"`
	Rejected   []SyncRejection `json:"rejected"`
	NextCursor string          `json:"next_cursor"`
}

// SyncStatusResponse for GET /api/sync/status
type SyncStatusResponse struct {
	LastSyncAt          *time.Time `json:"last_sync_at,omitempty"`
	SyncCursor          string     `json:"sync_cursor,omitempty"`
	PendingChangesCount int        `json:"pending_changes_count"`
	DeviceID            string     `json:"device_id"`
	IsActive            bool       `json:"is_active"`
}
