package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// SyncAction is the kind of mutation recorded in the change log
type SyncAction string

const (
	ActionCreate SyncAction = "create"
	ActionUpdate SyncAction = "update"
	ActionDelete SyncAction = "delete"
)

// Valid reports whether the action is one of create/update/delete
func (a SyncAction) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// JSONMap is a JSON object stored as a TEXT column
type JSONMap map[string]interface{}

// Value implements driver.Valuer
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (m *JSONMap) Scan(src interface{}) error {
	if src == nil {
		*m = JSONMap{}
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONMap", src)
	}
	if len(data) == 0 {
		*m = JSONMap{}
		return nil
	}
	return json.Unmarshal(data, m)
}

// ChangeLogEntry is one immutable record in the per-business change log.
// Entries are only ever appended; current entity state is reconstructed by
// replaying entries in (sync_timestamp, seq) order.
type ChangeLogEntry struct {
	ID            string     `json:"id"`
	Seq           int64      `json:"-"`
	BusinessID    string     `json:"business_id"`
	DeviceID      string     `json:"device_id,omitempty"` // empty for server-originated changes
	EntityType    string     `json:"entity_type"`
	EntityID      string     `json:"entity_id"`
	Action        SyncAction `json:"action"`
	Data          JSONMap    `json:"data"`
	SyncTimestamp time.Time  `json:"sync_timestamp"`
}
