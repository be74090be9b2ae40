package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Device is a client endpoint with its own sync cursor. DeviceID is the
// client-chosen identifier, unique within a business; ID is the server row id.
type Device struct {
	ID         string     `json:"id"`
	BusinessID string     `json:"business_id"`
	DeviceID   string     `json:"device_id"`
	DeviceName string     `json:"device_name"`
	DeviceType string     `json:"device_type"` // "android", "ios" or "web"
	IsActive   bool       `json:"is_active"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
	SyncCursor string     `json:"sync_cursor,omitempty"`
	PairedAt   time.Time  `json:"paired_at"`
}

// DeviceResponse is the API response format
type DeviceResponse struct {
	ID         string     `json:"id"`
	DeviceID   string     `json:"device_id"`
	DeviceName string     `json:"device_name"`
	DeviceType string     `json:"device_type"`
	IsActive   bool       `json:"is_active"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
	PairedAt   time.Time  `json:"paired_at"`
}

// NewDevice creates a device registration for a business
func NewDevice(businessID, deviceID, deviceName, deviceType string) (*Device, error) {
	deviceID = strings.TrimSpace(deviceID)
	deviceName = strings.TrimSpace(deviceName)
	deviceType = strings.TrimSpace(strings.ToLower(deviceType))

	if deviceID == "" {
		return nil, ErrEmptyDeviceID
	}
	if deviceName == "" {
		deviceName = "Unknown Device"
	}
	if deviceType == "" {
		deviceType = "android"
	}
	if deviceType != "android" && deviceType != "ios" && deviceType != "web" {
		return nil, ErrInvalidDeviceType
	}

	return &Device{
		ID:         uuid.New().String(),
		BusinessID: businessID,
		DeviceID:   deviceID,
		DeviceName: deviceName,
		DeviceType: deviceType,
		IsActive:   true,
		PairedAt:   time.Now().UTC(),
	}, nil
}

// ToResponse converts Device to DeviceResponse (safe for API)
func (d *Device) ToResponse() DeviceResponse {
	return DeviceResponse{
		ID:         d.ID,
		DeviceID:   d.DeviceID,
		DeviceName: d.DeviceName,
		DeviceType: d.DeviceType,
		IsActive:   d.IsActive,
		LastSyncAt: d.LastSyncAt,
		PairedAt:   d.PairedAt,
	}
}

// Device errors
var (
	ErrEmptyDeviceID     = DeviceError{"device id cannot be empty"}
	ErrInvalidDeviceType = DeviceError{"device type must be 'android', 'ios' or 'web'"}
)

type DeviceError struct {
	Message string
}

func (e DeviceError) Error() string {
	return e.Message
}
