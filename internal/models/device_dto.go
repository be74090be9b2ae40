package models

import "time"

// PairingTokenResponse for POST /api/devices/pairing-token
type PairingTokenResponse struct {
	PairingToken string    `json:"pairing_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// PairDeviceRequest for POST /api/devices/pair
type PairDeviceRequest struct {
	PairingToken string `json:"pairing_token"`
	DeviceID     string `json:"device_id"`
	DeviceName   string `json:"device_name,omitempty"`
	DeviceType   string `json:"device_type,omitempty"`
}

// ErrorResponse is the generic error body
type ErrorResponse struct {
	Error string `json:"error"`
}
