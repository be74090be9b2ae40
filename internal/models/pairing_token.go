package models

import "time"

// PairingToken is a short-lived, single-use token for attaching a new device
// to a business. Only the bcrypt hash of the secret half is stored.
type PairingToken struct {
	ID           string     `json:"id"`
	BusinessID   string     `json:"business_id"`
	SecretHash   string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	Used         bool       `json:"used"`
	UsedAt       *time.Time `json:"used_at,omitempty"`
	UsedByDevice string     `json:"used_by_device,omitempty"`
}

// Expired reports whether the token is past its expiry
func (t *PairingToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
