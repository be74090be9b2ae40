package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Business is the multi-tenant isolation boundary. Every device, change log
// entry and domain record belongs to exactly one business.
type Business struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	APIKeyHash string    `json:"-"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

// HashAPIKey returns the SHA-256 hex hash used for API key lookup
func HashAPIKey(apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(hash[:])
}

// NewBusiness creates a business with the given API key hash
func NewBusiness(name, apiKeyHash string) *Business {
	return &Business{
		ID:         uuid.New().String(),
		Name:       name,
		APIKeyHash: apiKeyHash,
		IsActive:   true,
		CreatedAt:  time.Now().UTC(),
	}
}
