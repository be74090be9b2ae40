package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ledgersync/server/internal/models"
)

// PairingTokenRepository implements pairing token persistence
type PairingTokenRepository struct {
	db *sql.DB
}

// NewPairingTokenRepository creates a new PairingTokenRepository
func NewPairingTokenRepository(db *sql.DB) *PairingTokenRepository {
	return &PairingTokenRepository{db: db}
}

// Add inserts a new pairing token
func (r *PairingTokenRepository) Add(ctx context.Context, token *models.PairingToken) error {
	query := `INSERT INTO pairing_tokens (id, business_id, secret_hash, created_at, expires_at, used, used_at, used_by_device)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		token.ID,
		token.BusinessID,
		token.SecretHash,
		token.CreatedAt,
		token.ExpiresAt,
		token.Used,
		token.UsedAt,
		nullString(token.UsedByDevice),
	)
	if err != nil {
		return fmt.Errorf("failed to add pairing token: %w", err)
	}
	return nil
}

// GetByID retrieves a pairing token, or nil
func (r *PairingTokenRepository) GetByID(ctx context.Context, id string) (*models.PairingToken, error) {
	query := `SELECT id, business_id, secret_hash, created_at, expires_at, used, used_at, used_by_device
		FROM pairing_tokens WHERE id = $1`

	var token models.PairingToken
	var usedAt sql.NullTime
	var usedByDevice sql.NullString

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&token.ID,
		&token.BusinessID,
		&token.SecretHash,
		&token.CreatedAt,
		&token.ExpiresAt,
		&token.Used,
		&usedAt,
		&usedByDevice,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pairing token: %w", err)
	}

	if usedAt.Valid {
		t := usedAt.Time.UTC()
		token.UsedAt = &t
	}
	if usedByDevice.Valid {
		token.UsedByDevice = usedByDevice.String
	}
	return &token, nil
}

// MarkUsed consumes the token so it cannot pair a second device
func (r *PairingTokenRepository) MarkUsed(ctx context.Context, id, deviceID string) error {
	query := `UPDATE pairing_tokens SET used = $1, used_at = $2, used_by_device = $3 WHERE id = $4`

	_, err := r.db.ExecContext(ctx, query, true, time.Now().UTC(), deviceID, id)
	if err != nil {
		return fmt.Errorf("failed to mark pairing token used: %w", err)
	}
	return nil
}
