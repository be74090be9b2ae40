package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ledgersync/server/internal/models"
)

// BusinessRepository implements tenant persistence
type BusinessRepository struct {
	db *sql.DB
}

// NewBusinessRepository creates a new BusinessRepository
func NewBusinessRepository(db *sql.DB) *BusinessRepository {
	return &BusinessRepository{db: db}
}

// Add inserts a new business
func (r *BusinessRepository) Add(ctx context.Context, business *models.Business) error {
	query := `INSERT INTO businesses (id, name, api_key_hash, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.ExecContext(ctx, query,
		business.ID,
		business.Name,
		business.APIKeyHash,
		business.IsActive,
		business.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add business: %w", err)
	}
	return nil
}

// GetByID retrieves a business by id
func (r *BusinessRepository) GetByID(ctx context.Context, id string) (*models.Business, error) {
	query := `SELECT id, name, api_key_hash, is_active, created_at FROM businesses WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetByAPIKeyHash retrieves a business by the SHA-256 hash of its API key
func (r *BusinessRepository) GetByAPIKeyHash(ctx context.Context, hash string) (*models.Business, error) {
	query := `SELECT id, name, api_key_hash, is_active, created_at FROM businesses WHERE api_key_hash = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, hash))
}

func (r *BusinessRepository) scanOne(row *sql.Row) (*models.Business, error) {
	var business models.Business
	err := row.Scan(
		&business.ID,
		&business.Name,
		&business.APIKeyHash,
		&business.IsActive,
		&business.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get business: %w", err)
	}
	return &business, nil
}
