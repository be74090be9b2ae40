package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ledgersync/server/internal/models"
)

// ItemRepository implements the item domain store
type ItemRepository struct {
	db *sql.DB
}

// NewItemRepository creates a new ItemRepository
func NewItemRepository(db *sql.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Get retrieves an item scoped to a business, or nil
func (r *ItemRepository) Get(ctx context.Context, businessID, id string) (*models.Item, error) {
	query := `SELECT id, business_id, name, sku, barcode, purchase_price, sale_price, unit, current_stock, is_active, description, created_at, updated_at
		FROM items WHERE business_id = $1 AND id = $2`

	var item models.Item
	var sku, barcode, description sql.NullString

	err := r.db.QueryRowContext(ctx, query, businessID, id).Scan(
		&item.ID,
		&item.BusinessID,
		&item.Name,
		&sku,
		&barcode,
		&item.PurchasePrice,
		&item.SalePrice,
		&item.Unit,
		&item.CurrentStock,
		&item.IsActive,
		&description,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	item.SKU = sku.String
	item.Barcode = barcode.String
	item.Description = description.String
	return &item, nil
}

// Insert adds a new item
func (r *ItemRepository) Insert(ctx context.Context, item *models.Item) error {
	query := `INSERT INTO items (id, business_id, name, sku, barcode, purchase_price, sale_price, unit, current_stock, is_active, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.ExecContext(ctx, query,
		item.ID,
		item.BusinessID,
		item.Name,
		nullString(item.SKU),
		nullString(item.Barcode),
		item.PurchasePrice,
		item.SalePrice,
		item.Unit,
		item.CurrentStock,
		item.IsActive,
		nullString(item.Description),
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

// Update overwrites an existing item
func (r *ItemRepository) Update(ctx context.Context, item *models.Item) error {
	query := `UPDATE items SET name = $1, sku = $2, barcode = $3, purchase_price = $4, sale_price = $5, unit = $6, current_stock = $7, is_active = $8, description = $9, updated_at = $10
		WHERE business_id = $11 AND id = $12`

	_, err := r.db.ExecContext(ctx, query,
		item.Name,
		nullString(item.SKU),
		nullString(item.Barcode),
		item.PurchasePrice,
		item.SalePrice,
		item.Unit,
		item.CurrentStock,
		item.IsActive,
		nullString(item.Description),
		item.UpdatedAt,
		item.BusinessID,
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	return nil
}

// Delete hard-deletes an item; returns false when it did not exist
func (r *ItemRepository) Delete(ctx context.Context, businessID, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM items WHERE business_id = $1 AND id = $2`, businessID, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
