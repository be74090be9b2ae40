package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ledgersync/server/internal/models"
)

// CashTransactionRepository implements the cash transaction domain store
type CashTransactionRepository struct {
	db *sql.DB
}

// NewCashTransactionRepository creates a new CashTransactionRepository
func NewCashTransactionRepository(db *sql.DB) *CashTransactionRepository {
	return &CashTransactionRepository{db: db}
}

// Get retrieves a cash transaction scoped to a business, or nil
func (r *CashTransactionRepository) Get(ctx context.Context, businessID, id string) (*models.CashTransaction, error) {
	query := `SELECT id, business_id, transaction_type, amount, date, source, remarks, reference_id, reference_type, created_at, updated_at
		FROM cash_transactions WHERE business_id = $1 AND id = $2`

	var txn models.CashTransaction
	var source, remarks, referenceID, referenceType sql.NullString

	err := r.db.QueryRowContext(ctx, query, businessID, id).Scan(
		&txn.ID,
		&txn.BusinessID,
		&txn.TransactionType,
		&txn.Amount,
		&txn.Date,
		&source,
		&remarks,
		&referenceID,
		&referenceType,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cash transaction: %w", err)
	}

	txn.Source = source.String
	txn.Remarks = remarks.String
	txn.ReferenceID = referenceID.String
	txn.ReferenceType = referenceType.String
	return &txn, nil
}

// Insert adds a new cash transaction
func (r *CashTransactionRepository) Insert(ctx context.Context, txn *models.CashTransaction) error {
	query := `INSERT INTO cash_transactions (id, business_id, transaction_type, amount, date, source, remarks, reference_id, reference_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.ExecContext(ctx, query,
		txn.ID,
		txn.BusinessID,
		txn.TransactionType,
		txn.Amount,
		txn.Date,
		nullString(txn.Source),
		nullString(txn.Remarks),
		nullString(txn.ReferenceID),
		nullString(txn.ReferenceType),
		txn.CreatedAt,
		txn.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert cash transaction: %w", err)
	}
	return nil
}

// Update overwrites an existing cash transaction
func (r *CashTransactionRepository) Update(ctx context.Context, txn *models.CashTransaction) error {
	query := `UPDATE cash_transactions SET transaction_type = $1, amount = $2, date = $3, source = $4, remarks = $5, reference_id = $6, reference_type = $7, updated_at = $8
		WHERE business_id = $9 AND id = $10`

	_, err := r.db.ExecContext(ctx, query,
		txn.TransactionType,
		txn.Amount,
		txn.Date,
		nullString(txn.Source),
		nullString(txn.Remarks),
		nullString(txn.ReferenceID),
		nullString(txn.ReferenceType),
		txn.UpdatedAt,
		txn.BusinessID,
		txn.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update cash transaction: %w", err)
	}
	return nil
}

// Delete hard-deletes a cash transaction; returns false when it did not exist
func (r *CashTransactionRepository) Delete(ctx context.Context, businessID, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM cash_transactions WHERE business_id = $1 AND id = $2`, businessID, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete cash transaction: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
