package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ledgersync/server/internal/models"
)

// InvoiceRepository implements the invoice domain store
type InvoiceRepository struct {
	db *sql.DB
}

// NewInvoiceRepository creates a new InvoiceRepository
func NewInvoiceRepository(db *sql.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// Get retrieves an invoice scoped to a business, or nil
func (r *InvoiceRepository) Get(ctx context.Context, businessID, id string) (*models.Invoice, error) {
	query := `SELECT id, business_id, customer_id, invoice_number, invoice_type, date, subtotal, tax_amount, discount_amount, total_amount, paid_amount, remarks, created_at, updated_at
		FROM invoices WHERE business_id = $1 AND id = $2`

	var invoice models.Invoice
	var customerID, remarks sql.NullString

	err := r.db.QueryRowContext(ctx, query, businessID, id).Scan(
		&invoice.ID,
		&invoice.BusinessID,
		&customerID,
		&invoice.InvoiceNumber,
		&invoice.InvoiceType,
		&invoice.Date,
		&invoice.Subtotal,
		&invoice.TaxAmount,
		&invoice.DiscountAmount,
		&invoice.TotalAmount,
		&invoice.PaidAmount,
		&remarks,
		&invoice.CreatedAt,
		&invoice.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	invoice.CustomerID = customerID.String
	invoice.Remarks = remarks.String
	return &invoice, nil
}

// Insert adds a new invoice
func (r *InvoiceRepository) Insert(ctx context.Context, invoice *models.Invoice) error {
	query := `INSERT INTO invoices (id, business_id, customer_id, invoice_number, invoice_type, date, subtotal, tax_amount, discount_amount, total_amount, paid_amount, remarks, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.db.ExecContext(ctx, query,
		invoice.ID,
		invoice.BusinessID,
		nullString(invoice.CustomerID),
		invoice.InvoiceNumber,
		invoice.InvoiceType,
		invoice.Date,
		invoice.Subtotal,
		invoice.TaxAmount,
		invoice.DiscountAmount,
		invoice.TotalAmount,
		invoice.PaidAmount,
		nullString(invoice.Remarks),
		invoice.CreatedAt,
		invoice.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert invoice: %w", err)
	}
	return nil
}

// Update overwrites an existing invoice
func (r *InvoiceRepository) Update(ctx context.Context, invoice *models.Invoice) error {
	query := `UPDATE invoices SET customer_id = $1, invoice_number = $2, invoice_type = $3, date = $4, subtotal = $5, tax_amount = $6, discount_amount = $7, total_amount = $8, paid_amount = $9, remarks = $10, updated_at = $11
		WHERE business_id = $12 AND id = $13`

	_, err := r.db.ExecContext(ctx, query,
		nullString(invoice.CustomerID),
		invoice.InvoiceNumber,
		invoice.InvoiceType,
		invoice.Date,
		invoice.Subtotal,
		invoice.TaxAmount,
		invoice.DiscountAmount,
		invoice.TotalAmount,
		invoice.PaidAmount,
		nullString(invoice.Remarks),
		invoice.UpdatedAt,
		invoice.BusinessID,
		invoice.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update invoice: %w", err)
	}
	return nil
}

// Delete hard-deletes an invoice; returns false when it did not exist
func (r *InvoiceRepository) Delete(ctx context.Context, businessID, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM invoices WHERE business_id = $1 AND id = $2`, businessID, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete invoice: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
