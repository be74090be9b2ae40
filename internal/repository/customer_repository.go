package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ledgersync/server/internal/models"
)

// CustomerRepository implements the customer domain store
type CustomerRepository struct {
	db *sql.DB
}

// NewCustomerRepository creates a new CustomerRepository
func NewCustomerRepository(db *sql.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// Get retrieves a customer scoped to a business, or nil
func (r *CustomerRepository) Get(ctx context.Context, businessID, id string) (*models.Customer, error) {
	query := `SELECT id, business_id, name, phone, email, address, is_active, created_at, updated_at
		FROM customers WHERE business_id = $1 AND id = $2`

	var customer models.Customer
	var phone, email, address sql.NullString

	err := r.db.QueryRowContext(ctx, query, businessID, id).Scan(
		&customer.ID,
		&customer.BusinessID,
		&customer.Name,
		&phone,
		&email,
		&address,
		&customer.IsActive,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	customer.Phone = phone.String
	customer.Email = email.String
	customer.Address = address.String
	return &customer, nil
}

// Insert adds a new customer
func (r *CustomerRepository) Insert(ctx context.Context, customer *models.Customer) error {
	query := `INSERT INTO customers (id, business_id, name, phone, email, address, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		customer.ID,
		customer.BusinessID,
		customer.Name,
		nullString(customer.Phone),
		nullString(customer.Email),
		nullString(customer.Address),
		customer.IsActive,
		customer.CreatedAt,
		customer.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert customer: %w", err)
	}
	return nil
}

// Update overwrites an existing customer
func (r *CustomerRepository) Update(ctx context.Context, customer *models.Customer) error {
	query := `UPDATE customers SET name = $1, phone = $2, email = $3, address = $4, is_active = $5, updated_at = $6
		WHERE business_id = $7 AND id = $8`

	_, err := r.db.ExecContext(ctx, query,
		customer.Name,
		nullString(customer.Phone),
		nullString(customer.Email),
		nullString(customer.Address),
		customer.IsActive,
		customer.UpdatedAt,
		customer.BusinessID,
		customer.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	return nil
}

// Delete hard-deletes a customer; returns false when it did not exist
func (r *CustomerRepository) Delete(ctx context.Context, businessID, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM customers WHERE business_id = $1 AND id = $2`, businessID, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete customer: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
