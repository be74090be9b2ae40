package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ledgersync/server/internal/models"
	"github.com/ledgersync/server/internal/repository"
)

// CashTransactionApplier applies synced changes to the cash transaction store
type CashTransactionApplier struct {
	repo repository.CashTransactionRepo
}

// NewCashTransactionApplier creates a new CashTransactionApplier
func NewCashTransactionApplier(repo repository.CashTransactionRepo) *CashTransactionApplier {
	return &CashTransactionApplier{repo: repo}
}

func (a *CashTransactionApplier) EntityType() string { return "cash_transaction" }

func (a *CashTransactionApplier) Create(ctx context.Context, businessID, entityID string, data models.JSONMap) error {
	existing, err := a.repo.Get(ctx, businessID, entityID)
	if err != nil {
		return fmt.Errorf("failed to load cash transaction: %w", err)
	}
	if existing != nil {
		return a.Update(ctx, businessID, entityID, data)
	}

	now := time.Now().UTC()
	txn := &models.CashTransaction{
		ID:         entityID,
		BusinessID: businessID,
		Date:       now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := applyFields(txn, data); err != nil {
		return err
	}
	if txn.TransactionType != "cash_in" && txn.TransactionType != "cash_out" {
		return &BusinessLogicError{Message: "transaction type must be 'cash_in' or 'cash_out'"}
	}
	if txn.Amount < 0 {
		return &BusinessLogicError{Message: "amount cannot be negative"}
	}
	return a.repo.Insert(ctx, txn)
}

func (a *CashTransactionApplier) Update(ctx context.Context, businessID, entityID string, data models.JSONMap) error {
	txn, err := a.repo.Get(ctx, businessID, entityID)
	if err != nil {
		return fmt.Errorf("failed to load cash transaction: %w", err)
	}
	if txn == nil {
		return a.Create(ctx, businessID, entityID, data)
	}

	txn.UpdatedAt = time.Now().UTC()
	if err := applyFields(txn, data); err != nil {
		return err
	}
	return a.repo.Update(ctx, txn)
}

func (a *CashTransactionApplier) Delete(ctx context.Context, businessID, entityID string) error {
	_, err := a.repo.Delete(ctx, businessID, entityID)
	return err
}
