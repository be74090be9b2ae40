package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ledgersync/server/internal/models"
	"github.com/ledgersync/server/internal/repository"
)

// InvoiceApplier applies synced changes to the invoice store
type InvoiceApplier struct {
	repo repository.InvoiceRepo
}

// NewInvoiceApplier creates a new InvoiceApplier
func NewInvoiceApplier(repo repository.InvoiceRepo) *InvoiceApplier {
	return &InvoiceApplier{repo: repo}
}

func (a *InvoiceApplier) EntityType() string { return "invoice" }

func (a *InvoiceApplier) Create(ctx context.Context, businessID, entityID string, data models.JSONMap) error {
	existing, err := a.repo.Get(ctx, businessID, entityID)
	if err != nil {
		return fmt.Errorf("failed to load invoice: %w", err)
	}
	if existing != nil {
		return a.Update(ctx, businessID, entityID, data)
	}

	now := time.Now().UTC()
	invoice := &models.Invoice{
		ID:          entityID,
		BusinessID:  businessID,
		InvoiceType: "sale",
		Date:        now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := applyFields(invoice, data); err != nil {
		return err
	}
	if invoice.InvoiceNumber == "" {
		return &BusinessLogicError{Message: "invoice number cannot be empty"}
	}
	if invoice.InvoiceType != "sale" && invoice.InvoiceType != "purchase" {
		return &BusinessLogicError{Message: "invoice type must be 'sale' or 'purchase'"}
	}
	return a.repo.Insert(ctx, invoice)
}

func (a *InvoiceApplier) Update(ctx context.Context, businessID, entityID string, data models.JSONMap) error {
	invoice, err := a.repo.Get(ctx, businessID, entityID)
	if err != nil {
		return fmt.Errorf("failed to load invoice: %w", err)
	}
	if invoice == nil {
		return a.Create(ctx, businessID, entityID, data)
	}

	invoice.UpdatedAt = time.Now().UTC()
	if err := applyFields(invoice, data); err != nil {
		return err
	}
	return a.repo.Update(ctx, invoice)
}

func (a *InvoiceApplier) Delete(ctx context.Context, businessID, entityID string) error {
	_, err := a.repo.Delete(ctx, businessID, entityID)
	return err
}
