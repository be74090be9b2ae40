package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ledgersync/server/internal/models"
	"github.com/ledgersync/server/internal/repository"
)

// CustomerApplier applies synced changes to the customer store
type CustomerApplier struct {
	repo repository.CustomerRepo
}

// NewCustomerApplier creates a new CustomerApplier
func NewCustomerApplier(repo repository.CustomerRepo) *CustomerApplier {
	return &CustomerApplier{repo: repo}
}

func (a *CustomerApplier) EntityType() string { return "customer" }

func (a *CustomerApplier) Create(ctx context.Context, businessID, entityID string, data models.JSONMap) error {
	existing, err := a.repo.Get(ctx, businessID, entityID)
	if err != nil {
		return fmt.Errorf("failed to load customer: %w", err)
	}
	if existing != nil {
		return a.Update(ctx, businessID, entityID, data)
	}

	now := time.Now().UTC()
	customer := &models.Customer{
		ID:         entityID,
		BusinessID: businessID,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := applyFields(customer, data); err != nil {
		return err
	}
	if customer.Name == "" {
		return &BusinessLogicError{Message: "customer name cannot be empty"}
	}
	return a.repo.Insert(ctx, customer)
}

func (a *CustomerApplier) Update(ctx context.Context, businessID, entityID string, data models.JSONMap) error {
	customer, err := a.repo.Get(ctx, businessID, entityID)
	if err != nil {
		return fmt.Errorf("failed to load customer: %w", err)
	}
	if customer == nil {
		return a.Create(ctx, businessID, entityID, data)
	}

	customer.UpdatedAt = time.Now().UTC()
	if err := applyFields(customer, data); err != nil {
		return err
	}
	return a.repo.Update(ctx, customer)
}

func (a *CustomerApplier) Delete(ctx context.Context, businessID, entityID string) error {
	_, err := a.repo.Delete(ctx, businessID, entityID)
	return err
}
