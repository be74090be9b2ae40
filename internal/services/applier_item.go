package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ledgersync/server/internal/models"
	"github.com/ledgersync/server/internal/repository"
)

// ItemApplier applies synced changes to the item store
type ItemApplier struct {
	repo repository.ItemRepo
}

// NewItemApplier creates a new ItemApplier
func NewItemApplier(repo repository.ItemRepo) *ItemApplier {
	return &ItemApplier{repo: repo}
}

func (a *ItemApplier) EntityType() string { return "item" }

// Create inserts the item. A record that already exists is overwritten in
// place so a retried push converges instead of failing on a duplicate key.
func (a *ItemApplier) Create(ctx context.Context, businessID, entityID string, data models.JSONMap) error {
	existing, err := a.repo.Get(ctx, businessID, entityID)
	if err != nil {
		return fmt.Errorf("failed to load item: %w", err)
	}
	if existing != nil {
		return a.Update(ctx, businessID, entityID, data)
	}

	now := time.Now().UTC()
	item := &models.Item{
		ID:         entityID,
		BusinessID: businessID,
		Unit:       "pcs",
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := applyFields(item, data); err != nil {
		return err
	}
	if item.Name == "" {
		return &BusinessLogicError{Message: "item name cannot be empty"}
	}
	return a.repo.Insert(ctx, item)
}

// Update overlays the payload fields onto the stored item. An unknown item
// is created from the payload so replays after log trimming still converge.
func (a *ItemApplier) Update(ctx context.Context, businessID, entityID string, data models.JSONMap) error {
	item, err := a.repo.Get(ctx, businessID, entityID)
	if err != nil {
		return fmt.Errorf("failed to load item: %w", err)
	}
	if item == nil {
		return a.Create(ctx, businessID, entityID, data)
	}

	// Refreshed unless the payload carries its own updated_at
	item.UpdatedAt = time.Now().UTC()
	if err := applyFields(item, data); err != nil {
		return err
	}
	return a.repo.Update(ctx, item)
}

// Delete removes the item; deleting an unknown item is not an error
func (a *ItemApplier) Delete(ctx context.Context, businessID, entityID string) error {
	_, err := a.repo.Delete(ctx, businessID, entityID)
	return err
}
