package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgersync/server/internal/models"
)

func TestApplierRegistry_Apply(t *testing.T) {
	env := newSyncEnv(t)
	ctx := context.Background()

	t.Run("unknown entity type is a business logic error", func(t *testing.T) {
		err := env.registry.Apply(ctx, env.business.ID, &models.SyncChangeRequest{
			EntityType: "warehouse",
			EntityID:   "w1",
			Action:     "create",
		})
		require.Error(t, err)
		assert.True(t, IsBusinessLogicError(err))
		assert.Contains(t, err.Error(), "unknown entity type")
	})

	t.Run("invalid action is a business logic error", func(t *testing.T) {
		err := env.registry.Apply(ctx, env.business.ID, &models.SyncChangeRequest{
			EntityType: "item",
			EntityID:   "x",
			Action:     "merge",
		})
		require.Error(t, err)
		assert.True(t, IsBusinessLogicError(err))
	})

	t.Run("empty entity id is a business logic error", func(t *testing.T) {
		err := env.registry.Apply(ctx, env.business.ID, &models.SyncChangeRequest{
			EntityType: "item",
			Action:     "create",
		})
		require.Error(t, err)
		assert.True(t, IsBusinessLogicError(err))
	})

	t.Run("registry knows its entity types", func(t *testing.T) {
		types := env.registry.EntityTypes()
		assert.ElementsMatch(t, []string{"item", "customer", "invoice", "cash_transaction"}, types)
	})
}

func TestItemApplier(t *testing.T) {
	ctx := context.Background()

	t.Run("create forces tenant and ignores payload identifiers", func(t *testing.T) {
		env := newSyncEnv(t)
		applier := NewItemApplier(env.items)

		err := applier.Create(ctx, env.business.ID, "x1", models.JSONMap{
			"id":          "spoofed-id",
			"business_id": "spoofed-tenant",
			"name":        "Rice",
			"sale_price":  12.0,
		})
		require.NoError(t, err)

		item, err := env.items.Get(ctx, env.business.ID, "x1")
		require.NoError(t, err)
		require.NotNil(t, item)
		assert.Equal(t, "x1", item.ID)
		assert.Equal(t, env.business.ID, item.BusinessID)
		assert.Equal(t, "Rice", item.Name)
		assert.Equal(t, "pcs", item.Unit)
		assert.True(t, item.IsActive)
	})

	t.Run("create without a name is rejected", func(t *testing.T) {
		env := newSyncEnv(t)
		applier := NewItemApplier(env.items)

		err := applier.Create(ctx, env.business.ID, "x1", models.JSONMap{"sale_price": 1.0})
		require.Error(t, err)
		assert.True(t, IsBusinessLogicError(err))
	})

	t.Run("update only overwrites fields present in the payload", func(t *testing.T) {
		env := newSyncEnv(t)
		applier := NewItemApplier(env.items)

		require.NoError(t, applier.Create(ctx, env.business.ID, "x1", models.JSONMap{
			"name":       "Rice",
			"sale_price": 12.0,
			"unit":       "kg",
		}))

		require.NoError(t, applier.Update(ctx, env.business.ID, "x1", models.JSONMap{
			"sale_price": 14.5,
		}))

		item, err := env.items.Get(ctx, env.business.ID, "x1")
		require.NoError(t, err)
		require.NotNil(t, item)
		assert.Equal(t, "Rice", item.Name)
		assert.Equal(t, "kg", item.Unit)
		assert.Equal(t, 14.5, item.SalePrice)
	})

	t.Run("update refreshes updated_at when the payload omits it", func(t *testing.T) {
		env := newSyncEnv(t)
		applier := NewItemApplier(env.items)

		require.NoError(t, applier.Create(ctx, env.business.ID, "x1", models.JSONMap{"name": "Rice"}))
		created, err := env.items.Get(ctx, env.business.ID, "x1")
		require.NoError(t, err)
		require.NotNil(t, created)

		require.NoError(t, applier.Update(ctx, env.business.ID, "x1", models.JSONMap{"sale_price": 14.5}))
		updated, err := env.items.Get(ctx, env.business.ID, "x1")
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	})

	t.Run("update keeps a payload-carried updated_at", func(t *testing.T) {
		env := newSyncEnv(t)
		applier := NewItemApplier(env.items)

		require.NoError(t, applier.Create(ctx, env.business.ID, "x1", models.JSONMap{"name": "Rice"}))

		clientTime := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		require.NoError(t, applier.Update(ctx, env.business.ID, "x1", models.JSONMap{
			"sale_price": 14.5,
			"updated_at": clientTime.Format(time.RFC3339),
		}))

		updated, err := env.items.Get(ctx, env.business.ID, "x1")
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.True(t, updated.UpdatedAt.Equal(clientTime))
	})

	t.Run("create of an existing item converges instead of failing", func(t *testing.T) {
		env := newSyncEnv(t)
		applier := NewItemApplier(env.items)

		require.NoError(t, applier.Create(ctx, env.business.ID, "x1", models.JSONMap{"name": "Rice"}))
		require.NoError(t, applier.Create(ctx, env.business.ID, "x1", models.JSONMap{"name": "Brown Rice"}))

		item, err := env.items.Get(ctx, env.business.ID, "x1")
		require.NoError(t, err)
		require.NotNil(t, item)
		assert.Equal(t, "Brown Rice", item.Name)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		env := newSyncEnv(t)
		applier := NewItemApplier(env.items)

		require.NoError(t, applier.Create(ctx, env.business.ID, "x1", models.JSONMap{"name": "Rice"}))
		require.NoError(t, applier.Delete(ctx, env.business.ID, "x1"))
		require.NoError(t, applier.Delete(ctx, env.business.ID, "x1"))

		item, err := env.items.Get(ctx, env.business.ID, "x1")
		require.NoError(t, err)
		assert.Nil(t, item)
	})
}

func TestCashTransactionApplier(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects unknown transaction type", func(t *testing.T) {
		env := newSyncEnv(t)
		err := env.registry.Apply(ctx, env.business.ID, &models.SyncChangeRequest{
			EntityType: "cash_transaction",
			EntityID:   "t1",
			Action:     "create",
			Data:       models.JSONMap{"transaction_type": "wire", "amount": 100.0},
			UpdatedAt:  time.Now().UTC(),
		})
		require.Error(t, err)
		assert.True(t, IsBusinessLogicError(err))
	})

	t.Run("accepts a cash_in entry", func(t *testing.T) {
		env := newSyncEnv(t)
		err := env.registry.Apply(ctx, env.business.ID, &models.SyncChangeRequest{
			EntityType: "cash_transaction",
			EntityID:   "t1",
			Action:     "create",
			Data:       models.JSONMap{"transaction_type": "cash_in", "amount": 250.0, "source": "sales"},
			UpdatedAt:  time.Now().UTC(),
		})
		require.NoError(t, err)
	})
}

func TestInvoiceApplier(t *testing.T) {
	ctx := context.Background()

	t.Run("requires an invoice number", func(t *testing.T) {
		env := newSyncEnv(t)
		err := env.registry.Apply(ctx, env.business.ID, &models.SyncChangeRequest{
			EntityType: "invoice",
			EntityID:   "i1",
			Action:     "create",
			Data:       models.JSONMap{"total_amount": 99.0},
			UpdatedAt:  time.Now().UTC(),
		})
		require.Error(t, err)
		assert.True(t, IsBusinessLogicError(err))
	})

	t.Run("creates a sale invoice", func(t *testing.T) {
		env := newSyncEnv(t)
		err := env.registry.Apply(ctx, env.business.ID, &models.SyncChangeRequest{
			EntityType: "invoice",
			EntityID:   "i1",
			Action:     "create",
			Data: models.JSONMap{
				"invoice_number": "INV-001",
				"invoice_type":   "sale",
				"total_amount":   99.0,
			},
			UpdatedAt: time.Now().UTC(),
		})
		require.NoError(t, err)
	})
}
