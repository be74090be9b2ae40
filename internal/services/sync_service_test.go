package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgersync/server/internal/models"
)

func TestSyncService_Push(t *testing.T) {
	t.Run("accepts a valid change and applies it to the domain store", func(t *testing.T) {
		env := newSyncEnv(t)
		env.addDevice(t, "d1")

		resp := env.push(t, "d1", itemCreate("x", "Rice", time.Now().UTC()))

		require.Len(t, resp.Accepted, 1)
		assert.Empty(t, resp.Conflicts)
		assert.Empty(t, resp.Rejected)
		assert.NotEmpty(t, resp.NextCursor)

		item, err := env.items.Get(context.Background(), env.business.ID, "x")
		require.NoError(t, err)
		require.NotNil(t, item)
		assert.Equal(t, "Rice", item.Name)
		assert.Equal(t, env.business.ID, item.BusinessID)
	})

	t.Run("rejects the whole call for an unknown device", func(t *testing.T) {
		env := newSyncEnv(t)

		_, err := env.sync.PushChanges(context.Background(), env.business.ID, "ghost",
			&models.SyncPushRequest{Changes: []models.SyncChangeRequest{itemCreate("x", "Rice", time.Now().UTC())}})
		assert.True(t, errors.Is(err, ErrDeviceNotFound))
	})

	t.Run("rejects the whole call for a revoked device", func(t *testing.T) {
		env := newSyncEnv(t)
		device := env.addDevice(t, "d1")
		_, err := env.devices.Revoke(context.Background(), env.business.ID, device.ID)
		require.NoError(t, err)

		_, err = env.sync.PushChanges(context.Background(), env.business.ID, "d1",
			&models.SyncPushRequest{Changes: nil})
		assert.True(t, errors.Is(err, ErrDeviceNotFound))
	})

	t.Run("isolates per-item failures", func(t *testing.T) {
		env := newSyncEnv(t)
		env.addDevice(t, "d1")
		now := time.Now().UTC()

		resp := env.push(t, "d1",
			itemCreate("a", "Rice", now),
			models.SyncChangeRequest{
				EntityType: "spaceship",
				EntityID:   "b",
				Action:     "create",
				Data:       models.JSONMap{},
				UpdatedAt:  now,
			},
			itemCreate("c", "Flour", now),
		)

		assert.Len(t, resp.Accepted, 2)
		require.Len(t, resp.Rejected, 1)
		assert.Equal(t, "spaceship", resp.Rejected[0].EntityType)
		assert.Contains(t, resp.Rejected[0].Error, "unknown entity type")
	})

	t.Run("isolates store failures from the applier", func(t *testing.T) {
		env := newSyncEnv(t)
		env.addDevice(t, "d1")
		env.addDevice(t, "d2")
		env.registry.Register(&brokenApplier{entityType: "report", err: errors.New("store unavailable")})
		now := time.Now().UTC()

		resp := env.push(t, "d1",
			itemCreate("a", "Rice", now),
			models.SyncChangeRequest{
				EntityType: "report",
				EntityID:   "b",
				Action:     "create",
				Data:       models.JSONMap{},
				UpdatedAt:  now,
			},
			itemCreate("c", "Flour", now),
		)

		assert.Len(t, resp.Accepted, 2)
		assert.Empty(t, resp.Conflicts)
		require.Len(t, resp.Rejected, 1)
		assert.Equal(t, "report", resp.Rejected[0].EntityType)
		assert.Equal(t, "b", resp.Rejected[0].EntityID)
		assert.Contains(t, resp.Rejected[0].Error, "store unavailable")
		assert.NotEmpty(t, resp.NextCursor)

		// The surviving items were applied and logged
		item, err := env.items.Get(context.Background(), env.business.ID, "c")
		require.NoError(t, err)
		require.NotNil(t, item)

		pulled := env.pull(t, "d2", "")
		require.Len(t, pulled.Changes, 2)
	})

	t.Run("rejects invalid action without failing the batch", func(t *testing.T) {
		env := newSyncEnv(t)
		env.addDevice(t, "d1")

		resp := env.push(t, "d1", models.SyncChangeRequest{
			EntityType: "item",
			EntityID:   "x",
			Action:     "upsert",
			UpdatedAt:  time.Now().UTC(),
		})

		assert.Empty(t, resp.Accepted)
		require.Len(t, resp.Rejected, 1)
		assert.Contains(t, resp.Rejected[0].Error, "invalid action")
	})

	t.Run("stale change conflicts and does not touch the domain store", func(t *testing.T) {
		env := newSyncEnv(t)
		env.addDevice(t, "d1")
		env.addDevice(t, "d2")

		now := time.Now().UTC()
		first := env.push(t, "d1", itemCreate("x", "Rice", now))
		require.Len(t, first.Accepted, 1)

		stale := models.SyncChangeRequest{
			EntityType: "item",
			EntityID:   "x",
			Action:     "update",
			Data:       models.JSONMap{"name": "Old Rice"},
			UpdatedAt:  now.Add(-time.Hour),
		}
		resp := env.push(t, "d2", stale)

		assert.Empty(t, resp.Accepted)
		require.Len(t, resp.Conflicts, 1)
		conflict := resp.Conflicts[0]
		assert.Equal(t, "item", conflict.EntityType)
		assert.Equal(t, "x", conflict.EntityID)
		assert.True(t, conflict.ServerVersion.After(conflict.ClientVersion))
		assert.Equal(t, "Old Rice", conflict.ClientData["name"])
		assert.Equal(t, "Rice", conflict.ServerData["name"])
		assert.Empty(t, conflict.Resolution)

		item, err := env.items.Get(context.Background(), env.business.ID, "x")
		require.NoError(t, err)
		require.NotNil(t, item)
		assert.Equal(t, "Rice", item.Name)
	})

	t.Run("accepted entries share one batch timestamp", func(t *testing.T) {
		env := newSyncEnv(t)
		env.addDevice(t, "d1")
		now := time.Now().UTC()

		env.push(t, "d1", itemCreate("a", "Rice", now), itemCreate("b", "Flour", now))

		entries, _, err := env.changeLog.Query(context.Background(), env.business.ID, time.Time{}, nil, "", 10)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, entries[0].SyncTimestamp, entries[1].SyncTimestamp)
	})

	t.Run("delete of an unknown entity is accepted", func(t *testing.T) {
		env := newSyncEnv(t)
		env.addDevice(t, "d1")

		resp := env.push(t, "d1", models.SyncChangeRequest{
			EntityType: "item",
			EntityID:   "never-existed",
			Action:     "delete",
			UpdatedAt:  time.Now().UTC(),
		})

		assert.Len(t, resp.Accepted, 1)
		assert.Empty(t, resp.Rejected)
	})
}

func TestSyncService_Pull(t *testing.T) {
	t.Run("empty pull is idempotent", func(t *testing.T) {
		env := newSyncEnv(t)
		env.addDevice(t, "d1")
		env.addDevice(t, "d2")

		push := env.push(t, "d1", itemCreate("x", "Rice", time.Now().UTC()))

		first := env.pull(t, "d2", "")
		require.Len(t, first.Changes, 1)
		assert.False(t, first.HasMore)

		second := env.pull(t, "d2", first.NextCursor)
		assert.Empty(t, second.Changes)
		assert.Equal(t, first.NextCursor, second.NextCursor)
		assert.False(t, second.HasMore)
		_ = push
	})

	t.Run("suppresses the device's own writes", func(t *testing.T) {
		env := newSyncEnv(t)
		env.addDevice(t, "d1")
		env.addDevice(t, "d2")

		env.push(t, "d1", itemCreate("x", "Rice", time.Now().UTC()))

		own := env.pull(t, "d1", "")
		assert.Empty(t, own.Changes)

		other := env.pull(t, "d2", "")
		require.Len(t, other.Changes, 1)
		assert.Equal(t, "x", other.Changes[0].EntityID)
	})

	t.Run("delivers server-originated changes to every device", func(t *testing.T) {
		env := newSyncEnv(t)
		env.addDevice(t, "d1")

		_, err := env.sync.RecordServerChange(context.Background(), env.business.ID,
			"item", "srv-1", models.ActionUpdate, models.JSONMap{"name": "Adjusted"})
		require.NoError(t, err)

		resp := env.pull(t, "d1", "")
		require.Len(t, resp.Changes, 1)
		assert.Equal(t, "srv-1", resp.Changes[0].EntityID)
	})

	t.Run("timestamps are non-decreasing within a page", func(t *testing.T) {
		env := newSyncEnv(t)
		env.addDevice(t, "d1")
		env.addDevice(t, "d2")

		for _, id := range []string{"a", "b", "c"} {
			env.push(t, "d1", itemCreate(id, id, time.Now().UTC()))
		}

		resp := env.pull(t, "d2", "")
		require.Len(t, resp.Changes, 3)
		for i := 1; i < len(resp.Changes); i++ {
			assert.False(t, resp.Changes[i].SyncTimestamp.Before(resp.Changes[i-1].SyncTimestamp))
		}
	})

	t.Run("paginates with has_more and advancing cursor", func(t *testing.T) {
		env := newSyncEnv(t)
		env.addDevice(t, "d1")
		env.addDevice(t, "d2")

		base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		for i, id := range []string{"a", "b", "c"} {
			entry := &models.ChangeLogEntry{
				BusinessID:    env.business.ID,
				DeviceID:      "d1",
				EntityType:    "item",
				EntityID:      id,
				Action:        models.ActionCreate,
				SyncTimestamp: base.Add(time.Duration(i) * time.Second),
			}
			_, err := env.changeLog.Append(context.Background(), entry)
			require.NoError(t, err)
		}

		resp, err := env.sync.PullChanges(context.Background(), env.business.ID, "d2",
			&models.SyncPullRequest{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, resp.Changes, 2)
		assert.True(t, resp.HasMore)
		assert.Equal(t, 2, resp.TotalCount)

		rest := env.pull(t, "d2", resp.NextCursor)
		require.Len(t, rest.Changes, 1)
		assert.Equal(t, "c", rest.Changes[0].EntityID)
		assert.False(t, rest.HasMore)
	})

	t.Run("filters by entity types", func(t *testing.T) {
		env := newSyncEnv(t)
		env.addDevice(t, "d1")
		env.addDevice(t, "d2")
		now := time.Now().UTC()

		env.push(t, "d1",
			itemCreate("x", "Rice", now),
			models.SyncChangeRequest{
				EntityType: "customer",
				EntityID:   "c1",
				Action:     "create",
				Data:       models.JSONMap{"name": "Asha"},
				UpdatedAt:  now,
			},
		)

		resp, err := env.sync.PullChanges(context.Background(), env.business.ID, "d2",
			&models.SyncPullRequest{EntityTypes: []string{"customer"}})
		require.NoError(t, err)
		require.Len(t, resp.Changes, 1)
		assert.Equal(t, "customer", resp.Changes[0].EntityType)
	})

	t.Run("unparseable cursor falls back to a fresh pull", func(t *testing.T) {
		env := newSyncEnv(t)
		env.addDevice(t, "d1")
		env.addDevice(t, "d2")

		env.push(t, "d1", itemCreate("x", "Rice", time.Now().UTC()))

		resp := env.pull(t, "d2", "not-a-timestamp")
		assert.Len(t, resp.Changes, 1)
	})

	t.Run("rejects unknown device", func(t *testing.T) {
		env := newSyncEnv(t)

		_, err := env.sync.PullChanges(context.Background(), env.business.ID, "ghost", &models.SyncPullRequest{})
		assert.True(t, errors.Is(err, ErrDeviceNotFound))
	})
}

func TestSyncService_Status(t *testing.T) {
	t.Run("counts pending changes excluding own writes", func(t *testing.T) {
		env := newSyncEnv(t)
		env.addDevice(t, "d1")
		env.addDevice(t, "d2")
		now := time.Now().UTC()

		env.push(t, "d1", itemCreate("a", "Rice", now), itemCreate("b", "Flour", now))

		status, err := env.sync.GetStatus(context.Background(), env.business.ID, "d2")
		require.NoError(t, err)
		assert.Equal(t, 2, status.PendingChangesCount)
		assert.Equal(t, "d2", status.DeviceID)
		assert.True(t, status.IsActive)

		// The pusher's own cursor already covers its writes
		pusher, err := env.sync.GetStatus(context.Background(), env.business.ID, "d1")
		require.NoError(t, err)
		assert.Equal(t, 0, pusher.PendingChangesCount)
		assert.NotNil(t, pusher.LastSyncAt)
		assert.NotEmpty(t, pusher.SyncCursor)
	})

	t.Run("rejects revoked device", func(t *testing.T) {
		env := newSyncEnv(t)
		device := env.addDevice(t, "d1")
		_, err := env.devices.Revoke(context.Background(), env.business.ID, device.ID)
		require.NoError(t, err)

		_, err = env.sync.GetStatus(context.Background(), env.business.ID, "d1")
		assert.True(t, errors.Is(err, ErrDeviceNotFound))
	})
}

// Full multi-device scenario: push on one device, pull on another, then an
// idempotent re-pull.
func TestSyncService_Scenario(t *testing.T) {
	env := newSyncEnv(t)
	env.addDevice(t, "d1")
	env.addDevice(t, "d2")

	t0 := time.Now().UTC()
	pushResp := env.push(t, "d1", models.SyncChangeRequest{
		EntityType: "item",
		EntityID:   "X",
		Action:     "create",
		Data:       models.JSONMap{"name": "Rice"},
		UpdatedAt:  t0,
	})
	require.Len(t, pushResp.Accepted, 1)

	pullResp := env.pull(t, "d2", "")
	require.Len(t, pullResp.Changes, 1)
	change := pullResp.Changes[0]
	assert.Equal(t, "item", change.EntityType)
	assert.Equal(t, "X", change.EntityID)
	assert.Equal(t, "create", change.Action)
	assert.Equal(t, "Rice", change.Data["name"])
	assert.Equal(t, pushResp.Accepted[0], change.ChangeID)
	assert.False(t, change.SyncTimestamp.Before(t0.Truncate(time.Second)))

	again := env.pull(t, "d2", pullResp.NextCursor)
	assert.Empty(t, again.Changes)
	assert.False(t, again.HasMore)
	assert.Equal(t, pullResp.NextCursor, again.NextCursor)
}
