package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ledgersync/server/internal/models"
)

// EntityApplier mutates one entity type's domain store from change payloads.
// Implementations must scope every operation to the given business and never
// trust tenant or identifier fields inside the payload.
type EntityApplier interface {
	EntityType() string
	Create(ctx context.Context, businessID, entityID string, data models.JSONMap) error
	Update(ctx context.Context, businessID, entityID string, data models.JSONMap) error
	Delete(ctx context.Context, businessID, entityID string) error
}

// ApplierRegistry dispatches pushed changes to the applier registered for
// their entity type. The registry is built once at startup; each domain
// module registers itself.
type ApplierRegistry struct {
	appliers map[string]EntityApplier
}

// NewApplierRegistry creates an empty registry
func NewApplierRegistry() *ApplierRegistry {
	return &ApplierRegistry{appliers: make(map[string]EntityApplier)}
}

// Register adds an applier, keyed by its entity type
func (r *ApplierRegistry) Register(applier EntityApplier) {
	r.appliers[applier.EntityType()] = applier
}

// EntityTypes returns the registered entity type names
func (r *ApplierRegistry) EntityTypes() []string {
	types := make([]string, 0, len(r.appliers))
	for t := range r.appliers {
		types = append(types, t)
	}
	return types
}

// Apply routes a single pushed change to its applier. Validation failures
// and unknown entity types return a BusinessLogicError so the coordinator
// rejects only this item.
func (r *ApplierRegistry) Apply(ctx context.Context, businessID string, change *models.SyncChangeRequest) error {
	action := models.SyncAction(change.Action)
	if !action.Valid() {
		return &BusinessLogicError{Message: fmt.Sprintf("invalid action: %s", change.Action)}
	}
	if change.EntityID == "" {
		return &BusinessLogicError{Message: "entity_id cannot be empty"}
	}

	applier, ok := r.appliers[change.EntityType]
	if !ok {
		return &BusinessLogicError{Message: fmt.Sprintf("unknown entity type: %s", change.EntityType)}
	}

	switch action {
	case models.ActionCreate:
		return applier.Create(ctx, businessID, change.EntityID, change.Data)
	case models.ActionUpdate:
		return applier.Update(ctx, businessID, change.EntityID, change.Data)
	default:
		return applier.Delete(ctx, businessID, change.EntityID)
	}
}

// applyFields overlays the payload onto target, ignoring identifier and
// tenant fields. Only keys present in data overwrite target fields; a JSON
// round trip keeps the decoding rules identical to the API layer.
func applyFields(target interface{}, data models.JSONMap) error {
	if len(data) == 0 {
		return nil
	}
	clean := make(models.JSONMap, len(data))
	for k, v := range data {
		switch k {
		case "id", "business_id", "created_at":
			continue
		}
		clean[k] = v
	}
	raw, err := json.Marshal(clean)
	if err != nil {
		return &BusinessLogicError{Message: fmt.Sprintf("invalid change data: %v", err)}
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return &BusinessLogicError{Message: fmt.Sprintf("invalid change data: %v", err)}
	}
	return nil
}
