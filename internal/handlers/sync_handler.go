package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/ledgersync/server/internal/middleware"
	"github.com/ledgersync/server/internal/models"
	"github.com/ledgersync/server/internal/observability"
	"github.com/ledgersync/server/internal/services"
)

// DeviceIDHeader carries the client-chosen device identifier
const DeviceIDHeader = "X-Device-Id"

// SyncHandler handles the pull/push/status sync protocol
type SyncHandler struct {
	syncService *services.SyncService
	hub         *services.SyncHub
	metrics     *observability.SyncMetrics
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(syncService *services.SyncService, hub *services.SyncHub, metrics *observability.SyncMetrics) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
		hub:         hub,
		metrics:     metrics,
	}
}

// Pull delivers change log entries after the client's cursor
// @Summary Pull changes
// @Description Returns changes recorded after the given cursor, excluding this device's own writes
// @Tags sync
// @Accept json
// @Produce json
// @Param X-Device-Id header string true "Device ID"
// @Param request body models.SyncPullRequest true "Pull options"
// @Success 200 {object} models.SyncPullResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/sync/pull [post]
func (h *SyncHandler) Pull(w http.ResponseWriter, r *http.Request) {
	business, deviceID, ok := h.syncIdentity(w, r)
	if !ok {
		return
	}

	var req models.SyncPullRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Limit < 0 || req.Limit > services.MaxPullLimit {
		writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
		return
	}

	resp, err := h.syncService.PullChanges(r.Context(), business.ID, deviceID, &req)
	if err != nil {
		h.writeSyncError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordPull(r.Context(), business.ID, len(resp.Changes), resp.HasMore)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Push applies a batch of client changes
// @Summary Push changes
// @Description Applies up to 1000 changes; conflicts and per-item failures are reported without aborting the batch
// @Tags sync
// @Accept json
// @Produce json
// @Param X-Device-Id header string true "Device ID"
// @Param request body models.SyncPushRequest true "Changes to apply"
// @Success 200 {object} models.SyncPushResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/sync/push [post]
func (h *SyncHandler) Push(w http.ResponseWriter, r *http.Request) {
	business, deviceID, ok := h.syncIdentity(w, r)
	if !ok {
		return
	}

	var req models.SyncPushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Changes) > services.MaxPushBatch {
		writeError(w, http.StatusBadRequest, "push batch cannot exceed 1000 changes")
		return
	}

	resp, err := h.syncService.PushChanges(r.Context(), business.ID, deviceID, &req)
	if err != nil {
		h.writeSyncError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordPush(r.Context(), business.ID, len(resp.Accepted), len(resp.Conflicts), len(resp.Rejected))
	}

	if h.hub != nil && len(resp.Accepted) > 0 {
		entityTypes := make([]string, 0, len(req.Changes))
		seen := make(map[string]bool)
		for _, c := range req.Changes {
			if !seen[c.EntityType] {
				seen[c.EntityType] = true
				entityTypes = append(entityTypes, c.EntityType)
			}
		}
		h.hub.NotifyBusiness(business.ID, deviceID, services.SyncMessage{
			Type: services.SyncTypeChangesAvailable,
			Payload: services.ChangesAvailablePayload{
				EntityTypes: entityTypes,
				ChangeCount: len(resp.Accepted),
				NextCursor:  resp.NextCursor,
			},
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Status reports the device's sync position
// @Summary Sync status
// @Description Returns the device cursor and the number of changes waiting for it
// @Tags sync
// @Produce json
// @Param X-Device-Id header string true "Device ID"
// @Success 200 {object} models.SyncStatusResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/sync/status [get]
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	business, deviceID, ok := h.syncIdentity(w, r)
	if !ok {
		return
	}

	resp, err := h.syncService.GetStatus(r.Context(), business.ID, deviceID)
	if err != nil {
		h.writeSyncError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// syncIdentity resolves the authenticated business and the device header
func (h *SyncHandler) syncIdentity(w http.ResponseWriter, r *http.Request) (*models.Business, string, bool) {
	business := middleware.GetBusinessFromContext(r.Context())
	if business == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, "", false
	}
	deviceID := r.Header.Get(DeviceIDHeader)
	if deviceID == "" {
		writeError(w, http.StatusBadRequest, "X-Device-Id header is required")
		return nil, "", false
	}
	return business, deviceID, true
}

func (h *SyncHandler) writeSyncError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrDeviceNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case services.IsBusinessLogicError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("Sync request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{Error: msg})
}
