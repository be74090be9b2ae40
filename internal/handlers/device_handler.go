package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ledgersync/server/internal/middleware"
	"github.com/ledgersync/server/internal/models"
	"github.com/ledgersync/server/internal/observability"
	"github.com/ledgersync/server/internal/services"
)

// DeviceHandler handles device pairing and lifecycle endpoints
type DeviceHandler struct {
	deviceService *services.DeviceService
	hub           *services.SyncHub
	metrics       *observability.SyncMetrics
}

// NewDeviceHandler creates a new DeviceHandler
func NewDeviceHandler(deviceService *services.DeviceService, hub *services.SyncHub, metrics *observability.SyncMetrics) *DeviceHandler {
	return &DeviceHandler{
		deviceService: deviceService,
		hub:           hub,
		metrics:       metrics,
	}
}

// IssuePairingToken creates a single-use pairing token for the business
// @Summary Issue pairing token
// @Description Creates a short-lived single-use token for attaching a new device
// @Tags devices
// @Produce json
// @Success 200 {object} models.PairingTokenResponse
// @Failure 401 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/devices/pairing-token [post]
func (h *DeviceHandler) IssuePairingToken(w http.ResponseWriter, r *http.Request) {
	business := middleware.GetBusinessFromContext(r.Context())
	if business == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	resp, err := h.deviceService.IssuePairingToken(r.Context(), business.ID)
	if err != nil {
		log.Printf("Failed to issue pairing token: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to issue pairing token")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// PairDevice redeems a pairing token and registers the device
// @Summary Pair device
// @Description Registers a device using a pairing token; no API key required
// @Tags devices
// @Accept json
// @Produce json
// @Param request body models.PairDeviceRequest true "Pairing request"
// @Success 200 {object} models.DeviceResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /api/devices/pair [post]
func (h *DeviceHandler) PairDevice(w http.ResponseWriter, r *http.Request) {
	var req models.PairDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	device, err := h.deviceService.PairDevice(r.Context(), &req)
	if h.metrics != nil {
		h.metrics.RecordPairing(r.Context(), err == nil)
	}
	if err != nil {
		h.writePairError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(device.ToResponse())
}

// ListDevices returns the business's active devices
// @Summary List devices
// @Description Lists all active devices for the authenticated business
// @Tags devices
// @Produce json
// @Success 200 {array} models.DeviceResponse
// @Failure 401 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/devices [get]
func (h *DeviceHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	business := middleware.GetBusinessFromContext(r.Context())
	if business == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	devices, err := h.deviceService.ListDevices(r.Context(), business.ID)
	if err != nil {
		log.Printf("Failed to list devices: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list devices")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(devices)
}

// RevokeDevice deactivates a device
// @Summary Revoke device
// @Description Deactivates a device so it can no longer sync
// @Tags devices
// @Param id path string true "Device row ID"
// @Success 200 {object} map[string]bool
// @Failure 404 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/devices/{id} [delete]
func (h *DeviceHandler) RevokeDevice(w http.ResponseWriter, r *http.Request) {
	business := middleware.GetBusinessFromContext(r.Context())
	if business == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.deviceService.RevokeDevice(r.Context(), business.ID, id); err != nil {
		if errors.Is(err, services.ErrDeviceNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		log.Printf("Failed to revoke device: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to revoke device")
		return
	}

	if h.hub != nil {
		h.hub.NotifyBusiness(business.ID, "", services.SyncMessage{
			Type:    services.SyncTypeDeviceRevoked,
			Payload: map[string]string{"id": id},
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"revoked": true})
}

func (h *DeviceHandler) writePairError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrPairingTokenInvalid), errors.Is(err, services.ErrPairingTokenExpired):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrDeviceLimitReached):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrBusinessNotFound):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		var deviceErr models.DeviceError
		if errors.As(err, &deviceErr) {
			writeError(w, http.StatusBadRequest, deviceErr.Error())
			return
		}
		log.Printf("Failed to pair device: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to pair device")
	}
}
