package handlers

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/ledgersync/server/internal/middleware"
	"github.com/ledgersync/server/internal/repository"
	"github.com/ledgersync/server/internal/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for now - can be restricted in production
		return true
	},
}

// WebSocketHandler handles sync notification sockets
type WebSocketHandler struct {
	hub        *services.SyncHub
	deviceRepo repository.DeviceRepo
}

// NewWebSocketHandler creates a new WebSocketHandler
func NewWebSocketHandler(hub *services.SyncHub, deviceRepo repository.DeviceRepo) *WebSocketHandler {
	return &WebSocketHandler{
		hub:        hub,
		deviceRepo: deviceRepo,
	}
}

// HandleConnection upgrades to WebSocket and streams sync notifications.
// The device learns when other devices have pushed changes so it can pull
// without polling.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	business := middleware.GetBusinessFromContext(r.Context())
	if business == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		deviceID = r.Header.Get(DeviceIDHeader)
	}
	if deviceID == "" {
		http.Error(w, "device_id query parameter required", http.StatusBadRequest)
		return
	}

	device, err := h.deviceRepo.GetActive(r.Context(), business.ID, deviceID)
	if err != nil || device == nil {
		http.Error(w, "device not found or inactive", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := h.hub.NewClient(business.ID, device.DeviceID, conn)
	h.hub.Register(client)

	go client.WritePump()
	client.ReadPump()
}
