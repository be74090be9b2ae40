package services

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// SyncMessage is a WebSocket notification frame
type SyncMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Notification types
const (
	SyncTypeChangesAvailable = "changes_available"
	SyncTypeDeviceRevoked    = "device_revoked"
	SyncTypePing             = "ping"
	SyncTypePong             = "pong"
)

// ChangesAvailablePayload tells connected devices new changes are waiting
type ChangesAvailablePayload struct {
	EntityTypes []string `json:"entity_types"`
	ChangeCount int      `json:"change_count"`
	NextCursor  string   `json:"next_cursor"`
}

// SyncClient is one connected device socket
type SyncClient struct {
	BusinessID string
	DeviceID   string
	Conn       *websocket.Conn
	Send       chan []byte
	hub        *SyncHub
	mu         sync.Mutex
	closedOnce sync.Once
}

// SyncHub fans sync notifications out to connected devices, keyed by
// business. A pushing device is excluded from its own notification so it
// does not pull back its echo.
type SyncHub struct {
	businesses map[string]map[*SyncClient]bool
	register   chan *SyncClient
	unregister chan *SyncClient
	broadcast  chan *syncBroadcast
	mu         sync.RWMutex
}

type syncBroadcast struct {
	businessID    string
	excludeDevice string
	message       []byte
}

// NewSyncHub creates a new SyncHub
func NewSyncHub() *SyncHub {
	return &SyncHub{
		businesses: make(map[string]map[*SyncClient]bool),
		register:   make(chan *SyncClient),
		unregister: make(chan *SyncClient),
		broadcast:  make(chan *syncBroadcast, 256),
	}
}

// Run starts the hub's main loop
func (h *SyncHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.businesses[client.BusinessID] == nil {
				h.businesses[client.BusinessID] = make(map[*SyncClient]bool)
			}
			h.businesses[client.BusinessID][client] = true
			h.mu.Unlock()
			log.Printf("Sync socket connected: business=%s device=%s", client.BusinessID, client.DeviceID)

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.businesses[client.BusinessID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					if len(clients) == 0 {
						delete(h.businesses, client.BusinessID)
					}
					close(client.Send)
				}
			}
			h.mu.Unlock()
			log.Printf("Sync socket disconnected: business=%s device=%s", client.BusinessID, client.DeviceID)

		case msg := <-h.broadcast:
			h.mu.RLock()
			for client := range h.businesses[msg.businessID] {
				if msg.excludeDevice != "" && client.DeviceID == msg.excludeDevice {
					continue
				}
				select {
				case client.Send <- msg.message:
				default:
					// Client buffer full, close connection
					go func(c *SyncClient) {
						h.unregister <- c
					}(client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a client to the hub
func (h *SyncHub) Register(client *SyncClient) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *SyncHub) Unregister(client *SyncClient) {
	h.unregister <- client
}

// NotifyBusiness sends a message to every connected device of a business
// except excludeDevice.
func (h *SyncHub) NotifyBusiness(businessID, excludeDevice string, msg SyncMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshaling sync notification: %v", err)
		return
	}
	h.broadcast <- &syncBroadcast{
		businessID:    businessID,
		excludeDevice: excludeDevice,
		message:       data,
	}
}

// ConnectedCount returns the number of sockets for a business
func (h *SyncHub) ConnectedCount(businessID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.businesses[businessID])
}

// NewClient creates a client bound to this hub
func (h *SyncHub) NewClient(businessID, deviceID string, conn *websocket.Conn) *SyncClient {
	return &SyncClient{
		BusinessID: businessID,
		DeviceID:   deviceID,
		Conn:       conn,
		Send:       make(chan []byte, 256),
		hub:        h,
	}
}

// Close closes the client connection
func (c *SyncClient) Close() {
	c.closedOnce.Do(func() {
		c.hub.Unregister(c)
		c.Conn.Close()
	})
}

// WritePump pumps messages from the hub to the websocket connection
func (c *SyncClient) WritePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			c.mu.Lock()
			err := c.Conn.WriteMessage(websocket.TextMessage, message)
			c.mu.Unlock()

			if err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump drains the connection so pings and close frames are handled.
// Clients only listen on this socket; inbound frames are ignored apart from
// keeping the read deadline fresh.
func (c *SyncClient) ReadPump() {
	defer c.Close()

	c.Conn.SetReadLimit(4 * 1024)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Sync socket error: %v", err)
			}
			break
		}
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	}
}
