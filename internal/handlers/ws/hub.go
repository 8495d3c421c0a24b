package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

// ClientConnection wraps a WebSocket connection with health metadata.
type ClientConnection struct {
	Conn       *websocket.Conn
	UserID     uint
	LastPong   time.Time
	PingTicker *time.Ticker
	CloseChan  chan struct{}

	writeMux  sync.Mutex
	closeOnce sync.Once
}

func (c *ClientConnection) shutdown() {
	c.PingTicker.Stop()
	c.closeOnce.Do(func() { close(c.CloseChan) })
}

// Hub tracks which users hold a live WebSocket on this node and serializes
// writes to each connection.
type Hub struct {
	clients      map[uint]*ClientConnection
	clientsMux   sync.RWMutex
	pingInterval time.Duration
	pongTimeout  time.Duration
}

func NewHub() *Hub {
	hub := &Hub{
		clients:      make(map[uint]*ClientConnection),
		pingInterval: 30 * time.Second,
		pongTimeout:  90 * time.Second,
	}
	go hub.connectionHealthChecker()
	return hub
}

// Register adds a client connection with health monitoring. A user's previous
// connection, if any, is displaced.
func (h *Hub) Register(userID uint, conn *websocket.Conn) *ClientConnection {
	client := &ClientConnection{
		Conn:       conn,
		UserID:     userID,
		LastPong:   time.Now(),
		PingTicker: time.NewTicker(h.pingInterval),
		CloseChan:  make(chan struct{}),
	}

	conn.SetPongHandler(func(string) error {
		h.clientsMux.Lock()
		if c, exists := h.clients[userID]; exists && c == client {
			c.LastPong = time.Now()
		}
		h.clientsMux.Unlock()
		return conn.SetReadDeadline(time.Now().Add(h.pongTimeout))
	})
	conn.SetReadDeadline(time.Now().Add(h.pongTimeout))

	h.clientsMux.Lock()
	displaced := h.clients[userID]
	h.clients[userID] = client
	total := len(h.clients)
	h.clientsMux.Unlock()

	if displaced != nil {
		displaced.shutdown()
	}
	go h.pingRoutine(client)

	log.Printf("ws: user %d connected (total: %d)", userID, total)
	return client
}

// Unregister removes a client connection. The identity check keeps a stale
// connection's teardown from removing the one that displaced it.
func (h *Hub) Unregister(client *ClientConnection) {
	h.clientsMux.Lock()
	if cur, exists := h.clients[client.UserID]; exists && cur == client {
		delete(h.clients, client.UserID)
	}
	total := len(h.clients)
	h.clientsMux.Unlock()

	client.shutdown()
	log.Printf("ws: user %d disconnected (total: %d)", client.UserID, total)
}

// IsOnline checks if a user is connected to this node.
func (h *Hub) IsOnline(userID uint) bool {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()
	_, exists := h.clients[userID]
	return exists
}

// SendToUser delivers a JSON frame to a connected user. Offline users are
// skipped; they converge from the baseline on their next connect.
func (h *Hub) SendToUser(userID uint, data interface{}) error {
	h.clientsMux.RLock()
	client, exists := h.clients[userID]
	h.clientsMux.RUnlock()
	if !exists {
		return nil
	}

	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("ws: marshal frame for user %d: %v", userID, err)
		return err
	}

	client.writeMux.Lock()
	err = client.Conn.WriteMessage(websocket.TextMessage, payload)
	client.writeMux.Unlock()
	if err != nil {
		log.Printf("ws: send to user %d: %v", userID, err)
		h.Unregister(client)
		return err
	}
	return nil
}

// BroadcastToUsers sends a frame to each of the given users that is online.
func (h *Hub) BroadcastToUsers(userIDs []uint, data interface{}) {
	for _, userID := range userIDs {
		_ = h.SendToUser(userID, data)
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()
	return len(h.clients)
}

func (h *Hub) pingRoutine(client *ClientConnection) {
	for {
		select {
		case <-client.CloseChan:
			return
		case <-client.PingTicker.C:
			client.writeMux.Lock()
			err := client.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second))
			client.writeMux.Unlock()
			if err != nil {
				log.Printf("ws: ping to user %d failed: %v", client.UserID, err)
				h.Unregister(client)
				return
			}
		}
	}
}

// connectionHealthChecker drops connections that stopped answering pings.
func (h *Hub) connectionHealthChecker() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		h.clientsMux.RLock()
		var dead []*ClientConnection
		now := time.Now()
		for _, client := range h.clients {
			if now.Sub(client.LastPong) > h.pongTimeout {
				dead = append(dead, client)
			}
		}
		h.clientsMux.RUnlock()

		for _, client := range dead {
			log.Printf("ws: dropping user %d (no pong)", client.UserID)
			h.Unregister(client)
		}
	}
}
