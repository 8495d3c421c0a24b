package handlers

import (
	"context"
	"encoding/json"
	"log"

	"github.com/campuslink/campuslink-backend/internal/handlers/ws"
	"github.com/campuslink/campuslink-backend/internal/service"
	"github.com/campuslink/campuslink-backend/internal/unread"
	"github.com/gofiber/websocket/v2"
)

type WebSocketHandler struct {
	chatService   *service.ChatService
	unreadManager *unread.Manager
	hub           *ws.Hub
}

func NewWebSocketHandler(chatService *service.ChatService, unreadManager *unread.Manager) *WebSocketHandler {
	return &WebSocketHandler{
		chatService:   chatService,
		unreadManager: unreadManager,
		hub:           ws.NewHub(),
	}
}

// GetHub returns the hub instance so other handlers can push frames.
func (h *WebSocketHandler) GetHub() *ws.Hub {
	return h.hub
}

// HandleWebSocket runs one realtime session: it activates the user's unread
// aggregator, mirrors its snapshots to the client, and accepts commands
// (currently mark_read) until the socket closes. Session teardown releases
// the aggregator reference unconditionally.
func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	userID := c.Locals("userID").(uint)

	client := h.hub.Register(userID, c)
	defer h.hub.Unregister(client)

	agg, err := h.unreadManager.Acquire(userID)
	if err != nil {
		// The session still works for chatting; the badge stays hidden.
		log.Printf("ws: user %d unread session unavailable: %v", userID, err)
	} else {
		defer h.unreadManager.Release(userID)

		updates, cancelUpdates := agg.Updates()
		defer cancelUpdates()

		_ = h.hub.SendToUser(userID, ws.NewUnreadFrame(agg.Snapshot()))
		go h.forwardUnread(userID, updates, client.CloseChan)
	}

	for {
		_, payload, err := c.ReadMessage()
		if err != nil {
			log.Printf("ws: user %d read: %v", userID, err)
			return
		}

		var cmd ws.Command
		if err := json.Unmarshal(payload, &cmd); err != nil {
			_ = h.hub.SendToUser(userID, ws.NewErrorFrame("invalid_frame", "Malformed command"))
			continue
		}
		h.handleCommand(userID, cmd)
	}
}

func (h *WebSocketHandler) handleCommand(userID uint, cmd ws.Command) {
	switch cmd.Type {
	case ws.CommandMarkRead:
		if _, err := h.chatService.MarkConversationRead(context.Background(), userID, cmd.ConversationID); err != nil {
			_ = h.hub.SendToUser(userID, ws.NewErrorFrame("mark_read_failed", err.Error()))
		}
	default:
		_ = h.hub.SendToUser(userID, ws.NewErrorFrame("unknown_command", "Unsupported command type"))
	}
}

// forwardUnread mirrors aggregator snapshots to the client until either the
// subscription or the connection closes.
func (h *WebSocketHandler) forwardUnread(userID uint, updates <-chan unread.Snapshot, closed <-chan struct{}) {
	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				return
			}
			_ = h.hub.SendToUser(userID, ws.NewUnreadFrame(snap))
		case <-closed:
			return
		}
	}
}
