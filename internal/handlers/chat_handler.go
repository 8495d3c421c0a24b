package handlers

import (
	"errors"
	"time"

	"github.com/campuslink/campuslink-backend/internal/handlers/ws"
	"github.com/campuslink/campuslink-backend/internal/httpx"
	"github.com/campuslink/campuslink-backend/internal/models"
	"github.com/campuslink/campuslink-backend/internal/repository"
	"github.com/campuslink/campuslink-backend/internal/service"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ChatHandler struct {
	chatService *service.ChatService
	hub         *ws.Hub
}

func NewChatHandler(chatService *service.ChatService, hub *ws.Hub) *ChatHandler {
	return &ChatHandler{chatService: chatService, hub: hub}
}

type conversationItem struct {
	ConversationID uint       `json:"conversation_id"`
	LastReadAt     *time.Time `json:"last_read_at"`
	UnreadCount    int64      `json:"unread_count"`
	LastMessage    struct {
		ID        uint      `json:"id"`
		SenderID  uint      `json:"sender_id"`
		Sender    string    `json:"sender"`
		Content   string    `json:"content"`
		CreatedAt time.Time `json:"created_at"`
	} `json:"last_message"`
}

func toConversationItem(row repository.ConversationRow) conversationItem {
	var item conversationItem
	item.ConversationID = row.ConversationID
	item.LastReadAt = row.LastReadAt
	item.UnreadCount = row.UnreadCount
	item.LastMessage.ID = row.MessageID
	item.LastMessage.SenderID = row.MessageSenderID
	item.LastMessage.Sender = row.SenderUsername
	item.LastMessage.Content = row.MessageContent
	item.LastMessage.CreatedAt = row.MessageCreatedAt
	return item
}

func (h *ChatHandler) GetConversations(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_user", "Not authenticated")
	}

	rows, err := h.chatService.ListConversations(userID, c.QueryInt("limit"))
	if err != nil {
		return httpx.Internal(c, "list_conversations_failed")
	}

	items := make([]conversationItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, toConversationItem(row))
	}
	return c.JSON(fiber.Map{"conversations": items})
}

type createConversationRequest struct {
	PeerIDs []uint `json:"peer_ids"`
}

func (h *ChatHandler) CreateConversation(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_user", "Not authenticated")
	}

	var req createConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_body", "Malformed request body")
	}

	conv, err := h.chatService.CreateConversation(userID, req.PeerIDs)
	if err != nil {
		if errors.Is(err, service.ErrNoParticipants) {
			return httpx.BadRequest(c, "no_participants", err.Error())
		}
		return httpx.Internal(c, "create_conversation_failed")
	}
	return c.Status(fiber.StatusCreated).JSON(conv)
}

func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_user", "Not authenticated")
	}
	conversationID, err := httpx.ParamUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_conversation", "Invalid conversation id")
	}

	messages, err := h.chatService.GetMessages(userID, conversationID, uint(c.QueryInt("cursor")), c.QueryInt("limit"))
	if err != nil {
		if errors.Is(err, service.ErrNotParticipant) {
			return httpx.Forbidden(c, "not_participant", "Not a participant of this conversation")
		}
		return httpx.Internal(c, "get_messages_failed")
	}

	responses := make([]models.MessageResponse, 0, len(messages))
	for i := range messages {
		responses = append(responses, messages[i].ToResponse())
	}
	return c.JSON(fiber.Map{"messages": responses})
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_user", "Not authenticated")
	}
	conversationID, err := httpx.ParamUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_conversation", "Invalid conversation id")
	}

	var input service.SendMessageInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_body", "Malformed request body")
	}
	input.ConversationID = conversationID

	message, err := h.chatService.SendMessage(c.Context(), userID, input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotParticipant):
			return httpx.Forbidden(c, "not_participant", "Not a participant of this conversation")
		case errors.Is(err, service.ErrEmptyMessage),
			errors.Is(err, service.ErrMessageTooLong),
			errors.Is(err, service.ErrInvalidClientID):
			return httpx.BadRequest(c, "invalid_message", err.Error())
		default:
			return httpx.Internal(c, "send_message_failed")
		}
	}

	// Push to participants that are online right now; everyone else picks
	// the message up from their event stream or next fetch.
	if h.hub != nil {
		if ids, err := h.chatService.ParticipantIDs(conversationID); err == nil {
			h.hub.BroadcastToUsers(ids, ws.NewMessageFrame(message))
		}
	}
	return c.Status(fiber.StatusCreated).JSON(message.ToResponse())
}

func (h *ChatHandler) MarkConversationRead(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_user", "Not authenticated")
	}
	conversationID, err := httpx.ParamUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_conversation", "Invalid conversation id")
	}

	readAt, err := h.chatService.MarkConversationRead(c.Context(), userID, conversationID)
	if err != nil {
		if errors.Is(err, service.ErrNotParticipant) {
			return httpx.Forbidden(c, "not_participant", "Not a participant of this conversation")
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.NotFound(c, "conversation_not_found", "Conversation not found")
		}
		return httpx.Internal(c, "mark_read_failed")
	}
	return c.JSON(fiber.Map{"conversation_id": conversationID, "last_read_at": readAt})
}
