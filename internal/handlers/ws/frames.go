package ws

import (
	"time"

	"github.com/campuslink/campuslink-backend/internal/models"
	"github.com/campuslink/campuslink-backend/internal/unread"
)

// Frame types pushed to clients.
const (
	FrameMessage     = "message"
	FrameUnreadCount = "unread_count"
	FrameError       = "error"
)

// Command types accepted from clients.
const (
	CommandMarkRead = "mark_read"
)

// MessageFrame carries a freshly created message to online participants.
type MessageFrame struct {
	Type    string                 `json:"type"`
	Message models.MessageResponse `json:"message"`
}

func NewMessageFrame(m *models.Message) MessageFrame {
	return MessageFrame{Type: FrameMessage, Message: m.ToResponse()}
}

// UnreadFrame mirrors the aggregator's observable state: Known false means
// the client should hide the badge, not render a zero.
type UnreadFrame struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
	Known bool   `json:"known"`
	Stale bool   `json:"stale"`
	Badge string `json:"badge"`
}

func NewUnreadFrame(snap unread.Snapshot) UnreadFrame {
	return UnreadFrame{
		Type:  FrameUnreadCount,
		Count: snap.Count,
		Known: snap.Known,
		Stale: snap.Stale,
		Badge: unread.FormatBadge(snap),
	}
}

// Command is a client-to-server frame.
type Command struct {
	Type           string `json:"type"`
	ConversationID uint   `json:"conversation_id,omitempty"`
}

// ErrorFrame reports a rejected command.
type ErrorFrame struct {
	Type    string    `json:"type"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

func NewErrorFrame(code, message string) ErrorFrame {
	return ErrorFrame{Type: FrameError, Code: code, Message: message, At: time.Now().UTC()}
}
