package models

import (
	"time"
)

// Message belongs to exactly one conversation and is immutable once created.
type Message struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	// ClientID is a client-generated UUID used to deduplicate resends.
	ClientID string `gorm:"type:varchar(36);uniqueIndex:idx_client_sender" json:"client_id"`

	ConversationID uint   `gorm:"not null;index" json:"conversation_id"`
	SenderID       uint   `gorm:"not null;uniqueIndex:idx_client_sender;index" json:"sender_id"`
	Sender         User   `gorm:"foreignKey:SenderID" json:"sender"`
	Content        string `gorm:"type:text;not null" json:"content"`
}

type MessageResponse struct {
	ID             uint         `json:"id"`
	ClientID       string       `json:"client_id"`
	ConversationID uint         `json:"conversation_id"`
	SenderID       uint         `json:"sender_id"`
	Sender         UserResponse `json:"sender"`
	Content        string       `json:"content"`
	CreatedAt      time.Time    `json:"created_at"`
}

func (m *Message) ToResponse() MessageResponse {
	return MessageResponse{
		ID:             m.ID,
		ClientID:       m.ClientID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Sender:         m.Sender.ToResponse(),
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
}
