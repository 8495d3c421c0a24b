package models

import (
	"time"
)

// Conversation is a direct-message thread between two or more participants.
type Conversation struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Participants []Participation `gorm:"foreignKey:ConversationID" json:"-"`
}

// Participation is a user's membership record in a conversation. LastReadAt is
// the read watermark: nil means never read, so every message counts as unread.
type Participation struct {
	ConversationID uint       `gorm:"primaryKey" json:"conversation_id"`
	UserID         uint       `gorm:"primaryKey" json:"user_id"`
	LastReadAt     *time.Time `json:"last_read_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ReadWatermark applies the epoch floor: a nil LastReadAt reads as the zero
// time so that "never read" counts all messages as unread.
func (p *Participation) ReadWatermark() time.Time {
	if p.LastReadAt == nil {
		return time.Time{}
	}
	return *p.LastReadAt
}
