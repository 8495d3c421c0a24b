// Package stream carries per-user change events over Redis pub/sub: one
// channel per user, JSON-tagged payloads. Services publish when a message is
// inserted or a read watermark advances; the unread aggregator subscribes.
package stream

import (
	"fmt"
	"time"
)

// Event kinds.
const (
	KindInsert           = "insert"
	KindMembershipUpdate = "membership-update"
)

// Event is a tagged union: Kind selects which fields are meaningful.
type Event struct {
	Kind           string `json:"kind"`
	ConversationID uint   `json:"conversation_id"`

	// insert
	MessageID uint      `json:"message_id,omitempty"`
	SenderID  uint      `json:"sender_id,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`

	// membership-update
	LastReadAt *time.Time `json:"last_read_at,omitempty"`
}

// userChannel is the Redis pub/sub channel carrying a user's events.
func userChannel(userID uint) string {
	return fmt.Sprintf("events:user:%d", userID)
}
