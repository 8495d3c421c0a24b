package repository

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// ConversationRow is a denormalized row for the conversation list screen:
// one row per conversation with the latest message and the unread count
// derived from the caller's read watermark.
type ConversationRow struct {
	ConversationID uint       `gorm:"column:conversation_id"`
	LastReadAt     *time.Time `gorm:"column:last_read_at"`
	UnreadCount    int64      `gorm:"column:unread_count"`

	MessageID        uint      `gorm:"column:message_id"`
	MessageSenderID  uint      `gorm:"column:message_sender_id"`
	MessageContent   string    `gorm:"column:message_content"`
	MessageCreatedAt time.Time `gorm:"column:message_created_at"`

	SenderUsername string `gorm:"column:sender_username"`
	SenderFullName string `gorm:"column:sender_full_name"`
	SenderAvatar   string `gorm:"column:sender_avatar"`
}

type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// ListForUser returns the user's conversations ordered by latest activity.
// Single query, no N+1: a window function picks the newest message per
// conversation and counts unread ones against the read watermark in one pass.
func (r *ConversationRepository) ListForUser(userID uint, limit int) ([]ConversationRow, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}

	query := strings.TrimSpace(`
WITH ranked AS (
	SELECT
		p.conversation_id,
		p.last_read_at,
		m.id AS message_id,
		m.sender_id AS message_sender_id,
		m.content AS message_content,
		m.created_at AS message_created_at,
		ROW_NUMBER() OVER (
			PARTITION BY p.conversation_id
			ORDER BY m.created_at DESC, m.id DESC
		) AS rn,
		SUM(CASE WHEN m.sender_id <> p.user_id
			AND m.created_at > COALESCE(p.last_read_at, 'epoch'::timestamptz)
			THEN 1 ELSE 0 END) OVER (
			PARTITION BY p.conversation_id
		) AS unread_count
	FROM participations p
	JOIN messages m ON m.conversation_id = p.conversation_id
	WHERE p.user_id = ?
)
SELECT
	t.conversation_id,
	t.last_read_at,
	t.unread_count,
	t.message_id,
	t.message_sender_id,
	t.message_content,
	t.message_created_at,
	sender.username AS sender_username,
	sender.full_name AS sender_full_name,
	sender.avatar AS sender_avatar
FROM ranked t
JOIN users sender ON sender.id = t.message_sender_id
WHERE t.rn = 1
ORDER BY t.message_created_at DESC, t.message_id DESC
LIMIT ?
`)

	var rows []ConversationRow
	err := r.db.Raw(query, userID, limit).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
