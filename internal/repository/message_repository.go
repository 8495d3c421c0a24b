package repository

import (
	"github.com/campuslink/campuslink-backend/internal/models"
	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(message *models.Message) error {
	return r.db.Create(message).Error
}

func (r *MessageRepository) FindByID(id uint) (*models.Message, error) {
	var message models.Message
	err := r.db.Preload("Sender").First(&message, id).Error
	return &message, err
}

// FindByClientID resolves a resend to the message it already created.
func (r *MessageRepository) FindByClientID(clientID string, senderID uint) (*models.Message, error) {
	var message models.Message
	err := r.db.Preload("Sender").
		Where("client_id = ? AND sender_id = ?", clientID, senderID).
		First(&message).Error
	return &message, err
}

// ListByConversation pages backwards through a conversation: cursor 0 starts
// at the newest message, otherwise only messages older than cursor are
// returned. Results come back in chronological order.
func (r *MessageRepository) ListByConversation(conversationID uint, cursor uint, limit int) ([]models.Message, error) {
	q := r.db.Preload("Sender").
		Where("conversation_id = ?", conversationID)
	if cursor > 0 {
		q = q.Where("id < ?", cursor)
	}

	var messages []models.Message
	err := q.Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
