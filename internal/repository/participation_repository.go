package repository

import (
	"context"
	"time"

	"github.com/campuslink/campuslink-backend/internal/models"
	"gorm.io/gorm"
)

type ParticipationRepository struct {
	db *gorm.DB
}

func NewParticipationRepository(db *gorm.DB) *ParticipationRepository {
	return &ParticipationRepository{db: db}
}

// GetParticipations returns every participation row for a user.
func (r *ParticipationRepository) GetParticipations(ctx context.Context, userID uint) ([]models.Participation, error) {
	var parts []models.Participation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&parts).Error
	return parts, err
}

// UnreadCount counts messages in one conversation created strictly after
// since, excluding the user's own. Callers pass the zero time for a never-read
// conversation, which counts everything.
func (r *ParticipationRepository) UnreadCount(ctx context.Context, conversationID uint, since time.Time, excludeSenderID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND created_at > ?", conversationID, excludeSenderID, since).
		Count(&count).Error
	return count, err
}

func (r *ParticipationRepository) Get(conversationID, userID uint) (*models.Participation, error) {
	var part models.Participation
	err := r.db.Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		First(&part).Error
	if err != nil {
		return nil, err
	}
	return &part, nil
}

func (r *ParticipationRepository) ListParticipantIDs(conversationID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.Participation{}).
		Where("conversation_id = ?", conversationID).
		Pluck("user_id", &ids).Error
	return ids, err
}

// CreateConversation creates a conversation with its participation rows in
// one transaction. New participations start with a null watermark: never read.
func (r *ParticipationRepository) CreateConversation(participantIDs []uint) (*models.Conversation, error) {
	conv := &models.Conversation{}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		for _, userID := range participantIDs {
			part := models.Participation{ConversationID: conv.ID, UserID: userID}
			if err := tx.Create(&part).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// TouchLastRead advances the read watermark. GREATEST keeps it monotonic so
// a delayed request from another device cannot move it backwards.
func (r *ParticipationRepository) TouchLastRead(conversationID, userID uint, readAt time.Time) error {
	return r.db.Exec(`
		UPDATE participations
		SET last_read_at = GREATEST(COALESCE(last_read_at, 'epoch'::timestamptz), ?), updated_at = NOW()
		WHERE conversation_id = ? AND user_id = ?
	`, readAt, conversationID, userID).Error
}
