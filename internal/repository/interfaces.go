package repository

import (
	"context"
	"time"

	"github.com/campuslink/campuslink-backend/internal/models"
)

// UserRepositoryInterface defines the contract for user repository operations
type UserRepositoryInterface interface {
	Create(user *models.User) error
	FindByID(id uint) (*models.User, error)
	FindByUsername(username string) (*models.User, error)
	FindByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	SearchUsers(query string, limit int) ([]models.User, error)
}

// MessageRepositoryInterface defines the contract for message log operations.
// Messages are append-only; there is no update or delete.
type MessageRepositoryInterface interface {
	Create(message *models.Message) error
	FindByID(id uint) (*models.Message, error)
	FindByClientID(clientID string, senderID uint) (*models.Message, error)
	ListByConversation(conversationID uint, cursor uint, limit int) ([]models.Message, error)
}

// ParticipationRepositoryInterface is the conversation membership store: the
// authoritative user -> {conversation, last_read_at} mapping, plus the unread
// count query the aggregator's baseline and reconciliation run on. The only
// write is the mark-as-read watermark advance.
type ParticipationRepositoryInterface interface {
	GetParticipations(ctx context.Context, userID uint) ([]models.Participation, error)
	UnreadCount(ctx context.Context, conversationID uint, since time.Time, excludeSenderID uint) (int64, error)
	Get(conversationID, userID uint) (*models.Participation, error)
	ListParticipantIDs(conversationID uint) ([]uint, error)
	CreateConversation(participantIDs []uint) (*models.Conversation, error)
	TouchLastRead(conversationID, userID uint, readAt time.Time) error
}

// ConversationRepositoryInterface serves the conversation list screen.
type ConversationRepositoryInterface interface {
	ListForUser(userID uint, limit int) ([]ConversationRow, error)
}

// PostRepositoryInterface defines the contract for feed operations
type PostRepositoryInterface interface {
	Create(post *models.Post) error
	FindByID(id uint) (*models.Post, error)
	ListRecent(cursor uint, limit int) ([]models.Post, error)
	Delete(id uint, authorID uint) error
}

// QuestionRepositoryInterface defines the contract for Q&A board operations
type QuestionRepositoryInterface interface {
	Create(question *models.Question) error
	FindByID(id uint) (*models.Question, error)
	ListRecent(cursor uint, limit int) ([]models.Question, error)
	Delete(id uint, authorID uint) error
	CreateAnswer(answer *models.Answer) error
}

// StartupRepositoryInterface defines the contract for startups hub operations
type StartupRepositoryInterface interface {
	Create(startup *models.Startup) error
	FindByID(id uint) (*models.Startup, error)
	List(limit int) ([]models.Startup, error)
	Update(startup *models.Startup) error
	Delete(id uint, founderID uint) error
	CreateOffer(offer *models.Offer) error
	DeleteOffer(offerID uint, founderID uint) error
}
