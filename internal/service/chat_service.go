package service

import (
	"context"
	"errors"
	"time"

	"github.com/campuslink/campuslink-backend/internal/models"
	"github.com/campuslink/campuslink-backend/internal/repository"
	"github.com/campuslink/campuslink-backend/internal/signal"
	"github.com/campuslink/campuslink-backend/internal/validation"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotParticipant  = errors.New("user is not a participant of the conversation")
	ErrEmptyMessage    = errors.New("message content must not be empty")
	ErrMessageTooLong  = errors.New("message content too long")
	ErrNoParticipants  = errors.New("conversation needs at least one other participant")
	ErrInvalidClientID = errors.New("client_id must be a UUID")
)

// EventPublisher pushes change events to the per-user stream. Satisfied by
// stream.Publisher; faked in tests.
type EventPublisher interface {
	PublishInsert(ctx context.Context, userIDs []uint, conversationID, messageID, senderID uint, createdAt time.Time)
	PublishMembershipUpdate(ctx context.Context, userID uint, conversationID uint, lastReadAt time.Time)
}

// ChatService owns conversations, the message log, and the mark-as-read side
// effect. Every write fans out through the event stream; mark-as-read also
// fires the local bus so in-process unread sessions refresh without waiting
// for the stream round trip.
type ChatService struct {
	messageRepo       repository.MessageRepositoryInterface
	participationRepo repository.ParticipationRepositoryInterface
	conversationRepo  repository.ConversationRepositoryInterface
	publisher         EventPublisher
	bus               *signal.Bus
}

func NewChatService(
	messageRepo repository.MessageRepositoryInterface,
	participationRepo repository.ParticipationRepositoryInterface,
	conversationRepo repository.ConversationRepositoryInterface,
	publisher EventPublisher,
	bus *signal.Bus,
) *ChatService {
	return &ChatService{
		messageRepo:       messageRepo,
		participationRepo: participationRepo,
		conversationRepo:  conversationRepo,
		publisher:         publisher,
		bus:               bus,
	}
}

type SendMessageInput struct {
	ConversationID uint   `json:"conversation_id"`
	ClientID       string `json:"client_id"`
	Content        string `json:"content"`
}

// SendMessage appends to the conversation's log and notifies every
// participant's event stream. Resends with a known client ID return the
// original message instead of creating a duplicate.
func (s *ChatService) SendMessage(ctx context.Context, senderID uint, input SendMessageInput) (*models.Message, error) {
	content := validation.NormalizeContent(input.Content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if !validation.ValidateMessageContent(content) {
		return nil, ErrMessageTooLong
	}

	if _, err := s.participationRepo.Get(input.ConversationID, senderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotParticipant
		}
		return nil, err
	}

	clientID := input.ClientID
	if clientID == "" {
		clientID = uuid.NewString()
	} else if _, err := uuid.Parse(clientID); err != nil {
		return nil, ErrInvalidClientID
	} else if existing, err := s.messageRepo.FindByClientID(clientID, senderID); err == nil {
		return existing, nil
	}

	message := &models.Message{
		ClientID:       clientID,
		ConversationID: input.ConversationID,
		SenderID:       senderID,
		Content:        content,
	}
	if err := s.messageRepo.Create(message); err != nil {
		return nil, err
	}

	created, err := s.messageRepo.FindByID(message.ID)
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		if participantIDs, err := s.participationRepo.ListParticipantIDs(input.ConversationID); err == nil {
			s.publisher.PublishInsert(ctx, participantIDs, created.ConversationID, created.ID, created.SenderID, created.CreatedAt)
		}
	}
	return created, nil
}

// GetMessages pages through a conversation the user participates in.
func (s *ChatService) GetMessages(userID, conversationID uint, cursor uint, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if _, err := s.participationRepo.Get(conversationID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotParticipant
		}
		return nil, err
	}
	return s.messageRepo.ListByConversation(conversationID, cursor, limit)
}

// CreateConversation opens a thread between the creator and the given peers.
func (s *ChatService) CreateConversation(creatorID uint, peerIDs []uint) (*models.Conversation, error) {
	ids := []uint{creatorID}
	seen := map[uint]struct{}{creatorID: {}}
	for _, id := range peerIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) < 2 {
		return nil, ErrNoParticipants
	}
	return s.participationRepo.CreateConversation(ids)
}

// ParticipantIDs lists the members of a conversation.
func (s *ChatService) ParticipantIDs(conversationID uint) ([]uint, error) {
	return s.participationRepo.ListParticipantIDs(conversationID)
}

// ListConversations returns the user's conversation list rows.
func (s *ChatService) ListConversations(userID uint, limit int) ([]repository.ConversationRow, error) {
	return s.conversationRepo.ListForUser(userID, limit)
}

// MarkConversationRead advances the caller's read watermark to now, echoes
// the update to the user's event stream for their other devices, and fires
// the local bus so aggregators in this process converge immediately.
func (s *ChatService) MarkConversationRead(ctx context.Context, userID, conversationID uint) (time.Time, error) {
	if _, err := s.participationRepo.Get(conversationID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, ErrNotParticipant
		}
		return time.Time{}, err
	}

	readAt := time.Now().UTC()
	if err := s.participationRepo.TouchLastRead(conversationID, userID, readAt); err != nil {
		return time.Time{}, err
	}

	if s.publisher != nil {
		s.publisher.PublishMembershipUpdate(ctx, userID, conversationID, readAt)
	}
	if s.bus != nil {
		s.bus.Publish(signal.SignalConversationsUpdated)
	}
	return readAt, nil
}
