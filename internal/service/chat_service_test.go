package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/campuslink/campuslink-backend/internal/models"
	"github.com/campuslink/campuslink-backend/internal/repository"
	"github.com/campuslink/campuslink-backend/internal/signal"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MockMessageRepository is an in-memory message log for testing.
type MockMessageRepository struct {
	messages map[uint]*models.Message
	nextID   uint
}

func NewMockMessageRepository() *MockMessageRepository {
	return &MockMessageRepository{
		messages: make(map[uint]*models.Message),
		nextID:   1,
	}
}

func (m *MockMessageRepository) Create(message *models.Message) error {
	if message.ID == 0 {
		message.ID = m.nextID
		m.nextID++
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	m.messages[message.ID] = message
	return nil
}

func (m *MockMessageRepository) FindByID(id uint) (*models.Message, error) {
	if msg, ok := m.messages[id]; ok {
		return msg, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockMessageRepository) FindByClientID(clientID string, senderID uint) (*models.Message, error) {
	for _, msg := range m.messages {
		if msg.ClientID == clientID && msg.SenderID == senderID {
			return msg, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockMessageRepository) ListByConversation(conversationID uint, cursor uint, limit int) ([]models.Message, error) {
	var result []models.Message
	for _, msg := range m.messages {
		if msg.ConversationID != conversationID {
			continue
		}
		if cursor > 0 && msg.ID >= cursor {
			continue
		}
		if len(result) >= limit {
			break
		}
		result = append(result, *msg)
	}
	return result, nil
}

// MockParticipationRepository is an in-memory membership store.
type MockParticipationRepository struct {
	parts      map[uint]map[uint]*models.Participation // conversation -> user
	nextConvID uint
}

func NewMockParticipationRepository() *MockParticipationRepository {
	return &MockParticipationRepository{
		parts:      make(map[uint]map[uint]*models.Participation),
		nextConvID: 1,
	}
}

func (m *MockParticipationRepository) addParticipant(conversationID, userID uint) {
	if m.parts[conversationID] == nil {
		m.parts[conversationID] = make(map[uint]*models.Participation)
	}
	m.parts[conversationID][userID] = &models.Participation{
		ConversationID: conversationID,
		UserID:         userID,
	}
	if conversationID >= m.nextConvID {
		m.nextConvID = conversationID + 1
	}
}

func (m *MockParticipationRepository) GetParticipations(ctx context.Context, userID uint) ([]models.Participation, error) {
	var out []models.Participation
	for _, users := range m.parts {
		if p, ok := users[userID]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *MockParticipationRepository) UnreadCount(ctx context.Context, conversationID uint, since time.Time, excludeSenderID uint) (int64, error) {
	return 0, nil
}

func (m *MockParticipationRepository) Get(conversationID, userID uint) (*models.Participation, error) {
	if p, ok := m.parts[conversationID][userID]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockParticipationRepository) ListParticipantIDs(conversationID uint) ([]uint, error) {
	var ids []uint
	for userID := range m.parts[conversationID] {
		ids = append(ids, userID)
	}
	return ids, nil
}

func (m *MockParticipationRepository) CreateConversation(participantIDs []uint) (*models.Conversation, error) {
	conv := &models.Conversation{ID: m.nextConvID}
	m.nextConvID++
	for _, userID := range participantIDs {
		m.addParticipant(conv.ID, userID)
	}
	return conv, nil
}

func (m *MockParticipationRepository) TouchLastRead(conversationID, userID uint, readAt time.Time) error {
	p, ok := m.parts[conversationID][userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if p.LastReadAt == nil || readAt.After(*p.LastReadAt) {
		p.LastReadAt = &readAt
	}
	return nil
}

type MockConversationRepository struct {
	rows []repository.ConversationRow
}

func (m *MockConversationRepository) ListForUser(userID uint, limit int) ([]repository.ConversationRow, error) {
	return m.rows, nil
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	inserts [][]uint
	updates []uint
}

func (p *recordingPublisher) PublishInsert(ctx context.Context, userIDs []uint, conversationID, messageID, senderID uint, createdAt time.Time) {
	p.inserts = append(p.inserts, userIDs)
}

func (p *recordingPublisher) PublishMembershipUpdate(ctx context.Context, userID uint, conversationID uint, lastReadAt time.Time) {
	p.updates = append(p.updates, conversationID)
}

func newChatFixture() (*ChatService, *MockMessageRepository, *MockParticipationRepository, *recordingPublisher, *signal.Bus) {
	messageRepo := NewMockMessageRepository()
	partRepo := NewMockParticipationRepository()
	pub := &recordingPublisher{}
	bus := signal.NewBus()
	svc := NewChatService(messageRepo, partRepo, &MockConversationRepository{}, pub, bus)
	return svc, messageRepo, partRepo, pub, bus
}

func TestSendMessage(t *testing.T) {
	tests := []struct {
		name    string
		sender  uint
		input   SendMessageInput
		wantErr error
	}{
		{
			name:   "participant sends text",
			sender: 1,
			input:  SendMessageInput{ConversationID: 10, Content: "hello"},
		},
		{
			name:    "non-participant rejected",
			sender:  9,
			input:   SendMessageInput{ConversationID: 10, Content: "hello"},
			wantErr: ErrNotParticipant,
		},
		{
			name:    "empty content rejected",
			sender:  1,
			input:   SendMessageInput{ConversationID: 10, Content: "   "},
			wantErr: ErrEmptyMessage,
		},
		{
			name:    "malformed client id rejected",
			sender:  1,
			input:   SendMessageInput{ConversationID: 10, ClientID: "not-a-uuid", Content: "hello"},
			wantErr: ErrInvalidClientID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, partRepo, _, _ := newChatFixture()
			partRepo.addParticipant(10, 1)
			partRepo.addParticipant(10, 2)

			msg, err := svc.SendMessage(context.Background(), tt.sender, tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("SendMessage error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil {
				if msg == nil || msg.Content != "hello" {
					t.Errorf("unexpected message: %+v", msg)
				}
				if msg.ClientID == "" {
					t.Error("expected a generated client ID")
				}
			}
		})
	}
}

func TestSendMessageNotifiesAllParticipants(t *testing.T) {
	svc, _, partRepo, pub, _ := newChatFixture()
	partRepo.addParticipant(10, 1)
	partRepo.addParticipant(10, 2)
	partRepo.addParticipant(10, 3)

	if _, err := svc.SendMessage(context.Background(), 1, SendMessageInput{ConversationID: 10, Content: "hi"}); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	if len(pub.inserts) != 1 {
		t.Fatalf("published %d insert events, want 1", len(pub.inserts))
	}
	if len(pub.inserts[0]) != 3 {
		t.Errorf("insert fan-out reached %d users, want 3", len(pub.inserts[0]))
	}
}

func TestSendMessageResendReturnsOriginal(t *testing.T) {
	svc, _, partRepo, pub, _ := newChatFixture()
	partRepo.addParticipant(10, 1)

	clientID := uuid.NewString()
	first, err := svc.SendMessage(context.Background(), 1, SendMessageInput{ConversationID: 10, ClientID: clientID, Content: "once"})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	second, err := svc.SendMessage(context.Background(), 1, SendMessageInput{ConversationID: 10, ClientID: clientID, Content: "once"})
	if err != nil {
		t.Fatalf("resend: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("resend created a new message: %d != %d", first.ID, second.ID)
	}
	if len(pub.inserts) != 1 {
		t.Errorf("resend published %d insert events, want 1", len(pub.inserts))
	}
}

func TestGetMessagesRequiresMembership(t *testing.T) {
	svc, messageRepo, partRepo, _, _ := newChatFixture()
	partRepo.addParticipant(10, 1)
	messageRepo.Create(&models.Message{ConversationID: 10, SenderID: 1, Content: "a"})

	if _, err := svc.GetMessages(2, 10, 0, 50); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("GetMessages as outsider error = %v, want ErrNotParticipant", err)
	}

	msgs, err := svc.GetMessages(1, 10, 0, 50)
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	if len(msgs) != 1 {
		t.Errorf("GetMessages returned %d messages, want 1", len(msgs))
	}
}

func TestCreateConversation(t *testing.T) {
	svc, _, partRepo, _, _ := newChatFixture()

	conv, err := svc.CreateConversation(1, []uint{2, 2, 3})
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	ids, _ := partRepo.ListParticipantIDs(conv.ID)
	if len(ids) != 3 {
		t.Errorf("conversation has %d participants, want 3 (creator + deduped peers)", len(ids))
	}

	if _, err := svc.CreateConversation(1, []uint{1}); !errors.Is(err, ErrNoParticipants) {
		t.Errorf("self-only conversation error = %v, want ErrNoParticipants", err)
	}
}

func TestMarkConversationRead(t *testing.T) {
	svc, _, partRepo, pub, bus := newChatFixture()
	partRepo.addParticipant(10, 1)

	signals, cancel := bus.Subscribe(signal.SignalConversationsUpdated)
	defer cancel()

	readAt, err := svc.MarkConversationRead(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("MarkConversationRead: %v", err)
	}

	p, _ := partRepo.Get(10, 1)
	if p.LastReadAt == nil || !p.LastReadAt.Equal(readAt) {
		t.Errorf("watermark = %v, want %v", p.LastReadAt, readAt)
	}
	if len(pub.updates) != 1 || pub.updates[0] != 10 {
		t.Errorf("membership-update publications = %v, want [10]", pub.updates)
	}

	// The local bus fires so in-process unread sessions refresh without
	// waiting for the stream echo.
	select {
	case <-signals:
	case <-time.After(time.Second):
		t.Error("expected a conversations-updated signal")
	}
}

func TestMarkConversationReadRequiresMembership(t *testing.T) {
	svc, _, _, _, _ := newChatFixture()
	if _, err := svc.MarkConversationRead(context.Background(), 1, 77); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("error = %v, want ErrNotParticipant", err)
	}
}
