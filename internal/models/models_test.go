package models

import (
	"testing"
	"time"
)

func TestUserToResponse(t *testing.T) {
	user := &User{
		ID:       1,
		Username: "jane_doe",
		Email:    "jane@campus.edu",
		FullName: "Jane Doe",
		Avatar:   "https://example.com/avatar.jpg",
		Major:    "CS",
		Year:     3,
		Bio:      "hi",
	}

	response := user.ToResponse()

	if response.ID != user.ID {
		t.Errorf("ToResponse ID = %d, want %d", response.ID, user.ID)
	}
	if response.Username != user.Username {
		t.Errorf("ToResponse Username = %q, want %q", response.Username, user.Username)
	}
	if response.Email != user.Email {
		t.Errorf("ToResponse Email = %q, want %q", response.Email, user.Email)
	}
	if response.Major != user.Major {
		t.Errorf("ToResponse Major = %q, want %q", response.Major, user.Major)
	}
	if response.Year != user.Year {
		t.Errorf("ToResponse Year = %d, want %d", response.Year, user.Year)
	}
}

func TestMessageToResponse(t *testing.T) {
	createdAt := time.Now()
	message := &Message{
		ID:             7,
		CreatedAt:      createdAt,
		ClientID:       "3f6f6f3a-0000-0000-0000-000000000001",
		ConversationID: 4,
		SenderID:       1,
		Sender:         User{ID: 1, Username: "jane_doe"},
		Content:        "hello",
	}

	response := message.ToResponse()

	if response.ID != message.ID {
		t.Errorf("ToResponse ID = %d, want %d", response.ID, message.ID)
	}
	if response.ClientID != message.ClientID {
		t.Errorf("ToResponse ClientID = %q, want %q", response.ClientID, message.ClientID)
	}
	if response.ConversationID != message.ConversationID {
		t.Errorf("ToResponse ConversationID = %d, want %d", response.ConversationID, message.ConversationID)
	}
	if response.Sender.Username != "jane_doe" {
		t.Errorf("ToResponse Sender.Username = %q, want %q", response.Sender.Username, "jane_doe")
	}
	if !response.CreatedAt.Equal(createdAt) {
		t.Errorf("ToResponse CreatedAt = %v, want %v", response.CreatedAt, createdAt)
	}
}

func TestParticipationReadWatermark(t *testing.T) {
	var p Participation
	if !p.ReadWatermark().IsZero() {
		t.Errorf("ReadWatermark with nil LastReadAt = %v, want zero time", p.ReadWatermark())
	}

	readAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p.LastReadAt = &readAt
	if !p.ReadWatermark().Equal(readAt) {
		t.Errorf("ReadWatermark = %v, want %v", p.ReadWatermark(), readAt)
	}
}
