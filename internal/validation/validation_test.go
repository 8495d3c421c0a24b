package validation

import (
	"strings"
	"testing"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		want     bool
	}{
		{"valid", "alice_2026", true},
		{"with surrounding spaces", "  alice  ", true},
		{"too short", "ab", false},
		{"too long", strings.Repeat("a", 33), false},
		{"illegal characters", "alice!", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateUsername(tt.username); got != tt.want {
				t.Errorf("ValidateUsername(%q) = %v, want %v", tt.username, got, tt.want)
			}
		})
	}
}

func TestValidateMessageContent(t *testing.T) {
	if !ValidateMessageContent("hello") {
		t.Error("short message should validate")
	}
	if ValidateMessageContent(strings.Repeat("x", MaxMessageLength()+1)) {
		t.Error("oversized message should fail")
	}
}

func TestMaxMessageLengthEnv(t *testing.T) {
	t.Setenv("MAX_MESSAGE_LENGTH", "10")
	if got := MaxMessageLength(); got != 10 {
		t.Errorf("MaxMessageLength = %d, want 10", got)
	}

	t.Setenv("MAX_MESSAGE_LENGTH", "garbage")
	if got := MaxMessageLength(); got != 4000 {
		t.Errorf("MaxMessageLength with bad env = %d, want default 4000", got)
	}
}

func TestValidatePostContent(t *testing.T) {
	if ValidatePostContent("   ") {
		t.Error("whitespace-only post should fail")
	}
	if !ValidatePostContent("first post") {
		t.Error("normal post should validate")
	}
}

func TestValidateTitle(t *testing.T) {
	if ValidateTitle("") {
		t.Error("empty title should fail")
	}
	if ValidateTitle(strings.Repeat("t", 301)) {
		t.Error("oversized title should fail")
	}
	if !ValidateTitle("Where is the robotics lab?") {
		t.Error("normal title should validate")
	}
}
