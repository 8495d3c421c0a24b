package validation

import (
	"os"
	"regexp"
	"strconv"
	"strings"
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)

func NormalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

func ValidateUsername(username string) bool {
	return usernameRe.MatchString(NormalizeUsername(username))
}

func NormalizeContent(content string) string {
	return strings.TrimSpace(content)
}

func MaxMessageLength() int {
	maxStr := os.Getenv("MAX_MESSAGE_LENGTH")
	if maxStr == "" {
		return 4000
	}
	max, err := strconv.Atoi(maxStr)
	if err != nil || max < 1 {
		return 4000
	}
	return max
}

func ValidateMessageContent(content string) bool {
	return len(content) <= MaxMessageLength()
}

func MaxPostLength() int {
	maxStr := os.Getenv("MAX_POST_LENGTH")
	if maxStr == "" {
		return 8000
	}
	max, err := strconv.Atoi(maxStr)
	if err != nil || max < 1 {
		return 8000
	}
	return max
}

func ValidatePostContent(content string) bool {
	content = NormalizeContent(content)
	return content != "" && len(content) <= MaxPostLength()
}

func ValidateTitle(title string) bool {
	title = strings.TrimSpace(title)
	return title != "" && len(title) <= 300
}
