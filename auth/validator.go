package auth

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/a7al3le-dotcom/chat7ob/errors"
)

var validate = validator.New()

// JoinRequest is the inbound join payload shape.
type JoinRequest struct {
	Username    string `json:"username" validate:"required"`
	AvatarColor string `json:"avatarColor" validate:"omitempty,hexcolor"`
}

// MessageRequest is the inbound send-message payload shape.
// The length cap lives in ValidateMessageBody, measured after trimming.
type MessageRequest struct {
	Body string `json:"body" validate:"required"`
}

func ValidateJoinRequest(req JoinRequest) error {
	if err := validate.Struct(req); err != nil {
		return errors.ErrNameInvalid
	}
	return ValidateUsername(req.Username)
}

func ValidateMessageRequest(req MessageRequest) error {
	if err := validate.Struct(req); err != nil {
		return errors.ErrMessageInvalid
	}
	return ValidateMessageBody(req.Body)
}

// structural characters that must never appear in a username
const disallowedUsernameChars = `<>{}[]\`

// ValidateUsername checks well-formedness of a candidate username.
// Allowed runes: Latin letters, Arabic script (U+0600..U+06FF), digits,
// whitespace, underscore, hyphen. Pure function, no side effects.
func ValidateUsername(s string) error {
	trimmed := strings.TrimSpace(s)
	length := len([]rune(trimmed))
	if length < 2 || length > 20 {
		return errors.ErrNameInvalid
	}
	if strings.ContainsAny(trimmed, disallowedUsernameChars) {
		return errors.ErrNameInvalid
	}
	for _, r := range trimmed {
		if !isAllowedUsernameRune(r) {
			return errors.ErrNameInvalid
		}
	}
	return nil
}

func isAllowedUsernameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	case r >= 0x0600 && r <= 0x06FF: // Arabic
		return true
	case unicode.IsDigit(r):
		return true
	case unicode.IsSpace(r):
		return true
	case r == '_' || r == '-':
		return true
	default:
		return false
	}
}

// unsafePatterns is a denylist of markup that must never reach other clients.
// This is a best-effort sanitization layer, not a full HTML sanitizer.
var unsafePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<\s*script`),
	regexp.MustCompile(`(?i)javascript\s*:`),
	regexp.MustCompile(`(?i)\bon\w+\s*=`),
	regexp.MustCompile(`(?i)<\s*iframe`),
	regexp.MustCompile(`(?i)<\s*object`),
	regexp.MustCompile(`(?i)<\s*embed`),
}

// ValidateMessageBody checks well-formedness of a message body:
// non-empty after trimming, at most 1000 characters, and free of
// the unsafe markup denylist.
func ValidateMessageBody(s string) error {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || len([]rune(trimmed)) > 1000 {
		return errors.ErrMessageInvalid
	}
	for _, p := range unsafePatterns {
		if p.MatchString(s) {
			return errors.ErrMessageInvalid
		}
	}
	return nil
}
