package utils

import (
	"strings"
	"unicode"
)

// ValidateEmail reports whether email has a non-empty local part and domain
// around its last @. Providers have already verified the mailbox, so the
// address format is otherwise not restricted.
func ValidateEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	return strings.IndexFunc(email, unicode.IsSpace) < 0
}

// SanitizeEmail normalizes an email address so that the same mailbox
// reported by different providers maps to the same account
func SanitizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeEmail sanitizes an optional email, returning nil for blank or malformed values
func NormalizeEmail(email *string) *string {
	if email == nil {
		return nil
	}

	sanitized := SanitizeEmail(*email)
	if !ValidateEmail(sanitized) {
		return nil
	}

	return &sanitized
}
