package validation

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// ValidatePassword validates password strength
// Length is bounded on both sides; scrypt accepts any length but very long
// inputs only cost CPU
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < 8 {
		return errors.New("password must be at least 8 characters")
	}

	if n > 128 {
		return errors.New("password must not exceed 128 characters")
	}

	// Check for common/weak patterns
	lower := strings.ToLower(password)
	commonPatterns := []string{
		"password", "123456", "qwerty", "letmein",
		"senha", "abcdef", "11111111",
	}

	for _, pattern := range commonPatterns {
		if strings.Contains(lower, pattern) {
			return errors.New("password is too common, please choose a stronger one")
		}
	}

	return nil
}
