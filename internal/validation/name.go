package validation

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxDisplayNameLength = 100

// ValidateName checks a display name: non-blank, at most 100 characters
// and free of control characters.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return errors.New("display name is required")
	}

	if utf8.RuneCountInString(trimmed) > maxDisplayNameLength {
		return errors.New("display name is too long (max 100 characters)")
	}

	if strings.IndexFunc(trimmed, unicode.IsControl) >= 0 {
		return errors.New("display name must not contain control characters")
	}

	return nil
}
