package validation

import (
	"errors"
	"regexp"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)

// ValidateUsername accepts 3 to 32 letters, digits, dots, dashes and underscores.
func ValidateUsername(username string) error {
	if username == "" {
		return errors.New("username is required")
	}
	if !usernamePattern.MatchString(username) {
		return errors.New("username must be 3-32 characters of letters, digits, '.', '-' or '_'")
	}
	return nil
}
