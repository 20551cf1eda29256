package service

import (
	"strings"

	"github.com/igrejaonline/portal/internal/apperr"
)

// requireText rejects values that are blank once trimmed. Length limits are
// enforced by the request schema.
func requireText(fields map[string]string) error {
	for _, name := range []string{"title", "content", "summary", "description", "location"} {
		value, ok := fields[name]
		if ok && strings.TrimSpace(value) == "" {
			return apperr.Validation("%s is required", name)
		}
	}
	return nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
