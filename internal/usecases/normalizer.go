package usecases

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ValidationError reports inbound text that cannot be routed at all
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid message: " + e.Reason
}

// Normalize trims, lowercases and splits raw message text on whitespace.
// Empty or whitespace-only text is a *ValidationError.
func Normalize(rawText string) ([]string, error) {
	trimmed := strings.TrimSpace(rawText)
	if trimmed == "" {
		return nil, &ValidationError{Reason: "empty text"}
	}
	// Casers keep internal state and are not safe to share across goroutines
	lower := cases.Lower(language.Und).String(trimmed)
	return strings.Fields(lower), nil
}
