package http

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Input validation constants
const (
	// MaxContentLength bounds inbound message text, in runes
	MaxContentLength = 1024

	DefaultUsageDays = 7
	MaxUsageDays     = 90
)

// SanitizeString removes null bytes and invalid UTF-8
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")

	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for _, r := range s {
			if r != utf8.RuneError {
				v = append(v, r)
			}
		}
		s = string(v)
	}
	return s
}

// TruncateString cuts s to at most maxLen runes
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen])
}

// ParseDays reads the ?days= window for usage reports
func ParseDays(raw string) (int, bool) {
	if raw == "" {
		return DefaultUsageDays, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 || days > MaxUsageDays {
		return 0, false
	}
	return days, true
}
