package spot

import (
	"regexp"
	"strings"
	"unicode"
)

var callsignPattern = regexp.MustCompile(`^[A-Z0-9]+(?:[/-][A-Z0-9#]+)*$`)

// NormalizeCallsign trims and uppercases a callsign and collapses the
// punctuation variants seen across sources ("." used as "/", trailing "/").
func NormalizeCallsign(call string) string {
	normalized := strings.ToUpper(strings.TrimSpace(call))
	normalized = strings.ReplaceAll(normalized, ".", "/")
	normalized = strings.TrimSuffix(normalized, "/")
	return strings.TrimSpace(normalized)
}

// IsValidCallsign applies format checks to make sure the string looks like a
// valid amateur call after normalization.
func IsValidCallsign(call string) bool {
	normalized := NormalizeCallsign(call)
	if normalized == "" {
		return false
	}
	if len(normalized) < 3 || len(normalized) > 10 {
		return false
	}
	if strings.IndexFunc(normalized, unicode.IsDigit) < 0 {
		return false
	}
	return callsignPattern.MatchString(normalized)
}

// NormalizeMode trims and uppercases a mode token.
func NormalizeMode(mode string) string {
	return strings.ToUpper(strings.TrimSpace(mode))
}
