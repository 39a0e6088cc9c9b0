package util

import "strings"

// SanitizeText drops invalid UTF-8 sequences, NUL bytes and a leading byte
// order mark from a line of streamed text.
func SanitizeText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	sanitized = strings.TrimPrefix(sanitized, "\ufeff")
	return strings.ReplaceAll(sanitized, "\x00", "")
}
