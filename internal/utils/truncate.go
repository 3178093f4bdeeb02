package utils

import (
	"fmt"
	"unicode/utf8"
)

// DefaultLogMaxLen is the default maximum length for truncated log output
const DefaultLogMaxLen = 1024

// Truncate shortens s to at most maxBytes without splitting a UTF-8 sequence.
// The second result reports whether anything was cut.
func Truncate(s string, maxBytes int) (string, bool) {
	if maxBytes < 0 {
		maxBytes = 0
	}
	if len(s) <= maxBytes {
		return s, false
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut], true
}

// TruncateLog truncates long strings for verbose logging
func TruncateLog(s string, maxLen int) string {
	out, cut := Truncate(s, maxLen)
	if !cut {
		return s
	}
	return out + fmt.Sprintf("... [truncated, %d bytes total]", len(s))
}
