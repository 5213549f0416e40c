// Package security provides validation, sanitization, and limits for the bridge package.
package security

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/jdziat/simple-callback-bridge/pkg/core"
)

// Security limits and configuration
const (
	// MaxArity is the maximum number of wire parameters a wrapped function may declare
	MaxArity = 64

	// MaxArgumentSize is the maximum size in bytes of a single encoded argument (1MB)
	MaxArgumentSize = 1 << 20

	// MaxErrorMessageLength is the maximum length for stored error messages
	MaxErrorMessageLength = 4096
)

// ValidateHandleID checks that id has the shape of a published handle.
func ValidateHandleID(id string) error {
	if id == "" {
		return core.ErrInvalidHandleID
	}
	// Only the canonical lowercase dashed form is ever published.
	u, err := uuid.Parse(id)
	if err != nil || u.String() != id {
		return core.ErrInvalidHandleID
	}
	return nil
}

// ValidateArguments enforces the per-argument size limit on a boundary payload.
func ValidateArguments(args []string) error {
	for _, a := range args {
		if len(a) > MaxArgumentSize {
			return core.ErrArgumentTooLarge
		}
	}
	return nil
}

// SanitizeErrorMessage truncates and sanitizes error messages for storage
func SanitizeErrorMessage(msg string) string {
	if msg == "" {
		return ""
	}

	// Remove any null bytes or control characters (except newlines)
	var sanitized strings.Builder
	sanitized.Grow(len(msg))

	for _, r := range msg {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			sanitized.WriteRune(r)
		}
	}

	result := sanitized.String()

	if utf8.RuneCountInString(result) > MaxErrorMessageLength {
		runes := []rune(result)
		result = string(runes[:MaxErrorMessageLength-3]) + "..."
	}

	return result
}
