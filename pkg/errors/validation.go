package errors

import (
	"strings"
	"unicode"
)

// ValidateThemeName validates a theme name from the site configuration.
// Theme names select a directory under the themes root, so they must be a
// single path segment.
func ValidateThemeName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "theme name cannot be empty")
	}

	if len(name) > 128 {
		return New(ErrCodeInvalidInput, "theme name too long (max 128 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "theme name contains invalid control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"/",    // Nested path
		"\x00", // Null byte
		"\\",   // Backslash (Windows path)
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidInput, "theme name contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// ValidatePrefix validates the URL prefix prepended to every emitted link.
//
// Validation rules:
//   - Must be an absolute path ("/", "/blog") or an http(s) URL
//   - No control characters
//   - No whitespace
//   - No path traversal sequences (..)
func ValidatePrefix(prefix string) error {
	if prefix == "" {
		return New(ErrCodeInvalidInput, "prefix cannot be empty")
	}

	for _, r := range prefix {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidInput, "prefix contains invalid characters")
		}
	}

	if strings.Contains(prefix, "..") {
		return New(ErrCodeInvalidInput, "prefix cannot contain path traversal sequences (..)")
	}

	if strings.HasPrefix(prefix, "/") {
		return nil
	}
	if strings.HasPrefix(prefix, "http://") || strings.HasPrefix(prefix, "https://") {
		return nil
	}
	return New(ErrCodeInvalidInput, "prefix must start with / or use http(s) scheme: %q", prefix)
}
