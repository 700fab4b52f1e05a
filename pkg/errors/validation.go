package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateID validates an identifier used to name stored artifacts
// (content ids, output ids, org ids).
//
// Identifiers end up in file names and object keys, so the rules are strict:
//   - No empty ids
//   - Maximum length of 128 characters
//   - Only letters, digits, '-', '_' and '.'
//   - No leading dot
func ValidateID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "id cannot be empty")
	}
	if len(id) > 128 {
		return New(ErrCodeInvalidInput, "id too long (max 128 characters)")
	}
	if strings.HasPrefix(id, ".") {
		return New(ErrCodeInvalidInput, "id cannot start with a dot")
	}
	if !idRegex.MatchString(id) {
		return New(ErrCodeInvalidInput, "id contains invalid characters: %q", id)
	}
	return nil
}

var idRegex = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidatePath validates a relative object path within a storage bucket.
// It prevents path traversal attacks and ensures reasonable path length.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}

var hexColorRegex = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// ValidateColor validates a CSS hex color such as "#0066FF".
func ValidateColor(c string) error {
	if !hexColorRegex.MatchString(c) {
		return New(ErrCodeInvalidInput, "invalid hex color: %q", c)
	}
	return nil
}
