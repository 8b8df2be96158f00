package util

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

var hhmmPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// imageExtensions lists avatar formats and their content types
var imageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// IsValidImageFile checks if a filename has an accepted avatar extension
func IsValidImageFile(filename string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// ImageContentType returns the content type for an avatar filename
func ImageContentType(filename string) string {
	if ct, ok := imageExtensions[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// IsValidReminderTime reports whether s is a 24h HH:MM clock time
func IsValidReminderTime(s string) bool {
	return hhmmPattern.MatchString(s)
}

// RuneLenBetween checks a trimmed string's character count
func RuneLenBetween(s string, min, max int) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	if n < min {
		return false
	}
	return max <= 0 || n <= max
}
