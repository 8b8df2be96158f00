package util

import (
	"strconv"
)

// ParseInt parses a string to an integer, returning defaultValue if parsing fails
func ParseInt(s string, defaultValue int) int {
	if val, err := strconv.Atoi(s); err == nil {
		return val
	}
	return defaultValue
}

// ParseIntParam parses a string to an integer, returning an error if parsing fails
func ParseIntParam(s string) (int, error) {
	return strconv.Atoi(s)
}

// ParseBool parses a query flag, returning defaultValue if parsing fails
func ParseBool(s string, defaultValue bool) bool {
	if val, err := strconv.ParseBool(s); err == nil {
		return val
	}
	return defaultValue
}

// ClampPage normalizes page/limit query values.
func ClampPage(page, limit, defaultLimit, maxLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}
