package util

import (
	"strconv"
	"strings"
)

// CleanText trims s and collapses internal whitespace (including the
// non-breaking spaces common in CMS tables) to single spaces.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ParseBool accepts the usual truthy/falsy spellings used in env files.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "on":
		return true, nil
	case "no", "n", "off":
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(s))
}

func SafeAtoi(s string) int {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return i
}
