package service

import (
	"regexp"
	"strings"
)

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	hexAddressRegex = regexp.MustCompile(`^0[xX][0-9a-fA-F]+$`)
)

// normalizeMemberID trims the identifier and lowercases hex wallet addresses so that
// checksummed and plain spellings refer to the same member.
func normalizeMemberID(id string) string {
	id = strings.TrimSpace(id)
	if hexAddressRegex.MatchString(id) {
		return strings.ToLower(id)
	}
	return id
}

// sanitizeString collapses whitespace and trims the result.
func sanitizeString(value string) string {
	value = whitespaceRegex.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}
