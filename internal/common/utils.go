package common

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// GenerateID generates a unique identifier
func GenerateID() string {
	return uuid.NewString()
}

// Now returns the current time truncated to the second in UTC. Records keep
// second precision so they survive JSON and SQL round trips unchanged.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// ParseDate parses a calendar date in ISO form (2006-01-02).
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// DateLayout is the wire format for calendar dates
const DateLayout = "2006-01-02"

// Contains checks if a slice contains a specific string
func Contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// RemoveDuplicates removes duplicate strings from a slice
func RemoveDuplicates(slice []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0)

	for _, item := range slice {
		if !seen[item] {
			seen[item] = true
			result = append(result, item)
		}
	}

	return result
}

// NormalizeKey folds a lookup key such as a payment reference or unit:
// NFKC (full-width digits and letters become ASCII), trimmed, lowercased.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(s)))
}

// Constants for system limits
const (
	MaxNameLength    = 200
	MaxNoteLength    = 4000
	DefaultListLimit = 500
	DefaultTimeout   = 30 * time.Second
)
