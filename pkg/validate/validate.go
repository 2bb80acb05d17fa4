// Package validate provides input validation helpers shared by the plan
// builder and the command layer.
package validate

import (
	"net/url"
	"regexp"
	"strings"
)

// Simplified RFC 5322 email pattern.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

var guidPattern = regexp.MustCompile(
	`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// Email reports whether s is a plausible email address.
func Email(s string) bool {
	return emailPattern.MatchString(s)
}

// GUID reports whether s is a canonical GUID/UUID string.
func GUID(s string) bool {
	return guidPattern.MatchString(s)
}

// URL reports whether s is a well-formed URL with one of the allowed
// schemes. With no schemes given, http and https are allowed.
func URL(s string, allowedSchemes ...string) bool {
	if len(allowedSchemes) == 0 {
		allowedSchemes = []string{"http", "https"}
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}
	for _, scheme := range allowedSchemes {
		if u.Scheme == scheme {
			return true
		}
	}
	return false
}

// DisplayName reports whether s is acceptable as a workspace or channel
// display name: non-blank after trimming and at most 256 characters.
func DisplayName(s string) bool {
	trimmed := strings.TrimSpace(s)
	return trimmed != "" && len(trimmed) <= 256
}
