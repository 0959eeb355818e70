// Package email validates addresses and extracts the pieces the badge
// protocol keys on. The domain of an address is both the name of the plain
// email badge and the lookup key for inferred badges.
package email

import (
	"strings"

	"github.com/asaskevich/govalidator"
)

// IsValid reports whether addr is a syntactically valid email address.
func IsValid(addr string) bool {
	return govalidator.IsEmail(addr)
}

// Domain returns the domain part of addr, lowercased. Returns "" when addr
// has no @ or an empty domain; callers should validate with IsValid first.
func Domain(addr string) string {
	at := strings.LastIndexByte(addr, '@')
	if at < 0 || at == len(addr)-1 {
		return ""
	}
	return strings.ToLower(addr[at+1:])
}

// Normalize trims whitespace and lowercases the whole address. The
// normalized form is the badge owner's identity key, so case variants of one
// mailbox must collapse to a single string or the per-owner badge dedupe
// breaks.
func Normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
