package domain

import "strings"

// AnonymousAccount is the owner recorded when no wallet account is connected.
const AnonymousAccount = "anonymous"

// NormalizeAccount trims account and substitutes the anonymous sentinel for
// an empty identifier.
func NormalizeAccount(account string) string {
	account = strings.TrimSpace(account)
	if account == "" {
		return AnonymousAccount
	}
	return account
}

// SameAccount compares two account identifiers. Hex addresses are compared
// case-insensitively so checksummed and lowercase spellings match.
func SameAccount(a, b string) bool {
	return strings.EqualFold(NormalizeAccount(a), NormalizeAccount(b))
}

// ShortAccount renders an account for display, e.g. 0x1234...7890.
func ShortAccount(account string) string {
	account = strings.TrimSpace(account)
	if account == "" || account == AnonymousAccount {
		return "Anonymous"
	}
	if len(account) <= 10 {
		return account
	}
	return account[:6] + "..." + account[len(account)-4:]
}
