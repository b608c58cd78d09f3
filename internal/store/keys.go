package store

import "strings"

// Canonical key schema. One entry holds every note of every account; ledgers
// and purchase records are namespaced by account identifier.
const (
	NotesKey           = "smart-wallet-notes"
	TransactionsPrefix = "sub-account-transactions-"
	PurchasesPrefix    = "note-purchases-"
)

// TransactionsKey returns the ledger key for account.
func TransactionsKey(account string) string {
	return TransactionsPrefix + normalizeAccountKey(account)
}

// PurchasesKey returns the key listing the notes account has purchased.
func PurchasesKey(account string) string {
	return PurchasesPrefix + normalizeAccountKey(account)
}

// normalizeAccountKey lowercases hex addresses so checksummed and plain
// spellings of the same account share one entry.
func normalizeAccountKey(account string) string {
	return strings.ToLower(strings.TrimSpace(account))
}
