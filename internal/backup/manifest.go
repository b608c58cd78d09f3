package backup

import (
	"time"

	"github.com/subaccounts/notes-server/internal/domain"
)

// FormatVersion is the backup format version. Increment major on breaking changes.
const FormatVersion = "1.0"

// Archive entry names.
const (
	manifestFile  = "manifest.json"
	notesFile     = "notes.jsonl"
	ledgersFile   = "ledgers.jsonl"
	purchasesFile = "purchases.jsonl"
)

// Manifest describes backup contents and metadata.
type Manifest struct {
	Version       string       `json:"version"`
	CreatedAt     time.Time    `json:"created_at"`
	ServerVersion string       `json:"server_version,omitempty"`
	Counts        EntityCounts `json:"counts"`
}

// EntityCounts tracks entity counts for validation and progress reporting.
type EntityCounts struct {
	Notes         int `json:"notes"`
	Ledgers       int `json:"ledgers"`
	Transactions  int `json:"transactions"`
	PurchaseLists int `json:"purchase_lists"`
}

// LedgerEntry is one account's transaction history.
type LedgerEntry struct {
	Account      string                     `json:"account"`
	Transactions []domain.TransactionRecord `json:"transactions"`
}

// PurchaseEntry is the list of notes one account has purchased.
type PurchaseEntry struct {
	Account string   `json:"account"`
	NoteIDs []string `json:"note_ids"`
}
