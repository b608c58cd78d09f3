package domain

import (
	"fmt"
	"strings"
)

// TransactionType is the closed tag set of ledger records.
type TransactionType string

const (
	// TransactionSend records a value transfer.
	TransactionSend TransactionType = "send"
	// TransactionSign records a signed message.
	TransactionSign TransactionType = "sign"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == TransactionSend || t == TransactionSign
}

// TransactionRecord is a local log entry for a completed send or sign action.
type TransactionRecord struct {
	ID        string          `json:"id"`
	Hash      string          `json:"hash"`
	Type      TransactionType `json:"type"`
	Details   string          `json:"details"`
	Timestamp int64           `json:"timestamp"` // Unix milliseconds at recording time

	// Note reference written at creation time for tips and purchases.
	NoteID string `json:"noteId,omitempty"`
	Title  string `json:"title,omitempty"`
	Author string `json:"author,omitempty"`
	Amount string `json:"amount,omitempty"`
}

// TransactionInput is a record before the ledger assigns id and timestamp.
type TransactionInput struct {
	Hash    string
	Type    TransactionType
	Details string
	NoteID  string
	Title   string
	Author  string
	Amount  string
}

// Validate checks the fields the ledger requires.
func (in TransactionInput) Validate() error {
	if !in.Type.Valid() {
		return fmt.Errorf("unknown transaction type %q", in.Type)
	}
	if strings.TrimSpace(in.Hash) == "" {
		return fmt.Errorf("transaction hash is required")
	}
	return nil
}
