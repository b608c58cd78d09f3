package codec

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/subaccounts/notes-server/internal/domain"
)

// Notes returns the codec for the shared note collection.
func Notes(logger *slog.Logger) *Codec[domain.Note] {
	return New("notes", logger, WithValidator(ValidateNote))
}

// Transactions returns the codec for a per-account ledger.
func Transactions(logger *slog.Logger) *Codec[domain.TransactionRecord] {
	return New("transactions", logger, WithValidator(ValidateTransaction))
}

// NoteIDs returns the codec for per-account purchase records.
func NoteIDs(logger *slog.Logger) *Codec[string] {
	return New("purchases", logger, WithValidator(func(id string) error {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("empty note id")
		}
		return nil
	}))
}

// ValidateNote checks the fields every stored note must carry.
func ValidateNote(n domain.Note) error {
	if strings.TrimSpace(n.ID) == "" {
		return fmt.Errorf("note without id")
	}
	if n.TipCount < 0 {
		return fmt.Errorf("note %s: negative tipCount", n.ID)
	}
	return nil
}

// ValidateTransaction checks the fields every stored record must carry.
func ValidateTransaction(r domain.TransactionRecord) error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("transaction without id")
	}
	if !r.Type.Valid() {
		return fmt.Errorf("transaction %s: unknown type %q", r.ID, r.Type)
	}
	return nil
}
