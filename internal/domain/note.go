package domain

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Note is a user-authored content record, optionally public and optionally
// priced for unlock. All notes of all accounts live in one collection.
type Note struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	Owner       string `json:"owner"`
	Author      string `json:"author,omitempty"`
	PublicPrice string `json:"publicPrice,omitempty"` // Decimal ETH string; empty means free
	Created     int64  `json:"created"`               // Unix milliseconds
	Updated     int64  `json:"updated"`               // Unix milliseconds
	TipCount    int    `json:"tipCount"`
	IsPublic    bool   `json:"isPublic"`

	// Unlocked is computed per viewer on read and never persisted.
	Unlocked bool `json:"unlocked,omitempty"`
}

// NoteDraft carries the user-supplied fields of a note being saved.
type NoteDraft struct {
	Title       string
	Content     string
	Author      string
	PublicPrice string
	IsPublic    bool
}

// NotePatch holds the fields of an edit. Nil fields are left unchanged.
type NotePatch struct {
	Title       *string
	Content     *string
	Author      *string
	PublicPrice *string
	IsPublic    *bool
}

// CleanText trims s and puts it in Unicode NFC form, so a title typed with
// combining accents matches one typed with precomposed characters.
func CleanText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// OwnedBy reports whether account owns the note.
func (n *Note) OwnedBy(account string) bool {
	return SameAccount(n.Owner, account)
}

// IsPriced reports whether the note is public and gated behind a price.
func (n *Note) IsPriced() bool {
	return n.IsPublic && strings.TrimSpace(n.PublicPrice) != ""
}

// DisplayAuthor returns the author name, falling back to the shortened owner.
func (n *Note) DisplayAuthor() string {
	if a := strings.TrimSpace(n.Author); a != "" {
		return a
	}
	return ShortAccount(n.Owner)
}

// Touch refreshes the updated timestamp.
func (n *Note) Touch(now time.Time) {
	n.Updated = now.UnixMilli()
}

// Apply merges patch into the note. Making a note private clears its price,
// and a price is only kept on public notes.
func (n *Note) Apply(patch NotePatch) {
	if patch.Title != nil {
		n.Title = CleanText(*patch.Title)
	}
	if patch.Content != nil {
		n.Content = CleanText(*patch.Content)
	}
	if patch.Author != nil {
		n.Author = CleanText(*patch.Author)
	}
	if patch.IsPublic != nil {
		n.IsPublic = *patch.IsPublic
	}
	if patch.PublicPrice != nil {
		n.PublicPrice = strings.TrimSpace(*patch.PublicPrice)
	}
	if !n.IsPublic {
		n.PublicPrice = ""
	}
}

// Persisted returns a copy with viewer-local fields cleared.
func (n Note) Persisted() Note {
	n.Unlocked = false
	return n
}
