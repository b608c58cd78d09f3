package search

import (
	"strings"

	"github.com/subaccounts/notes-server/internal/domain"
)

const (
	fieldTitle   = "title"
	fieldContent = "content"
	fieldAuthor  = "author"
	fieldOwner   = "owner"
	fieldPublic  = "public"
	fieldUpdated = "updated"
)

// Document is the indexed form of a note.
type Document struct {
	ID      string
	Title   string
	Content string
	Author  string
	Owner   string // lowercase, so checksummed addresses match
	Public  bool
	Updated int64
}

// DocumentFromNote converts a note into its search document.
func DocumentFromNote(note domain.Note) Document {
	return Document{
		ID:      note.ID,
		Title:   note.Title,
		Content: note.Content,
		Author:  note.DisplayAuthor(),
		Owner:   ownerTerm(note.Owner),
		Public:  note.IsPublic,
		Updated: note.Updated,
	}
}

// ToMap converts the document to the field names used by the mapping.
func (d Document) ToMap() map[string]any {
	return map[string]any{
		fieldTitle:   d.Title,
		fieldContent: d.Content,
		fieldAuthor:  d.Author,
		fieldOwner:   d.Owner,
		fieldPublic:  d.Public,
		fieldUpdated: float64(d.Updated),
	}
}

func ownerTerm(account string) string {
	return strings.ToLower(domain.NormalizeAccount(account))
}
