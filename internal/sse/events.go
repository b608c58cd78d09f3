// Package sse implements the in-process notification bus and its Server-Sent
// Events endpoint. Events are a best-effort refresh signal; the stored data
// is always the source of truth.
package sse

import (
	"time"

	"github.com/subaccounts/notes-server/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventTransactionCreated is published after a ledger append.
	EventTransactionCreated EventType = "transaction.created"
	// EventLedgerCleared is published after an account's ledger is cleared.
	EventLedgerCleared EventType = "ledger.cleared"

	EventNoteCreated   EventType = "note.created"
	EventNoteUpdated   EventType = "note.updated"
	EventNoteDeleted   EventType = "note.deleted"
	EventNoteTipped    EventType = "note.tipped"
	EventNotePurchased EventType = "note.purchased"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an event delivered to subscribers and SSE clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// Account restricts delivery to subscribers of that account.
	// Empty means broadcast to everyone.
	Account string `json:"-"`
}

// Emitter publishes events. Publishing never blocks and never fails the caller.
type Emitter interface {
	Emit(event Event)
}

// NoopEmitter discards every event.
type NoopEmitter struct{}

// Emit implements Emitter.
func (NoopEmitter) Emit(Event) {}

// TransactionEventData is the payload of transaction.created.
type TransactionEventData struct {
	Type    domain.TransactionType `json:"type"`
	Hash    string                 `json:"hash"`
	Details string                 `json:"details"`
	NoteID  string                 `json:"noteId,omitempty"`
}

// LedgerClearedEventData is the payload of ledger.cleared.
type LedgerClearedEventData struct {
	ClearedAt time.Time `json:"clearedAt"`
}

// NoteEventData is the payload of note.created, note.updated and note.tipped.
type NoteEventData struct {
	Note domain.Note `json:"note"`
}

// NoteDeletedEventData is the payload of note.deleted.
type NoteDeletedEventData struct {
	DeletedAt time.Time `json:"deletedAt"`
	NoteID    string    `json:"noteId"`
}

// NotePurchasedEventData is the payload of note.purchased.
type NotePurchasedEventData struct {
	SourceID string      `json:"sourceId"`
	Copy     domain.Note `json:"copy"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"serverTime"`
}

// NewTransactionCreatedEvent creates a transaction.created event for account.
func NewTransactionCreatedEvent(account string, rec domain.TransactionRecord) Event {
	return Event{
		Type: EventTransactionCreated,
		Data: TransactionEventData{
			Type:    rec.Type,
			Hash:    rec.Hash,
			Details: rec.Details,
			NoteID:  rec.NoteID,
		},
		Account:   account,
		Timestamp: time.Now(),
	}
}

// NewLedgerClearedEvent creates a ledger.cleared event for account.
func NewLedgerClearedEvent(account string) Event {
	now := time.Now()
	return Event{
		Type:      EventLedgerCleared,
		Data:      LedgerClearedEventData{ClearedAt: now},
		Account:   account,
		Timestamp: now,
	}
}

// NewNoteEvent creates a note.created, note.updated or note.tipped event.
// Public notes are broadcast; private notes go to their owner only.
func NewNoteEvent(eventType EventType, note domain.Note) Event {
	evt := Event{
		Type:      eventType,
		Data:      NoteEventData{Note: note.Persisted()},
		Timestamp: time.Now(),
	}
	if !note.IsPublic {
		evt.Account = note.Owner
	}
	return evt
}

// NewNoteDeletedEvent creates a note.deleted event.
func NewNoteDeletedEvent(noteID string) Event {
	now := time.Now()
	return Event{
		Type:      EventNoteDeleted,
		Data:      NoteDeletedEventData{NoteID: noteID, DeletedAt: now},
		Timestamp: now,
	}
}

// NewNotePurchasedEvent creates a note.purchased event for the buyer.
func NewNotePurchasedEvent(sourceID string, purchased domain.Note) Event {
	return Event{
		Type:      EventNotePurchased,
		Data:      NotePurchasedEventData{SourceID: sourceID, Copy: purchased.Persisted()},
		Account:   purchased.Owner,
		Timestamp: time.Now(),
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return Event{
		Type:      EventHeartbeat,
		Data:      HeartbeatEventData{ServerTime: now},
		Timestamp: now,
	}
}
