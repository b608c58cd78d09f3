package search

import (
	"log/slog"

	"github.com/subaccounts/notes-server/internal/sse"
)

// Subscriber registers event handlers; *sse.Manager satisfies it.
type Subscriber interface {
	Subscribe(account string, handler sse.Handler) func()
}

// Follow keeps the index current with note events from bus. The returned
// function stops following.
func (s *Index) Follow(bus Subscriber) func() {
	return bus.Subscribe("", s.Emit)
}

// Emit updates the index for one event, so an Index can also serve as a
// synchronous sse.Emitter. Failures are logged; the next rebuild corrects
// any drift.
func (s *Index) Emit(event sse.Event) {
	var err error
	switch data := event.Data.(type) {
	case sse.NoteEventData:
		err = s.IndexNote(data.Note)
	case sse.NotePurchasedEventData:
		err = s.IndexNote(data.Copy)
	case sse.NoteDeletedEventData:
		err = s.Delete(data.NoteID)
	default:
		return
	}
	if err != nil {
		s.logger.Warn("search index update failed",
			slog.String("event_type", string(event.Type)),
			slog.String("error", err.Error()))
	}
}
