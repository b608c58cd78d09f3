// Package search maintains a full-text index of notes. The index lives in
// memory, is rebuilt from the note store at startup and follows note events
// afterwards; the store stays the source of truth for every result.
package search

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/subaccounts/notes-server/internal/domain"
)

const batchSize = 500

// Index wraps a Bleve index with note operations.
// All methods are safe for concurrent use.
type Index struct {
	index  bleve.Index
	logger *slog.Logger
	mu     sync.RWMutex // Held exclusively while Rebuild swaps the index
}

// NewIndex creates an empty in-memory index.
func NewIndex(logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &Index{index: index, logger: logger}, nil
}

// Close releases the index.
func (s *Index) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexNote adds or replaces one note.
func (s *Index) IndexNote(note domain.Note) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Index(note.ID, DocumentFromNote(note).ToMap())
}

// IndexNotes adds or replaces notes in batches.
func (s *Index) IndexNotes(notes []domain.Note) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return indexBatches(s.index, notes)
}

// Delete removes a note from the index.
func (s *Index) Delete(noteID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(noteID)
}

// Count returns the number of indexed notes.
func (s *Index) Count() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild replaces the index contents with notes.
func (s *Index) Rebuild(notes []domain.Note) error {
	fresh, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	if err := indexBatches(fresh, notes); err != nil {
		_ = fresh.Close()
		return err
	}

	s.mu.Lock()
	old := s.index
	s.index = fresh
	s.mu.Unlock()

	if err := old.Close(); err != nil {
		s.logger.Warn("failed to close previous search index", "error", err)
	}
	s.logger.Info("search index rebuilt", "notes", len(notes))
	return nil
}

func indexBatches(index bleve.Index, notes []domain.Note) error {
	for start := 0; start < len(notes); start += batchSize {
		end := min(start+batchSize, len(notes))

		batch := index.NewBatch()
		for _, note := range notes[start:end] {
			if err := batch.Index(note.ID, DocumentFromNote(note).ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", note.ID, err)
			}
		}
		if err := index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", start, end, err)
		}
	}
	return nil
}
