package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/subaccounts/notes-server/internal/domain"
	domainerrors "github.com/subaccounts/notes-server/internal/errors"
	"github.com/subaccounts/notes-server/internal/notes"
	"github.com/subaccounts/notes-server/internal/search"
)

// MaxSearchLimit bounds the number of notes one search returns.
const MaxSearchLimit = 100

// NoteSearchResult is the outcome of a note search.
type NoteSearchResult struct {
	Query string        `json:"query"`
	Notes []domain.Note `json:"notes"`
}

// SearchService bridges the search index with the note repository. The
// index ranks candidates; the repository decides what the viewer sees.
type SearchService struct {
	index  *search.Index
	notes  *notes.Repository
	logger *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(index *search.Index, repo *notes.Repository, logger *slog.Logger) *SearchService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SearchService{index: index, notes: repo, logger: logger}
}

// Reindex rebuilds the index from every stored note.
func (s *SearchService) Reindex(ctx context.Context) error {
	all, err := s.notes.All(ctx)
	if err != nil {
		return err
	}
	return s.index.Rebuild(all)
}

// Indexed returns the number of notes in the index.
func (s *SearchService) Indexed() (uint64, error) {
	return s.index.Count()
}

// Search returns the notes matching q that viewer may see, best match first.
func (s *SearchService) Search(ctx context.Context, viewer, q string, scope search.Scope, limit int) (*NoteSearchResult, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, domainerrors.Validation("search query is required")
	}
	if scope == "" {
		scope = search.ScopeVisible
	}
	if !scope.Valid() {
		return nil, domainerrors.Validationf("unknown search scope %q", scope)
	}
	limit = min(max(limit, 0), MaxSearchLimit)

	res, err := s.index.Search(ctx, search.Params{
		Query:  q,
		Viewer: viewer,
		Scope:  scope,
		Limit:  limit,
	})
	if err != nil {
		return nil, domainerrors.Internal("search failed").WithCause(err)
	}

	visible, err := s.visible(ctx, viewer, scope)
	if err != nil {
		return nil, err
	}

	found := make([]domain.Note, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if note, ok := visible[hit.ID]; ok {
			found = append(found, note)
		}
	}
	if stale := len(res.Hits) - len(found); stale > 0 {
		s.logger.Debug("search returned stale hits", "query", q, "stale", stale)
	}

	return &NoteSearchResult{Query: q, Notes: found}, nil
}

func (s *SearchService) visible(ctx context.Context, viewer string, scope search.Scope) (map[string]domain.Note, error) {
	byID := make(map[string]domain.Note)

	if scope != search.ScopePublic {
		mine, err := s.notes.ListMine(ctx, viewer)
		if err != nil {
			return nil, err
		}
		for _, n := range mine {
			byID[n.ID] = n
		}
	}
	if scope != search.ScopeMine {
		others, err := s.notes.ListPublicOthers(ctx, viewer)
		if err != nil {
			return nil, err
		}
		for _, n := range others {
			byID[n.ID] = n
		}
	}
	return byID, nil
}
