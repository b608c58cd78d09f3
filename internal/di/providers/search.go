package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/subaccounts/notes-server/internal/logger"
	"github.com/subaccounts/notes-server/internal/notes"
	"github.com/subaccounts/notes-server/internal/search"
	"github.com/subaccounts/notes-server/internal/service"
)

// SearchIndexHandle wraps the search index with its event subscription.
type SearchIndexHandle struct {
	*search.Index
	unfollow func()
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	h.unfollow()
	return h.Close()
}

// ProvideSearchIndex provides the in-memory note index, kept current by the
// event bus.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.NewIndex(log.Component("search"))
	if err != nil {
		return nil, err
	}
	return &SearchIndexHandle{Index: index, unfollow: index.Follow(sseHandle.Manager)}, nil
}

// ProvideSearchService provides note search and fills the index from the store.
func ProvideSearchService(i do.Injector) (*service.SearchService, error) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	repo := do.MustInvoke[*notes.Repository](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := service.NewSearchService(indexHandle.Index, repo, log.Component("search"))

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := svc.Reindex(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}
