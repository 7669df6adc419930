package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/livraria/livraria-api/internal/config"
	"github.com/livraria/livraria-api/internal/lifecycle"
	"github.com/livraria/livraria-api/internal/logger"
	"github.com/livraria/livraria-api/internal/search"
)

// SearchIndexHandle wraps the search index with shutdown capability.
// BookIndex is nil when the index is disabled.
type SearchIndexHandle struct {
	*search.BookIndex
}

// Enabled reports whether an index was opened.
func (h *SearchIndexHandle) Enabled() bool {
	return h.BookIndex != nil
}

// Shutdown closes the index.
func (h *SearchIndexHandle) Shutdown() error {
	if h.BookIndex == nil {
		return nil
	}
	return h.Close()
}

// ProvideSearchIndex provides the bleve book index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	manager := do.MustInvoke[*lifecycle.Manager](i)

	if !cfg.Search.Enabled() {
		log.Info("Search index disabled, searches scan the database")
		return &SearchIndexHandle{}, nil
	}

	index, err := search.Open(cfg.Search.IndexPath, log.Logger)
	if err != nil {
		return nil, err
	}

	handle := &SearchIndexHandle{BookIndex: index}
	manager.OnShutdown("search index", func(context.Context) error {
		return handle.Shutdown()
	})

	docCount, _ := index.DocCount()
	log.Info("Search index initialized", "path", cfg.Search.IndexPath, "documents", docCount)

	return handle, nil
}

// RebuildSearchIndex reloads every book into the index in the background.
// Searches fall back to the database while it runs, so a failure is logged
// and not fatal.
func RebuildSearchIndex(i do.Injector) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	if !indexHandle.Enabled() {
		return
	}
	storeHandle := do.MustInvoke[*StoreHandle](i)
	manager := do.MustInvoke[*lifecycle.Manager](i)
	run := do.MustInvoke[RunContext](i)
	log := do.MustInvoke[*logger.Logger](i)

	manager.Go(run, "search index rebuild", func(ctx context.Context) error {
		count, err := indexHandle.Rebuild(ctx, storeHandle)
		if err != nil {
			log.Error("Search index rebuild failed", "error", err)
			return nil
		}
		log.Info("Search index rebuilt", "documents", count)
		return nil
	})
}
