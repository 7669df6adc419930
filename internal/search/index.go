// Package search keeps a bleve full-text index of the book catalogue.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/livraria/livraria-api/internal/domain"
	"github.com/livraria/livraria-api/internal/normalize"
)

// MemoryPath keeps the index in RAM.
const MemoryPath = "memory"

// mappingVersion is bumped whenever the mapping changes; a mismatch on disk
// triggers a rebuild.
const mappingVersion = "1"

const batchSize = 500

// BookSource streams books for a full rebuild. store.BookStore satisfies it.
type BookSource interface {
	EachBook(ctx context.Context, fn func(*domain.Book) error) error
}

// BookIndex wraps a bleve index of books.
//
// All methods are safe for concurrent use. Rebuild takes an exclusive lock.
type BookIndex struct {
	index  bleve.Index
	path   string // empty for in-memory indexes
	logger *slog.Logger
	mu     sync.RWMutex
}

// Open creates or opens the index stored in dir. MemoryPath opens a fresh
// in-memory index. An index with an outdated or unreadable mapping is
// removed and recreated empty; callers are expected to Rebuild at startup.
func Open(dir string, logger *slog.Logger) (*BookIndex, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if dir == MemoryPath {
		index, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create memory index: %w", err)
		}
		return &BookIndex{index: index, logger: logger}, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	indexPath := filepath.Join(dir, "livros.bleve")
	versionPath := filepath.Join(dir, "livros.version")

	var index bleve.Index
	if _, err := os.Stat(indexPath); err == nil {
		version, readErr := os.ReadFile(versionPath)
		switch {
		case readErr != nil || string(version) != mappingVersion:
			logger.Info("search index mapping changed, recreating", "path", indexPath)
		default:
			index, err = bleve.Open(indexPath)
			if err != nil {
				logger.Warn("failed to open search index, recreating", "path", indexPath, "error", err)
				index = nil
			}
		}
		if index == nil {
			if err := os.RemoveAll(indexPath); err != nil {
				return nil, fmt.Errorf("remove old index: %w", err)
			}
		}
	}

	if index == nil {
		var err error
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); err != nil {
			logger.Warn("failed to write search version file", "error", err)
		}
		logger.Info("created search index", "path", indexPath)
	} else {
		logger.Info("opened search index", "path", indexPath)
	}

	return &BookIndex{index: index, path: indexPath, logger: logger}, nil
}

// Close releases the index.
func (x *BookIndex) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.index.Close()
}

// Index adds or replaces one book.
func (x *BookIndex) Index(book *domain.Book) error {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.index.Index(book.ID, bookDocument(book))
}

// Delete removes one book. Unknown ids are ignored.
func (x *BookIndex) Delete(id string) error {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.index.Delete(id)
}

// DocCount returns the number of indexed books.
func (x *BookIndex) DocCount() (uint64, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.index.DocCount()
}

// Search returns the ids of books whose title, author, publisher or ISBN
// contains term, ordered by title. Matching ignores case and accents.
func (x *BookIndex) Search(ctx context.Context, term string, limit int) ([]string, error) {
	q := buildQuery(term)
	if q == nil {
		return []string{}, nil
	}
	if limit <= 0 {
		limit = 20
	}

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.SortBy([]string{fieldTitle, "_id"})

	x.mu.RLock()
	defer x.mu.RUnlock()

	res, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// buildQuery ORs a "*term*" wildcard over every searchable field.
// Wildcard metacharacters typed by the user are dropped.
func buildQuery(term string) query.Query {
	folded := normalize.Fold(term)
	folded = strings.NewReplacer("*", "", "?", "", `\`, "").Replace(folded)
	if folded == "" {
		return nil
	}

	pattern := "*" + folded + "*"
	disjuncts := make([]query.Query, 0, len(searchableFields))
	for _, field := range searchableFields {
		wq := bleve.NewWildcardQuery(pattern)
		wq.SetField(field)
		disjuncts = append(disjuncts, wq)
	}
	return bleve.NewDisjunctionQuery(disjuncts...)
}

// Rebuild empties the index and reloads every book from source.
func (x *BookIndex) Rebuild(ctx context.Context, source BookSource) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if err := x.reset(); err != nil {
		return 0, err
	}

	count := 0
	batch := x.index.NewBatch()
	flush := func() error {
		if batch.Size() == 0 {
			return nil
		}
		if err := x.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
		batch.Reset()
		return nil
	}

	err := source.EachBook(ctx, func(b *domain.Book) error {
		if err := batch.Index(b.ID, bookDocument(b)); err != nil {
			return fmt.Errorf("batch index %s: %w", b.ID, err)
		}
		count++
		if batch.Size() >= batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return count, err
	}
	if err := flush(); err != nil {
		return count, err
	}

	x.logger.Info("search index rebuilt", "books", count)
	return count, nil
}

// reset replaces the underlying index with an empty one. Caller holds mu.
func (x *BookIndex) reset() error {
	if err := x.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}

	if x.path == "" {
		index, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return fmt.Errorf("create memory index: %w", err)
		}
		x.index = index
		return nil
	}

	if err := os.RemoveAll(x.path); err != nil {
		return fmt.Errorf("remove index: %w", err)
	}
	index, err := bleve.New(x.path, buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	x.index = index
	return nil
}
