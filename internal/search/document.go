package search

import (
	"github.com/livraria/livraria-api/internal/domain"
	"github.com/livraria/livraria-api/internal/normalize"
)

// bookDocument converts a book into the folded field map that is indexed.
func bookDocument(b *domain.Book) map[string]any {
	return map[string]any{
		fieldTitle:     normalize.Fold(b.Title),
		fieldAuthor:    normalize.Fold(b.Author),
		fieldPublisher: normalize.Fold(b.Publisher),
		fieldISBN:      normalize.Fold(b.ISBN),
	}
}
