package domain

import (
	"strings"

	"github.com/livraria/livraria-api/internal/normalize"
)

// Defaults applied to optional book fields.
const (
	DefaultAuthor    = "Desconhecido"
	DefaultPublisher = "Não informada"
	DefaultPages     = 1
)

// Book is a catalogue entry of the livraria.
type Book struct {
	Document
	Title     string  `json:"titulo" validate:"required,min=1,max=200" doc:"Book title"`
	Author    string  `json:"autor" validate:"max=100" doc:"Author name"`
	Publisher string  `json:"editora" validate:"max=100" doc:"Publisher name"`
	Price     float64 `json:"preco" validate:"gte=0" doc:"Price, never negative"`
	Pages     int     `json:"paginas" validate:"gte=1" doc:"Number of pages"`
	Year      int     `json:"anoPublicacao,omitempty" validate:"omitempty,min=1,notfuture_year" doc:"Publication year"`
	ISBN      string  `json:"isbn,omitempty" validate:"omitempty,isbn_loose" doc:"ISBN-10 or ISBN-13, uppercased"`
	CoverURL  string  `json:"capaUrl,omitempty" validate:"omitempty,http_url,max=500" doc:"Cover image URL"`
	CreatedBy string  `json:"criadoPor,omitempty" doc:"Id of the user who created the book"`
	UpdatedBy string  `json:"atualizadoPor,omitempty" doc:"Id of the last user who edited the book"`
}

// Normalize trims free text and canonicalizes the ISBN.
func (b *Book) Normalize() {
	b.Title = normalize.Text(b.Title)
	b.Author = normalize.Text(b.Author)
	b.Publisher = normalize.Text(b.Publisher)
	b.ISBN = normalize.ISBN(b.ISBN)
	b.CoverURL = strings.TrimSpace(b.CoverURL)
}

// ApplyDefaults fills optional fields that were left empty on creation.
func (b *Book) ApplyDefaults() {
	if b.Author == "" {
		b.Author = DefaultAuthor
	}
	if b.Publisher == "" {
		b.Publisher = DefaultPublisher
	}
	if b.Pages == 0 {
		b.Pages = DefaultPages
	}
}

// BookPatch carries the fields of a partial update. Nil fields are left untouched.
type BookPatch struct {
	Title     *string
	Author    *string
	Publisher *string
	Price     *float64
	Pages     *int
	Year      *int
	ISBN      *string
	CoverURL  *string
}

// IsEmpty reports whether the patch changes nothing.
func (p BookPatch) IsEmpty() bool {
	return p.Title == nil && p.Author == nil && p.Publisher == nil && p.Price == nil &&
		p.Pages == nil && p.Year == nil && p.ISBN == nil && p.CoverURL == nil
}

// Apply merges the patch into b.
func (p BookPatch) Apply(b *Book) {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Author != nil {
		b.Author = *p.Author
	}
	if p.Publisher != nil {
		b.Publisher = *p.Publisher
	}
	if p.Price != nil {
		b.Price = *p.Price
	}
	if p.Pages != nil {
		b.Pages = *p.Pages
	}
	if p.Year != nil {
		b.Year = *p.Year
	}
	if p.ISBN != nil {
		b.ISBN = *p.ISBN
	}
	if p.CoverURL != nil {
		b.CoverURL = *p.CoverURL
	}
}

// NameCount is one entry of a top-N ranking.
type NameCount struct {
	Name  string `json:"nome" doc:"Author or publisher"`
	Total int    `json:"total" doc:"Number of books"`
}

// BookStats aggregates the whole catalogue.
type BookStats struct {
	TotalBooks    int         `json:"totalLivros"`
	TotalPages    int64       `json:"totalPaginas"`
	AvgPrice      float64     `json:"precoMedio"`
	MinPrice      float64     `json:"precoMinimo"`
	MaxPrice      float64     `json:"precoMaximo"`
	OldestYear    int         `json:"anoMaisAntigo,omitempty"`
	NewestYear    int         `json:"anoMaisRecente,omitempty"`
	TopAuthors    []NameCount `json:"topAutores"`
	TopPublishers []NameCount `json:"topEditoras"`
}
