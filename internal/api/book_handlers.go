package api

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/livraria/livraria-api/internal/domain"
	domainerrors "github.com/livraria/livraria-api/internal/errors"
	"github.com/livraria/livraria-api/internal/store"
	"github.com/livraria/livraria-api/internal/validation"
)

func (s *Server) registerBookRoutes() {
	register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/livros",
		Summary:     "List books",
		Description: "Returns one page of books with optional filters and sorting",
		Tags:        []string{"Livros"},
	}, s.handleListBooks)

	register(s.api, huma.Operation{
		OperationID: "searchBooks",
		Method:      http.MethodGet,
		Path:        "/api/livros/busca/{termo}",
		Summary:     "Search books",
		Description: "Case- and accent-insensitive search on title, author, publisher and ISBN",
		Tags:        []string{"Livros"},
	}, s.handleSearchBooks)

	register(s.api, huma.Operation{
		OperationID: "bookStats",
		Method:      http.MethodGet,
		Path:        "/api/livros/estatisticas",
		Summary:     "Catalogue statistics",
		Tags:        []string{"Livros"},
	}, s.handleBookStats)

	register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/livros/{id}",
		Summary:     "Get book",
		Tags:        []string{"Livros"},
	}, s.handleGetBook)

	register(s.api, huma.Operation{
		OperationID:   "createBook",
		Method:        http.MethodPost,
		Path:          "/api/livros",
		Summary:       "Create book",
		Tags:          []string{"Livros"},
		DefaultStatus: http.StatusCreated,
		Security:      bearerAuth,
	}, s.handleCreateBook)

	register(s.api, huma.Operation{
		OperationID: "updateBook",
		Method:      http.MethodPut,
		Path:        "/api/livros/{id}",
		Summary:     "Update book",
		Description: "Merges the provided fields into the book and validates the result",
		Tags:        []string{"Livros"},
		Security:    bearerAuth,
	}, s.handleUpdateBook)

	register(s.api, huma.Operation{
		OperationID: "patchBook",
		Method:      http.MethodPatch,
		Path:        "/api/livros/{id}",
		Summary:     "Partially update book",
		Tags:        []string{"Livros"},
		Security:    bearerAuth,
	}, s.handleUpdateBook)

	register(s.api, huma.Operation{
		OperationID: "deleteBook",
		Method:      http.MethodDelete,
		Path:        "/api/livros/{id}",
		Summary:     "Delete book",
		Description: "Permanently removes a book. Admin only.",
		Tags:        []string{"Livros"},
		Security:    bearerAuth,
	}, s.handleDeleteBook)
}

// === DTOs ===

// ListBooksInput contains the list filters. Numeric ranges are parsed by the
// handler so that empty values mean "no filter".
type ListBooksInput struct {
	Page      int    `query:"page" default:"1" doc:"Page number, starting at 1"`
	Limit     int    `query:"limit" default:"10" doc:"Items per page, clamped to 1..100"`
	Title     string `query:"title" doc:"Substring of the title"`
	Author    string `query:"author" doc:"Substring of the author"`
	Publisher string `query:"publisher" doc:"Substring of the publisher"`
	YearMin   string `query:"yearMin" doc:"Minimum publication year"`
	YearMax   string `query:"yearMax" doc:"Maximum publication year"`
	PriceMin  string `query:"priceMin" doc:"Minimum price"`
	PriceMax  string `query:"priceMax" doc:"Maximum price"`
	Sort      string `query:"sort" doc:"Comma separated fields, '-' prefix for descending, e.g. -preco,titulo"`
}

// BookBody is the request body for creating or updating a book.
type BookBody struct {
	Title     *string  `json:"titulo,omitempty" doc:"Book title"`
	Author    *string  `json:"autor,omitempty" doc:"Author name"`
	Publisher *string  `json:"editora,omitempty" doc:"Publisher name"`
	Price     *float64 `json:"preco,omitempty" doc:"Price"`
	Pages     *int     `json:"paginas,omitempty" doc:"Number of pages"`
	Year      *int     `json:"anoPublicacao,omitempty" doc:"Publication year"`
	ISBN      *string  `json:"isbn,omitempty" doc:"ISBN-10 or ISBN-13"`
	CoverURL  *string  `json:"capaUrl,omitempty" doc:"Cover image URL"`
}

func (b BookBody) patch() domain.BookPatch {
	return domain.BookPatch{
		Title:     b.Title,
		Author:    b.Author,
		Publisher: b.Publisher,
		Price:     b.Price,
		Pages:     b.Pages,
		Year:      b.Year,
		ISBN:      b.ISBN,
		CoverURL:  b.CoverURL,
	}
}

// CreateBookInput wraps the create request for Huma.
type CreateBookInput struct {
	Body BookBody
}

// UpdateBookInput wraps the update request for Huma.
type UpdateBookInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body BookBody
}

// BookIDInput identifies one book.
type BookIDInput struct {
	ID string `path:"id" doc:"Book ID"`
}

// SearchBooksInput contains the search term and limit.
type SearchBooksInput struct {
	Term  string `path:"termo" doc:"Search term, at least 2 characters"`
	Limit int    `query:"limit" default:"20" doc:"Maximum results, up to 100"`
}

// DeletedBook identifies a removed book.
type DeletedBook struct {
	ID    string `json:"id" doc:"Book ID"`
	Title string `json:"titulo" doc:"Book title"`
}

// BookOutput wraps one book.
type BookOutput struct {
	Body Envelope[*domain.Book]
}

// BookListOutput wraps a list of books.
type BookListOutput struct {
	Body Envelope[[]*domain.Book]
}

// BookStatsOutput wraps the catalogue statistics.
type BookStatsOutput struct {
	Body Envelope[domain.BookStats]
}

// DeleteBookOutput wraps the delete acknowledgement.
type DeleteBookOutput struct {
	Body Envelope[DeletedBook]
}

// === Handlers ===

func (s *Server) handleListBooks(ctx context.Context, input *ListBooksInput) (*BookListOutput, error) {
	q, err := input.query()
	if err != nil {
		return nil, err
	}

	page, err := s.services.Books.List(ctx, q)
	if err != nil {
		return nil, err
	}

	return &BookListOutput{Body: replyPage(ctx, page, identity[*domain.Book])}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *BookIDInput) (*BookOutput, error) {
	book, err := s.services.Books.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: reply(ctx, book)}, nil
}

func (s *Server) handleCreateBook(ctx context.Context, input *CreateBookInput) (*BookOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	draft := &domain.Book{}
	input.Body.patch().Apply(draft)

	book, err := s.services.Books.Create(ctx, user, draft)
	if err != nil {
		return nil, err
	}

	env := reply(ctx, book)
	env.Message = "Livro criado com sucesso"
	return &BookOutput{Body: env}, nil
}

func (s *Server) handleUpdateBook(ctx context.Context, input *UpdateBookInput) (*BookOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	book, err := s.services.Books.Update(ctx, user, input.ID, input.Body.patch())
	if err != nil {
		return nil, err
	}

	env := reply(ctx, book)
	env.Message = "Livro atualizado com sucesso"
	return &BookOutput{Body: env}, nil
}

func (s *Server) handleDeleteBook(ctx context.Context, input *BookIDInput) (*DeleteBookOutput, error) {
	if _, err := RequireAdmin(ctx); err != nil {
		return nil, err
	}

	book, err := s.services.Books.Delete(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	env := reply(ctx, DeletedBook{ID: book.ID, Title: book.Title})
	env.Message = "Livro removido com sucesso"
	return &DeleteBookOutput{Body: env}, nil
}

func (s *Server) handleSearchBooks(ctx context.Context, input *SearchBooksInput) (*BookListOutput, error) {
	term, books, err := s.services.Books.Search(ctx, input.Term, input.Limit)
	if err != nil {
		return nil, err
	}
	if books == nil {
		books = []*domain.Book{}
	}

	env := reply(ctx, books)
	env.Meta.SearchMeta = &SearchMeta{Term: term, Count: len(books)}
	return &BookListOutput{Body: env}, nil
}

func (s *Server) handleBookStats(ctx context.Context, _ *struct{}) (*BookStatsOutput, error) {
	stats, err := s.services.Books.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &BookStatsOutput{Body: reply(ctx, stats)}, nil
}

// query converts the raw query parameters, collecting every malformed
// number before failing.
func (in *ListBooksInput) query() (store.BookQuery, error) {
	q := store.BookQuery{
		Pagination: store.Pagination{Page: in.Page, Limit: in.Limit},
		Title:      strings.TrimSpace(in.Title),
		Author:     strings.TrimSpace(in.Author),
		Publisher:  strings.TrimSpace(in.Publisher),
	}

	var fields []validation.FieldError
	q.YearMin = parseIntParam("yearMin", in.YearMin, &fields)
	q.YearMax = parseIntParam("yearMax", in.YearMax, &fields)
	q.PriceMin = parseFloatParam("priceMin", in.PriceMin, &fields)
	q.PriceMax = parseFloatParam("priceMax", in.PriceMax, &fields)
	if len(fields) > 0 {
		return q, domainerrors.ValidationWithDetails("Parâmetros de consulta inválidos", fields)
	}

	sort, err := store.ParseSort(in.Sort)
	if err != nil {
		return q, err
	}
	q.Sort = sort
	return q, nil
}

func parseIntParam(name, raw string, fields *[]validation.FieldError) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*fields = append(*fields, validation.FieldError{Field: name, Message: name + " deve ser um número inteiro"})
		return nil
	}
	return &v
}

func parseFloatParam(name, raw string, fields *[]validation.FieldError) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		*fields = append(*fields, validation.FieldError{Field: name, Message: name + " deve ser um número"})
		return nil
	}
	return &v
}
