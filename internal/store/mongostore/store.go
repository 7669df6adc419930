// Package mongostore implements store.Store on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/livraria/livraria-api/internal/domain"
	"github.com/livraria/livraria-api/internal/normalize"
	"github.com/livraria/livraria-api/internal/store"
)

// Collection names shared with existing deployments.
const (
	BooksCollection = "Livros"
	UsersCollection = "usuarios"
)

// portuguese sorts case- and accent-insensitively.
var portuguese = &options.Collation{Locale: "pt", Strength: 1}

// Store is the MongoDB implementation of store.Store.
type Store struct {
	client *mongo.Client
	books  *mongo.Collection
	users  *mongo.Collection
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

// Connect dials uri, checks the primary answers and ensures indexes.
// The caller bounds the attempt through ctx.
func Connect(ctx context.Context, uri, dbName string, logger *slog.Logger) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetAppName("livraria-api"))
	if err != nil {
		return nil, store.ErrUnavailable.WithCause(fmt.Errorf("connect: %w", err))
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, store.ErrUnavailable.WithCause(fmt.Errorf("ping: %w", err))
	}

	db := client.Database(dbName)
	s := &Store{
		client: client,
		books:  db.Collection(BooksCollection),
		users:  db.Collection(UsersCollection),
		logger: logger,
	}

	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	if logger != nil {
		logger.Info("mongodb connected", "database", dbName)
	}
	return s, nil
}

// EnsureIndexes creates the unique and lookup indexes. It is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "resetPasswordToken", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "emailVerificationToken", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "ativo", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}

	_, err = s.books.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "autor", Value: 1}}},
		{Keys: bson.D{{Key: "editora", Value: 1}}},
		{Keys: bson.D{{Key: "anoPublicacao", Value: 1}}},
		{Keys: bson.D{{Key: "preco", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create book indexes: %w", err)
	}
	return nil
}

// Ping checks the primary answers.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return store.ErrUnavailable.WithCause(err)
	}
	return nil
}

// Close disconnects the client, waiting at most ten seconds.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("closing mongodb connection")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// CreateBook inserts a new book.
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	rec, err := toBookRecord(book)
	if err != nil {
		return fmt.Errorf("create book: invalid id %q: %w", book.ID, err)
	}
	if _, err := s.books.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrAlreadyExists.WithCause(err)
		}
		return fmt.Errorf("create book: %w", err)
	}
	return nil
}

// GetBook retrieves a book by id. Malformed ids are reported as not found.
func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, store.ErrBookNotFound
	}

	var rec bookRecord
	err = s.books.FindOne(ctx, bson.M{"_id": oid}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrBookNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	return rec.toDomain(), nil
}

// UpdateBook replaces an existing book.
func (s *Store) UpdateBook(ctx context.Context, book *domain.Book) error {
	rec, err := toBookRecord(book)
	if err != nil {
		return store.ErrBookNotFound
	}
	res, err := s.books.ReplaceOne(ctx, bson.M{"_id": rec.ID}, rec)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrBookNotFound
	}
	return nil
}

// DeleteBook removes a book permanently.
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return store.ErrBookNotFound
	}
	res, err := s.books.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrBookNotFound
	}
	return nil
}

// ListBooks runs the filtered count and page query.
func (s *Store) ListBooks(ctx context.Context, q store.BookQuery) (store.Page[*domain.Book], error) {
	if err := q.Validate(); err != nil {
		return store.Page[*domain.Book]{}, err
	}

	filter := buildBookFilter(q)
	total, err := s.books.CountDocuments(ctx, filter)
	if err != nil {
		return store.Page[*domain.Book]{}, fmt.Errorf("count books: %w", err)
	}

	opts := options.Find().
		SetSort(buildSort(q.Sort)).
		SetSkip(int64(q.Offset())).
		SetLimit(int64(q.Limit)).
		SetCollation(portuguese)

	books, err := s.findBooks(ctx, filter, opts)
	if err != nil {
		return store.Page[*domain.Book]{}, fmt.Errorf("list books: %w", err)
	}
	return store.Page[*domain.Book]{
		Items:      books,
		Total:      int(total),
		Pagination: q.Pagination,
	}, nil
}

// SearchBooks matches term against the text fields, ordered by title.
func (s *Store) SearchBooks(ctx context.Context, term string, limit int) ([]*domain.Book, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "titulo", Value: 1}, {Key: "_id", Value: 1}}).
		SetCollation(portuguese)
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	books, err := s.findBooks(ctx, buildSearchFilter(term), opts)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	return books, nil
}

// GetBooksByIDs loads books in the order of ids, skipping missing ones.
func (s *Store) GetBooksByIDs(ctx context.Context, ids []string) ([]*domain.Book, error) {
	oids := make(bson.A, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return []*domain.Book{}, nil
	}

	found, err := s.findBooks(ctx, bson.M{"_id": bson.M{"$in": oids}}, options.Find())
	if err != nil {
		return nil, fmt.Errorf("get books by ids: %w", err)
	}

	byID := make(map[string]*domain.Book, len(found))
	for _, b := range found {
		byID[b.ID] = b
	}
	books := make([]*domain.Book, 0, len(found))
	for _, id := range ids {
		if b, ok := byID[id]; ok {
			books = append(books, b)
		}
	}
	return books, nil
}

// BookStats aggregates the catalogue server-side.
func (s *Store) BookStats(ctx context.Context, topN int) (domain.BookStats, error) {
	cursor, err := s.books.Aggregate(ctx, statsPipeline(topN))
	if err != nil {
		return domain.BookStats{}, fmt.Errorf("book stats: %w", err)
	}
	defer cursor.Close(ctx)

	var facets []statsFacet
	if err := cursor.All(ctx, &facets); err != nil {
		return domain.BookStats{}, fmt.Errorf("decode book stats: %w", err)
	}
	if len(facets) == 0 {
		return domain.ComputeBookStats(nil, topN), nil
	}
	return facetToStats(facets[0]), nil
}

func facetToStats(f statsFacet) domain.BookStats {
	stats := domain.BookStats{
		TopAuthors:    rankings(f.TopAuthors),
		TopPublishers: rankings(f.TopPublishers),
	}
	if len(f.Totals) > 0 {
		t := f.Totals[0]
		stats.TotalBooks = t.TotalBooks
		stats.TotalPages = t.TotalPages
		stats.AvgPrice = domain.RoundPrice(t.AvgPrice)
		stats.MinPrice = t.MinPrice
		stats.MaxPrice = t.MaxPrice
	}
	if len(f.Years) > 0 {
		stats.OldestYear = f.Years[0].Oldest
		stats.NewestYear = f.Years[0].Newest
	}
	return stats
}

func rankings(recs []rankRecord) []domain.NameCount {
	out := make([]domain.NameCount, 0, len(recs))
	for _, r := range recs {
		out = append(out, domain.NameCount{Name: r.Name, Total: r.Total})
	}
	return out
}

// EachBook streams every book to fn through a cursor.
func (s *Store) EachBook(ctx context.Context, fn func(*domain.Book) error) error {
	cursor, err := s.books.Find(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("iterate books: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var rec bookRecord
		if err := cursor.Decode(&rec); err != nil {
			return fmt.Errorf("decode book: %w", err)
		}
		if err := fn(rec.toDomain()); err != nil {
			return err
		}
	}
	return cursor.Err()
}

func (s *Store) findBooks(ctx context.Context, filter any, opts *options.FindOptions) ([]*domain.Book, error) {
	cursor, err := s.books.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var recs []bookRecord
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, err
	}
	books := make([]*domain.Book, 0, len(recs))
	for _, r := range recs {
		books = append(books, r.toDomain())
	}
	return books, nil
}

// CreateUser inserts a new account; a duplicate email yields store.ErrEmailExists.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	rec, err := toUserRecord(user)
	if err != nil {
		return fmt.Errorf("create user: invalid id %q: %w", user.ID, err)
	}
	rec.Email = normalize.Email(rec.Email)
	if _, err := s.users.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrEmailExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, store.ErrUserNotFound
	}
	return s.findUser(ctx, bson.M{"_id": oid})
}

// GetUserByEmail retrieves a user by email, ignoring case.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findUser(ctx, bson.M{"email": normalize.Email(email)})
}

// GetUserByResetTokenHash retrieves the user holding a reset token hash.
func (s *Store) GetUserByResetTokenHash(ctx context.Context, hash string) (*domain.User, error) {
	if hash == "" {
		return nil, store.ErrUserNotFound
	}
	return s.findUser(ctx, bson.M{"resetPasswordToken": hash})
}

// GetUserByVerifyTokenHash retrieves the user holding a verification token hash.
func (s *Store) GetUserByVerifyTokenHash(ctx context.Context, hash string) (*domain.User, error) {
	if hash == "" {
		return nil, store.ErrUserNotFound
	}
	return s.findUser(ctx, bson.M{"emailVerificationToken": hash})
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (*domain.User, error) {
	var rec userRecord
	err := s.users.FindOne(ctx, filter).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return rec.toDomain(), nil
}

// UpdateUser replaces an existing account.
func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	rec, err := toUserRecord(user)
	if err != nil {
		return store.ErrUserNotFound
	}
	rec.Email = normalize.Email(rec.Email)
	res, err := s.users.ReplaceOne(ctx, bson.M{"_id": rec.ID}, rec)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrEmailExists
		}
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrUserNotFound
	}
	return nil
}

// ListUsers filters and pages accounts, newest first.
func (s *Store) ListUsers(ctx context.Context, q store.UserQuery) (store.Page[*domain.User], error) {
	q.Pagination.Normalize()
	filter := buildUserFilter(q)

	total, err := s.users.CountDocuments(ctx, filter)
	if err != nil {
		return store.Page[*domain.User]{}, fmt.Errorf("count users: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(q.Offset())).
		SetLimit(int64(q.Limit))
	cursor, err := s.users.Find(ctx, filter, opts)
	if err != nil {
		return store.Page[*domain.User]{}, fmt.Errorf("list users: %w", err)
	}
	defer cursor.Close(ctx)

	var recs []userRecord
	if err := cursor.All(ctx, &recs); err != nil {
		return store.Page[*domain.User]{}, fmt.Errorf("decode users: %w", err)
	}
	users := make([]*domain.User, 0, len(recs))
	for _, r := range recs {
		users = append(users, r.toDomain())
	}
	return store.Page[*domain.User]{
		Items:      users,
		Total:      int(total),
		Pagination: q.Pagination,
	}, nil
}

// CountAdmins counts active administrators.
func (s *Store) CountAdmins(ctx context.Context) (int, error) {
	n, err := s.users.CountDocuments(ctx, bson.M{"role": string(domain.RoleAdmin), "ativo": true})
	if err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return int(n), nil
}
