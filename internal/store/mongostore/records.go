package mongostore

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/livraria/livraria-api/internal/domain"
)

// bookRecord is the BSON shape of a document in the Livros collection.
// Timestamps use the createdAt/updatedAt keys of existing collections.
type bookRecord struct {
	ID        primitive.ObjectID `bson:"_id"`
	Title     string             `bson:"titulo"`
	Author    string             `bson:"autor"`
	Publisher string             `bson:"editora"`
	Price     float64            `bson:"preco"`
	Pages     int                `bson:"paginas"`
	Year      int                `bson:"anoPublicacao,omitempty"`
	ISBN      string             `bson:"isbn,omitempty"`
	CoverURL  string             `bson:"capaUrl,omitempty"`
	CreatedBy primitive.ObjectID `bson:"criadoPor,omitempty"`
	UpdatedBy primitive.ObjectID `bson:"atualizadoPor,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func toBookRecord(b *domain.Book) (bookRecord, error) {
	oid, err := primitive.ObjectIDFromHex(b.ID)
	if err != nil {
		return bookRecord{}, err
	}
	return bookRecord{
		ID:        oid,
		Title:     b.Title,
		Author:    b.Author,
		Publisher: b.Publisher,
		Price:     b.Price,
		Pages:     b.Pages,
		Year:      b.Year,
		ISBN:      b.ISBN,
		CoverURL:  b.CoverURL,
		CreatedBy: optionalID(b.CreatedBy),
		UpdatedBy: optionalID(b.UpdatedBy),
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}, nil
}

func (r bookRecord) toDomain() *domain.Book {
	return &domain.Book{
		Document: domain.Document{
			ID:        r.ID.Hex(),
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		},
		Title:     r.Title,
		Author:    r.Author,
		Publisher: r.Publisher,
		Price:     r.Price,
		Pages:     r.Pages,
		Year:      r.Year,
		ISBN:      r.ISBN,
		CoverURL:  r.CoverURL,
		CreatedBy: hexOrEmpty(r.CreatedBy),
		UpdatedBy: hexOrEmpty(r.UpdatedBy),
	}
}

type addressRecord struct {
	Street     string `bson:"rua,omitempty"`
	Number     string `bson:"numero,omitempty"`
	Complement string `bson:"complemento,omitempty"`
	District   string `bson:"bairro,omitempty"`
	City       string `bson:"cidade,omitempty"`
	State      string `bson:"estado,omitempty"`
	ZipCode    string `bson:"cep,omitempty"`
}

type preferencesRecord struct {
	Notifications bool   `bson:"notificacoes"`
	Theme         string `bson:"tema"`
}

// userRecord is the BSON shape of a document in the usuarios collection.
// Token hashes are omitted when empty so the sparse unique indexes skip them.
type userRecord struct {
	ID                   primitive.ObjectID `bson:"_id"`
	Name                 string             `bson:"nome"`
	Email                string             `bson:"email"`
	PasswordHash         string             `bson:"senha"`
	Phone                string             `bson:"telefone,omitempty"`
	Address              *addressRecord     `bson:"endereco,omitempty"`
	BirthDate            *time.Time         `bson:"dataNascimento,omitempty"`
	Gender               string             `bson:"genero,omitempty"`
	Avatar               string             `bson:"avatar,omitempty"`
	Role                 string             `bson:"role"`
	Active               bool               `bson:"ativo"`
	EmailVerified        bool               `bson:"emailVerificado"`
	Preferences          preferencesRecord  `bson:"preferencias"`
	LastLoginAt          *time.Time         `bson:"ultimoLogin,omitempty"`
	ResetTokenHash       string             `bson:"resetPasswordToken,omitempty"`
	ResetTokenExpiresAt  *time.Time         `bson:"resetPasswordExpire,omitempty"`
	VerifyTokenHash      string             `bson:"emailVerificationToken,omitempty"`
	VerifyTokenExpiresAt *time.Time         `bson:"emailVerificationExpire,omitempty"`
	CreatedAt            time.Time          `bson:"createdAt"`
	UpdatedAt            time.Time          `bson:"updatedAt"`
}

func toUserRecord(u *domain.User) (userRecord, error) {
	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return userRecord{}, err
	}
	r := userRecord{
		ID:                   oid,
		Name:                 u.Name,
		Email:                u.Email,
		PasswordHash:         u.PasswordHash,
		Phone:                u.Phone,
		BirthDate:            u.BirthDate,
		Gender:               string(u.Gender),
		Avatar:               u.Avatar,
		Role:                 string(u.Role),
		Active:               u.Active,
		EmailVerified:        u.EmailVerified,
		Preferences:          preferencesRecord{Notifications: u.Preferences.Notifications, Theme: u.Preferences.Theme},
		LastLoginAt:          u.LastLoginAt,
		ResetTokenHash:       u.ResetTokenHash,
		ResetTokenExpiresAt:  u.ResetTokenExpiresAt,
		VerifyTokenHash:      u.VerifyTokenHash,
		VerifyTokenExpiresAt: u.VerifyTokenExpiresAt,
		CreatedAt:            u.CreatedAt,
		UpdatedAt:            u.UpdatedAt,
	}
	if a := u.Address; a != nil {
		r.Address = &addressRecord{
			Street:     a.Street,
			Number:     a.Number,
			Complement: a.Complement,
			District:   a.District,
			City:       a.City,
			State:      a.State,
			ZipCode:    a.ZipCode,
		}
	}
	return r, nil
}

func (r userRecord) toDomain() *domain.User {
	u := &domain.User{
		Document: domain.Document{
			ID:        r.ID.Hex(),
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		},
		Name:                 r.Name,
		Email:                r.Email,
		PasswordHash:         r.PasswordHash,
		Phone:                r.Phone,
		BirthDate:            r.BirthDate,
		Gender:               domain.Gender(r.Gender),
		Avatar:               r.Avatar,
		Role:                 domain.Role(r.Role),
		Active:               r.Active,
		EmailVerified:        r.EmailVerified,
		Preferences:          domain.Preferences{Notifications: r.Preferences.Notifications, Theme: r.Preferences.Theme},
		LastLoginAt:          r.LastLoginAt,
		ResetTokenHash:       r.ResetTokenHash,
		ResetTokenExpiresAt:  r.ResetTokenExpiresAt,
		VerifyTokenHash:      r.VerifyTokenHash,
		VerifyTokenExpiresAt: r.VerifyTokenExpiresAt,
	}
	if a := r.Address; a != nil {
		u.Address = &domain.Address{
			Street:     a.Street,
			Number:     a.Number,
			Complement: a.Complement,
			District:   a.District,
			City:       a.City,
			State:      a.State,
			ZipCode:    a.ZipCode,
		}
	}
	return u
}

func optionalID(hex string) primitive.ObjectID {
	oid, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID
	}
	return oid
}

func hexOrEmpty(oid primitive.ObjectID) string {
	if oid.IsZero() {
		return ""
	}
	return oid.Hex()
}
