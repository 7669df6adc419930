package domain

import (
	"time"

	"github.com/livraria/livraria-api/internal/normalize"
)

// Role represents the user's permission level in the system.
type Role string

const (
	// RoleUser grants standard access.
	RoleUser Role = "usuario"
	// RoleAdmin grants full administrative access.
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Gender values accepted on profiles.
type Gender string

const (
	GenderMale        Gender = "masculino"
	GenderFemale      Gender = "feminino"
	GenderOther       Gender = "outro"
	GenderUndisclosed Gender = "nao-informado"
)

// Theme values accepted in preferences.
const (
	ThemeLight  = "claro"
	ThemeDark   = "escuro"
	ThemeSystem = "sistema"
)

// Address is the optional postal address of a user.
type Address struct {
	Street     string `json:"rua,omitempty" validate:"max=200"`
	Number     string `json:"numero,omitempty" validate:"max=20"`
	Complement string `json:"complemento,omitempty" validate:"max=100"`
	District   string `json:"bairro,omitempty" validate:"max=100"`
	City       string `json:"cidade,omitempty" validate:"max=100"`
	State      string `json:"estado,omitempty" validate:"omitempty,len=2"`
	ZipCode    string `json:"cep,omitempty" validate:"omitempty,min=8,max=9"`
}

// Preferences holds user interface settings.
type Preferences struct {
	Notifications bool   `json:"notificacoes"`
	Theme         string `json:"tema" validate:"omitempty,oneof=claro escuro sistema"`
}

// DefaultPreferences returns the preferences of a new account.
func DefaultPreferences() Preferences {
	return Preferences{Notifications: true, Theme: ThemeSystem}
}

// User represents an account. Credentials and token hashes are persisted but
// never leave the service layer: API responses are built from UserView.
type User struct {
	Document
	Name          string      `json:"nome" validate:"required,min=2,max=100"`
	Email         string      `json:"email" validate:"required,email,max=254"`
	PasswordHash  string      `json:"senhaHash,omitempty"`
	Phone         string      `json:"telefone,omitempty" validate:"max=20"`
	Address       *Address    `json:"endereco,omitempty"`
	BirthDate     *time.Time  `json:"dataNascimento,omitempty" validate:"omitempty,past_date"`
	Gender        Gender      `json:"genero,omitempty" validate:"omitempty,oneof=masculino feminino outro nao-informado"`
	Avatar        string      `json:"avatar,omitempty" validate:"omitempty,http_url,max=500"`
	Role          Role        `json:"role" validate:"required,oneof=usuario admin"`
	Active        bool        `json:"ativo"`
	EmailVerified bool        `json:"emailVerificado"`
	Preferences   Preferences `json:"preferencias"`
	LastLoginAt   *time.Time  `json:"ultimoLogin,omitempty"`

	ResetTokenHash       string     `json:"resetTokenHash,omitempty"`
	ResetTokenExpiresAt  *time.Time `json:"resetTokenExpira,omitempty"`
	VerifyTokenHash      string     `json:"verifyTokenHash,omitempty"`
	VerifyTokenExpiresAt *time.Time `json:"verifyTokenExpira,omitempty"`
}

// IsAdmin returns true if the user has administrative privileges.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsActive returns true if the user can log in and use the system.
func (u *User) IsActive() bool {
	return u.Active
}

// Normalize canonicalizes the email and trims the name.
func (u *User) Normalize() {
	u.Email = normalize.Email(u.Email)
	u.Name = normalize.Text(u.Name)
}

// SetResetToken stores the hash of a password reset token.
func (u *User) SetResetToken(hash string, expiresAt time.Time) {
	u.ResetTokenHash = hash
	u.ResetTokenExpiresAt = &expiresAt
}

// ClearResetToken invalidates any pending password reset.
func (u *User) ClearResetToken() {
	u.ResetTokenHash = ""
	u.ResetTokenExpiresAt = nil
}

// ResetTokenValid reports whether hash matches a reset token that has not expired.
func (u *User) ResetTokenValid(hash string, now time.Time) bool {
	return hash != "" && u.ResetTokenHash == hash &&
		u.ResetTokenExpiresAt != nil && now.Before(*u.ResetTokenExpiresAt)
}

// SetVerifyToken stores the hash of an email verification token.
func (u *User) SetVerifyToken(hash string, expiresAt time.Time) {
	u.VerifyTokenHash = hash
	u.VerifyTokenExpiresAt = &expiresAt
}

// ClearVerifyToken removes the email verification token.
func (u *User) ClearVerifyToken() {
	u.VerifyTokenHash = ""
	u.VerifyTokenExpiresAt = nil
}

// VerifyTokenValid reports whether hash matches an unexpired verification token.
func (u *User) VerifyTokenValid(hash string, now time.Time) bool {
	return hash != "" && u.VerifyTokenHash == hash &&
		u.VerifyTokenExpiresAt != nil && now.Before(*u.VerifyTokenExpiresAt)
}

// UserView is the public representation of a user. It never carries
// credentials or token hashes.
type UserView struct {
	ID            string      `json:"_id"`
	Name          string      `json:"nome"`
	Email         string      `json:"email"`
	Phone         string      `json:"telefone,omitempty"`
	Address       *Address    `json:"endereco,omitempty"`
	BirthDate     *time.Time  `json:"dataNascimento,omitempty"`
	Gender        Gender      `json:"genero,omitempty"`
	Avatar        string      `json:"avatar,omitempty"`
	Role          Role        `json:"role"`
	Active        bool        `json:"ativo"`
	EmailVerified bool        `json:"emailVerificado"`
	Preferences   Preferences `json:"preferencias"`
	LastLoginAt   *time.Time  `json:"ultimoLogin,omitempty"`
	CreatedAt     time.Time   `json:"criadoEm"`
	UpdatedAt     time.Time   `json:"atualizadoEm"`
}

// View returns the public representation of u.
func (u *User) View() UserView {
	return UserView{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Phone:         u.Phone,
		Address:       u.Address,
		BirthDate:     u.BirthDate,
		Gender:        u.Gender,
		Avatar:        u.Avatar,
		Role:          u.Role,
		Active:        u.Active,
		EmailVerified: u.EmailVerified,
		Preferences:   u.Preferences,
		LastLoginAt:   u.LastLoginAt,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

// ProfilePatch holds the self-service profile fields. Nil fields are left untouched.
type ProfilePatch struct {
	Name        *string
	Phone       *string
	Address     *Address
	BirthDate   *time.Time
	Gender      *Gender
	Avatar      *string
	Preferences *Preferences
}

// Apply merges the patch into u.
func (p ProfilePatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.Address != nil {
		u.Address = p.Address
	}
	if p.BirthDate != nil {
		u.BirthDate = p.BirthDate
	}
	if p.Gender != nil {
		u.Gender = *p.Gender
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
	if p.Preferences != nil {
		u.Preferences = *p.Preferences
	}
}

// AdminPatch extends ProfilePatch with the fields only admins may change.
type AdminPatch struct {
	ProfilePatch
	Email         *string
	Role          *Role
	Active        *bool
	EmailVerified *bool
}

// Apply merges the patch into u.
func (p AdminPatch) Apply(u *User) {
	p.ProfilePatch.Apply(u)
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.Active != nil {
		u.Active = *p.Active
	}
	if p.EmailVerified != nil {
		u.EmailVerified = *p.EmailVerified
	}
}
