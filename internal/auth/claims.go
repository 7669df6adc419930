package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the claims carried by an access token.
// JWTs are signed, not encrypted: nothing secret goes in here.
type Claims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"nome"`
	Role   string `json:"role"`

	jwt.RegisteredClaims
}
