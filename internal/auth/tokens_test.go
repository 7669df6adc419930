package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livraria/livraria-api/internal/domain"
)

var testSecret = []byte("test-secret-key-for-testing-only-32b")

func testUser() *domain.User {
	return &domain.User{
		Document: domain.Document{ID: "507f1f77bcf86cd799439011"},
		Name:     "Ana",
		Email:    "ana@livraria.com",
		Role:     domain.RoleAdmin,
		Active:   true,
	}
}

func TestNewTokenService_Validation(t *testing.T) {
	_, err := NewTokenService([]byte("short"), "livraria-api", time.Hour)
	assert.Error(t, err)

	_, err = NewTokenService(testSecret, "livraria-api", 0)
	assert.Error(t, err)
}

func TestTokenService_RoundTrip(t *testing.T) {
	svc, err := NewTokenService(testSecret, "livraria-api", 7*24*time.Hour)
	require.NoError(t, err)

	token, expiresAt, err := svc.GenerateAccessToken(testUser())
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), expiresAt, time.Minute)

	claims, err := svc.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "507f1f77bcf86cd799439011", claims.UserID)
	assert.Equal(t, "ana@livraria.com", claims.Email)
	assert.Equal(t, "Ana", claims.Name)
	assert.Equal(t, "admin", claims.Role)
	assert.True(t, strings.HasPrefix(claims.ID, "tok-"))
}

func TestTokenService_Expired(t *testing.T) {
	svc, err := NewTokenService(testSecret, "livraria-api", time.Minute)
	require.NoError(t, err)
	issued := time.Now().Add(-time.Hour)
	svc.now = func() time.Time { return issued }

	token, _, err := svc.GenerateAccessToken(testUser())
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.VerifyAccessToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenService_WrongSecret(t *testing.T) {
	issuer, err := NewTokenService(testSecret, "livraria-api", time.Hour)
	require.NoError(t, err)
	verifier, err := NewTokenService([]byte("another-secret-another-secret-!!"), "livraria-api", time.Hour)
	require.NoError(t, err)

	token, _, err := issuer.GenerateAccessToken(testUser())
	require.NoError(t, err)

	_, err = verifier.VerifyAccessToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenService_WrongIssuer(t *testing.T) {
	issuer, err := NewTokenService(testSecret, "someone-else", time.Hour)
	require.NoError(t, err)
	verifier, err := NewTokenService(testSecret, "livraria-api", time.Hour)
	require.NoError(t, err)

	token, _, err := issuer.GenerateAccessToken(testUser())
	require.NoError(t, err)

	_, err = verifier.VerifyAccessToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenService_RejectsOtherAlgorithms(t *testing.T) {
	svc, err := NewTokenService(testSecret, "livraria-api", time.Hour)
	require.NoError(t, err)

	claims := Claims{UserID: "x", RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "livraria-api",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken(unsigned)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenService_Garbage(t *testing.T) {
	svc, err := NewTokenService(testSecret, "livraria-api", time.Hour)
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken("not.a.jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestGenerateOpaqueToken(t *testing.T) {
	token, hash, err := GenerateOpaqueToken()
	require.NoError(t, err)

	assert.Len(t, token, 64)
	assert.Len(t, hash, 64)
	assert.NotEqual(t, token, hash)
	assert.Equal(t, hash, HashOpaqueToken(token))

	other, _, err := GenerateOpaqueToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}
