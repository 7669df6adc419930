package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("segredo123")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))
	assert.True(t, VerifyPassword(hash, "segredo123"))
	assert.False(t, VerifyPassword(hash, "segredo124"))
	assert.False(t, NeedsRehash(hash))
}

func TestHashPassword_Salted(t *testing.T) {
	a, err := HashPassword("mesma-senha")
	require.NoError(t, err)
	b, err := HashPassword("mesma-senha")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestHashPassword_RejectsBadInput(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)

	_, err = HashPassword(strings.Repeat("x", maxPasswordLength+1))
	assert.Error(t, err)
}

func TestVerifyPassword_LegacyBcrypt(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("senha-antiga"), bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, VerifyPassword(string(legacy), "senha-antiga"))
	assert.False(t, VerifyPassword(string(legacy), "outra"))
	assert.True(t, NeedsRehash(string(legacy)))
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	assert.False(t, VerifyPassword("not-a-hash", "anything"))
	assert.False(t, VerifyPassword("$argon2id$v=19$m=1,t=1,p=1$!!$!!", "anything"))
	assert.True(t, NeedsRehash("not-a-hash"))
}
