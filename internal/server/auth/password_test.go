package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("Secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "Secret123", hash)

	ok, err := CheckPassword(hash, "Secret123")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword(hash, "secret123")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckPassword_MalformedHash(t *testing.T) {
	ok, err := CheckPassword("not-a-bcrypt-hash", "x")
	assert.Error(t, err)
	assert.False(t, ok)
}
