package identity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("test-password-123")
	require.NoError(t, err)

	// bcrypt hashes start with $2a$ or $2b$
	if !strings.HasPrefix(hash, "$2a$") && !strings.HasPrefix(hash, "$2b$") {
		t.Errorf("HashPassword() hash = %q, want bcrypt format", hash)
	}

	assert.True(t, VerifyPassword("test-password-123", hash))
	assert.False(t, VerifyPassword("wrong-password", hash))
}

func TestHashPasswordDifferentHashes(t *testing.T) {
	hash1, err := HashPassword("same-password")
	require.NoError(t, err)
	hash2, err := HashPassword("same-password")
	require.NoError(t, err)

	// The random salt makes every hash unique
	assert.NotEqual(t, hash1, hash2)
	assert.True(t, VerifyPassword("same-password", hash1))
	assert.True(t, VerifyPassword("same-password", hash2))
}

func TestHashPasswordLengthRules(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	_, err = HashPassword(strings.Repeat("x", MaxPasswordLength+1))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	_, err = HashPassword(strings.Repeat("x", MaxPasswordLength))
	assert.NoError(t, err)
}

func TestHashPasswordWithCost(t *testing.T) {
	// Minimum cost keeps the test fast
	hash, err := HashPasswordWithCost("test-password-123", 4)
	require.NoError(t, err)

	assert.True(t, VerifyPassword("test-password-123", hash))
	assert.True(t, NeedsRehash(hash), "hash below default cost should need rehash")
}

func TestVerifyPasswordInvalidHash(t *testing.T) {
	assert.False(t, VerifyPassword("password123", "not-a-valid-hash"))
	assert.False(t, VerifyPassword("password123", ""))
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{name: "valid", password: "password123", wantErr: nil},
		{name: "exactly minimum", password: strings.Repeat("a", MinPasswordLength), wantErr: nil},
		{name: "exactly maximum", password: strings.Repeat("a", MaxPasswordLength), wantErr: nil},
		{name: "too short", password: "1234567", wantErr: ErrPasswordTooShort},
		{name: "empty", password: "", wantErr: ErrPasswordTooShort},
		{name: "too long", password: strings.Repeat("a", MaxPasswordLength+1), wantErr: ErrPasswordTooLong},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePassword(tc.password)
			if tc.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}

func TestNeedsRehash(t *testing.T) {
	hash, err := HashPassword("test-password-123")
	require.NoError(t, err)

	assert.False(t, NeedsRehash(hash))
	assert.True(t, NeedsRehash("garbage"))
}

func TestGenerateRandomPassword(t *testing.T) {
	pw1, err := GenerateRandomPassword()
	require.NoError(t, err)
	pw2, err := GenerateRandomPassword()
	require.NoError(t, err)

	assert.Len(t, pw1, 24)
	assert.NotEqual(t, pw1, pw2)
	assert.NoError(t, ValidatePassword(pw1))
}
