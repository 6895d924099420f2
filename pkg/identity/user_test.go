package identity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRoleIsValid(t *testing.T) {
	assert.True(t, RoleUser.IsValid())
	assert.True(t, RoleAdmin.IsValid())
	assert.False(t, UserRole("superuser").IsValid())
	assert.False(t, UserRole("").IsValid())
}

func TestUserValidate(t *testing.T) {
	tests := []struct {
		name    string
		user    User
		wantErr bool
	}{
		{name: "valid user", user: User{Username: "alice", Role: "user"}},
		{name: "valid admin", user: User{Username: "root", Role: "admin"}},
		{name: "empty role is allowed", user: User{Username: "bob"}},
		{name: "missing username", user: User{Role: "user"}, wantErr: true},
		{name: "invalid role", user: User{Username: "eve", Role: "wizard"}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.user.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUserIsAdmin(t *testing.T) {
	assert.True(t, (&User{Role: "admin"}).IsAdmin())
	assert.False(t, (&User{Role: "user"}).IsAdmin())
	assert.Equal(t, RoleAdmin, (&User{Role: "admin"}).GetRole())
}

func TestDefaultAdminUser(t *testing.T) {
	admin := DefaultAdminUser("some-hash")

	assert.Equal(t, AdminUsername, admin.Username)
	assert.Equal(t, string(RoleAdmin), admin.Role)
	assert.Equal(t, "some-hash", admin.PasswordHash)
	assert.False(t, admin.Disabled)

	_, err := uuid.Parse(admin.ID)
	require.NoError(t, err)
}

func TestIsAdminUsername(t *testing.T) {
	assert.True(t, IsAdminUsername("admin"))
	assert.False(t, IsAdminUsername("Administrator"))
	assert.False(t, IsAdminUsername(""))
}
