package identity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// GetUser retrieves a user by username.
func (s *Store) GetUser(ctx context.Context, username string) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, convertNotFoundError(err, ErrUserNotFound)
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID.
func (s *Store) GetUserByID(ctx context.Context, id string) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, convertNotFoundError(err, ErrUserNotFound)
	}
	return &user, nil
}

// ListUsers returns all users ordered by username.
func (s *Store) ListUsers(ctx context.Context) ([]*User, error) {
	var users []*User
	if err := s.db.WithContext(ctx).Order("username").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// CreateUser persists a new user, generating a UUID if the ID is unset.
// Returns the user ID, or ErrDuplicateUser if the username is taken.
func (s *Store) CreateUser(ctx context.Context, user *User) (string, error) {
	if err := user.Validate(); err != nil {
		return "", err
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = string(RoleUser)
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return "", ErrDuplicateUser
		}
		return "", err
	}
	return user.ID, nil
}

// UpdateUser updates the mutable fields of an existing user.
// The password hash is updated separately via UpdatePassword.
func (s *Store) UpdateUser(ctx context.Context, user *User) error {
	if err := user.Validate(); err != nil {
		return err
	}

	var existing User
	if err := s.db.WithContext(ctx).Where("id = ?", user.ID).First(&existing).Error; err != nil {
		return convertNotFoundError(err, ErrUserNotFound)
	}

	// Select forces the update to include zero values like Disabled=false.
	return s.db.WithContext(ctx).
		Model(&existing).
		Select("Username", "Role", "Disabled").
		Updates(user).Error
}

// DeleteUser removes a user by username.
func (s *Store) DeleteUser(ctx context.Context, username string) error {
	result := s.db.WithContext(ctx).Where("username = ?", username).Delete(&User{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdatePassword replaces a user's password hash.
func (s *Store) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	result := s.db.WithContext(ctx).
		Model(&User{}).
		Where("username = ?", username).
		Update("password_hash", passwordHash)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateLastLogin records the time of a successful login.
func (s *Store) UpdateLastLogin(ctx context.Context, username string, timestamp time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&User{}).
		Where("username = ?", username).
		Update("last_login", timestamp)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Authenticate validates a username/password pair.
//
// Unknown usernames return ErrInvalidCredentials rather than ErrUserNotFound
// to prevent user enumeration. Disabled accounts return ErrUserDisabled.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if user.Disabled {
		return nil, ErrUserDisabled
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// EnsureAdmin creates the admin user on first run and returns its initial
// password. Returns an empty password when the admin already exists.
//
// The password comes from GANTRY_ADMIN_INITIAL_PASSWORD when set, otherwise
// a random one is generated. The caller is responsible for surfacing the
// generated password to the operator; it is never logged here.
func (s *Store) EnsureAdmin(ctx context.Context) (string, error) {
	_, err := s.GetUser(ctx, AdminUsername)
	if err == nil {
		return "", nil // Admin already exists
	}
	if !errors.Is(err, ErrUserNotFound) {
		return "", err
	}

	password, err := GetOrGenerateAdminPassword()
	if err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	admin := DefaultAdminUser(passwordHash)
	if _, err := s.CreateUser(ctx, admin); err != nil {
		return "", fmt.Errorf("failed to create admin user: %w", err)
	}

	// Only report the password when it was generated here. An operator who
	// set it through the environment already knows it.
	if os.Getenv(EnvAdminInitialPassword) != "" {
		return "", nil
	}
	return password, nil
}
