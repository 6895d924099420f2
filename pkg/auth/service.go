package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Common errors for token operations.
var (
	ErrMissingToken       = errors.New("missing bearer token")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token has expired")
	ErrInvalidTokenType   = errors.New("invalid token type")
	ErrTokenSigningFailed = errors.New("failed to sign token")
)

// TokenType distinguishes access tokens from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the verified contents of a token. Subject lives in the
// embedded RegisteredClaims.
type Claims struct {
	jwt.RegisteredClaims

	// Name is the human-readable display name, if any.
	Name string `json:"name,omitempty"`

	// Roles grants access to role-guarded route groups.
	Roles []string `json:"roles,omitempty"`

	// TokenType marks the token as access or refresh.
	TokenType TokenType `json:"token_type"`
}

// IsAccessToken returns true for access tokens.
func (c *Claims) IsAccessToken() bool {
	return c.TokenType == TokenTypeAccess
}

// IsRefreshToken returns true for refresh tokens.
func (c *Claims) IsRefreshToken() bool {
	return c.TokenType == TokenTypeRefresh
}

// Principal converts the claims into the request principal handed to
// handlers.
func (c *Claims) Principal() *Principal {
	return &Principal{
		Subject: c.Subject,
		Name:    c.Name,
		Roles:   c.Roles,
	}
}

// Identity describes who a token is minted for.
type Identity struct {
	Subject string
	Name    string
	Roles   []string
}

// TokenPair contains both access and refresh tokens.
type TokenPair struct {
	// AccessToken is the short-lived token for API authorization.
	AccessToken string `json:"access_token"`

	// RefreshToken is the long-lived token for obtaining new access tokens.
	RefreshToken string `json:"refresh_token"`

	// TokenType is always "Bearer".
	TokenType string `json:"token_type"`

	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64 `json:"expires_in"`

	// ExpiresAt is the access token expiration time.
	ExpiresAt time.Time `json:"expires_at"`
}

// Service issues and validates HS256-signed tokens.
type Service struct {
	config Config
}

// New creates a token service with the given configuration.
func New(config Config) (*Service, error) {
	if len(config.Secret) < MinSecretLength {
		return nil, ErrInvalidSecretLength
	}
	config.ApplyDefaults()
	return &Service{config: config}, nil
}

// Issue mints a single access token for the identity with a custom
// lifetime. A non-positive ttl falls back to the configured TokenDuration.
func (s *Service) Issue(id Identity, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.config.TokenDuration
	}
	now := time.Now()
	return s.signToken(id, TokenTypeAccess, now, now.Add(ttl))
}

// IssuePair mints a fresh access/refresh token pair for the identity.
func (s *Service) IssuePair(id Identity) (*TokenPair, error) {
	now := time.Now()
	accessExpiry := now.Add(s.config.TokenDuration)
	refreshExpiry := now.Add(s.config.RefreshTokenDuration)

	accessToken, err := s.signToken(id, TokenTypeAccess, now, accessExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.signToken(id, TokenTypeRefresh, now, refreshExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.config.TokenDuration.Seconds()),
		ExpiresAt:    accessExpiry,
	}, nil
}

// signToken creates a single signed token.
func (s *Service) signToken(id Identity, tokenType TokenType, issuedAt, expiresAt time.Time) (string, error) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   id.Subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Name:      id.Name,
		Roles:     id.Roles,
		TokenType: tokenType,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", ErrTokenSigningFailed
	}

	return signedToken, nil
}

// Validate checks a token's signature, expiry, and issuer and returns its
// claims. Expired tokens surface ErrExpiredToken; any other failure
// collapses into ErrInvalidToken so callers cannot probe for details.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithIssuer(s.config.Issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// ValidateAccess validates a token and ensures it is an access token.
func (s *Service) ValidateAccess(tokenString string) (*Claims, error) {
	claims, err := s.Validate(tokenString)
	if err != nil {
		return nil, err
	}

	if !claims.IsAccessToken() {
		return nil, ErrInvalidTokenType
	}

	return claims, nil
}

// ValidateRefresh validates a token and ensures it is a refresh token.
func (s *Service) ValidateRefresh(tokenString string) (*Claims, error) {
	claims, err := s.Validate(tokenString)
	if err != nil {
		return nil, err
	}

	if !claims.IsRefreshToken() {
		return nil, ErrInvalidTokenType
	}

	return claims, nil
}

// TokenDuration returns the configured access token duration.
func (s *Service) TokenDuration() time.Duration {
	return s.config.TokenDuration
}
