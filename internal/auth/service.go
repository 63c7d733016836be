package auth

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/hongminglow/bank-ledger-be/internal/models"
	"github.com/hongminglow/bank-ledger-be/internal/storage"
)

var (
	// ErrInvalidCredentials covers both unknown identifiers and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
)

// UserFinder resolves users by identifier.
type UserFinder interface {
	GetUser(ctx context.Context, identifier string) (models.User, error)
}

// Service verifies credentials and session tokens.
type Service struct {
	users  UserFinder
	tokens *TokenManager
	// dummyHash is compared against when the identifier is unknown so both
	// failure paths cost one bcrypt comparison.
	dummyHash string
}

// NewService wires the service. cost is the bcrypt cost used for the timing decoy.
func NewService(users UserFinder, tokens *TokenManager, cost int) *Service {
	dummy, err := HashPassword("decoy-password-never-matches", cost)
	if err != nil {
		log.Printf("auth: build decoy hash: %v", err)
	}
	return &Service{users: users, tokens: tokens, dummyHash: dummy}
}

// Login checks identifier and password and issues a session token.
func (s *Service) Login(ctx context.Context, identifier, password string) (string, models.User, error) {
	user, err := s.users.GetUser(ctx, identifier)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			CheckPassword(password, s.dummyHash)
			return "", models.User{}, ErrInvalidCredentials
		}
		return "", models.User{}, fmt.Errorf("login: fetch user: %w", err)
	}
	if !CheckPassword(password, user.PasswordHash) {
		return "", models.User{}, ErrInvalidCredentials
	}
	token, err := s.tokens.Generate(user)
	if err != nil {
		return "", models.User{}, fmt.Errorf("login: generate token: %w", err)
	}
	return token, user, nil
}

// Authenticate verifies token and re-resolves its user, so deleted accounts
// and role changes take effect before the token expires.
func (s *Service) Authenticate(ctx context.Context, token string) (models.Principal, error) {
	if token == "" {
		return models.Principal{}, ErrUnauthorized
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return models.Principal{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	user, err := s.users.GetUser(ctx, claims.Identifier)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Principal{}, fmt.Errorf("%w: user no longer exists", ErrUnauthorized)
		}
		return models.Principal{}, fmt.Errorf("authenticate: fetch user: %w", err)
	}
	return models.Principal{Identifier: user.Identifier, Name: user.Name, Role: user.Role}, nil
}

// RequireRole fails with ErrForbidden unless p holds role.
func RequireRole(p models.Principal, role string) error {
	if p.Role != role {
		return ErrForbidden
	}
	return nil
}

// Tokens exposes the token manager, e.g. for cookie lifetimes.
func (s *Service) Tokens() *TokenManager {
	return s.tokens
}
