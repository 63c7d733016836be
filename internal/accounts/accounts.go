// Package accounts manages user records: creation with hashed passwords,
// partial updates, cascading deletes and first-run admin provisioning.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/hongminglow/bank-ledger-be/internal/auth"
	"github.com/hongminglow/bank-ledger-be/internal/ledger"
	"github.com/hongminglow/bank-ledger-be/internal/models"
	"github.com/hongminglow/bank-ledger-be/internal/storage"
)

// ErrValidation wraps every input rejection.
var ErrValidation = errors.New("invalid user")

const (
	minPasswordLength = 8
	// bcrypt only accepts inputs up to 72 bytes.
	maxPasswordBytes = 72
	maxNameLength     = 120
	openingTitle      = "Opening balance"
)

// Booker records ledger transactions.
type Booker interface {
	Validate(entry ledger.Entry) error
	RecordTransaction(ctx context.Context, owner string, entry ledger.Entry) (models.Transaction, models.User, error)
}

// NewUser is the input for Create.
type NewUser struct {
	Identifier     string
	Name           string
	Password       string
	AccountNumber  *string
	Role           string
	InitialBalance decimal.Decimal
}

// Changes is the input for Update. Nil fields are left untouched.
type Changes struct {
	Name          *string
	Password      *string
	AccountNumber *string
	Role          *string
}

// Service wraps a storage.UserStore with validation and hashing.
type Service struct {
	store      storage.UserStore
	ledger     Booker
	bcryptCost int
}

func NewService(store storage.UserStore, ledger Booker, bcryptCost int) *Service {
	return &Service{store: store, ledger: ledger, bcryptCost: bcryptCost}
}

// Create validates in, hashes the password and inserts the user. A non-zero
// InitialBalance is booked as an opening transaction so the balance stays
// backed by the ledger. If booking fails the user is removed again.
func (s *Service) Create(ctx context.Context, in NewUser) (models.User, error) {
	identifier := models.NormalizeIdentifier(in.Identifier)
	if identifier == "" {
		return models.User{}, fmt.Errorf("%w: identifier is required", ErrValidation)
	}
	name, err := validName(in.Name)
	if err != nil {
		return models.User{}, err
	}
	if err := validPassword(in.Password); err != nil {
		return models.User{}, err
	}
	role := strings.TrimSpace(in.Role)
	if role == "" {
		role = models.RoleUser
	}
	if !models.ValidRole(role) {
		return models.User{}, fmt.Errorf("%w: role must be user or admin", ErrValidation)
	}
	opening, book := openingEntry(in.InitialBalance)
	if book {
		if err := s.ledger.Validate(opening); err != nil {
			return models.User{}, fmt.Errorf("%w: initial_balance: %v", ErrValidation, err)
		}
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.store.CreateUser(ctx, models.User{
		Identifier:    identifier,
		Name:          name,
		PasswordHash:  hash,
		Balance:       decimal.Zero,
		AccountNumber: trimmed(in.AccountNumber),
		Role:          role,
	})
	if err != nil {
		return models.User{}, fmt.Errorf("create user: %w", err)
	}

	if !book {
		return user, nil
	}
	_, booked, err := s.ledger.RecordTransaction(ctx, identifier, opening)
	if err != nil {
		if delErr := s.store.DeleteUser(context.WithoutCancel(ctx), identifier); delErr != nil {
			log.Printf("accounts: remove %s after failed opening balance: %v", identifier, delErr)
		}
		return models.User{}, fmt.Errorf("book opening balance: %w", err)
	}
	return booked, nil
}

// openingEntry returns the ledger entry for a starting balance, and false
// when there is nothing to book.
func openingEntry(balance decimal.Decimal) (ledger.Entry, bool) {
	if balance.IsZero() {
		return ledger.Entry{}, false
	}
	kind := models.KindIncome
	if balance.IsNegative() {
		kind = models.KindExpense
	}
	return ledger.Entry{Kind: kind, Title: openingTitle, Amount: balance.Abs()}, true
}

func (s *Service) Get(ctx context.Context, identifier string) (models.User, error) {
	return s.store.GetUser(ctx, models.NormalizeIdentifier(identifier))
}

func (s *Service) List(ctx context.Context) ([]models.User, error) {
	return s.store.ListUsers(ctx)
}

// Update applies the fields present in c, re-hashing a new password.
func (s *Service) Update(ctx context.Context, identifier string, c Changes) (models.User, error) {
	var patch models.UserPatch
	if c.Name != nil {
		name, err := validName(*c.Name)
		if err != nil {
			return models.User{}, err
		}
		patch.Name = &name
	}
	if c.Password != nil {
		if err := validPassword(*c.Password); err != nil {
			return models.User{}, err
		}
		hash, err := auth.HashPassword(*c.Password, s.bcryptCost)
		if err != nil {
			return models.User{}, fmt.Errorf("hash password: %w", err)
		}
		patch.PasswordHash = &hash
	}
	if c.AccountNumber != nil {
		// A blank value clears the account number.
		account := ""
		if v := trimmed(c.AccountNumber); v != nil {
			account = *v
		}
		patch.AccountNumber = &account
	}
	if c.Role != nil {
		role := strings.TrimSpace(*c.Role)
		if !models.ValidRole(role) {
			return models.User{}, fmt.Errorf("%w: role must be user or admin", ErrValidation)
		}
		patch.Role = &role
	}
	user, err := s.store.UpdateUser(ctx, models.NormalizeIdentifier(identifier), patch)
	if err != nil {
		return models.User{}, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// Delete removes the user and their ledger.
func (s *Service) Delete(ctx context.Context, identifier string) error {
	if err := s.store.DeleteUser(ctx, models.NormalizeIdentifier(identifier)); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (s *Service) Stats(ctx context.Context) (models.Stats, error) {
	return s.store.Stats(ctx)
}

// AdminSeed holds first-run admin credentials from configuration.
type AdminSeed struct {
	Identifier string
	Name       string
	Password   string
}

// EnsureAdmin creates the configured admin when no admin account exists yet.
// It reports whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, seed AdminSeed) (bool, error) {
	exists, err := s.store.HasAdmin(ctx)
	if err != nil {
		return false, fmt.Errorf("check admin: %w", err)
	}
	if exists {
		return false, nil
	}
	if strings.TrimSpace(seed.Identifier) == "" || seed.Password == "" {
		log.Println("accounts: no admin account exists and ADMIN_IDENTIFIER/ADMIN_PASSWORD are unset; admin endpoints are unreachable")
		return false, nil
	}
	name := seed.Name
	if strings.TrimSpace(name) == "" {
		name = "Admin"
	}
	user, err := s.Create(ctx, NewUser{
		Identifier: seed.Identifier,
		Name:       name,
		Password:   seed.Password,
		Role:       models.RoleAdmin,
	})
	if err != nil {
		return false, fmt.Errorf("provision admin: %w", err)
	}
	log.Printf("accounts: provisioned admin account %s", user.Identifier)
	return true, nil
}

func validName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrValidation)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", fmt.Errorf("%w: name must be at most %d characters", ErrValidation, maxNameLength)
	}
	return name, nil
}

func validPassword(password string) error {
	if utf8.RuneCountInString(strings.TrimSpace(password)) < minPasswordLength || !utf8.ValidString(password) {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrValidation, maxPasswordBytes)
	}
	return nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
