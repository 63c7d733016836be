package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hongminglow/bank-ledger-be/internal/models"
	"github.com/hongminglow/bank-ledger-be/internal/storage"
)

// Compile-time check: ensure Store implements storage.Store.
var _ storage.Store = (*Store)(nil)

// Store keeps users and transactions in process memory. A single mutex
// serializes every operation; WithOwner snapshots state so a failed unit of
// work leaves nothing behind.
type Store struct {
	mu         sync.Mutex
	users      map[string]models.User
	txns       map[int64]models.Transaction
	nextUserID int64
	nextTxnID  int64
	now        func() time.Time
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		users: make(map[string]models.User),
		txns:  make(map[int64]models.Transaction),
		now:   time.Now,
	}
}

// Close is a no-op.
func (s *Store) Close() {}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) CreateUser(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.Identifier]; exists {
		return models.User{}, storage.ErrAlreadyExists
	}
	s.nextUserID++
	user.ID = s.nextUserID
	user.CreatedAt = s.now()
	s.users[user.Identifier] = user
	return user, nil
}

func (s *Store) GetUser(_ context.Context, identifier string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[identifier]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return user, nil
}

func (s *Store) ListUsers(_ context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := slices.Collect(maps.Values(s.users))
	slices.SortFunc(users, func(a, b models.User) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return users, nil
}

func (s *Store) UpdateUser(_ context.Context, identifier string, patch models.UserPatch) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[identifier]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	if patch.Name != nil {
		user.Name = *patch.Name
	}
	if patch.PasswordHash != nil {
		user.PasswordHash = *patch.PasswordHash
	}
	if patch.AccountNumber != nil {
		user.AccountNumber = nil
		if account := *patch.AccountNumber; account != "" {
			user.AccountNumber = &account
		}
	}
	if patch.Role != nil {
		user.Role = *patch.Role
	}
	s.users[identifier] = user
	return user, nil
}

func (s *Store) DeleteUser(_ context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[identifier]; !ok {
		return storage.ErrNotFound
	}
	maps.DeleteFunc(s.txns, func(_ int64, txn models.Transaction) bool {
		return txn.UserIdentifier == identifier
	})
	delete(s.users, identifier)
	return nil
}

func (s *Store) HasAdmin(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Role == models.RoleAdmin {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) Stats(_ context.Context) (models.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := models.Stats{
		TotalUsers:        int64(len(s.users)),
		TotalBalance:      decimal.Zero,
		TotalTransactions: int64(len(s.txns)),
	}
	for _, user := range s.users {
		stats.TotalBalance = stats.TotalBalance.Add(user.Balance)
	}
	return stats, nil
}

func (s *Store) ListTransactions(_ context.Context, identifier string) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ownerTransactions(identifier), nil
}

func (s *Store) WithOwner(ctx context.Context, identifier string, fn func(storage.LedgerTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.users[identifier]
	if !ok {
		return storage.ErrNotFound
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	users, txns, nextTxnID := maps.Clone(s.users), maps.Clone(s.txns), s.nextTxnID
	if err := fn(&ledgerTx{store: s, owner: owner}); err != nil {
		s.users, s.txns, s.nextTxnID = users, txns, nextTxnID
		return err
	}
	return nil
}

// ownerTransactions must be called with s.mu held.
func (s *Store) ownerTransactions(identifier string) []models.Transaction {
	out := []models.Transaction{}
	for _, txn := range s.txns {
		if txn.UserIdentifier == identifier {
			out = append(out, txn)
		}
	}
	slices.SortFunc(out, func(a, b models.Transaction) int {
		if c := cmp.Compare(b.Date, a.Date); c != 0 {
			return c
		}
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out
}

// ledgerTx runs while its store's mutex is held by WithOwner.
type ledgerTx struct {
	store *Store
	owner models.User
}

func (l *ledgerTx) Owner() models.User {
	return l.owner
}

func (l *ledgerTx) InsertTransaction(_ context.Context, txn models.Transaction) (models.Transaction, error) {
	l.store.nextTxnID++
	txn.ID = l.store.nextTxnID
	txn.UserIdentifier = l.owner.Identifier
	txn.CreatedAt = l.store.now()
	l.store.txns[txn.ID] = txn
	return txn, nil
}

func (l *ledgerTx) FindTransaction(_ context.Context, id int64) (models.Transaction, error) {
	txn, ok := l.store.txns[id]
	if !ok || txn.UserIdentifier != l.owner.Identifier {
		return models.Transaction{}, storage.ErrNotFound
	}
	return txn, nil
}

func (l *ledgerTx) DeleteTransaction(ctx context.Context, id int64) error {
	if _, err := l.FindTransaction(ctx, id); err != nil {
		return err
	}
	delete(l.store.txns, id)
	return nil
}

func (l *ledgerTx) Transactions(_ context.Context) ([]models.Transaction, error) {
	return l.store.ownerTransactions(l.owner.Identifier), nil
}

func (l *ledgerTx) SetBalance(_ context.Context, balance decimal.Decimal) error {
	l.owner.Balance = balance
	l.store.users[l.owner.Identifier] = l.owner
	return nil
}
