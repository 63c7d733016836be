// Package ledger owns every write to an account's balance.
//
// The balance column is a cached aggregate of the transaction ledger. Each
// mutation inserts or deletes a ledger row and rewrites the balance inside one
// storage unit of work, so the two never disagree: balance equals the sum of
// income amounts minus the sum of expense amounts.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hongminglow/bank-ledger-be/internal/events"
	"github.com/hongminglow/bank-ledger-be/internal/models"
	modelevents "github.com/hongminglow/bank-ledger-be/internal/models/events"
	"github.com/hongminglow/bank-ledger-be/internal/storage"
)

// ErrValidation wraps every input rejection.
var ErrValidation = errors.New("invalid transaction")

const maxTitleLength = 120

// Store is the persistence the ledger needs.
type Store interface {
	storage.LedgerStore
	GetUser(ctx context.Context, identifier string) (models.User, error)
}

// Entry describes a transaction to record.
type Entry struct {
	Kind   string
	Title  string
	Amount decimal.Decimal
	// Date is YYYY-MM-DD or DD/MM/YYYY; empty means today.
	Date string
	Icon string
}

// Ledger applies transaction mutations against account balances.
type Ledger struct {
	store     Store
	publisher events.Publisher
	now       func() time.Time

	locks map[string]*ownerLock
	mapMu sync.Mutex
}

// ownerLock is shared by the writers of one account. refs counts holders and
// waiters; the entry is dropped when it reaches zero.
type ownerLock struct {
	mu   sync.Mutex
	refs int
}

// New builds a Ledger. A nil publisher disables events.
func New(store Store, publisher events.Publisher) *Ledger {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Ledger{
		store:     store,
		publisher: publisher,
		now:       time.Now,
		locks:     make(map[string]*ownerLock),
	}
}

// lockOwner serializes writers for one account inside this process and
// returns the matching unlock. The store's row lock covers writers in other
// processes.
func (l *Ledger) lockOwner(identifier string) (unlock func()) {
	l.mapMu.Lock()
	lock, ok := l.locks[identifier]
	if !ok {
		lock = &ownerLock{}
		l.locks[identifier] = lock
	}
	lock.refs++
	l.mapMu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()

		l.mapMu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, identifier)
		}
		l.mapMu.Unlock()
	}
}

// RecordTransaction inserts the entry and moves the owner's balance by its
// signed amount. It returns the stored transaction and the updated owner.
func (l *Ledger) RecordTransaction(ctx context.Context, owner string, entry Entry) (models.Transaction, models.User, error) {
	txn, err := l.normalize(entry)
	if err != nil {
		return models.Transaction{}, models.User{}, err
	}

	defer l.lockOwner(owner)()

	var created models.Transaction
	var updated models.User
	err = l.store.WithOwner(ctx, owner, func(tx storage.LedgerTx) error {
		inserted, err := tx.InsertTransaction(ctx, txn)
		if err != nil {
			return err
		}
		if err := tx.SetBalance(ctx, tx.Owner().Balance.Add(inserted.Signed())); err != nil {
			return err
		}
		created, updated = inserted, tx.Owner()
		return nil
	})
	if err != nil {
		return models.Transaction{}, models.User{}, fmt.Errorf("record transaction: %w", err)
	}

	l.publish(ctx, modelevents.TypeTransactionRecorded, created, updated.Balance)
	return created, updated, nil
}

// DeleteTransaction removes transaction id from owner's ledger and reverses
// its effect on the balance. A transaction that does not belong to owner is
// reported as storage.ErrNotFound.
func (l *Ledger) DeleteTransaction(ctx context.Context, id int64, owner string) (models.User, error) {
	defer l.lockOwner(owner)()

	var removed models.Transaction
	var updated models.User
	err := l.store.WithOwner(ctx, owner, func(tx storage.LedgerTx) error {
		txn, err := tx.FindTransaction(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.SetBalance(ctx, tx.Owner().Balance.Sub(txn.Signed())); err != nil {
			return err
		}
		if err := tx.DeleteTransaction(ctx, id); err != nil {
			return err
		}
		removed, updated = txn, tx.Owner()
		return nil
	})
	if err != nil {
		return models.User{}, fmt.Errorf("delete transaction %d: %w", id, err)
	}

	l.publish(ctx, modelevents.TypeTransactionDeleted, removed, updated.Balance)
	return updated, nil
}

// Balance returns the owner's cached balance.
func (l *Ledger) Balance(ctx context.Context, owner string) (decimal.Decimal, error) {
	user, err := l.store.GetUser(ctx, owner)
	if err != nil {
		return decimal.Zero, err
	}
	return user.Balance, nil
}

// ListTransactions returns the owner's ledger, most recent first.
func (l *Ledger) ListTransactions(ctx context.Context, owner string) ([]models.Transaction, error) {
	if _, err := l.store.GetUser(ctx, owner); err != nil {
		return nil, err
	}
	return l.store.ListTransactions(ctx, owner)
}

// Reconcile recomputes the owner's balance from the ledger and stores it.
// It returns the balance found before and the recomputed one.
func (l *Ledger) Reconcile(ctx context.Context, owner string) (previous, current decimal.Decimal, err error) {
	defer l.lockOwner(owner)()

	err = l.store.WithOwner(ctx, owner, func(tx storage.LedgerTx) error {
		txns, err := tx.Transactions(ctx)
		if err != nil {
			return err
		}
		previous, current = tx.Owner().Balance, Sum(txns)
		if previous.Equal(current) {
			return nil
		}
		return tx.SetBalance(ctx, current)
	})
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("reconcile: %w", err)
	}
	if !previous.Equal(current) {
		log.Printf("ledger: reconciled %s balance %s -> %s", owner, previous, current)
	}
	return previous, current, nil
}

// Sum is the signed total of txns.
func Sum(txns []models.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, txn := range txns {
		total = total.Add(txn.Signed())
	}
	return total
}

// Validate reports whether entry would be accepted by RecordTransaction,
// without touching the store.
func (l *Ledger) Validate(entry Entry) error {
	_, err := l.normalize(entry)
	return err
}

func (l *Ledger) normalize(entry Entry) (models.Transaction, error) {
	kind := strings.ToLower(strings.TrimSpace(entry.Kind))
	if !models.ValidKind(kind) {
		return models.Transaction{}, fmt.Errorf("%w: type must be income or expense", ErrValidation)
	}
	title := strings.TrimSpace(entry.Title)
	if title == "" {
		return models.Transaction{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return models.Transaction{}, fmt.Errorf("%w: title must be at most %d characters", ErrValidation, maxTitleLength)
	}
	amount := entry.Amount.Round(2)
	if !amount.IsPositive() {
		return models.Transaction{}, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	date := models.FormatDate(l.now())
	if strings.TrimSpace(entry.Date) != "" {
		parsed, err := models.ParseDate(entry.Date)
		if err != nil {
			return models.Transaction{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		date = parsed
	}
	icon := strings.TrimSpace(entry.Icon)
	if icon == "" {
		icon = models.DefaultIcon
	}
	return models.Transaction{Kind: kind, Title: title, Amount: amount, Date: date, Icon: icon}, nil
}

func (l *Ledger) publish(ctx context.Context, eventType string, txn models.Transaction, balance decimal.Decimal) {
	event := modelevents.TransactionEvent{
		ID:             uuid.NewString(),
		Type:           eventType,
		TransactionID:  txn.ID,
		UserIdentifier: txn.UserIdentifier,
		Kind:           txn.Kind,
		Amount:         txn.Amount,
		Balance:        balance,
		OccurredAt:     l.now().UTC(),
	}
	if err := l.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		log.Printf("ledger: publish %s for transaction %d: %v", eventType, txn.ID, err)
	}
}
