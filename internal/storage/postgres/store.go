package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hongminglow/bank-ledger-be/internal/models"
	"github.com/hongminglow/bank-ledger-be/internal/storage"
	"github.com/hongminglow/bank-ledger-be/internal/storage/migrate"
)

// Ensure Store satisfies the storage.Store interface at compile time.
var _ storage.Store = (*Store)(nil)

//go:embed migrations/*.sql
var migrationFS embed.FS

const uniqueViolation = "23505"

const userColumns = `id, identifier, name, password_hash, balance, account_number, role, created_at`

const transactionColumns = `id, user_identifier, type, title, amount, date, icon, created_at`

// Store provides Postgres-backed persistence for users and their ledgers.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to Postgres and applies pending migrations.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks that a pooled connection can reach the server.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	all, err := migrate.Load(migrationFS, "migrations")
	if err != nil {
		return err
	}
	const ensure = `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`
	if _, err := s.pool.Exec(ctx, ensure); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	rows, err := s.pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("read schema_migrations: %w", err)
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return fmt.Errorf("read schema_migrations: %w", err)
	}
	applied := make(map[int]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}

	for _, m := range migrate.Pending(all, applied) {
		err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.SQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %04d_%s: %w", m.Version, m.Name, err)
		}
	}
	return nil
}

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	query := `
		INSERT INTO users (identifier, name, password_hash, balance, account_number, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns
	row := s.pool.QueryRow(ctx, query, user.Identifier, user.Name, user.PasswordHash, toNumeric(user.Balance), user.AccountNumber, user.Role)
	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return models.User{}, storage.ErrAlreadyExists
		}
		return models.User{}, err
	}
	return created, nil
}

// GetUser fetches a user by identifier.
func (s *Store) GetUser(ctx context.Context, identifier string) (models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE identifier = $1`, identifier)
	return scanUser(row)
}

// ListUsers returns every user, newest first.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UpdateUser applies the fields present in patch.
func (s *Store) UpdateUser(ctx context.Context, identifier string, patch models.UserPatch) (models.User, error) {
	if patch.Empty() {
		return s.GetUser(ctx, identifier)
	}
	var sets []string
	var args []any
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Name != nil {
		set("name", *patch.Name)
	}
	if patch.PasswordHash != nil {
		set("password_hash", *patch.PasswordHash)
	}
	if patch.AccountNumber != nil {
		set("account_number", pgtype.Text{String: *patch.AccountNumber, Valid: *patch.AccountNumber != ""})
	}
	if patch.Role != nil {
		set("role", *patch.Role)
	}
	args = append(args, identifier)
	query := fmt.Sprintf(`UPDATE users SET %s WHERE identifier = $%d RETURNING %s`, strings.Join(sets, ", "), len(args), userColumns)
	return scanUser(s.pool.QueryRow(ctx, query, args...))
}

// DeleteUser removes the user's transactions and then the user in one transaction.
func (s *Store) DeleteUser(ctx context.Context, identifier string) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var id int64
		err := tx.QueryRow(ctx, `SELECT id FROM users WHERE identifier = $1 FOR UPDATE`, identifier).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM transactions WHERE user_identifier = $1`, identifier); err != nil {
			return fmt.Errorf("delete transactions: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
}

// HasAdmin reports whether any admin account exists.
func (s *Store) HasAdmin(ctx context.Context) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE role = $1)`, models.RoleAdmin).Scan(&exists)
	return exists, err
}

// Stats aggregates user and transaction counts.
func (s *Store) Stats(ctx context.Context) (models.Stats, error) {
	var stats models.Stats
	var total pgtype.Numeric
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(balance), 0) FROM users`).Scan(&stats.TotalUsers, &total); err != nil {
		return models.Stats{}, err
	}
	stats.TotalBalance = fromNumeric(total)
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&stats.TotalTransactions); err != nil {
		return models.Stats{}, err
	}
	return stats, nil
}

// ListTransactions returns the owner's ledger, most recent first.
func (s *Store) ListTransactions(ctx context.Context, identifier string) ([]models.Transaction, error) {
	return listTransactions(ctx, s.pool, identifier)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listTransactions(ctx context.Context, q querier, identifier string) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE user_identifier = $1
		ORDER BY date DESC, created_at DESC, id DESC`
	rows, err := q.Query(ctx, query, identifier)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txns := []models.Transaction{}
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	var balance pgtype.Numeric
	if err := row.Scan(&user.ID, &user.Identifier, &user.Name, &user.PasswordHash, &balance, &user.AccountNumber, &user.Role, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, err
	}
	user.Balance = fromNumeric(balance)
	return user, nil
}

func scanTransaction(row pgx.Row) (models.Transaction, error) {
	var txn models.Transaction
	var amount pgtype.Numeric
	if err := row.Scan(&txn.ID, &txn.UserIdentifier, &txn.Kind, &txn.Title, &amount, &txn.Date, &txn.Icon, &txn.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Transaction{}, storage.ErrNotFound
		}
		return models.Transaction{}, err
	}
	txn.Amount = fromNumeric(amount)
	return txn, nil
}

func toNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func fromNumeric(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
