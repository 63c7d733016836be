// Package sqlite is a gorm-backed storage.Store on a single SQLite file.
//
// The pool is capped at one connection, so every unit of work runs alone and
// WithOwner's transaction doubles as the owner lock.
package sqlite

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hongminglow/bank-ledger-be/internal/models"
	"github.com/hongminglow/bank-ledger-be/internal/storage"
	"github.com/hongminglow/bank-ledger-be/internal/storage/migrate"
)

var _ storage.Store = (*Store)(nil)

//go:embed migrations/*.sql
var migrationFS embed.FS

const transactionOrder = "date DESC, created_at DESC, id DESC"

// Store provides SQLite-backed persistence through gorm.
type Store struct {
	db *gorm.DB
}

// NewStore opens (creating if needed) the database file at path and applies pending migrations.
func NewStore(path string, logSQL bool) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	gormLogger := logger.Default
	if !logSQL {
		gormLogger = gormLogger.LogMode(logger.Silent)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	for _, pragma := range []string{"PRAGMA journal_mode = WAL;", "PRAGMA foreign_keys = ON;", "PRAGMA busy_timeout = 5000;"} {
		if err := db.Exec(pragma).Error; err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection.
func (s *Store) Close() {
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) migrate() error {
	all, err := migrate.Load(migrationFS, "migrations")
	if err != nil {
		return err
	}
	const ensure = `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`
	if err := s.db.Exec(ensure).Error; err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var versions []int
	if err := s.db.Model(&migrationRow{}).Pluck("version", &versions).Error; err != nil {
		return fmt.Errorf("read schema_migrations: %w", err)
	}
	applied := make(map[int]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}

	for _, m := range migrate.Pending(all, applied) {
		err := s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(m.SQL).Error; err != nil {
				return err
			}
			return tx.Create(&migrationRow{Version: m.Version, Name: m.Name, AppliedAt: time.Now()}).Error
		})
		if err != nil {
			return fmt.Errorf("apply migration %04d_%s: %w", m.Version, m.Name, err)
		}
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	row := userRow{
		Identifier:    user.Identifier,
		Name:          user.Name,
		PasswordHash:  user.PasswordHash,
		Balance:       user.Balance,
		AccountNumber: user.AccountNumber,
		Role:          user.Role,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.User{}, storage.ErrAlreadyExists
		}
		return models.User{}, err
	}
	return row.model(), nil
}

func (s *Store) GetUser(ctx context.Context, identifier string) (models.User, error) {
	return findUser(s.db.WithContext(ctx), identifier)
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	var rows []userRow
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	users := make([]models.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.model())
	}
	return users, nil
}

func (s *Store) UpdateUser(ctx context.Context, identifier string, patch models.UserPatch) (models.User, error) {
	db := s.db.WithContext(ctx)
	if patch.Empty() {
		return findUser(db, identifier)
	}
	updates := map[string]any{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.PasswordHash != nil {
		updates["password_hash"] = *patch.PasswordHash
	}
	if patch.AccountNumber != nil {
		if *patch.AccountNumber == "" {
			updates["account_number"] = nil
		} else {
			updates["account_number"] = *patch.AccountNumber
		}
	}
	if patch.Role != nil {
		updates["role"] = *patch.Role
	}
	result := db.Model(&userRow{}).Where("identifier = ?", identifier).Updates(updates)
	if result.Error != nil {
		return models.User{}, result.Error
	}
	if result.RowsAffected == 0 {
		return models.User{}, storage.ErrNotFound
	}
	return findUser(db, identifier)
}

func (s *Store) DeleteUser(ctx context.Context, identifier string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findUser(tx, identifier); err != nil {
			return err
		}
		if err := tx.Where("user_identifier = ?", identifier).Delete(&transactionRow{}).Error; err != nil {
			return fmt.Errorf("delete transactions: %w", err)
		}
		if err := tx.Where("identifier = ?", identifier).Delete(&userRow{}).Error; err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
}

func (s *Store) HasAdmin(ctx context.Context) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&userRow{}).Where("role = ?", models.RoleAdmin).Count(&count).Error
	return count > 0, err
}

func (s *Store) Stats(ctx context.Context) (models.Stats, error) {
	db := s.db.WithContext(ctx)
	var balances []decimal.Decimal
	if err := db.Model(&userRow{}).Pluck("balance", &balances).Error; err != nil {
		return models.Stats{}, err
	}
	stats := models.Stats{TotalUsers: int64(len(balances)), TotalBalance: decimal.Zero}
	for _, b := range balances {
		stats.TotalBalance = stats.TotalBalance.Add(b)
	}
	if err := db.Model(&transactionRow{}).Count(&stats.TotalTransactions).Error; err != nil {
		return models.Stats{}, err
	}
	return stats, nil
}

func (s *Store) ListTransactions(ctx context.Context, identifier string) ([]models.Transaction, error) {
	return listTransactions(s.db.WithContext(ctx), identifier)
}

func findUser(db *gorm.DB, identifier string) (models.User, error) {
	var row userRow
	if err := db.Where("identifier = ?", identifier).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, err
	}
	return row.model(), nil
}

func listTransactions(db *gorm.DB, identifier string) ([]models.Transaction, error) {
	var rows []transactionRow
	if err := db.Where("user_identifier = ?", identifier).Order(transactionOrder).Find(&rows).Error; err != nil {
		return nil, err
	}
	txns := make([]models.Transaction, 0, len(rows))
	for _, row := range rows {
		txns = append(txns, row.model())
	}
	return txns, nil
}
