// Package ledger is the client of the off-chain account store: players,
// their secrets, wallet addresses and in-game token balances.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/ligun0805/reward-bridge/internal/rewardtoken"
)

var (
	ErrAccountNotFound     = errors.New("user not found")
	ErrRecipientNotFound   = errors.New("recipient not found")
	ErrInsufficientBalance = errors.New("insufficient token balance")
	ErrSelfTransfer        = errors.New("cannot transfer tokens to yourself")
	ErrInvalidAmount       = errors.New("amount must be a positive integer")
)

type Store struct {
	db *gorm.DB
}

// Open connects to dsn. postgres:// and postgresql:// URLs and key=value
// strings with a host select PostgreSQL; anything else is a SQLite DSN.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(dialector(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return &Store{db: db}, nil
}

func dialector(dsn string) gorm.Dialector {
	d := strings.TrimSpace(dsn)
	switch {
	case strings.HasPrefix(d, "postgres://"), strings.HasPrefix(d, "postgresql://"), strings.Contains(d, "host="):
		return postgres.Open(d)
	default:
		return sqlite.Open(d)
	}
}

// New wraps an existing connection.
func New(db *gorm.DB) *Store { return &Store{db: db} }

func (s *Store) Migrate(ctx context.Context) error {
	return AutoMigrate(s.db.WithContext(ctx))
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) CreateAccount(ctx context.Context, username, secret string) (*Account, error) {
	username, secret = strings.TrimSpace(username), strings.TrimSpace(secret)
	if username == "" || secret == "" {
		return nil, errors.New("username and secret are required")
	}
	a := &Account{Username: username, Secret: secret}
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, fmt.Errorf("create account %q: %w", username, err)
	}
	return a, nil
}

func (s *Store) FindBySecret(ctx context.Context, secret string) (*Account, error) {
	return s.find(ctx, "secret = ?", secret, ErrAccountNotFound)
}

func (s *Store) FindByUsername(ctx context.Context, username string) (*Account, error) {
	return s.find(ctx, "username = ?", username, ErrAccountNotFound)
}

func (s *Store) find(ctx context.Context, where, arg string, notFound error) (*Account, error) {
	var a Account
	err := s.db.WithContext(ctx).First(&a, where, arg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// SetWalletAddress validates address and stores its lowercase form.
func (s *Store) SetWalletAddress(ctx context.Context, secret, address string) (string, error) {
	canonical, err := rewardtoken.CanonicalAddress(address)
	if err != nil {
		return "", err
	}
	res := s.db.WithContext(ctx).Model(&Account{}).Where("secret = ?", secret).Update("wallet_address", canonical)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		return "", ErrAccountNotFound
	}
	return canonical, nil
}

// Credit atomically adds delta tokens to the account's in-game balance.
func (s *Store) Credit(ctx context.Context, username string, delta int64) error {
	if delta <= 0 {
		return ErrInvalidAmount
	}
	res := s.db.WithContext(ctx).Model(&Account{}).
		Where("username = ?", username).
		Update("total_tokens", gorm.Expr("total_tokens + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// Transfer moves amount in-game tokens from the account owning secret to
// recipientUsername in one transaction and returns the sender's new balance.
// The debit is guarded by the balance check in its WHERE clause, so a
// concurrent transfer can never drive a balance negative.
func (s *Store) Transfer(ctx context.Context, secret, recipientUsername string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	var newBalance int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sender Account
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&sender, "secret = ?", secret).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAccountNotFound
			}
			return err
		}
		if sender.TotalTokens < amount {
			return ErrInsufficientBalance
		}
		if sender.Username == recipientUsername {
			return ErrSelfTransfer
		}
		var recipient Account
		if err := tx.First(&recipient, "username = ?", recipientUsername).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecipientNotFound
			}
			return err
		}

		debit := tx.Model(&Account{}).
			Where("id = ? AND total_tokens >= ?", sender.ID, amount).
			Update("total_tokens", gorm.Expr("total_tokens - ?", amount))
		if debit.Error != nil {
			return debit.Error
		}
		if debit.RowsAffected != 1 {
			return ErrInsufficientBalance
		}
		credit := tx.Model(&Account{}).
			Where("id = ?", recipient.ID).
			Update("total_tokens", gorm.Expr("total_tokens + ?", amount))
		if credit.Error != nil {
			return credit.Error
		}

		var updated Account
		if err := tx.Select("total_tokens").First(&updated, "id = ?", sender.ID).Error; err != nil {
			return err
		}
		newBalance = updated.TotalTokens
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}
