package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sekolahpay/canteen-ledger/internal/model"
	"github.com/sekolahpay/canteen-ledger/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrConcurrentUpdate    = errors.New("concurrent update detected")
	ErrMaxRetriesExceeded  = errors.New("max retries exceeded")
)

type WalletRepository struct {
	*pg.DB
}

func NewWalletRepository(db *pg.DB) *WalletRepository {
	return &WalletRepository{
		db,
	}
}

// Debit performs atomic balance deduction with automatic retry.
// This is used for charges (e.g., a canteen purchase or a withdrawal).
func (r *WalletRepository) Debit(ctx context.Context, walletID int64, amount int64) error {
	const maxRetries = 3
	const baseDelay = 2 * time.Millisecond

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := r.debitAttempt(ctx, walletID, amount)

		if err == nil {
			return nil
		}

		// Don't retry on permanent errors
		if errors.Is(err, ErrWalletNotFound) ||
			errors.Is(err, ErrInsufficientBalance) {
			return err
		}

		// Retry on transient errors
		if attempt < maxRetries {
			delay := baseDelay * time.Duration(1<<attempt) // Exponential backoff: 2ms, 4ms, 8ms
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				continue
			}
		}
	}

	return fmt.Errorf("%w: failed after %d attempts", ErrMaxRetriesExceeded, maxRetries+1)
}

func (r *WalletRepository) debitAttempt(ctx context.Context, walletID int64, amount int64) error {
	var entity WalletEntity

	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", walletID).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrWalletNotFound
		}
		return err
	}

	// Re-check under the lock: a pre-lock read may have seen a stale balance.
	if entity.Balance < amount {
		return ErrInsufficientBalance
	}

	result := r.Write(ctx).WithContext(ctx).
		Model(&WalletEntity{}).
		Where("id = ? AND balance >= ?", walletID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}

	return nil
}

// Credit performs atomic balance addition with automatic retry using SELECT FOR UPDATE.
// This is used for top-ups and refunds.
func (r *WalletRepository) Credit(ctx context.Context, walletID int64, amount int64) error {
	const maxRetries = 3
	const baseDelay = 2 * time.Millisecond

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := r.creditAttempt(ctx, walletID, amount)

		if err == nil {
			return nil
		}

		// Don't retry on permanent errors
		if errors.Is(err, ErrWalletNotFound) {
			return err
		}

		// Retry on transient errors
		if attempt < maxRetries {
			delay := baseDelay * time.Duration(1<<attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				continue
			}
		}
	}

	return fmt.Errorf("%w: failed after %d attempts", ErrMaxRetriesExceeded, maxRetries+1)
}

func (r *WalletRepository) creditAttempt(ctx context.Context, walletID int64, amount int64) error {
	var entity WalletEntity

	// Step 1: SELECT FOR UPDATE - acquire the row lock
	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", walletID).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrWalletNotFound
		}
		return err
	}

	// Step 2: update the balance (safe - we hold the lock)
	result := r.Write(ctx).WithContext(ctx).
		Model(&WalletEntity{}).
		Where("id = ?", walletID).
		Update("balance", gorm.Expr("balance + ?", amount))

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrWalletNotFound
	}

	return nil
}

func (r *WalletRepository) GetBalance(ctx context.Context, walletID int64) (int64, error) {
	var entity WalletEntity
	err := r.Read(ctx).WithContext(ctx).
		Select("balance").
		Where("id = ?", walletID).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrWalletNotFound
		}
		return 0, err
	}

	return entity.Balance, nil
}

func (r *WalletRepository) FindByUserID(ctx context.Context, userID int64) (*model.Wallet, error) {
	var entity WalletEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("user_id = ?", userID).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}

	return toWalletModel(&entity), nil
}

// FindByUserIDForUpdate locks the wallet row for the remainder of the
// surrounding transaction. Callers must be inside WithinTransaction.
func (r *WalletRepository) FindByUserIDForUpdate(ctx context.Context, userID int64) (*model.Wallet, error) {
	var entity WalletEntity
	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}

	return toWalletModel(&entity), nil
}

func (r *WalletRepository) MarkToppedUp(ctx context.Context, walletID int64, at time.Time) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&WalletEntity{}).
		Where("id = ?", walletID).
		Update("last_top_up_at", at)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrWalletNotFound
	}
	return nil
}
