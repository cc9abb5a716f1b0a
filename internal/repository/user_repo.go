package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/cardsmith/internal/domain"
	"gorm.io/gorm"
)

// UserRepository handles account and balance operations.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *UserRepository: repository instance bound to db.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx.
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

// Create inserts a new user. A duplicate email yields domain.ErrEmailTaken.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicateKey(err) {
			return domain.ErrEmailTaken
		}
		return err
	}
	return nil
}

// GetByID retrieves a user by ID.
// Returns domain.ErrNotFound if no such user exists.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &user, nil
}

// GetByEmail retrieves a user by normalized email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &user, nil
}

// Balance returns the stored credit balance for a user.
func (r *UserRepository) Balance(ctx context.Context, id string) (int, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).Select("id", "credits").First(&user, "id = ?", id).Error; err != nil {
		return 0, translateNotFound(err)
	}
	return user.Credits, nil
}

// Debit subtracts amount from the user's balance and appends a ledger row.
// The subtraction is a single conditional UPDATE, so concurrent debits can
// never take the balance below zero.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - userID: account to charge.
//   - amount: positive number of credits.
//   - reason: ledger reason recorded with the change.
//   - referenceID: optional id of the artifact paid for.
// Returns:
//   - int: balance after the debit.
//   - error: *domain.InsufficientCreditsError if the balance is too low,
//     domain.ErrNotFound if the user does not exist.
func (r *UserRepository) Debit(ctx context.Context, userID string, amount int, reason domain.CreditReason, referenceID string) (int, error) {
	if !domain.ValidCreditAmount(amount) {
		return 0, domain.NewValidationError("amount", "invalid credit amount %d", amount)
	}

	var balance int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.User{}).
			Where("id = ? AND credits >= ?", userID, amount).
			Updates(map[string]interface{}{
				"credits":    gorm.Expr("credits - ?", amount),
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			available, err := NewUserRepository(tx).Balance(ctx, userID)
			if err != nil {
				return err
			}
			return &domain.InsufficientCreditsError{Required: amount, Available: available}
		}

		var err error
		balance, err = NewUserRepository(tx).Balance(ctx, userID)
		if err != nil {
			return err
		}
		return appendLedger(tx, userID, -amount, balance, reason, referenceID)
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// Credit adds amount to the user's balance. The result may not exceed
// domain.MaxCredits.
func (r *UserRepository) Credit(ctx context.Context, userID string, amount int, reason domain.CreditReason, referenceID string) (int, error) {
	if !domain.ValidCreditAmount(amount) {
		return 0, domain.NewValidationError("amount", "invalid credit amount %d", amount)
	}

	var balance int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.User{}).
			Where("id = ? AND credits <= ?", userID, domain.MaxCredits-amount).
			Updates(map[string]interface{}{
				"credits":    gorm.Expr("credits + ?", amount),
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if _, err := NewUserRepository(tx).Balance(ctx, userID); err != nil {
				return err
			}
			return domain.NewValidationError("amount", "balance would exceed %d credits", domain.MaxCredits)
		}

		var err error
		balance, err = NewUserRepository(tx).Balance(ctx, userID)
		if err != nil {
			return err
		}
		return appendLedger(tx, userID, amount, balance, reason, referenceID)
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// Transactions lists ledger rows for a user, newest first.
func (r *UserRepository) Transactions(ctx context.Context, userID string, limit int) ([]domain.CreditTransaction, error) {
	var rows []domain.CreditTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func appendLedger(tx *gorm.DB, userID string, amount, balance int, reason domain.CreditReason, referenceID string) error {
	row := &domain.CreditTransaction{
		ID:           uuid.NewString(),
		UserID:       userID,
		Amount:       amount,
		BalanceAfter: balance,
		Reason:       reason,
		ReferenceID:  referenceID,
	}
	if err := tx.Create(row).Error; err != nil {
		return fmt.Errorf("failed to record credit transaction: %w", err)
	}
	return nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
