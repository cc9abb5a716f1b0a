package service

import (
	"context"
	"errors"

	"github.com/timmy/cardsmith/internal/domain"
	"github.com/timmy/cardsmith/internal/logger"
	"github.com/timmy/cardsmith/internal/repository"
	"gorm.io/gorm"
)

// CreditLedger reads and changes user balances. Balances are only ever
// changed through the conditional updates in repository.UserRepository.
type CreditLedger struct {
	users *repository.UserRepository
}

// NewCreditLedger creates a new CreditLedger.
func NewCreditLedger(users *repository.UserRepository) *CreditLedger {
	return &CreditLedger{users: users}
}

// Balance returns the current balance, or domain.ErrNotFound.
func (l *CreditLedger) Balance(ctx context.Context, userID string) (int, error) {
	return l.users.Balance(ctx, userID)
}

// Reserve checks that userID can afford cost without changing anything.
// Returns the current balance, or *domain.InsufficientCreditsError.
// userID is the authenticated caller, so an unknown id means the session
// outlived its account and is reported as domain.ErrUnauthenticated.
func (l *CreditLedger) Reserve(ctx context.Context, userID string, cost int) (int, error) {
	balance, err := l.users.Balance(ctx, userID)
	if err != nil {
		return 0, callerAccountError(err)
	}
	if balance < cost {
		return balance, &domain.InsufficientCreditsError{Required: cost, Available: balance}
	}
	return balance, nil
}

// Debit charges cost and returns the new balance.
func (l *CreditLedger) Debit(ctx context.Context, userID string, cost int, reason domain.CreditReason, referenceID string) (int, error) {
	return l.DebitTx(ctx, nil, userID, cost, reason, referenceID)
}

// DebitTx charges cost inside tx, or in its own transaction when tx is nil.
func (l *CreditLedger) DebitTx(ctx context.Context, tx *gorm.DB, userID string, cost int, reason domain.CreditReason, referenceID string) (int, error) {
	users := l.users
	if tx != nil {
		users = users.WithTx(tx)
	}
	balance, err := users.Debit(ctx, userID, cost, reason, referenceID)
	if err != nil {
		return 0, callerAccountError(err)
	}
	logger.With(logger.Fields{
		logger.FieldUserID: userID,
		"reason":           string(reason),
	}).WithCredits(-cost).Info(ctx, "Credits debited, balance now %d", balance)
	return balance, nil
}

// Credit adds amount and returns the new balance.
func (l *CreditLedger) Credit(ctx context.Context, userID string, amount int, reason domain.CreditReason, referenceID string) (int, error) {
	balance, err := l.users.Credit(ctx, userID, amount, reason, referenceID)
	if err != nil {
		return 0, err
	}
	logger.With(logger.Fields{
		logger.FieldUserID: userID,
		"reason":           string(reason),
	}).WithCredits(amount).Info(ctx, "Credits granted, balance now %d", balance)
	return balance, nil
}

// callerAccountError maps a missing account to domain.ErrUnauthenticated.
func callerAccountError(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrUnauthenticated
	}
	return err
}
