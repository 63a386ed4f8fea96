package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/yakshxo/snapstudy/internal/snapstudy/domain"
	"github.com/yakshxo/snapstudy/internal/snapstudy/store"
)

var (
	// ErrInsufficientCredits means the balance cannot cover the requested
	// debit. The balance is never changed when this is returned.
	ErrInsufficientCredits = errors.New("insufficient_credits")
)

// CreditService wraps the ledger operations on an account's balance. All
// mutation goes through single atomic statements in the store, so two
// concurrent debits can never both succeed against the same credits.
type CreditService struct {
	Store store.Store
}

// Debit consumes amount credits from the account. Accounts flagged as
// unlimited are never charged; their stored balance is left untouched and
// returned as-is.
func (s *CreditService) Debit(ctx context.Context, account domain.Account, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("debit amount must be positive, got %d", amount)
	}
	if account.HasUnlimitedCredits {
		return account.CreditBalance, nil
	}

	balance, err := s.Store.Accounts().DebitCredits(ctx, account.ID, amount)
	if errors.Is(err, store.ErrInsufficientCredits) {
		return 0, ErrInsufficientCredits
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// Credit adds purchased credits and returns the new balance. Unlimited
// accounts still receive the credits; the flag only bypasses debits.
func (s *CreditService) Credit(ctx context.Context, accountID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	return s.Store.Accounts().AddCredits(ctx, accountID, amount)
}

// CanAfford reports whether the account could cover a debit of amount
// without performing it. Used as a pre-flight check before expensive work;
// the authoritative check is still the atomic debit itself.
func (s *CreditService) CanAfford(account domain.Account, amount int64) bool {
	return account.HasUnlimitedCredits || account.CreditBalance >= amount
}
