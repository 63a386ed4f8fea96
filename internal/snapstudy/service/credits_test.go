package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yakshxo/snapstudy/internal/snapstudy/domain"
	"github.com/yakshxo/snapstudy/pkg/idx"
)

func newCreditAccount(t *testing.T, svc *CreditService, balance int64, unlimited bool) domain.Account {
	t.Helper()
	ctx := context.Background()

	account := domain.Account{
		ID:                  idx.New().String(),
		Email:               idx.New().String() + "@x.com",
		DisplayName:         "Test",
		PasswordHash:        "hash",
		CreditBalance:       balance,
		HasUnlimitedCredits: unlimited,
	}
	require.NoError(t, svc.Store.Accounts().CreateAccount(ctx, account))
	return account
}

func TestDebitAndCredit(t *testing.T) {
	ctx := context.Background()
	svc := &CreditService{Store: newTestStore(t)}
	account := newCreditAccount(t, svc, 5, false)

	balance, err := svc.Debit(ctx, account, 3)
	require.NoError(t, err)
	require.EqualValues(t, 2, balance)

	_, err = svc.Debit(ctx, account, 3)
	require.ErrorIs(t, err, ErrInsufficientCredits)

	balance, err = svc.Credit(ctx, account.ID, 10)
	require.NoError(t, err)
	require.EqualValues(t, 12, balance)
}

func TestDebitRejectsNonPositiveAmount(t *testing.T) {
	ctx := context.Background()
	svc := &CreditService{Store: newTestStore(t)}
	account := newCreditAccount(t, svc, 5, false)

	_, err := svc.Debit(ctx, account, 0)
	require.Error(t, err)
	_, err = svc.Debit(ctx, account, -1)
	require.Error(t, err)
	_, err = svc.Credit(ctx, account.ID, 0)
	require.Error(t, err)
}

func TestDebitUnlimitedNeverTouchesBalance(t *testing.T) {
	ctx := context.Background()
	svc := &CreditService{Store: newTestStore(t)}
	account := newCreditAccount(t, svc, 2, true)

	for i := 0; i < 10; i++ {
		balance, err := svc.Debit(ctx, account, 100)
		require.NoError(t, err)
		require.EqualValues(t, 2, balance)
	}

	stored, err := svc.Store.Accounts().GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, stored.CreditBalance)
}

// Two concurrent debits of 3 against a balance of 5: exactly one must
// succeed, and the balance must never go negative.
func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	svc := &CreditService{Store: newTestStore(t)}
	account := newCreditAccount(t, svc, 5, false)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Debit(ctx, account, 3)
		}(i)
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInsufficientCredits):
			insufficient++
		default:
			t.Fatalf("unexpected debit error: %v", err)
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, 1, insufficient)

	stored, err := svc.Store.Accounts().GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, stored.CreditBalance)
}

// Many concurrent debits of 1 against a balance of 10: exactly ten succeed.
func TestConcurrentDebitsDrainExactly(t *testing.T) {
	ctx := context.Background()
	svc := &CreditService{Store: newTestStore(t)}
	account := newCreditAccount(t, svc, 10, false)

	const workers = 25
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Debit(ctx, account, 1)
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			require.ErrorIs(t, err, ErrInsufficientCredits)
		}
	}
	require.Equal(t, 10, ok)

	stored, err := svc.Store.Accounts().GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	require.EqualValues(t, 0, stored.CreditBalance)
}
