package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yakshxo/snapstudy/internal/snapstudy/domain"
)

func sampleCards(n int) []domain.Card {
	cards := make([]domain.Card, n)
	for i := range cards {
		cards[i] = domain.Card{Question: "q", Answer: "a"}
	}
	return cards
}

func newFlashcardFixture(t *testing.T, gen *fakeGenerator, balance int64, unlimited bool) (*FlashcardService, domain.Account) {
	t.Helper()

	st := newTestStore(t)
	credits := &CreditService{Store: st}
	account := newCreditAccount(t, credits, balance, unlimited)

	svc := &FlashcardService{
		Store:     st,
		Credits:   credits,
		Generator: gen,
		Timeout:   time.Second,
	}
	return svc, account
}

func TestCreditsForCards(t *testing.T) {
	require.EqualValues(t, 1, CreditsForCards(1))
	require.EqualValues(t, 1, CreditsForCards(10))
	require.EqualValues(t, 2, CreditsForCards(11))
	require.EqualValues(t, 2, CreditsForCards(20))
	require.EqualValues(t, 10, CreditsForCards(100))
}

func TestGenerateDebitsOnlyAfterSuccess(t *testing.T) {
	ctx := context.Background()
	svc, account := newFlashcardFixture(t, &fakeGenerator{cards: sampleCards(15)}, 5, false)

	result, err := svc.Generate(ctx, account.ID, GenerateInput{
		Title:    "Biology",
		Content:  "mitochondria etc",
		Settings: domain.GenerationSettings{CardCount: 15},
	})
	require.NoError(t, err)
	require.Equal(t, domain.SetCompleted, result.Set.Status)
	require.Len(t, result.Set.Cards, 15)
	require.EqualValues(t, 2, result.CreditsUsed)
	require.EqualValues(t, 3, result.RemainingCredits)

	stored, err := svc.Store.Accounts().GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	require.EqualValues(t, 3, stored.CreditBalance)
	require.EqualValues(t, 15, stored.TotalGeneratedCount)
}

func TestGenerateFailureNeverDebits(t *testing.T) {
	ctx := context.Background()
	svc, account := newFlashcardFixture(t, &fakeGenerator{err: errors.New("model unavailable")}, 5, false)

	_, err := svc.Generate(ctx, account.ID, GenerateInput{
		Title:    "Biology",
		Content:  "notes",
		Settings: domain.GenerationSettings{CardCount: 10},
	})
	require.ErrorIs(t, err, ErrGenerationFailed)

	// Balance untouched, set rolled to failed with the reason recorded.
	stored, err := svc.Store.Accounts().GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	require.EqualValues(t, 5, stored.CreditBalance)
	require.EqualValues(t, 0, stored.TotalGeneratedCount)

	sets, err := svc.List(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	require.Equal(t, domain.SetFailed, sets[0].Status)
	require.Contains(t, sets[0].GenerationError, "model unavailable")
}

func TestGenerateInsufficientCreditsRefusedUpFront(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{cards: sampleCards(50)}
	svc, account := newFlashcardFixture(t, gen, 2, false)

	_, err := svc.Generate(ctx, account.ID, GenerateInput{
		Title:    "Biology",
		Content:  "notes",
		Settings: domain.GenerationSettings{CardCount: 50},
	})
	require.ErrorIs(t, err, ErrInsufficientCredits)

	// Refused before the generator ran or any set was created.
	require.Equal(t, 0, gen.calls)
	sets, err := svc.List(ctx, account.ID)
	require.NoError(t, err)
	require.Empty(t, sets)
}

func TestGenerateUnlimitedSkipsDebit(t *testing.T) {
	ctx := context.Background()
	svc, account := newFlashcardFixture(t, &fakeGenerator{cards: sampleCards(30)}, 1, true)

	result, err := svc.Generate(ctx, account.ID, GenerateInput{
		Title:    "Chemistry",
		Content:  "notes",
		Settings: domain.GenerationSettings{CardCount: 30},
	})
	require.NoError(t, err)
	require.True(t, result.Unlimited)

	stored, err := svc.Store.Accounts().GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, stored.CreditBalance)
}

func TestGenerateRejectsBadCardCount(t *testing.T) {
	ctx := context.Background()
	svc, account := newFlashcardFixture(t, &fakeGenerator{}, 50, false)

	for _, count := range []int{0, -1, 101} {
		_, err := svc.Generate(ctx, account.ID, GenerateInput{
			Title:    "Biology",
			Content:  "notes",
			Settings: domain.GenerationSettings{CardCount: count},
		})
		require.Error(t, err)
	}
}

func TestSetOwnershipScoping(t *testing.T) {
	ctx := context.Background()
	svc, owner := newFlashcardFixture(t, &fakeGenerator{cards: sampleCards(5)}, 5, false)

	credits := &CreditService{Store: svc.Store}
	stranger := newCreditAccount(t, credits, 5, false)

	result, err := svc.Generate(ctx, owner.ID, GenerateInput{
		Title:    "Biology",
		Content:  "notes",
		Settings: domain.GenerationSettings{CardCount: 5},
	})
	require.NoError(t, err)

	t.Run("get is scoped to the owner", func(t *testing.T) {
		_, err := svc.Get(ctx, result.Set.ID, stranger.ID)
		require.ErrorIs(t, err, ErrSetNotFound)

		set, err := svc.Get(ctx, result.Set.ID, owner.ID)
		require.NoError(t, err)
		require.Equal(t, result.Set.ID, set.ID)
	})

	t.Run("delete is scoped to the owner", func(t *testing.T) {
		require.ErrorIs(t, svc.Delete(ctx, result.Set.ID, stranger.ID), ErrSetNotFound)
		require.NoError(t, svc.Delete(ctx, result.Set.ID, owner.ID))
		require.ErrorIs(t, svc.Delete(ctx, result.Set.ID, owner.ID), ErrSetNotFound)
	})
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc, account := newFlashcardFixture(t, &fakeGenerator{cards: sampleCards(5)}, 50, false)

	for _, title := range []string{"first", "second", "third"} {
		_, err := svc.Generate(ctx, account.ID, GenerateInput{
			Title:    title,
			Content:  "notes",
			Settings: domain.GenerationSettings{CardCount: 5},
		})
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}

	sets, err := svc.List(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, sets, 3)
	require.Equal(t, "third", sets[0].Title)
	require.Equal(t, "first", sets[2].Title)
}
