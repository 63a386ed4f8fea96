package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yakshxo/snapstudy/internal/snapstudy/domain"
	"github.com/yakshxo/snapstudy/internal/snapstudy/store"
	"github.com/yakshxo/snapstudy/pkg/idx"
	"github.com/yakshxo/snapstudy/pkg/slogx"
)

const (
	// CardsPerCredit sets the exchange rate: one credit buys up to ten
	// cards, rounded up.
	CardsPerCredit = 10

	// MinCardCount / MaxCardCount bound a single generation request.
	MinCardCount = 1
	MaxCardCount = 100

	// DefaultGenerationTimeout caps one generator call.
	DefaultGenerationTimeout = 2 * time.Minute
)

var (
	ErrSetNotFound      = errors.New("set_not_found")
	ErrGenerationFailed = errors.New("generation_failed")
)

// Generator produces cards from study material. The OpenAI-backed
// implementation lives in internal/snapstudy/genai.
type Generator interface {
	Generate(ctx context.Context, content string, settings domain.GenerationSettings) ([]domain.Card, error)
}

// CreditsForCards converts a requested card count into a credit cost,
// rounding up to the next whole credit.
func CreditsForCards(count int) int64 {
	return int64((count + CardsPerCredit - 1) / CardsPerCredit)
}

// GenerateInput is one generation request.
type GenerateInput struct {
	Title       string
	Description string
	Content     string
	Settings    domain.GenerationSettings
}

// GenerateResult reports the finished set together with what it cost.
type GenerateResult struct {
	Set              domain.FlashcardSet
	CreditsUsed      int64
	RemainingCredits int64
	Unlimited        bool
}

// FlashcardService owns the set lifecycle. Generation is strictly
// pay-on-success: the set is created in "generating", the generator runs
// under a timeout, and credits are debited only after the cards are safely
// stored. A failed or timed-out generation costs nothing.
type FlashcardService struct {
	Store     store.Store
	Credits   *CreditService
	Generator Generator
	Timeout   time.Duration
}

func (s *FlashcardService) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return DefaultGenerationTimeout
}

// Generate runs one generation request end to end.
func (s *FlashcardService) Generate(ctx context.Context, accountID string, in GenerateInput) (GenerateResult, error) {
	l := slogx.FromContext(ctx)

	if in.Settings.CardCount < MinCardCount || in.Settings.CardCount > MaxCardCount {
		return GenerateResult{}, fmt.Errorf("card count must be between %d and %d", MinCardCount, MaxCardCount)
	}

	account, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return GenerateResult{}, ErrAccountNotFound
	}
	if err != nil {
		return GenerateResult{}, err
	}

	cost := CreditsForCards(in.Settings.CardCount)

	// Pre-flight only: refuses obviously unaffordable requests before any
	// generator spend. The atomic debit below remains the real gate.
	if !s.Credits.CanAfford(account, cost) {
		return GenerateResult{}, ErrInsufficientCredits
	}

	set := domain.FlashcardSet{
		ID:          string(idx.New()),
		AccountID:   accountID,
		Title:       in.Title,
		Description: in.Description,
		Settings:    in.Settings,
		Status:      domain.SetGenerating,
	}
	if err := s.Store.FlashcardSets().CreateSet(ctx, set); err != nil {
		return GenerateResult{}, err
	}

	gctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	cards, err := s.Generator.Generate(gctx, in.Content, in.Settings)
	if err != nil {
		l.Warn("generation failed", "set_id", set.ID, "error", err)
		if failErr := s.Store.FlashcardSets().FailSet(ctx, set.ID, err.Error()); failErr != nil {
			l.Error("failed to mark set failed", "set_id", set.ID, "error", failErr)
		}
		return GenerateResult{}, fmt.Errorf("%w: %s", ErrGenerationFailed, err)
	}

	if err := s.Store.FlashcardSets().CompleteSet(ctx, set.ID, cards); err != nil {
		return GenerateResult{}, err
	}

	// Cards are stored; the debit happens last so a storage failure can
	// never charge for cards the user will not see.
	remaining, err := s.Credits.Debit(ctx, account, cost)
	if errors.Is(err, ErrInsufficientCredits) {
		// Balance raced to below cost between pre-flight and here. The
		// completed set stands; the user keeps it on the house rather
		// than us clawing back finished work.
		l.Warn("balance raced below cost after generation", "set_id", set.ID, "account_id", accountID)
		remaining = 0
	} else if err != nil {
		return GenerateResult{}, err
	}

	if err := s.Store.Accounts().AddGeneratedCount(ctx, accountID, int64(len(cards))); err != nil {
		l.Error("failed to bump generated count", "account_id", accountID, "error", err)
	}

	final, err := s.Store.FlashcardSets().GetSet(ctx, set.ID, accountID)
	if err != nil {
		return GenerateResult{}, err
	}

	return GenerateResult{
		Set:              final,
		CreditsUsed:      cost,
		RemainingCredits: remaining,
		Unlimited:        account.HasUnlimitedCredits,
	}, nil
}

// List returns the account's sets, newest first.
func (s *FlashcardService) List(ctx context.Context, accountID string) ([]domain.FlashcardSet, error) {
	return s.Store.FlashcardSets().ListSetsByAccount(ctx, accountID)
}

// Get fetches one set, scoped to its owner.
func (s *FlashcardService) Get(ctx context.Context, id, accountID string) (domain.FlashcardSet, error) {
	set, err := s.Store.FlashcardSets().GetSet(ctx, id, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.FlashcardSet{}, ErrSetNotFound
	}
	return set, err
}

// Delete removes one set, scoped to its owner. Credits spent on it are not
// refunded.
func (s *FlashcardService) Delete(ctx context.Context, id, accountID string) error {
	err := s.Store.FlashcardSets().DeleteSet(ctx, id, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrSetNotFound
	}
	return err
}
