package store

import (
	"context"
	"errors"
	"time"

	"github.com/yakshxo/snapstudy/internal/snapstudy/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrInsufficientCredits is returned by DebitCredits when the balance
	// cannot cover the amount. The check and decrement are one atomic
	// statement, so concurrent debits can never drive a balance negative.
	ErrInsufficientCredits = errors.New("store: insufficient credits")
)

// Store is the root data access interface. Concrete drivers implement it and
// expose sub-repositories to keep concerns tidy and testable.
type Store interface {
	Accounts() Accounts
	FlashcardSets() FlashcardSets
	ProcessedPayments() ProcessedPayments

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing on nil and
	// rolling back on error. Prefer this over Tx directly.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store with Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	// GetAccountByID returns an account by id.
	GetAccountByID(ctx context.Context, id string) (domain.Account, error)

	// GetAccountByEmail looks up by lowercased email.
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)

	// CreateAccount inserts a new account (id is provided by the app via
	// ULID). Returns ErrAlreadyExists on an email collision.
	CreateAccount(ctx context.Context, a domain.Account) error

	// UpdateRegistration overwrites name and password hash on a still
	// unverified account, so a forgotten OTP never blocks signup.
	UpdateRegistration(ctx context.Context, id, displayName, passwordHash string) error

	// SetOTP stores a fresh challenge code and expiry, superseding any
	// outstanding one (last write wins per account).
	SetOTP(ctx context.Context, id, code string, expiresAt time.Time) error

	// ClearOTP removes the outstanding challenge without touching the
	// verification state.
	ClearOTP(ctx context.Context, id string) error

	// MarkVerified stamps verified_at if it is still NULL. Idempotent:
	// an already-verified account is left untouched.
	MarkVerified(ctx context.Context, id string) error

	// DebitCredits atomically decrements the balance when it covers
	// amount, returning the new balance. Returns ErrInsufficientCredits
	// otherwise. Callers handle the unlimited flag before calling.
	DebitCredits(ctx context.Context, id string, amount int64) (int64, error)

	// AddCredits atomically increments the balance and returns it.
	AddCredits(ctx context.Context, id string, amount int64) (int64, error)

	// AddGeneratedCount bumps total_generated_count by n.
	AddGeneratedCount(ctx context.Context, id string, n int64) error

	// UpdateProfile sets the optional profile fields. Nil means "leave
	// unchanged" to match partial updates.
	UpdateProfile(ctx context.Context, id string, schoolName, phoneNumber *string) error

	// UpdateEmail changes the login email (already lowercased). Returns
	// ErrAlreadyExists when another account holds it.
	UpdateEmail(ctx context.Context, id, email string) error

	// ClearExpiredOTPs removes challenge codes past their expiry
	// (housekeeping).
	ClearExpiredOTPs(ctx context.Context, now time.Time) (int64, error)
}

type FlashcardSets interface {
	// CreateSet inserts a set, normally with status "generating".
	CreateSet(ctx context.Context, s domain.FlashcardSet) error

	// GetSet fetches a set scoped to its owning account.
	GetSet(ctx context.Context, id, accountID string) (domain.FlashcardSet, error)

	// ListSetsByAccount returns the account's sets, newest first.
	ListSetsByAccount(ctx context.Context, accountID string) ([]domain.FlashcardSet, error)

	// CompleteSet stores the generated cards and flips status to
	// "completed".
	CompleteSet(ctx context.Context, id string, cards []domain.Card) error

	// FailSet flips status to "failed" and records the reason.
	FailSet(ctx context.Context, id, reason string) error

	// DeleteSet removes a set scoped to its owning account.
	DeleteSet(ctx context.Context, id, accountID string) error

	// FailStaleGenerating fails sets stuck in "generating" since before
	// cutoff (housekeeping after a crash mid-generation).
	FailStaleGenerating(ctx context.Context, cutoff time.Time) (int64, error)
}

type ProcessedPayments interface {
	// MarkProcessed records that a provider transaction has been
	// credited. Returns ErrAlreadyExists when the transaction id was
	// already recorded - the caller must then skip the credit grant.
	MarkProcessed(ctx context.Context, transactionID, accountID string, credits int64) error
}
