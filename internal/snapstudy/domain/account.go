package domain

import "time"

// SubscriptionTier is informational only; it never gates behaviour.
type SubscriptionTier string

const (
	TierFree       SubscriptionTier = "free"
	TierPremium    SubscriptionTier = "premium"
	TierEnterprise SubscriptionTier = "enterprise"
)

// Account is the aggregate root for authentication, credits and profile
// state. Email is stored lowercased and is unique at the storage layer.
type Account struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string // argon2id encoded, never exposed on any read path

	// VerifiedAt is set exactly once when the first OTP challenge is
	// completed; a nil value means the account is still unverified.
	VerifiedAt *time.Time

	// OTPCode / OTPExpiresAt are present only while a verification
	// challenge is outstanding. A new issue supersedes any prior code.
	OTPCode      *string
	OTPExpiresAt *time.Time

	CreditBalance       int64
	HasUnlimitedCredits bool
	TotalGeneratedCount int64
	SubscriptionTier    SubscriptionTier

	SchoolName  *string
	PhoneNumber *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Verified reports whether the account has completed an OTP challenge.
func (a Account) Verified() bool { return a.VerifiedAt != nil }
