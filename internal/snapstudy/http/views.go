package http

import (
	"time"

	"github.com/yakshxo/snapstudy/internal/snapstudy/domain"
)

// accountView is the wire shape of an account. The password hash and OTP
// fields never leave the server.
type accountView struct {
	ID                  string                  `json:"id"`
	Email               string                  `json:"email"`
	Name                string                  `json:"name"`
	IsVerified          bool                    `json:"isVerified"`
	Credits             int64                   `json:"credits"`
	HasUnlimitedCredits bool                    `json:"hasUnlimitedCredits"`
	TotalGenerated      int64                   `json:"totalGenerated"`
	SubscriptionTier    domain.SubscriptionTier `json:"subscriptionTier"`
	SchoolName          *string                 `json:"schoolName,omitempty"`
	PhoneNumber         *string                 `json:"phoneNumber,omitempty"`
	CreatedAt           time.Time               `json:"createdAt"`
}

func viewAccount(a domain.Account) accountView {
	return accountView{
		ID:                  a.ID,
		Email:               a.Email,
		Name:                a.DisplayName,
		IsVerified:          a.Verified(),
		Credits:             a.CreditBalance,
		HasUnlimitedCredits: a.HasUnlimitedCredits,
		TotalGenerated:      a.TotalGeneratedCount,
		SubscriptionTier:    a.SubscriptionTier,
		SchoolName:          a.SchoolName,
		PhoneNumber:         a.PhoneNumber,
		CreatedAt:           a.CreatedAt,
	}
}

type setView struct {
	ID              string                    `json:"id"`
	Title           string                    `json:"title"`
	Description     string                    `json:"description,omitempty"`
	Cards           []domain.Card             `json:"cards"`
	Settings        domain.GenerationSettings `json:"settings"`
	Status          domain.SetStatus          `json:"status"`
	GenerationError string                    `json:"generationError,omitempty"`
	CreatedAt       time.Time                 `json:"createdAt"`
	UpdatedAt       time.Time                 `json:"updatedAt"`
}

func viewSet(s domain.FlashcardSet) setView {
	cards := s.Cards
	if cards == nil {
		cards = []domain.Card{}
	}
	return setView{
		ID:              s.ID,
		Title:           s.Title,
		Description:     s.Description,
		Cards:           cards,
		Settings:        s.Settings,
		Status:          s.Status,
		GenerationError: s.GenerationError,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func viewSets(sets []domain.FlashcardSet) []setView {
	out := make([]setView, len(sets))
	for i, s := range sets {
		out[i] = viewSet(s)
	}
	return out
}
