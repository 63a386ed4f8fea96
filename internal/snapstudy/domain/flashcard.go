package domain

import "time"

// SetStatus tracks a flashcard set through its generation lifecycle.
type SetStatus string

const (
	SetGenerating SetStatus = "generating"
	SetCompleted  SetStatus = "completed"
	SetFailed     SetStatus = "failed"
)

// Card is a single question/answer pair inside a set.
type Card struct {
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Difficulty string   `json:"difficulty,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// GenerationSettings captures what the user asked the generator for.
type GenerationSettings struct {
	CardCount    int    `json:"cardCount"`
	Difficulty   string `json:"difficulty,omitempty"`
	Subject      string `json:"subject,omitempty"`
	CustomPrompt string `json:"customPrompt,omitempty"`
}

// FlashcardSet is one generation request and its resulting cards. Cards are
// empty while Status is SetGenerating and stay empty on SetFailed.
type FlashcardSet struct {
	ID          string
	AccountID   string
	Title       string
	Description string
	Cards       []Card
	Settings    GenerationSettings
	Status      SetStatus

	// GenerationError holds the failure reason when Status is SetFailed.
	GenerationError string

	CreatedAt time.Time
	UpdatedAt time.Time
}
