package genai

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yakshxo/snapstudy/internal/snapstudy/domain"
)

func TestParseCardsPlainArray(t *testing.T) {
	raw := `[{"question":"What is ATP?","answer":"Energy currency","tags":["bio"]}]`

	cards, err := parseCards(raw, domain.GenerationSettings{CardCount: 1, Difficulty: "medium"})
	require.NoError(t, err)
	require.Len(t, cards, 1)
	require.Equal(t, "What is ATP?", cards[0].Question)
	require.Equal(t, "medium", cards[0].Difficulty)
	require.Equal(t, []string{"bio"}, cards[0].Tags)
}

func TestParseCardsCodeFenced(t *testing.T) {
	raw := "```json\n[{\"question\":\"q\",\"answer\":\"a\"}]\n```"

	cards, err := parseCards(raw, domain.GenerationSettings{CardCount: 1})
	require.NoError(t, err)
	require.Len(t, cards, 1)
}

func TestParseCardsSalvagesFromProse(t *testing.T) {
	raw := `Here are your flashcards:
[{"question":"q","answer":"a"}]
Let me know if you need more!`

	cards, err := parseCards(raw, domain.GenerationSettings{CardCount: 1})
	require.NoError(t, err)
	require.Len(t, cards, 1)
}

func TestParseCardsRejectsGarbage(t *testing.T) {
	for _, raw := range []string{
		"",
		"sorry, I cannot help with that",
		"[]",
		`[{"question":"","answer":"a"}]`,
		`[{"question":"q","answer":""}]`,
	} {
		_, err := parseCards(raw, domain.GenerationSettings{CardCount: 1})
		require.ErrorIs(t, err, ErrBadModelOutput, "input: %q", raw)
	}
}

func TestBuildPromptIncludesSettings(t *testing.T) {
	prompt := buildPrompt("the krebs cycle", domain.GenerationSettings{
		CardCount:    12,
		Difficulty:   "hard",
		Subject:      "Biochemistry",
		CustomPrompt: "focus on enzymes",
	})

	require.Contains(t, prompt, "Generate 12 high-quality flashcards")
	require.Contains(t, prompt, "Difficulty level: hard")
	require.Contains(t, prompt, "Subject focus: Biochemistry")
	require.Contains(t, prompt, "Additional instructions: focus on enzymes")
	require.Contains(t, prompt, "the krebs cycle")
}

func TestBuildPromptDefaultsDifficulty(t *testing.T) {
	prompt := buildPrompt("notes", domain.GenerationSettings{CardCount: 5})
	require.Contains(t, prompt, "Difficulty level: medium")
}
