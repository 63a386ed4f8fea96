// Package genai turns study material into flashcards with an OpenAI chat
// model. The model is asked for a bare JSON array; the parser tolerates the
// array arriving wrapped in prose or a code fence.
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/yakshxo/snapstudy/internal/snapstudy/domain"
)

const (
	DefaultModel     = openai.GPT3Dot5Turbo
	defaultMaxTokens = 4000
	temperature      = 0.7
)

const systemPrompt = "You are an expert educator who creates high-quality " +
	"educational flashcards. Always respond with valid JSON format."

// ErrBadModelOutput means the model replied but no card array could be
// recovered from its output.
var ErrBadModelOutput = errors.New("genai: model output is not a flashcard array")

// OpenAIGenerator implements service.Generator over the chat completions
// API.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator builds a generator. model falls back to DefaultModel
// when empty.
func NewOpenAIGenerator(apiKey, model string) *OpenAIGenerator {
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIGenerator{client: openai.NewClient(apiKey), model: model}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, content string, settings domain.GenerationSettings) ([]domain.Card, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		MaxTokens:   defaultMaxTokens,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(content, settings)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("genai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrBadModelOutput)
	}

	cards, err := parseCards(resp.Choices[0].Message.Content, settings)
	if err != nil {
		return nil, err
	}
	if len(cards) > settings.CardCount {
		cards = cards[:settings.CardCount]
	}
	return cards, nil
}

func buildPrompt(content string, s domain.GenerationSettings) string {
	difficulty := s.Difficulty
	if difficulty == "" {
		difficulty = "medium"
	}

	var b strings.Builder
	fmt.Fprintf(&b, `You are an expert educator creating flashcards. Generate %d high-quality flashcards from the following content.

Requirements:
- Create exactly %d flashcards
- Difficulty level: %s
- Each flashcard should have a clear question and a comprehensive answer
- Focus on key concepts, definitions, and important facts
- Make questions specific and answers informative
- Avoid overly simple yes/no questions
- Include diverse question types (what, how, why, when, etc.)`,
		s.CardCount, s.CardCount, difficulty)

	if s.Subject != "" {
		fmt.Fprintf(&b, "\n- Subject focus: %s", s.Subject)
	}
	if s.CustomPrompt != "" {
		fmt.Fprintf(&b, "\n- Additional instructions: %s", s.CustomPrompt)
	}

	fmt.Fprintf(&b, `

Content to study:
%s

Please respond with a JSON array of flashcards in this exact format:
[
  {
    "question": "Your question here",
    "answer": "Your detailed answer here",
    "difficulty": %q,
    "tags": ["tag1", "tag2"]
  }
]

Make sure the response is valid JSON with exactly %d flashcards.`,
		content, difficulty, s.CardCount)

	return b.String()
}

// parseCards decodes the model output, tolerating code fences and
// surrounding prose, and validates every card.
func parseCards(raw string, s domain.GenerationSettings) ([]domain.Card, error) {
	text := stripCodeFence(strings.TrimSpace(raw))

	var cards []domain.Card
	if err := json.Unmarshal([]byte(text), &cards); err != nil {
		// Salvage the first bracketed array from a chatty reply.
		start := strings.Index(text, "[")
		end := strings.LastIndex(text, "]")
		if start < 0 || end <= start {
			return nil, ErrBadModelOutput
		}
		if err := json.Unmarshal([]byte(text[start:end+1]), &cards); err != nil {
			return nil, ErrBadModelOutput
		}
	}
	if len(cards) == 0 {
		return nil, ErrBadModelOutput
	}

	for i := range cards {
		cards[i].Question = strings.TrimSpace(cards[i].Question)
		cards[i].Answer = strings.TrimSpace(cards[i].Answer)
		if cards[i].Question == "" || cards[i].Answer == "" {
			return nil, fmt.Errorf("%w: card %d missing question or answer", ErrBadModelOutput, i+1)
		}
		if cards[i].Difficulty == "" {
			cards[i].Difficulty = s.Difficulty
		}
		if cards[i].Tags == nil {
			cards[i].Tags = []string{}
		}
	}
	return cards, nil
}

func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
