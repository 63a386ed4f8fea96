package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/yakshxo/snapstudy/internal/snapstudy/domain"
	"github.com/yakshxo/snapstudy/internal/snapstudy/service"
	"github.com/yakshxo/snapstudy/pkg/httpx"
	"github.com/yakshxo/snapstudy/pkg/slogx"
)

// FlashcardsHandler covers generation and set CRUD. All routes require
// authentication; ownership is enforced by scoping every store read to the
// caller's account id.
type FlashcardsHandler struct {
	Flashcards *service.FlashcardService
}

type generateRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Content      string `json:"content"`
	CardCount    int    `json:"cardCount"`
	Difficulty   string `json:"difficulty"`
	Subject      string `json:"subject"`
	CustomPrompt string `json:"customPrompt"`
}

// HandleGenerate handles POST /api/flashcards/generate-text. The request
// blocks until generation finishes or times out.
func (h *FlashcardsHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	accountID := httpx.AccountIDFromContext(ctx)

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	var errs []string
	if strings.TrimSpace(req.Title) == "" {
		errs = append(errs, "title is required")
	}
	if strings.TrimSpace(req.Content) == "" {
		errs = append(errs, "content is required")
	}
	if req.CardCount < service.MinCardCount || req.CardCount > service.MaxCardCount {
		errs = append(errs, fmt.Sprintf("cardCount must be between %d and %d",
			service.MinCardCount, service.MaxCardCount))
	}
	if len(errs) > 0 {
		httpx.FailValidation(w, errs)
		return
	}

	result, err := h.Flashcards.Generate(ctx, accountID, service.GenerateInput{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Content:     req.Content,
		Settings: domain.GenerationSettings{
			CardCount:    req.CardCount,
			Difficulty:   req.Difficulty,
			Subject:      req.Subject,
			CustomPrompt: req.CustomPrompt,
		},
	})
	switch {
	case errors.Is(err, service.ErrInsufficientCredits):
		httpx.Fail(w, http.StatusPaymentRequired, "Not enough credits for this generation")
	case errors.Is(err, service.ErrGenerationFailed):
		httpx.Fail(w, http.StatusBadGateway, "Flashcard generation failed. Your credits were not charged.")
	case err != nil:
		log.Error("generation failed", "account_id", accountID, "error", err)
		httpx.Fail(w, http.StatusInternalServerError, "Something went wrong")
	default:
		httpx.OKMessage(w, http.StatusCreated, "Flashcards generated", map[string]any{
			"set":              viewSet(result.Set),
			"creditsUsed":      result.CreditsUsed,
			"remainingCredits": result.RemainingCredits,
			"unlimited":        result.Unlimited,
		})
	}
}

// HandleList handles GET /api/flashcards.
func (h *FlashcardsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := httpx.AccountIDFromContext(ctx)

	sets, err := h.Flashcards.List(ctx, accountID)
	if err != nil {
		slogx.FromContext(ctx).Error("list sets failed", "account_id", accountID, "error", err)
		httpx.Fail(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"sets": viewSets(sets)})
}

// HandleGet handles GET /api/flashcards/{id}.
func (h *FlashcardsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := httpx.AccountIDFromContext(ctx)

	set, err := h.Flashcards.Get(ctx, r.PathValue("id"), accountID)
	switch {
	case errors.Is(err, service.ErrSetNotFound):
		httpx.Fail(w, http.StatusNotFound, "Flashcard set not found")
	case err != nil:
		slogx.FromContext(ctx).Error("get set failed", "account_id", accountID, "error", err)
		httpx.Fail(w, http.StatusInternalServerError, "Something went wrong")
	default:
		httpx.OK(w, http.StatusOK, map[string]any{"set": viewSet(set)})
	}
}

// HandleDelete handles DELETE /api/flashcards/{id}.
func (h *FlashcardsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := httpx.AccountIDFromContext(ctx)

	err := h.Flashcards.Delete(ctx, r.PathValue("id"), accountID)
	switch {
	case errors.Is(err, service.ErrSetNotFound):
		httpx.Fail(w, http.StatusNotFound, "Flashcard set not found")
	case err != nil:
		slogx.FromContext(ctx).Error("delete set failed", "account_id", accountID, "error", err)
		httpx.Fail(w, http.StatusInternalServerError, "Something went wrong")
	default:
		httpx.OKMessage(w, http.StatusOK, "Flashcard set deleted", nil)
	}
}
