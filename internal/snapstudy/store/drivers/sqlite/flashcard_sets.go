package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yakshxo/snapstudy/internal/snapstudy/domain"
)

type flashcardSetsRepo struct {
	db dbtx
}

const setColumns = `id, account_id, title, description, cards, card_count,
	difficulty, subject, custom_prompt, status, generation_error,
	created_at, updated_at`

func scanSet(row rowScanner) (domain.FlashcardSet, error) {
	var (
		s        domain.FlashcardSet
		cardsRaw string
		status   string
		genErr   sql.NullString
	)
	err := row.Scan(
		&s.ID, &s.AccountID, &s.Title, &s.Description, &cardsRaw,
		&s.Settings.CardCount, &s.Settings.Difficulty, &s.Settings.Subject,
		&s.Settings.CustomPrompt, &status, &genErr,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return domain.FlashcardSet{}, err
	}
	if err := json.Unmarshal([]byte(cardsRaw), &s.Cards); err != nil {
		return domain.FlashcardSet{}, fmt.Errorf("decode cards for set %s: %w", s.ID, err)
	}
	s.Status = domain.SetStatus(status)
	if genErr.Valid {
		s.GenerationError = genErr.String
	}
	return s, nil
}

func (r *flashcardSetsRepo) CreateSet(ctx context.Context, s domain.FlashcardSet) error {
	cards, err := json.Marshal(s.Cards)
	if err != nil {
		return fmt.Errorf("encode cards: %w", err)
	}
	if s.Cards == nil {
		cards = []byte("[]")
	}

	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO flashcard_sets (
			id, account_id, title, description, cards, card_count,
			difficulty, subject, custom_prompt, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.AccountID, s.Title, s.Description, string(cards),
		s.Settings.CardCount, s.Settings.Difficulty, s.Settings.Subject,
		s.Settings.CustomPrompt, string(s.Status), now, now,
	)
	return mapConstraint(err)
}

func (r *flashcardSetsRepo) GetSet(ctx context.Context, id, accountID string) (domain.FlashcardSet, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+setColumns+` FROM flashcard_sets WHERE id = ? AND account_id = ?`,
		id, accountID)
	s, err := scanSet(row)
	if err != nil {
		return domain.FlashcardSet{}, mapNotFound(err)
	}
	return s, nil
}

func (r *flashcardSetsRepo) ListSetsByAccount(ctx context.Context, accountID string) ([]domain.FlashcardSet, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+setColumns+` FROM flashcard_sets
		 WHERE account_id = ? ORDER BY created_at DESC`,
		accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sets := []domain.FlashcardSet{}
	for rows.Next() {
		s, err := scanSet(rows)
		if err != nil {
			return nil, err
		}
		sets = append(sets, s)
	}
	return sets, rows.Err()
}

func (r *flashcardSetsRepo) CompleteSet(ctx context.Context, id string, cards []domain.Card) error {
	raw, err := json.Marshal(cards)
	if err != nil {
		return fmt.Errorf("encode cards: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE flashcard_sets
		SET cards = ?, status = ?, generation_error = NULL, updated_at = ?
		WHERE id = ?`,
		string(raw), string(domain.SetCompleted), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *flashcardSetsRepo) FailSet(ctx context.Context, id, reason string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE flashcard_sets
		SET status = ?, generation_error = ?, updated_at = ?
		WHERE id = ?`,
		string(domain.SetFailed), reason, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *flashcardSetsRepo) DeleteSet(ctx context.Context, id, accountID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM flashcard_sets WHERE id = ? AND account_id = ?`,
		id, accountID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *flashcardSetsRepo) FailStaleGenerating(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE flashcard_sets
		SET status = ?, generation_error = 'generation interrupted', updated_at = ?
		WHERE status = ? AND updated_at < ?`,
		string(domain.SetFailed), time.Now().UTC(),
		string(domain.SetGenerating), cutoff.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
