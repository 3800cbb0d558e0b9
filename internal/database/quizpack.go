// internal/database/quizpack.go
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jason-s-yu/quizroom/internal/catalog"
)

// ErrPackNotFound is returned when a pack id resolves to nothing.
var ErrPackNotFound = errors.New("quiz pack not found")

// PackSummary is a catalog listing row; rounds stay in the database until
// a pack is actually loaded.
type PackSummary struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	RoundCount    int       `json:"roundCount"`
	QuestionCount int       `json:"questionCount"`
}

// CreateQuizPack inserts a normalized pack. Rounds are stored as one jsonb
// document; packs are small and always loaded whole.
func CreateQuizPack(ctx context.Context, pack *catalog.QuizPack, createdBy uuid.UUID) error {
	rounds, err := json.Marshal(pack.Rounds)
	if err != nil {
		return fmt.Errorf("failed to marshal rounds: %w", err)
	}
	_, err = DB.Exec(ctx, `
		INSERT INTO quiz_packs (id, title, rounds, created_by)
		VALUES ($1, $2, $3, $4)
	`, pack.ID, pack.Title, rounds, createdBy)
	if err != nil {
		return fmt.Errorf("failed to insert quiz pack: %w", err)
	}
	return nil
}

// UpdateQuizPack replaces an existing pack's title and rounds.
func UpdateQuizPack(ctx context.Context, pack *catalog.QuizPack) error {
	rounds, err := json.Marshal(pack.Rounds)
	if err != nil {
		return fmt.Errorf("failed to marshal rounds: %w", err)
	}
	tag, err := DB.Exec(ctx, `
		UPDATE quiz_packs SET title = $2, rounds = $3, updated_at = now()
		WHERE id = $1
	`, pack.ID, pack.Title, rounds)
	if err != nil {
		return fmt.Errorf("failed to update quiz pack: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPackNotFound
	}
	return nil
}

// GetQuizPack loads one pack by id.
func GetQuizPack(ctx context.Context, id uuid.UUID) (*catalog.QuizPack, error) {
	var (
		pack   catalog.QuizPack
		rounds []byte
	)
	err := DB.QueryRow(ctx, `
		SELECT id, title, rounds FROM quiz_packs WHERE id = $1
	`, id).Scan(&pack.ID, &pack.Title, &rounds)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query quiz pack: %w", err)
	}
	if err := json.Unmarshal(rounds, &pack.Rounds); err != nil {
		return nil, fmt.Errorf("failed to decode rounds for pack %s: %w", id, err)
	}
	return &pack, nil
}

// ListQuizPacks returns summaries for the whole catalog, newest first.
func ListQuizPacks(ctx context.Context) ([]PackSummary, error) {
	rows, err := DB.Query(ctx, `
		SELECT id, title,
			jsonb_array_length(rounds),
			(SELECT COALESCE(SUM(jsonb_array_length(r->'questions')), 0)
			 FROM jsonb_array_elements(rounds) r)
		FROM quiz_packs
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list quiz packs: %w", err)
	}
	defer rows.Close()

	var out []PackSummary
	for rows.Next() {
		var s PackSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.RoundCount, &s.QuestionCount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteQuizPack removes a pack from the catalog.
func DeleteQuizPack(ctx context.Context, id uuid.UUID) error {
	tag, err := DB.Exec(ctx, `DELETE FROM quiz_packs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete quiz pack: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPackNotFound
	}
	return nil
}
