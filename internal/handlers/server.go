// internal/handlers/server.go
package handlers

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/jason-s-yu/quizroom/internal/cache"
	"github.com/jason-s-yu/quizroom/internal/catalog"
	"github.com/jason-s-yu/quizroom/internal/database"
	"github.com/jason-s-yu/quizroom/internal/game"
)

// QuizServer is the high-level struct the HTTP layer hangs off: the live
// session directory plus pack resolution.
type QuizServer struct {
	Sessions *game.SessionStore
	Logf     func(f string, v ...interface{})
}

func NewQuizServer() *QuizServer {
	return &QuizServer{
		Sessions: game.NewSessionStore(),
		Logf:     log.Printf,
	}
}

// ResolvePack loads the pack a host asked for: the built-in sample when no
// id is given, otherwise cache first, then the catalog database.
func (qs *QuizServer) ResolvePack(ctx context.Context, packIDStr string) (*catalog.QuizPack, error) {
	if packIDStr == "" {
		return catalog.SamplePack(), nil
	}
	packID, err := uuid.Parse(packIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid pack id %q: %w", packIDStr, err)
	}
	if packID == catalog.SamplePackID {
		return catalog.SamplePack(), nil
	}

	if pack, ok := cache.GetQuizPack(ctx, packID); ok {
		return pack, nil
	}

	if database.DB == nil {
		return nil, fmt.Errorf("pack %s requested but no catalog database is attached", packID)
	}
	pack, err := database.GetQuizPack(ctx, packID)
	if err != nil {
		return nil, err
	}
	if err := cache.StoreQuizPack(ctx, pack); err != nil {
		qs.Logf("pack cache write failed: %v", err)
	}
	return pack, nil
}
