// internal/handlers/catalog.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jason-s-yu/quizroom/internal/auth"
	"github.com/jason-s-yu/quizroom/internal/cache"
	"github.com/jason-s-yu/quizroom/internal/catalog"
	"github.com/jason-s-yu/quizroom/internal/database"
)

// PacksHandler serves the pack collection at /catalog/packs:
// GET lists summaries, POST authors a new pack.
func PacksHandler(qs *QuizServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			listPacks(w, r)
		case http.MethodPost:
			createPack(qs, w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// PackByIDHandler serves a single pack at /catalog/packs/{id}:
// GET fetches, PUT replaces, DELETE removes.
func PackByIDHandler(qs *QuizServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idStr := strings.TrimPrefix(r.URL.Path, "/catalog/packs/")
		if idStr == "" || strings.Contains(idStr, "/") {
			http.Error(w, "missing pack id", http.StatusBadRequest)
			return
		}

		switch r.Method {
		case http.MethodGet:
			pack, err := qs.ResolvePack(r.Context(), idStr)
			if errors.Is(err, database.ErrPackNotFound) {
				http.Error(w, "pack not found", http.StatusNotFound)
				return
			}
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			writeJSON(w, http.StatusOK, pack)

		case http.MethodPut:
			updatePack(w, r, idStr)

		case http.MethodDelete:
			deletePack(w, r, idStr)

		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func listPacks(w http.ResponseWriter, r *http.Request) {
	sample := catalog.SamplePack()
	summaries := []database.PackSummary{packSummary(sample)}

	if database.DB != nil {
		stored, err := database.ListQuizPacks(r.Context())
		if err != nil {
			http.Error(w, "failed to list packs", http.StatusInternalServerError)
			return
		}
		summaries = append(summaries, stored...)
	}
	writeJSON(w, http.StatusOK, summaries)
}

func createPack(qs *QuizServer, w http.ResponseWriter, r *http.Request) {
	author, err := requireIdentity(r)
	if err != nil {
		http.Error(w, "invalid token", http.StatusForbidden)
		return
	}
	if database.DB == nil {
		http.Error(w, "catalog database not attached", http.StatusServiceUnavailable)
		return
	}

	var pack catalog.QuizPack
	if err := json.NewDecoder(r.Body).Decode(&pack); err != nil {
		http.Error(w, "invalid pack payload", http.StatusBadRequest)
		return
	}
	pack.ID = uuid.Nil // ids are always minted server side
	pack.Normalize()
	if err := pack.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := database.CreateQuizPack(r.Context(), &pack, author); err != nil {
		http.Error(w, "failed to store pack", http.StatusInternalServerError)
		return
	}
	if err := cache.StoreQuizPack(r.Context(), &pack); err != nil {
		qs.Logf("pack cache write failed: %v", err)
	}
	writeJSON(w, http.StatusCreated, pack)
}

func updatePack(w http.ResponseWriter, r *http.Request, idStr string) {
	if _, err := requireIdentity(r); err != nil {
		http.Error(w, "invalid token", http.StatusForbidden)
		return
	}
	if database.DB == nil {
		http.Error(w, "catalog database not attached", http.StatusServiceUnavailable)
		return
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "invalid pack id", http.StatusBadRequest)
		return
	}

	var pack catalog.QuizPack
	if err := json.NewDecoder(r.Body).Decode(&pack); err != nil {
		http.Error(w, "invalid pack payload", http.StatusBadRequest)
		return
	}
	pack.ID = id
	pack.Normalize()
	if err := pack.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := database.UpdateQuizPack(r.Context(), &pack); err != nil {
		if errors.Is(err, database.ErrPackNotFound) {
			http.Error(w, "pack not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update pack", http.StatusInternalServerError)
		return
	}
	// Stale cache entries expire on their own; invalidation is best effort.
	_ = cache.InvalidateQuizPack(r.Context(), id)
	writeJSON(w, http.StatusOK, pack)
}

func deletePack(w http.ResponseWriter, r *http.Request, idStr string) {
	if _, err := requireIdentity(r); err != nil {
		http.Error(w, "invalid token", http.StatusForbidden)
		return
	}
	if database.DB == nil {
		http.Error(w, "catalog database not attached", http.StatusServiceUnavailable)
		return
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "invalid pack id", http.StatusBadRequest)
		return
	}

	if err := database.DeleteQuizPack(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrPackNotFound) {
			http.Error(w, "pack not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to delete pack", http.StatusInternalServerError)
		return
	}
	_ = cache.InvalidateQuizPack(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

// requireIdentity authenticates the auth_token cookie and returns the
// caller's id. Authoring endpoints never mint identities.
func requireIdentity(r *http.Request) (uuid.UUID, error) {
	token := extractCookieToken(r.Header.Get("Cookie"), "auth_token")
	ident, err := auth.AuthenticateIdentityJWT(token)
	if err != nil {
		return uuid.Nil, err
	}
	return ident.ID, nil
}

func packSummary(p *catalog.QuizPack) database.PackSummary {
	s := database.PackSummary{ID: p.ID, Title: p.Title, RoundCount: len(p.Rounds)}
	for _, r := range p.Rounds {
		s.QuestionCount += len(r.Questions)
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
