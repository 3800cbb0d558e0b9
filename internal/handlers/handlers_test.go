// internal/handlers/handlers_test.go
package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/jason-s-yu/quizroom/internal/auth"
	"github.com/jason-s-yu/quizroom/internal/catalog"
	"github.com/jason-s-yu/quizroom/internal/database"
	"github.com/jason-s-yu/quizroom/internal/models"
)

// TestEnsureEphemeralIdentityMintsCookie checks that a tokenless request
// gets an identity plus an auth_token cookie it can present next time.
func TestEnsureEphemeralIdentityMintsCookie(t *testing.T) {
	auth.Init() // ephemeral keys, no DB needed

	req := httptest.NewRequest("GET", "/quiz/ws", nil)
	w := httptest.NewRecorder()

	ident, err := EnsureEphemeralIdentity(w, req)
	if err != nil {
		t.Fatalf("EnsureEphemeralIdentity failed: %v", err)
	}
	if ident.ID == uuid.Nil {
		t.Fatalf("identity has no ID")
	}

	cookies := w.Result().Cookies()
	var token string
	for _, c := range cookies {
		if c.Name == "auth_token" {
			token = c.Value
		}
	}
	if token == "" {
		t.Fatalf("no auth_token cookie set")
	}

	// The same token must resolve to the same identity on a later request.
	req2 := httptest.NewRequest("GET", "/quiz/ws", nil)
	req2.Header.Set("Cookie", "auth_token="+token)
	w2 := httptest.NewRecorder()

	ident2, err := EnsureEphemeralIdentity(w2, req2)
	if err != nil {
		t.Fatalf("second EnsureEphemeralIdentity failed: %v", err)
	}
	if ident2.ID != ident.ID {
		t.Fatalf("identity not stable across requests: %v vs %v", ident.ID, ident2.ID)
	}
	if len(w2.Result().Cookies()) != 0 {
		t.Fatalf("valid token should not be reissued")
	}
}

// TestListPacksWithoutDatabase checks the catalog still lists the built-in
// pack when no database is attached.
func TestListPacksWithoutDatabase(t *testing.T) {
	qs := NewQuizServer()

	req := httptest.NewRequest("GET", "/catalog/packs", nil)
	w := httptest.NewRecorder()
	PacksHandler(qs).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	var summaries []database.PackSummary
	if err := json.Unmarshal(w.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("failed to decode summaries: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected only the built-in pack, got %d entries", len(summaries))
	}
	if summaries[0].ID != catalog.SamplePackID {
		t.Fatalf("unexpected pack id %v", summaries[0].ID)
	}
	if summaries[0].QuestionCount == 0 {
		t.Fatalf("built-in pack summary has no questions")
	}
}

// TestCreatePackRejectedWithoutDatabase checks authoring is refused
// cleanly when the catalog database is not attached.
func TestCreatePackRejectedWithoutDatabase(t *testing.T) {
	auth.Init()
	qs := NewQuizServer()

	token, _ := auth.CreateIdentityJWT(models.Identity{ID: uuid.New(), Name: "Author"})
	body := `{"title":"My Pack","rounds":[]}`
	req := httptest.NewRequest("POST", "/catalog/packs", strings.NewReader(body))
	req.Header.Set("Cookie", "auth_token="+token)

	w := httptest.NewRecorder()
	PacksHandler(qs).ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", w.Code, w.Body.String())
	}
}

// TestGetBuiltinPackByID checks /catalog/packs/{id} serves the sample pack
// straight from memory.
func TestGetBuiltinPackByID(t *testing.T) {
	qs := NewQuizServer()

	req := httptest.NewRequest("GET", "/catalog/packs/"+catalog.SamplePackID.String(), nil)
	w := httptest.NewRecorder()
	PackByIDHandler(qs).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	var pack catalog.QuizPack
	if err := json.Unmarshal(w.Body.Bytes(), &pack); err != nil {
		t.Fatalf("failed to decode pack: %v", err)
	}
	if pack.ID != catalog.SamplePackID {
		t.Fatalf("unexpected pack id %v", pack.ID)
	}
	if err := pack.Validate(); err != nil {
		t.Fatalf("served pack does not validate: %v", err)
	}
}

// TestSessionInfoHandler checks the directory endpoint round trip.
func TestSessionInfoHandler(t *testing.T) {
	qs := NewQuizServer()
	s, err := qs.Sessions.CreateSession(catalog.SamplePack())
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	req := httptest.NewRequest("GET", "/session/"+s.Code, nil)
	w := httptest.NewRecorder()
	SessionInfoHandler(qs).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	var info sessionInfo
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("failed to decode session info: %v", err)
	}
	if info.LobbyCode != s.Code || !info.Joinable || info.PlayerCount != 0 {
		t.Fatalf("unexpected session info: %+v", info)
	}

	req = httptest.NewRequest("GET", "/session/NOPE", nil)
	w = httptest.NewRecorder()
	SessionInfoHandler(qs).ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown code, got %d", w.Code)
	}
}
