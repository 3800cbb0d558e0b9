// internal/handlers/session.go
package handlers

import (
	"net/http"
	"strings"

	"github.com/jason-s-yu/quizroom/internal/game"
)

type sessionInfo struct {
	LobbyCode   string `json:"lobbyCode"`
	Stage       string `json:"stage"`
	PlayerCount int    `json:"playerCount"`
	Joinable    bool   `json:"joinable"`
}

// SessionInfoHandler answers GET /session/{code} so clients can validate a
// join code before opening a socket.
func SessionInfoHandler(qs *QuizServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		code := strings.TrimPrefix(r.URL.Path, "/session/")
		if code == "" || strings.Contains(code, "/") {
			http.Error(w, "missing session code", http.StatusBadRequest)
			return
		}

		s, ok := qs.Sessions.GetSession(code)
		if !ok {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		s.Mu.Lock()
		info := sessionInfo{
			LobbyCode:   s.Code,
			Stage:       s.Stage.String(),
			PlayerCount: len(s.Players),
			Joinable:    s.Stage == game.StageLobby,
		}
		s.Mu.Unlock()
		writeJSON(w, http.StatusOK, info)
	}
}
