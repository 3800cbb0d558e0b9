// internal/handlers/quiz_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/quizroom/internal/game"
	"github.com/jason-s-yu/quizroom/internal/middleware"
	"github.com/jason-s-yu/quizroom/internal/models"
)

// QuizMessage is the single envelope for every client-to-server message.
// Type selects the action; the other fields are read per action.
type QuizMessage struct {
	Type       string `json:"type"`
	PackID     string `json:"packId,omitempty"`
	LobbyCode  string `json:"lobbyCode,omitempty"`
	PlayerName string `json:"playerName,omitempty"`
	AvatarURL  string `json:"avatarUrl,omitempty"`
	IsReady    *bool  `json:"isReady,omitempty"`
	Answer     string `json:"answer,omitempty"`
}

// QuizWSHandler runs the ephemeral in-memory WS flow: one socket per
// player, bound to at most one session for its lifetime. The first
// meaningful message must be host_game or join_game.
func QuizWSHandler(logger *logrus.Logger, qs *QuizServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remoteAddr := r.RemoteAddr

		// Resolve identity before the upgrade so a fresh cookie can still
		// ride on the 101 response.
		ident, err := EnsureEphemeralIdentity(w, r)
		if err != nil {
			logger.Warnf("identity resolution failed for %s: %v", remoteAddr, err)
			http.Error(w, "could not establish identity", http.StatusInternalServerError)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"quiz"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "quiz" {
			c.Close(BadSubprotocolError, "client must speak the quiz subprotocol")
			return
		}

		middleware.LogWebSocketConnect(logger, remoteAddr, r.URL.Path)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		conn := &models.PlayerConn{
			UserID:  ident.ID,
			Cancel:  cancel,
			OutChan: make(chan []byte, 32),
		}

		go writePump(ctx, c, conn, logger)

		session := readPump(ctx, c, qs, ident, conn, logger)

		// ---- Cleanup after readPump exits ----
		middleware.LogWebSocketDisconnect(logger, remoteAddr, r.URL.Path, nil)
		if session != nil {
			session.HandleDisconnect(ident.ID)
		}
	}
}

// readPump consumes client messages until the socket dies. It returns the
// session the connection ended up bound to, if any, so the caller can run
// disconnect handling.
func readPump(ctx context.Context, c *websocket.Conn, qs *QuizServer, ident models.Identity, conn *models.PlayerConn, logger *logrus.Logger) *game.QuizSession {
	var session *game.QuizSession

	for {
		select {
		case <-ctx.Done():
			return session
		default:
		}

		typ, msg, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				logger.Infof("WebSocket closed normally for player %v", ident.ID)
			} else if strings.Contains(err.Error(), "context canceled") {
				// Parent context ended, nothing to log.
			} else {
				logger.Warnf("Read error for player %v: %v (CloseStatus: %d)", ident.ID, err, closeStatus)
			}
			return session
		}

		if typ != websocket.MessageText {
			logger.Warnf("Received non-text message type %d from player %v. Ignoring.", typ, ident.ID)
			continue
		}

		var packet QuizMessage
		if err := json.Unmarshal(msg, &packet); err != nil {
			logger.Warnf("Invalid json from player %v: %v", ident.ID, err)
			sendError(conn, "Invalid JSON format")
			continue
		}

		switch packet.Type {
		case "host_game":
			if session != nil {
				sendError(conn, "Already in a session")
				continue
			}
			pack, err := qs.ResolvePack(ctx, packet.PackID)
			if err != nil {
				logger.Warnf("Pack resolution failed for player %v: %v", ident.ID, err)
				sendError(conn, "Could not load the requested quiz pack")
				continue
			}
			s, err := qs.Sessions.CreateSession(pack)
			if err != nil {
				logger.Errorf("Session creation failed: %v", err)
				sendError(conn, "Could not create a session")
				continue
			}
			wireSessionTransport(s, logger)
			if err := s.Join(applyProfile(ident, packet), conn); err != nil {
				sendError(conn, err.Error())
				continue
			}
			session = s
			logger.Infof("Player %v hosting session %s (pack %q)", ident.ID, s.Code, pack.Title)

		case "join_game":
			if session != nil {
				sendError(conn, "Already in a session")
				continue
			}
			s, ok := qs.Sessions.GetSession(packet.LobbyCode)
			if !ok {
				sendError(conn, "Lobby not found. Check the code and try again.")
				continue
			}
			wireSessionTransport(s, logger)
			if err := s.Join(applyProfile(ident, packet), conn); err != nil {
				sendError(conn, "The game has already started.")
				continue
			}
			session = s
			logger.Infof("Player %v joined session %s", ident.ID, s.Code)

		case "set_ready":
			if session == nil || packet.IsReady == nil {
				continue
			}
			session.SetReady(ident.ID, *packet.IsReady)

		case "start_game":
			if session == nil {
				sendError(conn, "Join a session first")
				continue
			}
			session.StartGame(ident.ID)

		case "submit_answer":
			if session == nil {
				continue
			}
			session.SubmitAnswer(ident.ID, packet.Answer)

		case "ping":
			conn.Send([]byte(`{"type":"pong"}`))

		default:
			logger.Warnf("Unknown action %q from player %v", packet.Type, ident.ID)
			sendError(conn, "Unknown action type: "+packet.Type)
		}
	}
}

// applyProfile overlays the profile fields a client sent in its first
// message onto the token identity. The id always comes from the token.
func applyProfile(ident models.Identity, packet QuizMessage) models.Identity {
	if name := strings.TrimSpace(packet.PlayerName); name != "" {
		ident.Name = name
	}
	if ident.Name == "" {
		ident.Name = "Guest"
	}
	if packet.AvatarURL != "" {
		ident.Avatar = packet.AvatarURL
	}
	return ident
}

// wireSessionTransport installs the broadcast capabilities on a session
// the first time a socket binds to it. Both closures run with the session
// lock already held, so they walk the roster directly and only ever push
// to non-blocking per-connection channels.
func wireSessionTransport(s *game.QuizSession, logger *logrus.Logger) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.BroadcastFn != nil {
		return
	}
	s.BroadcastFn = func(ev game.Event) {
		data, err := json.Marshal(ev)
		if err != nil {
			logger.Errorf("Session %s: failed to marshal %s event: %v", s.Code, ev.Type, err)
			return
		}
		for _, p := range s.Players {
			if p.Connected && p.Conn != nil {
				p.Conn.Send(data)
			}
		}
	}
	s.UnicastFn = func(playerID uuid.UUID, ev game.Event) {
		data, err := json.Marshal(ev)
		if err != nil {
			logger.Errorf("Session %s: failed to marshal %s event: %v", s.Code, ev.Type, err)
			return
		}
		for _, p := range s.Players {
			if p.ID == playerID && p.Connected && p.Conn != nil {
				p.Conn.Send(data)
				return
			}
		}
	}
}

// sendError pushes a lobby_error straight to one connection, for failures
// that happen before (or instead of) any session involvement.
func sendError(conn *models.PlayerConn, msg string) {
	data, err := json.Marshal(game.Event{Type: game.EventLobbyError, Message: msg})
	if err != nil {
		return
	}
	conn.Send(data)
}

// writePump drains the connection's outbound channel onto the socket and
// keeps the link alive with periodic pings. Events are already encoded by
// the time they land on OutChan, so ordering is whatever order the game
// core emitted them in.
func writePump(ctx context.Context, c *websocket.Conn, conn *models.PlayerConn, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	defer func() {
		_ = c.Close(websocket.StatusGoingAway, "Write pump stopping")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-conn.OutChan:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("Failed to write to websocket for player %v: %v", conn.UserID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("Failed to ping player %v: %v. Assuming disconnect.", conn.UserID, err)
				return
			}
		}
	}
}
