// internal/game/session.go
package game

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jason-s-yu/quizroom/internal/catalog"
	"github.com/jason-s-yu/quizroom/internal/models"
)

// Timing holds the fixed delays that pace a game. Tests shrink these; the
// defaults are the production values.
type Timing struct {
	// AnswerBuffer is added on top of a question's time limit before the
	// collection window closes, to absorb client latency.
	AnswerBuffer time.Duration
	// RoundStartDelay is the pause between ROUND_START and the first
	// question of the round.
	RoundStartDelay time.Duration
	// ReviewDelay is the pause after results are shown before play
	// continues.
	ReviewDelay time.Duration
	// RoundEndDelay is the pause on ROUND_END before the next round (or
	// GAME_OVER).
	RoundEndDelay time.Duration
	// EmptyGrace is how long a mid-game session with zero connected
	// players survives before it is discarded.
	EmptyGrace time.Duration
}

// DefaultTiming returns the production pacing.
func DefaultTiming() Timing {
	return Timing{
		AnswerBuffer:    1 * time.Second,
		RoundStartDelay: 3 * time.Second,
		ReviewDelay:     7 * time.Second,
		RoundEndDelay:   5 * time.Second,
		EmptyGrace:      30 * time.Second,
	}
}

// QuizSession holds the entire state for one running game. Every mutation
// (join, ready toggle, answer, timer fire) runs as a discrete step under
// Mu, so no two mutations to the same session ever interleave. Sessions
// share nothing, so distinct sessions run fully concurrently.
type QuizSession struct {
	Code string

	Rounds            []*Round
	CurrentRoundIndex int
	Stage             Stage
	Players           []*models.Player

	Timing Timing
	Mu     sync.Mutex

	// BroadcastFn sends an event to every member of the session. Injected
	// by the host environment; nil broadcasts are logged and dropped.
	BroadcastFn func(ev Event)

	// UnicastFn sends an event to a single player's connection.
	UnicastFn func(playerID uuid.UUID, ev Event)

	// OnEmpty is invoked (outside the lock) when the session should be
	// discarded: empty lobby, or grace period elapsed with nobody
	// connected. Typically wired by the SessionStore to delete the code.
	OnEmpty func(code string)

	// questionStart marks when the current question was presented; answer
	// latency is measured against it.
	questionStart time.Time

	// timer is the session's single game-flow timer slot. timerSeq stamps
	// each scheduled callback so a superseded timer firing late is a
	// no-op.
	timer    *time.Timer
	timerSeq int

	// graceTimer is the separate lifecycle timer for abandoned sessions.
	graceTimer *time.Timer
}

// NewQuizSession builds a session in the lobby stage with its own copy of
// the pack's rounds.
func NewQuizSession(code string, pack *catalog.QuizPack) *QuizSession {
	return &QuizSession{
		Code:   code,
		Rounds: buildRounds(pack),
		Stage:  StageLobby,
		Timing: DefaultTiming(),
	}
}

// Join adds a player to the roster or reattaches a returning identity's
// connection. The first player of a fresh session becomes host. Unknown
// identities are only admitted while the session is still in the lobby.
func (s *QuizSession) Join(ident models.Identity, conn *models.PlayerConn) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	for _, p := range s.Players {
		if p.ID == ident.ID {
			s.stopGraceTimer()
			p.Conn = conn
			p.Connected = true
			log.Printf("session %s: player %s reconnected", s.Code, p.ID)
			s.broadcastLobbyUpdate()
			s.resyncPlayer(p.ID)
			return nil
		}
	}

	if s.Stage != StageLobby {
		return fmt.Errorf("session %s: game already in progress", s.Code)
	}

	p := &models.Player{
		ID:        ident.ID,
		Name:      ident.Name,
		Avatar:    ident.Avatar,
		Conn:      conn,
		Connected: true,
		IsHost:    len(s.Players) == 0,
	}
	s.Players = append(s.Players, p)
	log.Printf("session %s: player %s (%s) joined", s.Code, p.ID, p.Name)
	s.broadcastLobbyUpdate()
	return nil
}

// SetReady toggles a player's ready flag. Only meaningful before the game
// starts; it always triggers a roster broadcast.
func (s *QuizSession) SetReady(playerID uuid.UUID, ready bool) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if s.Stage != StageLobby {
		return
	}
	p := s.playerByID(playerID)
	if p == nil || !p.Connected {
		return
	}
	p.IsReady = ready
	s.broadcastLobbyUpdate()
}

// StartGame begins play. Host-only; requires at least two ready players.
// On success every score resets to zero, ready flags clear, and the first
// question follows ROUND_START after the configured delay.
func (s *QuizSession) StartGame(requesterID uuid.UUID) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	p := s.playerByID(requesterID)
	if p == nil {
		return
	}
	if !p.IsHost {
		s.fireEventToPlayer(requesterID, errorEvent("Only the host can start the game."))
		return
	}
	if s.Stage != StageLobby {
		s.fireEventToPlayer(requesterID, errorEvent("The game has already started."))
		return
	}

	ready := 0
	for _, pl := range s.Players {
		if pl.IsReady {
			ready++
		}
	}
	if ready < 2 {
		s.fireEvent(errorEvent("Need at least two ready players to start."))
		return
	}

	s.CurrentRoundIndex = 0
	for _, pl := range s.Players {
		pl.Score = 0
		pl.IsReady = false
	}

	s.updateStage(StageRoundStart)
	s.schedule(s.Timing.RoundStartDelay, func() {
		s.startNextQuestion()
	})
}

// HandleDisconnect processes a dropped connection. In the lobby the player
// is removed outright; mid-game only the handle is cleared so the score
// survives a reconnect. A session left with no connections mid-game is
// discarded after the grace period.
func (s *QuizSession) HandleDisconnect(playerID uuid.UUID) {
	s.Mu.Lock()

	p := s.playerByID(playerID)
	if p == nil {
		s.Mu.Unlock()
		return
	}

	if s.Stage == StageLobby {
		for i, pl := range s.Players {
			if pl.ID == playerID {
				s.Players = append(s.Players[:i], s.Players[i+1:]...)
				break
			}
		}
		log.Printf("session %s: player %s left the lobby", s.Code, playerID)
		if len(s.Players) == 0 {
			s.cancelScheduled()
			cb, code := s.OnEmpty, s.Code
			s.Mu.Unlock()
			if cb != nil {
				cb(code)
			}
			return
		}
		s.broadcastLobbyUpdate()
		s.Mu.Unlock()
		return
	}

	if p.Connected {
		p.Conn = nil
		p.Connected = false
		log.Printf("session %s: player %s disconnected mid-game", s.Code, playerID)
		s.broadcastLobbyUpdate()
		if s.countConnected() == 0 {
			s.startGraceTimer()
		}
	}
	s.Mu.Unlock()
}

// updateStage performs a stage transition: set the value, notify the
// session, then run the stage's side effects. Assumes the lock is held.
func (s *QuizSession) updateStage(newStage Stage) {
	s.Stage = newStage
	s.fireEvent(Event{
		Type: EventStageUpdate,
		Stage: &StagePayload{
			Stage:             newStage,
			RoundIndex:        s.CurrentRoundIndex,
			CurrentQuestionID: s.currentQuestionID(),
		},
	})

	switch newStage {
	case StageAnswerCollection:
		q := s.currentQuestion()
		if q == nil {
			return
		}
		limit := time.Duration(q.TimeLimitMs)*time.Millisecond + s.Timing.AnswerBuffer
		s.schedule(limit, func() {
			s.updateStage(StageScoringReview)
		})
	case StageScoringReview:
		s.scoreCurrentQuestion()
	case StageRoundEnd:
		s.schedule(s.Timing.RoundEndDelay, func() {
			s.CurrentRoundIndex++
			if s.CurrentRoundIndex < len(s.Rounds) {
				s.updateStage(StageRoundStart)
				s.schedule(s.Timing.RoundStartDelay, func() {
					s.startNextQuestion()
				})
			} else {
				s.updateStage(StageGameOver)
			}
		})
	case StageGameOver:
		s.cancelScheduled()
		log.Printf("session %s: game over", s.Code)
	}
}

// startNextQuestion asks the question at the round cursor, or closes the
// round if it is exhausted. Clients see new_question and the
// ANSWER_COLLECTION stage change back to back, in that order. Assumes the
// lock is held.
func (s *QuizSession) startNextQuestion() {
	r := s.currentRound()
	if r == nil || r.Exhausted() {
		s.updateStage(StageRoundEnd)
		return
	}
	q := r.CurrentQuestion()

	for _, p := range s.Players {
		p.LastAnswer = nil
		p.ResponseTimeMs = nil
	}
	s.questionStart = time.Now()

	s.updateStage(StageQuestionAsked)
	s.fireEvent(Event{Type: EventNewQuestion, Question: s.questionPayload(r, q)})
	s.updateStage(StageAnswerCollection)
}

// schedule arms the session's single game-flow timer, superseding any
// previous one. The callback runs under the lock and only if it is still
// the newest scheduled task, so stale timers can never act. Assumes the
// lock is held.
func (s *QuizSession) schedule(d time.Duration, fn func()) {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerSeq++
	seq := s.timerSeq
	s.timer = time.AfterFunc(d, func() {
		s.Mu.Lock()
		defer s.Mu.Unlock()
		if seq != s.timerSeq {
			return
		}
		s.timer = nil
		fn()
	})
}

// cancelScheduled stops any pending game-flow timer and invalidates its
// callback even if it has already fired and is waiting on the lock.
// Assumes the lock is held.
func (s *QuizSession) cancelScheduled() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerSeq++
}

// startGraceTimer arms the abandoned-session timer. Assumes the lock is
// held.
func (s *QuizSession) startGraceTimer() {
	if s.graceTimer != nil {
		s.graceTimer.Stop()
	}
	s.graceTimer = time.AfterFunc(s.Timing.EmptyGrace, func() {
		s.Mu.Lock()
		s.graceTimer = nil
		if s.countConnected() > 0 {
			s.Mu.Unlock()
			return
		}
		s.cancelScheduled()
		cb, code := s.OnEmpty, s.Code
		s.Mu.Unlock()
		log.Printf("session %s: abandoned, discarding", code)
		if cb != nil {
			cb(code)
		}
	})
}

// stopGraceTimer cancels the abandoned-session timer, if armed. Assumes
// the lock is held.
func (s *QuizSession) stopGraceTimer() {
	if s.graceTimer != nil {
		s.graceTimer.Stop()
		s.graceTimer = nil
	}
}

// resyncPlayer catches a reconnected client up: where the state machine
// stands, and the in-flight question if one is still collecting answers.
// Assumes the lock is held.
func (s *QuizSession) resyncPlayer(playerID uuid.UUID) {
	if s.Stage == StageLobby {
		return
	}
	s.fireEventToPlayer(playerID, Event{
		Type: EventStageUpdate,
		Stage: &StagePayload{
			Stage:             s.Stage,
			RoundIndex:        s.CurrentRoundIndex,
			CurrentQuestionID: s.currentQuestionID(),
		},
	})
	if s.Stage != StageAnswerCollection {
		return
	}
	r := s.currentRound()
	q := s.currentQuestion()
	if r == nil || q == nil {
		return
	}
	s.fireEventToPlayer(playerID, Event{Type: EventNewQuestion, Question: s.questionPayload(r, q)})
}

// questionPayload builds the sanitized client view of a question. Assumes
// the lock is held.
func (s *QuizSession) questionPayload(r *Round, q *catalog.Question) *QuestionPayload {
	return &QuestionPayload{
		QuestionID:            q.QuestionID,
		Text:                  q.Text,
		Kind:                  q.Kind,
		Choices:               q.Choices,
		TimeLimitMs:           q.TimeLimitMs,
		CurrentRound:          s.CurrentRoundIndex + 1,
		TotalRounds:           len(s.Rounds),
		QuestionNumber:        r.cursor + 1,
		TotalQuestionsInRound: len(r.Questions),
	}
}

// broadcastLobbyUpdate publishes the sanitized roster. Assumes the lock is
// held.
func (s *QuizSession) broadcastLobbyUpdate() {
	players := make([]SanitizedPlayer, 0, len(s.Players))
	for _, p := range s.Players {
		players = append(players, sanitizePlayer(p))
	}
	s.fireEvent(Event{
		Type: EventLobbyUpdate,
		Lobby: &LobbyPayload{
			Code:    s.Code,
			Players: players,
			Stage:   s.Stage,
		},
	})
}

// fireEvent hands an event to the injected broadcast capability. Assumes
// the lock is held.
func (s *QuizSession) fireEvent(ev Event) {
	if s.BroadcastFn == nil {
		log.Printf("session %s: BroadcastFn is nil, dropping %s", s.Code, ev.Type)
		return
	}
	s.BroadcastFn(ev)
}

// fireEventToPlayer sends an event to one connected player. Assumes the
// lock is held.
func (s *QuizSession) fireEventToPlayer(playerID uuid.UUID, ev Event) {
	if s.UnicastFn == nil {
		log.Printf("session %s: UnicastFn is nil, dropping %s for %s", s.Code, ev.Type, playerID)
		return
	}
	if p := s.playerByID(playerID); p == nil || !p.Connected {
		return
	}
	s.UnicastFn(playerID, ev)
}

func (s *QuizSession) playerByID(id uuid.UUID) *models.Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *QuizSession) countConnected() int {
	n := 0
	for _, p := range s.Players {
		if p.Connected {
			n++
		}
	}
	return n
}

func (s *QuizSession) currentRound() *Round {
	if s.CurrentRoundIndex < 0 || s.CurrentRoundIndex >= len(s.Rounds) {
		return nil
	}
	return s.Rounds[s.CurrentRoundIndex]
}

func (s *QuizSession) currentQuestion() *catalog.Question {
	r := s.currentRound()
	if r == nil {
		return nil
	}
	return r.CurrentQuestion()
}

// currentQuestionID re-derives the active question id from the cursor at
// broadcast time. During SCORING_REVIEW and ROUND_END the cursor has
// already advanced, so this names the upcoming question, or nil once the
// round is exhausted.
func (s *QuizSession) currentQuestionID() *string {
	q := s.currentQuestion()
	if q == nil {
		return nil
	}
	id := q.QuestionID
	return &id
}
