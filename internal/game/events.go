// internal/game/events.go
package game

import (
	"github.com/google/uuid"

	"github.com/jason-s-yu/quizroom/internal/models"
)

// EventType is an enum-like type for notifications emitted by a session.
type EventType string

const (
	EventLobbyUpdate     EventType = "lobby_update"     // roster or stage changed
	EventStageUpdate     EventType = "stage_update"     // state machine advanced
	EventNewQuestion     EventType = "new_question"     // sanitized question payload
	EventAnswerReceived  EventType = "answer_received"  // unicast submission ack
	EventQuestionResults EventType = "question_results" // scores + leaderboard
	EventLobbyError      EventType = "lobby_error"      // validation failure
)

// Event is the envelope a session hands to its injected broadcast
// functions. Exactly the payload field matching Type is set.
type Event struct {
	Type     EventType        `json:"type"`
	Lobby    *LobbyPayload    `json:"lobby,omitempty"`
	Stage    *StagePayload    `json:"stage,omitempty"`
	Question *QuestionPayload `json:"question,omitempty"`
	Results  *ResultsPayload  `json:"results,omitempty"`
	Message  string           `json:"message,omitempty"`
}

// SanitizedPlayer is the roster projection sent to clients. It never
// carries the raw connection handle.
type SanitizedPlayer struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Avatar      string    `json:"avatar"`
	IsReady     bool      `json:"isReady"`
	IsConnected bool      `json:"isConnected"`
	Score       int       `json:"score"`
}

// LobbyPayload accompanies lobby_update.
type LobbyPayload struct {
	Code    string            `json:"lobbyCode"`
	Players []SanitizedPlayer `json:"players"`
	Stage   Stage             `json:"currentStage"`
}

// StagePayload accompanies stage_update. CurrentQuestionID is nil when no
// question is active at the cursor.
type StagePayload struct {
	Stage             Stage   `json:"stage"`
	RoundIndex        int     `json:"roundIndex"`
	CurrentQuestionID *string `json:"currentQuestionId"`
}

// QuestionPayload accompanies new_question. It deliberately omits the
// correct answer.
type QuestionPayload struct {
	QuestionID            string   `json:"questionId"`
	Text                  string   `json:"text"`
	Kind                  string   `json:"type"`
	Choices               []string `json:"options,omitempty"`
	TimeLimitMs           int      `json:"timeLimitMs"`
	CurrentRound          int      `json:"currentRound"`
	TotalRounds           int      `json:"totalRounds"`
	QuestionNumber        int      `json:"questionNumber"`
	TotalQuestionsInRound int      `json:"totalQuestionsInRound"`
}

// PlayerResult is a single player's outcome for one question.
type PlayerResult struct {
	ID         uuid.UUID `json:"id"`
	Score      int       `json:"score"`
	LastAnswer *string   `json:"lastAnswer"`
	IsCorrect  bool      `json:"isCorrect"`
}

// LeaderboardEntry is one row of the running standings.
type LeaderboardEntry struct {
	Name   string    `json:"name"`
	Score  int       `json:"score"`
	Avatar string    `json:"avatar"`
	ID     uuid.UUID `json:"id"`
}

// ResultsPayload accompanies question_results. NextDelaySeconds tells the
// client how long the review pause lasts before play continues.
type ResultsPayload struct {
	CorrectAnswer    string             `json:"correctAnswer"`
	Scores           []PlayerResult     `json:"scores"`
	Leaderboard      []LeaderboardEntry `json:"leaderboard"`
	NextDelaySeconds int                `json:"nextQuestionTimer"`
}

func errorEvent(msg string) Event {
	return Event{Type: EventLobbyError, Message: msg}
}

func sanitizePlayer(p *models.Player) SanitizedPlayer {
	return SanitizedPlayer{
		ID:          p.ID,
		Name:        p.Name,
		Avatar:      p.Avatar,
		IsReady:     p.IsReady,
		IsConnected: p.Connected,
		Score:       p.Score,
	}
}
