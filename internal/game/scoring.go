// internal/game/scoring.go
package game

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxSpeedBonus caps the per-question bonus awarded for answering fast.
const maxSpeedBonus = 50

// SubmitAnswer records a player's answer for the current question. Answers
// outside the collection window, from unknown players, or repeated for the
// same question are silently ignored; the model never penalizes, it only
// stops listening. If every connected player has answered the collection
// window closes immediately.
func (s *QuizSession) SubmitAnswer(playerID uuid.UUID, answer string) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if s.Stage != StageAnswerCollection {
		return
	}
	p := s.playerByID(playerID)
	if p == nil || !p.Connected {
		return
	}
	if p.LastAnswer != nil {
		return
	}

	a := answer
	latency := time.Since(s.questionStart).Milliseconds()
	p.LastAnswer = &a
	p.ResponseTimeMs = &latency

	s.fireEventToPlayer(playerID, Event{Type: EventAnswerReceived})

	for _, pl := range s.Players {
		if pl.Connected && pl.LastAnswer == nil {
			return
		}
	}
	s.cancelScheduled()
	s.updateStage(StageScoringReview)
}

// scoreCurrentQuestion grades the question at the round cursor, applies
// points, advances the cursor, and publishes the results with the
// leaderboard. Grading is case-insensitive and ignores surrounding
// whitespace. Assumes the lock is held.
func (s *QuizSession) scoreCurrentQuestion() {
	r := s.currentRound()
	if r == nil {
		return
	}
	q := r.CurrentQuestion()
	if q == nil {
		return
	}

	want := normalizeAnswer(q.CorrectAnswer)
	scores := make([]PlayerResult, 0, len(s.Players))
	for _, p := range s.Players {
		res := PlayerResult{
			ID:         p.ID,
			LastAnswer: p.LastAnswer,
		}
		if p.LastAnswer != nil && normalizeAnswer(*p.LastAnswer) == want {
			awarded := q.PointValue
			if p.ResponseTimeMs != nil {
				awarded += speedBonus(*p.ResponseTimeMs)
			}
			p.Score += awarded
			res.IsCorrect = true
		}
		res.Score = p.Score
		scores = append(scores, res)
	}

	// Cursor moves exactly once per grading pass, so a question can never
	// be scored twice.
	r.advance()

	s.fireEvent(Event{
		Type: EventQuestionResults,
		Results: &ResultsPayload{
			CorrectAnswer:    q.CorrectAnswer,
			Scores:           scores,
			Leaderboard:      s.leaderboard(),
			NextDelaySeconds: int(s.Timing.ReviewDelay / time.Second),
		},
	})

	s.schedule(s.Timing.ReviewDelay, func() {
		s.startNextQuestion()
	})
}

// speedBonus maps answer latency to bonus points: one point lost per
// second elapsed, floored at zero.
func speedBonus(responseMs int64) int {
	bonus := maxSpeedBonus - int(responseMs/1000)
	if bonus < 0 {
		return 0
	}
	return bonus
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// leaderboard returns every player ordered by descending score. The sort
// is stable, so players on equal scores keep their join order from one
// broadcast to the next. Assumes the lock is held.
func (s *QuizSession) leaderboard() []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(s.Players))
	for _, p := range s.Players {
		entries = append(entries, LeaderboardEntry{
			ID:     p.ID,
			Name:   p.Name,
			Avatar: p.Avatar,
			Score:  p.Score,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	return entries
}
