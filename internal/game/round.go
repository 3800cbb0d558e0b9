// internal/game/round.go
package game

import "github.com/jason-s-yu/quizroom/internal/catalog"

// Round is a session-owned play-through of one catalog round. The cursor
// is the index of the question currently being asked; it only ever moves
// forward, once per scored question, and never resets.
type Round struct {
	ID        int
	Name      string
	Questions []catalog.Question

	cursor int
}

// CurrentQuestion returns the question at the cursor, or nil once the
// round is exhausted.
func (r *Round) CurrentQuestion() *catalog.Question {
	if r.cursor >= len(r.Questions) {
		return nil
	}
	return &r.Questions[r.cursor]
}

// Exhausted reports whether every question in the round has been scored.
func (r *Round) Exhausted() bool {
	return r.cursor >= len(r.Questions)
}

// advance moves the cursor past the question just scored.
func (r *Round) advance() {
	r.cursor++
}

// buildRounds copies catalog rounds into session-owned state with 1-based
// round ids, so the pack itself stays immutable.
func buildRounds(pack *catalog.QuizPack) []*Round {
	rounds := make([]*Round, 0, len(pack.Rounds))
	for i, cr := range pack.Rounds {
		questions := make([]catalog.Question, len(cr.Questions))
		copy(questions, cr.Questions)
		rounds = append(rounds, &Round{
			ID:        i + 1,
			Name:      cr.Name,
			Questions: questions,
		})
	}
	return rounds
}
