// internal/game/stage.go
package game

// Stage is the phase of the session state machine. Transitions are forward
// only, except for the round-repeat loop back to StageRoundStart;
// StageGameOver is terminal.
type Stage int

const (
	StageLobby Stage = iota
	StageRoundStart
	StageQuestionAsked
	StageAnswerCollection
	StageScoringReview
	StageRoundEnd
	StageGameOver
)

var stageNames = map[Stage]string{
	StageLobby:            "LOBBY",
	StageRoundStart:       "ROUND_START",
	StageQuestionAsked:    "QUESTION_ASKED",
	StageAnswerCollection: "ANSWER_COLLECTION",
	StageScoringReview:    "SCORING_REVIEW",
	StageRoundEnd:         "ROUND_END",
	StageGameOver:         "GAME_OVER",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// MarshalJSON sends stages to clients by name, not ordinal.
func (s Stage) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}
