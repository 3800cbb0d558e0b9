// internal/catalog/catalog.go
package catalog

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Question kinds. Kind is informational for the client renderer; scoring
// always compares normalized answer strings regardless of kind.
const (
	KindTextInput      = "text_input"
	KindMultipleChoice = "multiple_choice"
	KindTrueFalse      = "true_false"
)

const (
	DefaultPointValue  = 100
	DefaultTimeLimitMs = 15000
)

// Question is one authored quiz question. Immutable once a pack is loaded
// into a session.
type Question struct {
	QuestionID    string   `json:"questionId"`
	Text          string   `json:"text"`
	Kind          string   `json:"type"`
	Choices       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correctAnswer"`
	PointValue    int      `json:"pointValue"`
	TimeLimitMs   int      `json:"timeLimitMs"`
}

// Round is an ordered group of questions played in sequence.
type Round struct {
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
}

// QuizPack is a host-authored set of rounds, the unit of catalog storage.
type QuizPack struct {
	ID     uuid.UUID `json:"id"`
	Title  string    `json:"title"`
	Rounds []Round   `json:"rounds"`
}

// Normalize fills generated ids and default point/time values in place,
// mirroring what authors are allowed to omit.
func (p *QuizPack) Normalize() {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	for ri := range p.Rounds {
		for qi := range p.Rounds[ri].Questions {
			q := &p.Rounds[ri].Questions[qi]
			if q.QuestionID == "" {
				q.QuestionID = newQuestionID()
			}
			if q.Kind == "" {
				q.Kind = KindTextInput
			}
			if q.PointValue <= 0 {
				q.PointValue = DefaultPointValue
			}
			if q.TimeLimitMs <= 0 {
				q.TimeLimitMs = DefaultTimeLimitMs
			}
		}
	}
}

// Validate checks a normalized pack for the fields a session relies on.
func (p *QuizPack) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("missing pack title")
	}
	if len(p.Rounds) == 0 {
		return fmt.Errorf("pack needs at least one round")
	}
	for ri, r := range p.Rounds {
		if strings.TrimSpace(r.Name) == "" {
			return fmt.Errorf("round %d: missing name", ri)
		}
		if len(r.Questions) == 0 {
			return fmt.Errorf("round %d: needs at least one question", ri)
		}
		for qi, q := range r.Questions {
			if strings.TrimSpace(q.Text) == "" {
				return fmt.Errorf("round %d question %d: missing text", ri, qi)
			}
			if strings.TrimSpace(q.CorrectAnswer) == "" {
				return fmt.Errorf("round %d question %d: missing correct answer", ri, qi)
			}
			switch q.Kind {
			case KindTextInput, KindTrueFalse:
			case KindMultipleChoice:
				if len(q.Choices) < 2 {
					return fmt.Errorf("round %d question %d: multiple choice needs at least two options", ri, qi)
				}
			default:
				return fmt.Errorf("round %d question %d: unknown question type %q", ri, qi, q.Kind)
			}
		}
	}
	return nil
}

// newQuestionID generates a short opaque id for questions authored without one.
func newQuestionID() string {
	return uuid.NewString()[:8]
}
