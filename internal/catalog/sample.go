package catalog

import "github.com/google/uuid"

// SamplePackID is the well-known id of the built-in pack, used when a
// session is hosted without choosing one from the catalog.
var SamplePackID = uuid.MustParse("6f1c9b2e-0000-4000-8000-000000000001")

// SamplePack returns the built-in "Christmas Quiz Classic" content so the
// service is playable with no catalog database attached.
func SamplePack() *QuizPack {
	pack := &QuizPack{
		ID:    SamplePackID,
		Title: "Christmas Quiz Classic",
		Rounds: []Round{
			{
				Name: "Round 1: Christmas Trivia",
				Questions: []Question{
					{
						Text:          "In the song 'The Twelve Days of Christmas', how many gold rings are mentioned?",
						Kind:          KindTextInput,
						CorrectAnswer: "five",
						PointValue:    100,
						TimeLimitMs:   15000,
					},
					{
						Text:          "What is the name of the alternate personality of Ebenezer Scrooge's nephew, Fred, in 'A Christmas Carol'?",
						Kind:          KindTextInput,
						CorrectAnswer: "topper",
						PointValue:    150,
						TimeLimitMs:   20000,
					},
					{
						Text:          "Which US state was the first to recognize Christmas as a legal holiday?",
						Kind:          KindTextInput,
						CorrectAnswer: "alabama",
						PointValue:    100,
						TimeLimitMs:   15000,
					},
				},
			},
			{
				Name: "Round 2: Movie Quotes",
				Questions: []Question{
					{
						Text:          "Finish the quote: 'You smell like a Waffle House, and...' from Elf.",
						Kind:          KindTextInput,
						CorrectAnswer: "you smell like a new years eve party",
						PointValue:    200,
						TimeLimitMs:   20000,
					},
					{
						Text:          "In Home Alone, what is the name of the two robbers?",
						Kind:          KindTextInput,
						CorrectAnswer: "harry and marv",
						PointValue:    250,
						TimeLimitMs:   25000,
					},
				},
			},
		},
	}
	pack.Normalize()
	return pack
}
