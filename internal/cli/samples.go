package cli

import "quiz-attempt-service/internal/domain"

// sampleQuizzes backs the in-memory mode and the seed command.
func sampleQuizzes() map[int64]domain.Quiz {
	ten := 10
	tolerance := 0.01
	pi := 3.14
	return map[int64]domain.Quiz{
		1: {
			ID:                     1,
			Title:                  "Go basics",
			Status:                 domain.QuizOpen,
			DurationMinutes:        &ten,
			ShuffleQuestions:       true,
			ShuffleAnswers:         true,
			ShowScoreImmediately:   true,
			ShowAnswersAfterSubmit: true,
			PassingScore:           60,
			Sections: []domain.Section{
				{
					ID:    1,
					Title: "Language",
					Groups: []domain.QuestionGroup{{
						ID:    1,
						Title: "Goroutines",
						Questions: []domain.Question{
							{
								ID:     101,
								Text:   "Goroutines are multiplexed onto OS threads.",
								Type:   domain.QuestionTrueFalse,
								Points: 1,
								Options: []domain.Option{
									{ID: 1011, Text: "True", Correct: true},
									{ID: 1012, Text: "False"},
								},
							},
							{
								ID:              102,
								Text:            "Which keyword starts a goroutine?",
								Type:            domain.QuestionFillBlank,
								Points:          1,
								AcceptedAnswers: []string{"go"},
							},
						},
					}},
					Questions: []domain.Question{
						{
							ID:     103,
							Text:   "Which types are reference-like?",
							Type:   domain.QuestionMultipleAnswer,
							Points: 2,
							Options: []domain.Option{
								{ID: 1031, Text: "map", Correct: true},
								{ID: 1032, Text: "slice", Correct: true},
								{ID: 1033, Text: "array"},
								{ID: 1034, Text: "struct"},
							},
						},
						{
							ID:     104,
							Text:   "What does len(\"héllo\") return?",
							Type:   domain.QuestionSingleChoice,
							Points: 1,
							Options: []domain.Option{
								{ID: 1041, Text: "5"},
								{ID: 1042, Text: "6", Correct: true},
								{ID: 1043, Text: "4"},
							},
						},
					},
				},
				{
					ID:    2,
					Title: "Numbers",
					Questions: []domain.Question{{
						ID:            201,
						Text:          "Round pi to two decimals.",
						Type:          domain.QuestionNumeric,
						Points:        1,
						NumericAnswer: &pi,
						Tolerance:     tolerance,
					}},
				},
			},
		},
		2: {
			ID:                   2,
			Title:                "Untimed practice",
			Status:               domain.QuizOpen,
			ShowScoreImmediately: true,
			Sections: []domain.Section{{
				ID: 3,
				Questions: []domain.Question{{
					ID:     301,
					Text:   "What is 2 + 2?",
					Type:   domain.QuestionSingleChoice,
					Points: 1,
					Options: []domain.Option{
						{ID: 3011, Text: "3"},
						{ID: 3012, Text: "4", Correct: true},
						{ID: 3013, Text: "5"},
					},
				}},
			}},
		},
	}
}
