package app

import "quiz-attempt-service/internal/domain"

// BuildResult renders a submitted attempt. Score fields are populated only when the
// quiz shows scores immediately and the answer key only when it shows answers after
// submission; otherwise they stay nil and are omitted from JSON.
func BuildResult(quiz domain.Quiz, attempt domain.QuizAttempt) domain.AttemptResult {
	res := domain.AttemptResult{
		AttemptID:        attempt.ID,
		QuizID:           attempt.QuizID,
		AttemptNumber:    attempt.AttemptNumber,
		Status:           attempt.Status,
		StartedAt:        attempt.StartedAt,
		TimeSpentSeconds: attempt.TimeSpentSeconds,
	}
	if attempt.SubmittedAt != nil {
		res.SubmittedAt = *attempt.SubmittedAt
	}

	if quiz.ShowScoreImmediately {
		total := attempt.TotalScore
		possible := quiz.PossibleScore()
		percentage := 0.0
		if possible > 0 {
			percentage = total / possible * 100
		}
		passed := percentage >= quiz.PassingScore
		res.TotalScore = &total
		res.TotalPossibleScore = &possible
		res.Percentage = &percentage
		res.Passed = &passed
		res.QuestionScores = make(map[int64]float64, len(attempt.Scores))
		for id, score := range attempt.Scores {
			res.QuestionScores[id] = score
		}
	}

	if quiz.ShowAnswersAfterSubmit {
		quiz.EachQuestion(func(q domain.Question) {
			key := domain.CorrectAnswer{
				QuestionID:      q.ID,
				AcceptedAnswers: q.AcceptedAnswers,
				NumericAnswer:   q.NumericAnswer,
			}
			if ids := q.CorrectOptionIDs(); len(ids) > 0 {
				key.CorrectOptionIDs = ids
			}
			if answer, ok := attempt.Answers[q.ID]; ok {
				key.SubmittedAnswer = &answer
			}
			res.CorrectAnswers = append(res.CorrectAnswers, key)
		})
	}
	return res
}

// BuildSummary renders a history row. Score fields come from BuildResult so the
// same visibility flags apply; in-progress attempts never carry scores.
func BuildSummary(quiz domain.Quiz, attempt domain.QuizAttempt) domain.AttemptSummary {
	summary := domain.AttemptSummary{
		AttemptID:        attempt.ID,
		QuizID:           attempt.QuizID,
		AttemptNumber:    attempt.AttemptNumber,
		Status:           attempt.Status,
		StartedAt:        attempt.StartedAt,
		SubmittedAt:      attempt.SubmittedAt,
		TimeSpentSeconds: attempt.TimeSpentSeconds,
	}
	if attempt.Status != domain.AttemptSubmitted {
		return summary
	}
	res := BuildResult(quiz, attempt)
	summary.TotalScore = res.TotalScore
	summary.TotalPossibleScore = res.TotalPossibleScore
	summary.Percentage = res.Percentage
	summary.Passed = res.Passed
	return summary
}
