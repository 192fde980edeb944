package domain

import "time"

// OptionView is an answer choice as presented to the student.
type OptionView struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// QuestionView is a question in presentation order with its attempt state overlaid.
type QuestionView struct {
	ID            int64        `json:"id"`
	Text          string       `json:"text"`
	Type          QuestionType `json:"type"`
	Points        float64      `json:"points"`
	Options       []OptionView `json:"options,omitempty"`
	IsAnswered    bool         `json:"isAnswered"`
	CurrentScore  *float64     `json:"currentScore,omitempty"`
	CurrentAnswer *Answer      `json:"currentAnswer,omitempty"`
}

// GroupView keeps the authored question order of a group.
type GroupView struct {
	ID        int64          `json:"id"`
	Title     string         `json:"title"`
	Questions []QuestionView `json:"questions"`
}

// SectionView mirrors a quiz section after shuffling.
type SectionView struct {
	ID        int64          `json:"id"`
	Title     string         `json:"title"`
	Groups    []GroupView    `json:"groups,omitempty"`
	Questions []QuestionView `json:"questions,omitempty"`
}

// AttemptView is returned by start and resume.
type AttemptView struct {
	AttemptID        string        `json:"attemptId"`
	QuizID           int64         `json:"quizId"`
	QuizTitle        string        `json:"quizTitle"`
	AttemptNumber    int           `json:"attemptNumber"`
	Status           AttemptStatus `json:"status"`
	StartedAt        time.Time     `json:"startedAt"`
	Deadline         *time.Time    `json:"deadline,omitempty"`
	RemainingSeconds *int          `json:"remainingSeconds,omitempty"`
	Sections         []SectionView `json:"sections"`
}

// CorrectAnswer reveals the key of one question after submission.
type CorrectAnswer struct {
	QuestionID       int64    `json:"questionId"`
	CorrectOptionIDs []int64  `json:"correctOptionIds,omitempty"`
	AcceptedAnswers  []string `json:"acceptedAnswers,omitempty"`
	NumericAnswer    *float64 `json:"numericAnswer,omitempty"`
	SubmittedAnswer  *Answer  `json:"submittedAnswer,omitempty"`
}

// AttemptResult is the post-submission view. Score fields are nil unless the quiz
// shows scores immediately; CorrectAnswers is nil unless it shows answers.
type AttemptResult struct {
	AttemptID          string            `json:"attemptId"`
	QuizID             int64             `json:"quizId"`
	AttemptNumber      int               `json:"attemptNumber"`
	Status             AttemptStatus     `json:"status"`
	StartedAt          time.Time         `json:"startedAt"`
	SubmittedAt        time.Time         `json:"submittedAt"`
	TimeSpentSeconds   int               `json:"timeSpentSeconds"`
	TotalScore         *float64          `json:"totalScore,omitempty"`
	TotalPossibleScore *float64          `json:"totalPossibleScore,omitempty"`
	Percentage         *float64          `json:"percentage,omitempty"`
	Passed             *bool             `json:"passed,omitempty"`
	QuestionScores     map[int64]float64 `json:"questionScores,omitempty"`
	CorrectAnswers     []CorrectAnswer   `json:"correctAnswers,omitempty"`
}

// AnswerScore is the outcome of one incremental answer update.
type AnswerScore struct {
	AttemptID  string  `json:"attemptId"`
	QuestionID int64   `json:"questionId"`
	Score      float64 `json:"score"`
}

// AttemptSummary is one row of a user's attempt history. Score fields follow the
// same visibility gating as AttemptResult and are only set for submitted attempts.
type AttemptSummary struct {
	AttemptID          string        `json:"attemptId"`
	QuizID             int64         `json:"quizId"`
	AttemptNumber      int           `json:"attemptNumber"`
	Status             AttemptStatus `json:"status"`
	StartedAt          time.Time     `json:"startedAt"`
	SubmittedAt        *time.Time    `json:"submittedAt,omitempty"`
	TimeSpentSeconds   int           `json:"timeSpentSeconds"`
	TotalScore         *float64      `json:"totalScore,omitempty"`
	TotalPossibleScore *float64      `json:"totalPossibleScore,omitempty"`
	Percentage         *float64      `json:"percentage,omitempty"`
	Passed             *bool         `json:"passed,omitempty"`
}
