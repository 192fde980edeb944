package domain

import "time"

// QuestionType selects the scoring strategy applied to a question.
type QuestionType string

const (
	QuestionSingleChoice   QuestionType = "single_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionMultipleAnswer QuestionType = "multiple_answer"
	QuestionFillBlank      QuestionType = "fill_blank"
	QuestionNumeric        QuestionType = "numeric"
)

// QuizStatus is the authoring lifecycle of a quiz.
type QuizStatus string

const (
	QuizOpen     QuizStatus = "open"
	QuizClosed   QuizStatus = "closed"
	QuizArchived QuizStatus = "archived"
)

// Option is one answer choice. Correct never leaves the server.
type Option struct {
	ID      int64  `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question belongs either to a group or directly to a section.
type Question struct {
	ID      int64        `json:"id"`
	Text    string       `json:"text"`
	Type    QuestionType `json:"type"`
	Points  float64      `json:"points"`
	Options []Option     `json:"options,omitempty"`
	// AcceptedAnswers lists the accepted values for text and numeric types.
	AcceptedAnswers []string `json:"acceptedAnswers,omitempty"`
	// NumericAnswer and Tolerance drive the numeric strategy.
	NumericAnswer *float64 `json:"numericAnswer,omitempty"`
	Tolerance     float64  `json:"tolerance,omitempty"`
}

// CorrectOptionIDs lists option ids flagged correct, in authored order.
func (q Question) CorrectOptionIDs() []int64 {
	ids := make([]int64, 0, 1)
	for _, o := range q.Options {
		if o.Correct {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

// QuestionGroup is a fixed-order run of questions inside a section.
type QuestionGroup struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Section holds grouped questions and standalone (shuffle-eligible) questions.
type Section struct {
	ID        int64           `json:"id"`
	Title     string          `json:"title"`
	Groups    []QuestionGroup `json:"groups,omitempty"`
	Questions []Question      `json:"questions,omitempty"`
}

// Quiz is the full definition consumed by the attempt engine.
type Quiz struct {
	ID     int64      `json:"id"`
	Title  string     `json:"title"`
	Status QuizStatus `json:"status"`
	// DurationMinutes is nil for untimed quizzes.
	DurationMinutes        *int       `json:"durationMinutes,omitempty"`
	AvailableFrom          *time.Time `json:"availableFrom,omitempty"`
	AvailableUntil         *time.Time `json:"availableUntil,omitempty"`
	ShuffleQuestions       bool       `json:"shuffleQuestions"`
	ShuffleAnswers         bool       `json:"shuffleAnswers"`
	ShowScoreImmediately   bool       `json:"showScoreImmediately"`
	ShowAnswersAfterSubmit bool       `json:"showAnswersAfterSubmit"`
	// PassingScore is a percentage threshold (0-100).
	PassingScore       float64   `json:"passingScore"`
	TotalPossibleScore float64   `json:"totalPossibleScore"`
	Sections           []Section `json:"sections,omitempty"`
}

// TimeLimit reports the attempt duration, if the quiz is timed.
func (q Quiz) TimeLimit() (time.Duration, bool) {
	if q.DurationMinutes == nil || *q.DurationMinutes <= 0 {
		return 0, false
	}
	return time.Duration(*q.DurationMinutes) * time.Minute, true
}

// Meta returns the quiz without its content tree.
func (q Quiz) Meta() Quiz {
	q.Sections = nil
	return q
}

// PossibleScore is TotalPossibleScore, or the sum of question points when unset.
func (q Quiz) PossibleScore() float64 {
	if q.TotalPossibleScore > 0 {
		return q.TotalPossibleScore
	}
	total := 0.0
	q.EachQuestion(func(question Question) {
		total += question.Points
	})
	return total
}

// EachQuestion visits every question in authored order.
func (q Quiz) EachQuestion(fn func(Question)) {
	for _, s := range q.Sections {
		for _, g := range s.Groups {
			for _, question := range g.Questions {
				fn(question)
			}
		}
		for _, question := range s.Questions {
			fn(question)
		}
	}
}

// FindQuestion looks a question up by id anywhere in the tree.
func (q Quiz) FindQuestion(id int64) (Question, bool) {
	var (
		found Question
		ok    bool
	)
	q.EachQuestion(func(question Question) {
		if !ok && question.ID == id {
			found, ok = question, true
		}
	})
	return found, ok
}

// AttemptStatus is the attempt state machine. Submitted is terminal.
type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
)

// Answer is a normalized answer value. Exactly one field is set; Raw keeps input
// that could not be coerced to the question's canonical shape.
type Answer struct {
	OptionID  *int64   `json:"optionId,omitempty"`
	OptionIDs []int64  `json:"optionIds,omitempty"`
	Text      *string  `json:"text,omitempty"`
	Number    *float64 `json:"number,omitempty"`
	Raw       any      `json:"raw,omitempty"`
}

// IsEmpty reports whether no answer value is present.
func (a Answer) IsEmpty() bool {
	return a.OptionID == nil && a.OptionIDs == nil && a.Text == nil && a.Number == nil && a.Raw == nil
}

// QuizAttempt is one user's instance of taking a quiz.
type QuizAttempt struct {
	ID               string            `json:"id"`
	QuizID           int64             `json:"quizId"`
	UserID           string            `json:"userId"`
	AttemptNumber    int               `json:"attemptNumber"`
	Status           AttemptStatus     `json:"status"`
	StartedAt        time.Time         `json:"startedAt"`
	SubmittedAt      *time.Time        `json:"submittedAt,omitempty"`
	TimeSpentSeconds int               `json:"timeSpentSeconds"`
	Answers          map[int64]Answer  `json:"answers"`
	Scores           map[int64]float64 `json:"scores"`
	TotalScore       float64           `json:"totalScore"`
	Version          int64             `json:"-"`
}

// RecomputeTotal sets TotalScore to the sum of the per-question scores.
func (a *QuizAttempt) RecomputeTotal() {
	total := 0.0
	for _, s := range a.Scores {
		total += s
	}
	a.TotalScore = total
}

// Clone returns a deep copy so callers never share the sparse maps.
func (a QuizAttempt) Clone() QuizAttempt {
	out := a
	out.Answers = make(map[int64]Answer, len(a.Answers))
	for k, v := range a.Answers {
		if v.OptionIDs != nil {
			v.OptionIDs = append([]int64(nil), v.OptionIDs...)
		}
		out.Answers[k] = v
	}
	out.Scores = make(map[int64]float64, len(a.Scores))
	for k, v := range a.Scores {
		out.Scores[k] = v
	}
	if a.SubmittedAt != nil {
		t := *a.SubmittedAt
		out.SubmittedAt = &t
	}
	return out
}

// Deadline is StartedAt + the quiz time limit, if any.
func (a QuizAttempt) Deadline(q Quiz) (time.Time, bool) {
	limit, ok := q.TimeLimit()
	if !ok {
		return time.Time{}, false
	}
	return a.StartedAt.Add(limit), true
}
