// Package scoring maps (question, normalized answer) to points earned.
//
// Strategies are pure functions selected by question type. Every strategy returns a
// value in [0, question.Points]; a missing answer scores 0. A type without a strategy
// is reported as domain.ErrUnscoreable rather than scored as zero.
package scoring

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"quiz-attempt-service/internal/domain"
)

// Strategy computes the raw points earned for one question type.
type Strategy func(q domain.Question, a domain.Answer) float64

// StrategyFor returns the strategy registered for a question type.
func StrategyFor(t domain.QuestionType) (Strategy, bool) {
	switch t {
	case domain.QuestionSingleChoice, domain.QuestionTrueFalse:
		return scoreSingleChoice, true
	case domain.QuestionMultipleAnswer:
		return scoreMultipleAnswer, true
	case domain.QuestionFillBlank:
		return scoreFillBlank, true
	case domain.QuestionNumeric:
		return scoreNumeric, true
	default:
		return nil, false
	}
}

// CalculateScore scores a normalized answer, capped to [0, q.Points].
func CalculateScore(q domain.Question, a domain.Answer) (float64, error) {
	strategy, ok := StrategyFor(q.Type)
	if !ok {
		return 0, fmt.Errorf("%w: %q (question %d)", domain.ErrUnscoreable, q.Type, q.ID)
	}
	if a.IsEmpty() {
		return 0, nil
	}
	return clamp(strategy(q, a), q.Points), nil
}

func clamp(earned, limit float64) float64 {
	if limit <= 0 || earned <= 0 || math.IsNaN(earned) {
		return 0
	}
	if earned > limit {
		return limit
	}
	return earned
}

func scoreSingleChoice(q domain.Question, a domain.Answer) float64 {
	if a.OptionID == nil {
		return 0
	}
	for _, o := range q.Options {
		if o.ID == *a.OptionID {
			if o.Correct {
				return q.Points
			}
			return 0
		}
	}
	return 0
}

// scoreMultipleAnswer is all-or-nothing: full points only when the submitted set
// equals the correct set exactly.
func scoreMultipleAnswer(q domain.Question, a domain.Answer) float64 {
	if a.OptionIDs == nil {
		return 0
	}
	correct := q.CorrectOptionIDs()
	if len(correct) == 0 {
		return 0
	}
	want := make(map[int64]struct{}, len(correct))
	for _, id := range correct {
		want[id] = struct{}{}
	}
	got := make(map[int64]struct{}, len(a.OptionIDs))
	for _, id := range a.OptionIDs {
		got[id] = struct{}{}
	}
	if len(got) != len(want) {
		return 0
	}
	for id := range got {
		if _, ok := want[id]; !ok {
			return 0
		}
	}
	return q.Points
}

func scoreFillBlank(q domain.Question, a domain.Answer) float64 {
	if a.Text == nil {
		return 0
	}
	submitted := NormalizeText(*a.Text)
	if submitted == "" {
		return 0
	}
	for _, accepted := range acceptedTexts(q) {
		if strings.EqualFold(submitted, NormalizeText(accepted)) {
			return q.Points
		}
	}
	return 0
}

func scoreNumeric(q domain.Question, a domain.Answer) float64 {
	if a.Number == nil {
		return 0
	}
	target, ok := numericTarget(q)
	if !ok {
		return 0
	}
	tolerance := math.Abs(q.Tolerance)
	if math.Abs(*a.Number-target) <= tolerance {
		return q.Points
	}
	return 0
}

// NormalizeText trims and collapses internal whitespace. Comparison against accepted
// answers is case-insensitive.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// acceptedTexts falls back to the text of correct options when no accepted answers
// are authored.
func acceptedTexts(q domain.Question) []string {
	if len(q.AcceptedAnswers) > 0 {
		return q.AcceptedAnswers
	}
	out := make([]string, 0, 1)
	for _, o := range q.Options {
		if o.Correct {
			out = append(out, o.Text)
		}
	}
	return out
}

func numericTarget(q domain.Question) (float64, bool) {
	if q.NumericAnswer != nil {
		return *q.NumericAnswer, true
	}
	for _, s := range q.AcceptedAnswers {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return v, true
		}
	}
	return 0, false
}
