package scoring

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"quiz-attempt-service/internal/domain"
)

func singleChoice() domain.Question {
	return domain.Question{
		ID:     1,
		Type:   domain.QuestionSingleChoice,
		Points: 5,
		Options: []domain.Option{
			{ID: 10, Text: "3"},
			{ID: 11, Text: "4", Correct: true},
			{ID: 12, Text: "5"},
		},
	}
}

func multipleAnswer() domain.Question {
	return domain.Question{
		ID:     2,
		Type:   domain.QuestionMultipleAnswer,
		Points: 4,
		Options: []domain.Option{
			{ID: 20, Text: "2", Correct: true},
			{ID: 21, Text: "3", Correct: true},
			{ID: 22, Text: "4"},
			{ID: 23, Text: "5", Correct: true},
		},
	}
}

func trueFalse() domain.Question {
	return domain.Question{
		ID:     3,
		Type:   domain.QuestionTrueFalse,
		Points: 1,
		Options: []domain.Option{
			{ID: 30, Text: "True", Correct: true},
			{ID: 31, Text: "False"},
		},
	}
}

func fillBlank() domain.Question {
	return domain.Question{
		ID:              4,
		Type:            domain.QuestionFillBlank,
		Points:          2,
		AcceptedAnswers: []string{"Mount Everest", "Everest"},
	}
}

func numeric() domain.Question {
	answer := 3.14
	return domain.Question{
		ID:            5,
		Type:          domain.QuestionNumeric,
		Points:        3,
		NumericAnswer: &answer,
		Tolerance:     0.01,
	}
}

func score(t *testing.T, q domain.Question, raw any) float64 {
	t.Helper()
	got, err := CalculateScore(q, Normalize(q, raw))
	if err != nil {
		t.Fatalf("calculate score: %v", err)
	}
	return got
}

func TestSingleChoice(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want float64
	}{
		{name: "correct id", raw: float64(11), want: 5},
		{name: "wrong id", raw: float64(10), want: 0},
		{name: "id as text", raw: "11", want: 5},
		{name: "id with spaces", raw: " 11 ", want: 5},
		{name: "one element list", raw: []any{float64(11)}, want: 5},
		{name: "json number", raw: json.Number("11"), want: 5},
		{name: "unknown option", raw: float64(99), want: 0},
		{name: "nil answer", raw: nil, want: 0},
		{name: "uncoercible text", raw: "four", want: 0},
		{name: "two element list", raw: []any{float64(11), float64(12)}, want: 0},
		{name: "fractional id", raw: 11.5, want: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := score(t, singleChoice(), tc.raw); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestTrueFalse(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want float64
	}{
		{name: "option id", raw: float64(30), want: 1},
		{name: "wrong option id", raw: float64(31), want: 0},
		{name: "boolean true", raw: true, want: 1},
		{name: "boolean false", raw: false, want: 0},
		{name: "boolean text", raw: "true", want: 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := score(t, trueFalse(), tc.raw); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

// Multiple-answer questions are all-or-nothing: no partial credit for a subset,
// and any wrong option forfeits the question.
func TestMultipleAnswerAllOrNothing(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want float64
	}{
		{name: "exact set", raw: []any{float64(20), float64(21), float64(23)}, want: 4},
		{name: "exact set any order", raw: []any{float64(23), float64(20), float64(21)}, want: 4},
		{name: "duplicates collapse", raw: []any{float64(20), float64(21), float64(23), float64(20)}, want: 4},
		{name: "mixed element types", raw: []any{"20", float64(21), json.Number("23")}, want: 4},
		{name: "comma separated text", raw: "20, 21,23", want: 4},
		{name: "subset earns nothing", raw: []any{float64(20), float64(21)}, want: 0},
		{name: "superset earns nothing", raw: []any{float64(20), float64(21), float64(22), float64(23)}, want: 0},
		{name: "empty list", raw: []any{}, want: 0},
		{name: "scalar", raw: float64(20), want: 0},
		{name: "uncoercible element", raw: []any{float64(20), "x"}, want: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := score(t, multipleAnswer(), tc.raw); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

// Fill-blank answers are trimmed, internal whitespace is collapsed, and comparison
// ignores case.
func TestFillBlankNormalization(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want float64
	}{
		{name: "exact", raw: "Mount Everest", want: 2},
		{name: "case insensitive", raw: "mount everest", want: 2},
		{name: "surrounding whitespace", raw: "  Everest\t", want: 2},
		{name: "internal whitespace", raw: "Mount    Everest", want: 2},
		{name: "second accepted answer", raw: "EVEREST", want: 2},
		{name: "wrong", raw: "K2", want: 0},
		{name: "empty", raw: "   ", want: 0},
		{name: "punctuation is significant", raw: "Everest!", want: 0},
		{name: "list input", raw: []any{"everest"}, want: 2},
		{name: "object input", raw: map[string]any{"text": "Everest"}, want: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := score(t, fillBlank(), tc.raw); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestFillBlankFallsBackToCorrectOptions(t *testing.T) {
	q := domain.Question{
		ID:      6,
		Type:    domain.QuestionFillBlank,
		Points:  1,
		Options: []domain.Option{{ID: 60, Text: "Paris", Correct: true}},
	}
	if got := score(t, q, "paris"); got != 1 {
		t.Fatalf("expected 1, got %v", got)
	}
}

func TestNumericTolerance(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want float64
	}{
		{name: "exact", raw: 3.14, want: 3},
		{name: "within tolerance", raw: 3.145, want: 3},
		{name: "outside tolerance", raw: 3.2, want: 0},
		{name: "text", raw: "3.14", want: 3},
		{name: "text with unit", raw: "3.14 rad", want: 3},
		{name: "garbage", raw: "pi", want: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := score(t, numeric(), tc.raw); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestUnregisteredTypeIsUnscoreable(t *testing.T) {
	q := domain.Question{ID: 7, Type: "essay", Points: 10}
	_, err := CalculateScore(q, Normalize(q, "my essay"))
	if !errors.Is(err, domain.ErrUnscoreable) {
		t.Fatalf("expected unscoreable error, got %v", err)
	}
}

func TestScoreIsCappedAndNonNegative(t *testing.T) {
	q := singleChoice()
	q.Points = -2
	if got := score(t, q, float64(11)); got != 0 {
		t.Fatalf("expected negative points to clamp to 0, got %v", got)
	}
}

func TestNormalizeKeepsUncoercibleInputRaw(t *testing.T) {
	raw := map[string]any{"choice": "b"}
	a := Normalize(singleChoice(), raw)
	if a.OptionID != nil || a.Raw == nil {
		t.Fatalf("expected raw passthrough, got %+v", a)
	}
}

func TestNormalizeRejectsNonFiniteNumbers(t *testing.T) {
	tests := []struct {
		name string
		raw  any
	}{
		{name: "nan text", raw: "NaN"},
		{name: "inf text", raw: "Inf"},
		{name: "negative inf text", raw: "-inf"},
		{name: "overflow text", raw: "1e999"},
		{name: "overflow with unit", raw: "1e999 m"},
		{name: "nan number", raw: math.NaN()},
		{name: "overflow json number", raw: json.Number("1e999")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := Normalize(numeric(), tc.raw)
			if a.Number != nil {
				t.Fatalf("expected no number, got %v", *a.Number)
			}
			if _, err := json.Marshal(a); err != nil {
				t.Fatalf("answer must stay encodable: %v", err)
			}
			if got := score(t, numeric(), tc.raw); got != 0 {
				t.Fatalf("expected 0, got %v", got)
			}
		})
	}
}
