package scoring

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"quiz-attempt-service/internal/domain"
)

// Normalize coerces loosely typed client input into the canonical answer shape for
// the question's type. Input that cannot be coerced is kept in Answer.Raw and will
// score 0; it is never an error.
func Normalize(q domain.Question, raw any) domain.Answer {
	if raw == nil {
		return domain.Answer{}
	}
	switch q.Type {
	case domain.QuestionSingleChoice:
		if id, ok := toInt64(unwrapSingle(raw)); ok {
			return domain.Answer{OptionID: &id}
		}
	case domain.QuestionTrueFalse:
		v := unwrapSingle(raw)
		if b, ok := v.(bool); ok {
			if id, ok := booleanOption(q, b); ok {
				return domain.Answer{OptionID: &id}
			}
			break
		}
		if id, ok := toInt64(v); ok {
			return domain.Answer{OptionID: &id}
		}
		if s, ok := v.(string); ok {
			if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
				if id, ok := booleanOption(q, b); ok {
					return domain.Answer{OptionID: &id}
				}
			}
		}
	case domain.QuestionMultipleAnswer:
		if ids, ok := toInt64Set(raw); ok {
			return domain.Answer{OptionIDs: ids}
		}
	case domain.QuestionFillBlank:
		if s, ok := toText(unwrapSingle(raw)); ok {
			return domain.Answer{Text: &s}
		}
	case domain.QuestionNumeric:
		if f, ok := toFloat(unwrapSingle(raw)); ok {
			return domain.Answer{Number: &f}
		}
	}
	return domain.Answer{Raw: rawValue(raw)}
}

// unwrapSingle accepts a one-element list where a scalar is expected.
func unwrapSingle(v any) any {
	switch t := v.(type) {
	case []any:
		if len(t) == 1 {
			return t[0]
		}
	case []string:
		if len(t) == 1 {
			return t[0]
		}
	}
	return v
}

func booleanOption(q domain.Question, b bool) (int64, bool) {
	want := strconv.FormatBool(b)
	for _, o := range q.Options {
		if strings.EqualFold(strings.TrimSpace(o.Text), want) {
			return o.ID, true
		}
	}
	return 0, false
}

func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) {
			return int64(t), true
		}
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, true
		}
		if f, err := t.Float64(); err == nil {
			return toInt64(f)
		}
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return toInt64(f)
		}
	}
	return 0, false
}

// toInt64Set returns a sorted, de-duplicated id list. A scalar becomes a one-element
// set and a comma-separated string is split.
func toInt64Set(v any) ([]int64, bool) {
	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case []string:
		for _, s := range t {
			items = append(items, s)
		}
	case []int64:
		for _, n := range t {
			items = append(items, n)
		}
	case []int:
		for _, n := range t {
			items = append(items, n)
		}
	case []float64:
		for _, n := range t {
			items = append(items, n)
		}
	case string:
		if strings.TrimSpace(t) == "" {
			return []int64{}, true
		}
		for _, part := range strings.Split(t, ",") {
			items = append(items, part)
		}
	default:
		id, ok := toInt64(v)
		if !ok {
			return nil, false
		}
		return []int64{id}, true
	}

	seen := make(map[int64]struct{}, len(items))
	out := make([]int64, 0, len(items))
	for _, item := range items {
		id, ok := toInt64(item)
		if !ok {
			return nil, false
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, true
}

func toText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case json.Number:
		return t.String(), true
	}
	return "", false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, finite(t)
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil && finite(f)
	case string:
		s := strings.TrimSpace(t)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, finite(f)
		}
		if fields := strings.Fields(s); len(fields) > 0 {
			if f, err := strconv.ParseFloat(fields[0], 64); err == nil {
				return f, finite(f)
			}
		}
	}
	return 0, false
}

// finite rejects NaN and infinities, which JSON cannot carry.
func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// rawValue keeps uncoercible input storable as JSON.
func rawValue(v any) any {
	if f, ok := v.(float64); ok && !finite(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return v
}
