// Package shuffle builds the per-attempt presentation order of a quiz.
//
// The order is a pure function of (quiz snapshot, attempt id): nothing about it is
// persisted, so resume re-derives it. Standalone section questions move when the
// quiz shuffles questions; grouped questions keep their authored order. Options move
// when the quiz shuffles answers, each question with its own permutation.
package shuffle

import (
	"hash/fnv"

	"quiz-attempt-service/internal/domain"
)

const (
	saltQuestions uint64 = 0x51_7cc1_b727_220a
	saltOptions   uint64 = 0x2545_f491_4f6c_dd1d
)

// Seed derives the base permutation seed from an attempt id.
func Seed(attemptID string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(attemptID))
	return h.Sum64()
}

// Build returns the presentation tree for attempt, overlaying answered state from
// its sparse answer and score maps.
func Build(quiz domain.Quiz, attempt domain.QuizAttempt) []domain.SectionView {
	seed := Seed(attempt.ID)
	sections := make([]domain.SectionView, 0, len(quiz.Sections))
	for _, s := range quiz.Sections {
		view := domain.SectionView{ID: s.ID, Title: s.Title}

		for _, g := range s.Groups {
			group := domain.GroupView{
				ID:        g.ID,
				Title:     g.Title,
				Questions: make([]domain.QuestionView, 0, len(g.Questions)),
			}
			for _, q := range g.Questions {
				group.Questions = append(group.Questions, questionView(quiz, q, attempt, seed))
			}
			view.Groups = append(view.Groups, group)
		}

		order := identity(len(s.Questions))
		if quiz.ShuffleQuestions {
			order = Permutation(len(s.Questions), derive(seed, saltQuestions, s.ID))
		}
		for _, i := range order {
			view.Questions = append(view.Questions, questionView(quiz, s.Questions[i], attempt, seed))
		}

		sections = append(sections, view)
	}
	return sections
}

func questionView(quiz domain.Quiz, q domain.Question, attempt domain.QuizAttempt, seed uint64) domain.QuestionView {
	view := domain.QuestionView{
		ID:     q.ID,
		Text:   q.Text,
		Type:   q.Type,
		Points: q.Points,
	}
	if len(q.Options) > 0 {
		order := identity(len(q.Options))
		if quiz.ShuffleAnswers {
			order = Permutation(len(q.Options), derive(seed, saltOptions, q.ID))
		}
		view.Options = make([]domain.OptionView, 0, len(q.Options))
		for _, i := range order {
			view.Options = append(view.Options, domain.OptionView{ID: q.Options[i].ID, Text: q.Options[i].Text})
		}
	}
	if score, ok := attempt.Scores[q.ID]; ok {
		view.IsAnswered = true
		view.CurrentScore = &score
	}
	if answer, ok := attempt.Answers[q.ID]; ok {
		view.IsAnswered = true
		view.CurrentAnswer = &answer
	}
	return view
}

// Permutation returns a Fisher-Yates permutation of [0, n) driven by seed.
func Permutation(n int, seed uint64) []int {
	out := identity(n)
	src := splitmix{state: seed}
	for i := n - 1; i > 0; i-- {
		j := int(src.next() % uint64(i+1))
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// derive mixes the attempt seed with a salt and an entity id so sections and
// questions get independent permutations.
func derive(seed, salt uint64, id int64) uint64 {
	src := splitmix{state: seed ^ salt ^ (uint64(id) * 0x9e37_79b9_7f4a_7c15)}
	return src.next()
}

// splitmix is SplitMix64. It is implemented here so the presentation order never
// depends on a library's generator, which may change between releases.
type splitmix struct {
	state uint64
}

func (s *splitmix) next() uint64 {
	s.state += 0x9e37_79b9_7f4a_7c15
	z := s.state
	z = (z ^ (z >> 30)) * 0xbf58_476d_1ce4_e5b9
	z = (z ^ (z >> 27)) * 0x94d0_49bb_1331_11eb
	return z ^ (z >> 31)
}
