package memory

import (
	"context"
	"sort"
	"sync"

	"quiz-attempt-service/internal/domain"
)

// AttemptStore is an in-memory implementation of app.AttemptRepository. Update
// holds the store lock for the whole read-modify-write, which serializes
// concurrent answer updates to the same attempt.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]domain.QuizAttempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts: make(map[string]domain.QuizAttempt),
	}
}

func (s *AttemptStore) Create(_ context.Context, attempt domain.QuizAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attempts[attempt.ID]; ok {
		return domain.ErrConflict
	}
	for _, existing := range s.attempts {
		if existing.UserID == attempt.UserID && existing.QuizID == attempt.QuizID && existing.AttemptNumber == attempt.AttemptNumber {
			return domain.ErrConflict
		}
	}
	attempt.Version = 1
	s.attempts[attempt.ID] = attempt.Clone()
	return nil
}

func (s *AttemptStore) Get(_ context.Context, attemptID string) (domain.QuizAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[attemptID]
	if !ok {
		return domain.QuizAttempt{}, domain.ErrAttemptNotFound
	}
	return attempt.Clone(), nil
}

func (s *AttemptStore) ListByUserQuiz(_ context.Context, userID string, quizID int64) ([]domain.QuizAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.QuizAttempt, 0)
	for _, attempt := range s.attempts {
		if attempt.UserID == userID && attempt.QuizID == quizID {
			out = append(out, attempt.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttemptNumber < out[j].AttemptNumber })
	return out, nil
}

func (s *AttemptStore) ListInProgress(_ context.Context) ([]domain.QuizAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.QuizAttempt, 0)
	for _, attempt := range s.attempts {
		if attempt.Status == domain.AttemptInProgress {
			out = append(out, attempt.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (s *AttemptStore) Update(_ context.Context, attemptID string, fn func(*domain.QuizAttempt) error) (domain.QuizAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.attempts[attemptID]
	if !ok {
		return domain.QuizAttempt{}, domain.ErrAttemptNotFound
	}
	working := stored.Clone()
	if err := fn(&working); err != nil {
		return domain.QuizAttempt{}, err
	}
	working.Version = stored.Version + 1
	s.attempts[attemptID] = working.Clone()
	return working, nil
}
