package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/scoring"
	"quiz-attempt-service/internal/shuffle"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error)
	// GetQuizMeta returns the quiz definition without its section tree.
	GetQuizMeta(ctx context.Context, quizID int64) (domain.Quiz, error)
}

// AttemptRepository persists attempts. Update is the only mutation path after
// creation: implementations run fn against the latest stored record and persist the
// result atomically (row lock, WATCH/MULTI or mutex). When fn returns an error
// nothing is written and the error is returned unchanged.
type AttemptRepository interface {
	Create(ctx context.Context, attempt domain.QuizAttempt) error
	Get(ctx context.Context, attemptID string) (domain.QuizAttempt, error)
	ListByUserQuiz(ctx context.Context, userID string, quizID int64) ([]domain.QuizAttempt, error)
	ListInProgress(ctx context.Context) ([]domain.QuizAttempt, error)
	Update(ctx context.Context, attemptID string, fn func(*domain.QuizAttempt) error) (domain.QuizAttempt, error)
}

// UserDirectory answers whether a user exists.
type UserDirectory interface {
	UserExists(ctx context.Context, userID string) (bool, error)
}

// maxStartRetries bounds attempt-number collisions between concurrent starts.
const maxStartRetries = 3

// errUnchanged aborts an Update whose attempt is already in the desired state.
var errUnchanged = errors.New("attempt unchanged")

// AttemptService is the quiz attempt engine: start, answer-and-score, resume,
// submit and time-limit enforcement.
type AttemptService struct {
	quizzes  QuizRepository
	attempts AttemptRepository
	users    UserDirectory
	now      func() time.Time
	newID    func() string
}

// NewAttemptService wires the engine. users may be nil to skip the user check.
func NewAttemptService(quizzes QuizRepository, attempts AttemptRepository, users UserDirectory) *AttemptService {
	return NewAttemptServiceWithClock(quizzes, attempts, users, time.Now)
}

// NewAttemptServiceWithClock allows deterministic timestamps in tests.
func NewAttemptServiceWithClock(quizzes QuizRepository, attempts AttemptRepository, users UserDirectory, now func() time.Time) *AttemptService {
	return &AttemptService{
		quizzes:  quizzes,
		attempts: attempts,
		users:    users,
		now:      now,
		newID:    uuid.NewString,
	}
}

// StartQuizAttempt creates an in-progress attempt and returns its presentation.
func (s *AttemptService) StartQuizAttempt(ctx context.Context, quizID int64, userID string) (domain.AttemptView, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.AttemptView{}, err
	}
	now := s.now()
	if err := checkAvailable(quiz, now); err != nil {
		return domain.AttemptView{}, err
	}
	if s.users != nil {
		ok, err := s.users.UserExists(ctx, userID)
		if err != nil {
			return domain.AttemptView{}, fmt.Errorf("lookup user: %w", err)
		}
		if !ok {
			return domain.AttemptView{}, domain.ErrUserNotFound
		}
	}

	for i := 0; ; i++ {
		number, err := s.nextAttemptNumber(ctx, userID, quizID)
		if err != nil {
			return domain.AttemptView{}, err
		}
		attempt := domain.QuizAttempt{
			ID:            s.newID(),
			QuizID:        quizID,
			UserID:        userID,
			AttemptNumber: number,
			Status:        domain.AttemptInProgress,
			StartedAt:     now,
			Answers:       map[int64]domain.Answer{},
			Scores:        map[int64]float64{},
		}
		err = s.attempts.Create(ctx, attempt)
		if errors.Is(err, domain.ErrConflict) && i+1 < maxStartRetries {
			continue
		}
		if err != nil {
			return domain.AttemptView{}, fmt.Errorf("create attempt: %w", err)
		}
		log.Printf("attempt %s started: quiz=%d user=%s number=%d", attempt.ID, quizID, userID, number)
		return s.view(quiz, attempt, now), nil
	}
}

// UpdateAnswerAndScore overwrites the answer and score of one question and
// recomputes the attempt total in the same atomic update.
func (s *AttemptService) UpdateAnswerAndScore(ctx context.Context, attemptID string, questionID int64, raw any) (domain.AnswerScore, error) {
	current, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		return domain.AnswerScore{}, err
	}
	if current.Status != domain.AttemptInProgress {
		return domain.AnswerScore{}, domain.ErrAttemptSubmitted
	}
	quiz, err := s.quizzes.GetQuiz(ctx, current.QuizID)
	if err != nil {
		return domain.AnswerScore{}, err
	}
	now := s.now()
	if deadline, ok := current.Deadline(quiz); ok && !now.Before(deadline) {
		if _, err := s.expire(ctx, attemptID, quiz, now); err != nil {
			return domain.AnswerScore{}, err
		}
		log.Printf("attempt %s expired on answer update", attemptID)
		return domain.AnswerScore{}, domain.ErrAttemptExpired
	}
	question, ok := quiz.FindQuestion(questionID)
	if !ok {
		return domain.AnswerScore{}, domain.ErrQuestionNotFound
	}

	answer := scoring.Normalize(question, raw)
	points, err := scoring.CalculateScore(question, answer)
	if err != nil {
		if errors.Is(err, domain.ErrUnscoreable) {
			log.Printf("CONFIG ERROR: quiz %d: %v", quiz.ID, err)
		}
		return domain.AnswerScore{}, err
	}

	expired := false
	_, err = s.attempts.Update(ctx, attemptID, func(a *domain.QuizAttempt) error {
		expired = false
		if a.Status != domain.AttemptInProgress {
			return domain.ErrAttemptSubmitted
		}
		if deadline, ok := a.Deadline(quiz); ok && !now.Before(deadline) {
			forceSubmit(a, quiz, deadline)
			expired = true
			return nil
		}
		if a.Answers == nil {
			a.Answers = map[int64]domain.Answer{}
		}
		if a.Scores == nil {
			a.Scores = map[int64]float64{}
		}
		a.Answers[questionID] = answer
		a.Scores[questionID] = points
		a.RecomputeTotal()
		return nil
	})
	if err != nil {
		return domain.AnswerScore{}, err
	}
	if expired {
		log.Printf("attempt %s expired on answer update", attemptID)
		return domain.AnswerScore{}, domain.ErrAttemptExpired
	}
	return domain.AnswerScore{AttemptID: attemptID, QuestionID: questionID, Score: points}, nil
}

// ResumeQuizAttempt re-derives the presentation of an in-progress attempt. Past the
// deadline it submits the attempt instead and returns ErrAttemptExpired.
func (s *AttemptService) ResumeQuizAttempt(ctx context.Context, attemptID string) (domain.AttemptView, error) {
	attempt, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		return domain.AttemptView{}, err
	}
	if attempt.Status != domain.AttemptInProgress {
		return domain.AttemptView{}, domain.ErrAttemptSubmitted
	}
	quiz, err := s.quizzes.GetQuiz(ctx, attempt.QuizID)
	if err != nil {
		return domain.AttemptView{}, err
	}

	now := s.now()
	if deadline, ok := attempt.Deadline(quiz); ok && !now.Before(deadline) {
		if _, err := s.expire(ctx, attemptID, quiz, now); err != nil {
			return domain.AttemptView{}, err
		}
		return domain.AttemptView{}, domain.ErrAttemptExpired
	}
	return s.view(quiz, attempt, now), nil
}

// SubmitQuizAttempt finalizes an attempt and returns the result gated by the
// quiz's visibility flags.
func (s *AttemptService) SubmitQuizAttempt(ctx context.Context, attemptID string) (domain.AttemptResult, error) {
	current, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		return domain.AttemptResult{}, err
	}
	if current.Status != domain.AttemptInProgress {
		return domain.AttemptResult{}, domain.ErrAttemptSubmitted
	}
	quiz, err := s.quizzes.GetQuiz(ctx, current.QuizID)
	if err != nil {
		return domain.AttemptResult{}, err
	}

	now := s.now()
	submitted, err := s.attempts.Update(ctx, attemptID, func(a *domain.QuizAttempt) error {
		if a.Status != domain.AttemptInProgress {
			return domain.ErrAttemptSubmitted
		}
		if deadline, ok := a.Deadline(quiz); ok && now.After(deadline) {
			forceSubmit(a, quiz, deadline)
			return nil
		}
		at := now
		a.Status = domain.AttemptSubmitted
		a.SubmittedAt = &at
		a.TimeSpentSeconds = int(at.Sub(a.StartedAt).Seconds())
		return nil
	})
	if err != nil {
		return domain.AttemptResult{}, err
	}
	log.Printf("attempt %s submitted: total=%.2f", attemptID, submitted.TotalScore)
	return BuildResult(quiz, submitted), nil
}

// CheckAndAutoSubmitExpiredAttempts force-submits every in-progress attempt whose
// quiz time limit has passed. Untimed quizzes never expire. Failures on individual
// attempts do not stop the scan; they are joined into the returned error.
func (s *AttemptService) CheckAndAutoSubmitExpiredAttempts(ctx context.Context) (int, error) {
	inProgress, err := s.attempts.ListInProgress(ctx)
	if err != nil {
		return 0, fmt.Errorf("list in-progress attempts: %w", err)
	}

	now := s.now()
	metas := make(map[int64]domain.Quiz)
	var errs []error
	submitted := 0
	for _, attempt := range inProgress {
		meta, ok := metas[attempt.QuizID]
		if !ok {
			meta, err = s.quizzes.GetQuizMeta(ctx, attempt.QuizID)
			if err != nil {
				errs = append(errs, fmt.Errorf("attempt %s: %w", attempt.ID, err))
				continue
			}
			metas[attempt.QuizID] = meta
		}
		deadline, timed := attempt.Deadline(meta)
		if !timed || now.Before(deadline) {
			continue
		}
		transitioned, err := s.expire(ctx, attempt.ID, meta, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("attempt %s: %w", attempt.ID, err))
			continue
		}
		if transitioned {
			submitted++
			log.Printf("attempt %s auto-submitted at deadline %s", attempt.ID, deadline.Format(time.RFC3339))
		}
	}
	return submitted, errors.Join(errs...)
}

// GetAttempt returns the stored attempt.
func (s *AttemptService) GetAttempt(ctx context.Context, attemptID string) (domain.QuizAttempt, error) {
	return s.attempts.Get(ctx, attemptID)
}

// ListAttempts returns a user's attempt history at a quiz ordered by attempt
// number. Scores are included only where the quiz shows them.
func (s *AttemptService) ListAttempts(ctx context.Context, userID string, quizID int64) ([]domain.AttemptSummary, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	attempts, err := s.attempts.ListByUserQuiz(ctx, userID, quizID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	out := make([]domain.AttemptSummary, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, BuildSummary(quiz, a))
	}
	return out, nil
}

// GetAttemptResult re-renders the gated result of a submitted attempt.
func (s *AttemptService) GetAttemptResult(ctx context.Context, attemptID string) (domain.AttemptResult, error) {
	attempt, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		return domain.AttemptResult{}, err
	}
	if attempt.Status != domain.AttemptSubmitted {
		return domain.AttemptResult{}, domain.ErrAttemptInProgress
	}
	quiz, err := s.quizzes.GetQuiz(ctx, attempt.QuizID)
	if err != nil {
		return domain.AttemptResult{}, err
	}
	return BuildResult(quiz, attempt), nil
}

// expire submits the attempt at its deadline if it is still in progress and the
// deadline has passed. It reports whether this call made the transition.
func (s *AttemptService) expire(ctx context.Context, attemptID string, quiz domain.Quiz, now time.Time) (bool, error) {
	_, err := s.attempts.Update(ctx, attemptID, func(a *domain.QuizAttempt) error {
		if a.Status != domain.AttemptInProgress {
			return errUnchanged
		}
		deadline, ok := a.Deadline(quiz)
		if !ok || now.Before(deadline) {
			return errUnchanged
		}
		forceSubmit(a, quiz, deadline)
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// forceSubmit records the submission at the deadline with the full duration spent.
func forceSubmit(a *domain.QuizAttempt, quiz domain.Quiz, deadline time.Time) {
	limit, _ := quiz.TimeLimit()
	at := deadline
	a.Status = domain.AttemptSubmitted
	a.SubmittedAt = &at
	a.TimeSpentSeconds = int(limit.Seconds())
}

func checkAvailable(quiz domain.Quiz, now time.Time) error {
	switch quiz.Status {
	case domain.QuizClosed, domain.QuizArchived:
		return domain.ErrQuizClosed
	}
	if quiz.AvailableFrom != nil && now.Before(*quiz.AvailableFrom) {
		return domain.ErrQuizNotAvailable
	}
	if quiz.AvailableUntil != nil && !now.Before(*quiz.AvailableUntil) {
		return domain.ErrQuizNotAvailable
	}
	return nil
}

func (s *AttemptService) nextAttemptNumber(ctx context.Context, userID string, quizID int64) (int, error) {
	previous, err := s.attempts.ListByUserQuiz(ctx, userID, quizID)
	if err != nil {
		return 0, fmt.Errorf("list attempts: %w", err)
	}
	highest := 0
	for _, a := range previous {
		if a.AttemptNumber > highest {
			highest = a.AttemptNumber
		}
	}
	return highest + 1, nil
}

func (s *AttemptService) view(quiz domain.Quiz, attempt domain.QuizAttempt, now time.Time) domain.AttemptView {
	view := domain.AttemptView{
		AttemptID:     attempt.ID,
		QuizID:        quiz.ID,
		QuizTitle:     quiz.Title,
		AttemptNumber: attempt.AttemptNumber,
		Status:        attempt.Status,
		StartedAt:     attempt.StartedAt,
		Sections:      shuffle.Build(quiz, attempt),
	}
	if deadline, ok := attempt.Deadline(quiz); ok {
		remaining := int(deadline.Sub(now).Seconds())
		if remaining < 0 {
			remaining = 0
		}
		view.Deadline = &deadline
		view.RemainingSeconds = &remaining
	}
	return view
}
