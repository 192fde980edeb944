package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"quiz-attempt-service/internal/domain"
)

// attemptRow maps quiz_attempts. Answers and scores are sparse JSONB maps keyed
// by question id.
type attemptRow struct {
	bun.BaseModel `bun:"table:quiz_attempts,alias:qa"`

	ID               string                  `bun:"id,pk"`
	QuizID           int64                   `bun:"quiz_id,notnull"`
	UserID           string                  `bun:"user_id,notnull"`
	AttemptNumber    int                     `bun:"attempt_number,notnull"`
	Status           string                  `bun:"status,notnull"`
	StartedAt        time.Time               `bun:"started_at,notnull"`
	SubmittedAt      *time.Time              `bun:"submitted_at"`
	TimeSpentSeconds int                     `bun:"time_spent_seconds,notnull"`
	Answers          map[int64]domain.Answer `bun:"answers,type:jsonb,notnull"`
	Scores           map[int64]float64       `bun:"scores,type:jsonb,notnull"`
	TotalScore       float64                 `bun:"total_score,notnull"`
	Version          int64                   `bun:"version,notnull"`
}

func toRow(a domain.QuizAttempt) attemptRow {
	row := attemptRow{
		ID:               a.ID,
		QuizID:           a.QuizID,
		UserID:           a.UserID,
		AttemptNumber:    a.AttemptNumber,
		Status:           string(a.Status),
		StartedAt:        a.StartedAt.UTC(),
		SubmittedAt:      a.SubmittedAt,
		TimeSpentSeconds: a.TimeSpentSeconds,
		Answers:          a.Answers,
		Scores:           a.Scores,
		TotalScore:       a.TotalScore,
		Version:          a.Version,
	}
	if row.Answers == nil {
		row.Answers = map[int64]domain.Answer{}
	}
	if row.Scores == nil {
		row.Scores = map[int64]float64{}
	}
	return row
}

func (r attemptRow) toDomain() domain.QuizAttempt {
	a := domain.QuizAttempt{
		ID:               r.ID,
		QuizID:           r.QuizID,
		UserID:           r.UserID,
		AttemptNumber:    r.AttemptNumber,
		Status:           domain.AttemptStatus(r.Status),
		StartedAt:        r.StartedAt,
		SubmittedAt:      r.SubmittedAt,
		TimeSpentSeconds: r.TimeSpentSeconds,
		Answers:          r.Answers,
		Scores:           r.Scores,
		TotalScore:       r.TotalScore,
		Version:          r.Version,
	}
	if a.Answers == nil {
		a.Answers = map[int64]domain.Answer{}
	}
	if a.Scores == nil {
		a.Scores = map[int64]float64{}
	}
	return a
}

// AttemptStore persists attempts in Postgres through bun. Update locks the row
// with SELECT ... FOR UPDATE inside a transaction.
type AttemptStore struct {
	db *bun.DB
}

func NewAttemptStore(db *bun.DB) *AttemptStore {
	return &AttemptStore{db: db}
}

func (s *AttemptStore) Create(ctx context.Context, attempt domain.QuizAttempt) error {
	attempt.Version = 1
	row := toRow(attempt)
	_, err := s.db.NewInsert().Model(&row).Exec(ctx)
	if err != nil {
		var pgErr pgdriver.Error
		if errors.As(err, &pgErr) && pgErr.IntegrityViolation() {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *AttemptStore) Get(ctx context.Context, attemptID string) (domain.QuizAttempt, error) {
	var row attemptRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", attemptID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.QuizAttempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.QuizAttempt{}, fmt.Errorf("select attempt: %w", err)
	}
	return row.toDomain(), nil
}

func (s *AttemptStore) ListByUserQuiz(ctx context.Context, userID string, quizID int64) ([]domain.QuizAttempt, error) {
	var rows []attemptRow
	err := s.db.NewSelect().Model(&rows).
		Where("user_id = ?", userID).
		Where("quiz_id = ?", quizID).
		Order("attempt_number ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return toDomainList(rows), nil
}

func (s *AttemptStore) ListInProgress(ctx context.Context) ([]domain.QuizAttempt, error) {
	var rows []attemptRow
	err := s.db.NewSelect().Model(&rows).
		Where("status = ?", string(domain.AttemptInProgress)).
		Order("started_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list in-progress attempts: %w", err)
	}
	return toDomainList(rows), nil
}

func (s *AttemptStore) Update(ctx context.Context, attemptID string, fn func(*domain.QuizAttempt) error) (domain.QuizAttempt, error) {
	var updated domain.QuizAttempt
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var row attemptRow
		err := tx.NewSelect().Model(&row).Where("id = ?", attemptID).For("UPDATE").Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrAttemptNotFound
		}
		if err != nil {
			return fmt.Errorf("lock attempt: %w", err)
		}
		working := row.toDomain()
		if err := fn(&working); err != nil {
			return err
		}
		working.Version = row.Version + 1
		next := toRow(working)
		if _, err := tx.NewUpdate().Model(&next).WherePK().Exec(ctx); err != nil {
			return fmt.Errorf("update attempt: %w", err)
		}
		updated = working
		return nil
	})
	if err != nil {
		return domain.QuizAttempt{}, err
	}
	return updated, nil
}

func toDomainList(rows []attemptRow) []domain.QuizAttempt {
	out := make([]domain.QuizAttempt, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out
}
