package redis

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/infra/memory"
)

func TestQuizRepositoryCachesInRedis(t *testing.T) {
	mr, client := startRedis(t)

	loader := &countingLoader{
		QuizLoader: memory.NewStaticQuizLoader(map[int64]domain.Quiz{
			1: sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(client, loader, time.Minute)

	quiz, err := repo.GetQuiz(context.Background(), 1)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls.Load())
	}
	if len(quiz.Sections) != 1 || len(quiz.Sections[0].Questions) != 1 {
		t.Fatalf("unexpected quiz %+v", quiz)
	}
	if !mr.Exists("quiz:1:definition") || !mr.Exists("quiz:1:meta") {
		t.Fatalf("expected definition and meta keys")
	}
	if ttl := mr.TTL("quiz:1:definition"); ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("expected ttl with up to 10%% jitter, got %v", ttl)
	}

	// Second call should hit cache, loader not incremented.
	cached, err := repo.GetQuiz(context.Background(), 1)
	if err != nil {
		t.Fatalf("get cached quiz: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls.Load())
	}
	if !cached.Sections[0].Questions[0].Options[1].Correct {
		t.Fatalf("cached definition lost the answer key")
	}
}

func TestQuizRepositoryMetaAndInvalidate(t *testing.T) {
	_, client := startRedis(t)
	loader := &countingLoader{QuizLoader: memory.NewStaticQuizLoader(map[int64]domain.Quiz{1: sampleQuiz()})}
	repo := NewQuizRepository(client, loader, time.Minute)
	ctx := context.Background()

	meta, err := repo.GetQuizMeta(ctx, 1)
	if err != nil {
		t.Fatalf("get meta: %v", err)
	}
	if meta.Sections != nil || meta.DurationMinutes == nil || *meta.DurationMinutes != 10 {
		t.Fatalf("unexpected meta %+v", meta)
	}
	if _, err := repo.GetQuizMeta(ctx, 1); err != nil || loader.calls.Load() != 1 {
		t.Fatalf("expected meta cache hit, calls=%d err=%v", loader.calls.Load(), err)
	}

	if err := repo.Invalidate(ctx, 1); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := repo.GetQuiz(ctx, 1); err != nil || loader.calls.Load() != 2 {
		t.Fatalf("expected reload after invalidate, calls=%d err=%v", loader.calls.Load(), err)
	}
}

func TestQuizRepositoryUnknownQuiz(t *testing.T) {
	_, client := startRedis(t)
	repo := NewQuizRepository(client, memory.NewStaticQuizLoader(nil), time.Minute)

	if _, err := repo.GetQuiz(context.Background(), 42); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}

type countingLoader struct {
	memory.QuizLoader
	calls atomic.Int32
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	l.calls.Add(1)
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func sampleQuiz() domain.Quiz {
	duration := 10
	return domain.Quiz{
		ID:              1,
		Title:           "Arithmetic",
		Status:          domain.QuizOpen,
		DurationMinutes: &duration,
		Sections: []domain.Section{{
			ID: 1,
			Questions: []domain.Question{{
				ID:     11,
				Text:   "What is 2 + 2?",
				Type:   domain.QuestionSingleChoice,
				Points: 1,
				Options: []domain.Option{
					{ID: 111, Text: "3"},
					{ID: 112, Text: "4", Correct: true},
				},
			}},
		}},
	}
}

func startRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}
