package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-attempt-service/internal/domain"
)

// QuizLoader fetches quiz content from a backing store (e.g., Postgres).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID int64) (domain.Quiz, error)
}

// QuizRepository caches quiz definitions in Redis and falls back to a loader on cache miss.
// Definitions are stored as JSON:  SET quiz:{quizID}:definition {json} EX ttl+jitter
// Meta (no sections) is stored as: SET quiz:{quizID}:meta       {json} EX ttl+jitter
type QuizRepository struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuizRepository(client *redis.Client, loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	if quiz, ok := r.cached(ctx, r.definitionKey(quizID)); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(strconv.FormatInt(quizID, 10), func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := r.cached(ctx, r.definitionKey(quizID)); ok {
			return quiz, nil
		}

		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		r.store(ctx, quiz)
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// GetQuizMeta reads the small meta entry first so the sweeper does not pull
// whole definitions over the wire.
func (r *QuizRepository) GetQuizMeta(ctx context.Context, quizID int64) (domain.Quiz, error) {
	if meta, ok := r.cached(ctx, r.metaKey(quizID)); ok {
		return meta, nil
	}
	quiz, err := r.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	return quiz.Meta(), nil
}

// Invalidate drops both cache entries of a quiz.
func (r *QuizRepository) Invalidate(ctx context.Context, quizID int64) error {
	return r.client.Del(ctx, r.definitionKey(quizID), r.metaKey(quizID)).Err()
}

func (r *QuizRepository) cached(ctx context.Context, key string) (domain.Quiz, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		// redis.Nil or a transport failure: fall back to the loader
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, false
	}
	return quiz, true
}

func (r *QuizRepository) store(ctx context.Context, quiz domain.Quiz) {
	definition, err := json.Marshal(quiz)
	if err != nil {
		return
	}
	meta, err := json.Marshal(quiz.Meta())
	if err != nil {
		return
	}
	ttl := r.ttlWithJitter()
	pipe := r.client.Pipeline()
	pipe.Set(ctx, r.definitionKey(quiz.ID), definition, ttl)
	pipe.Set(ctx, r.metaKey(quiz.ID), meta, ttl)
	_, _ = pipe.Exec(ctx)
}

func (r *QuizRepository) definitionKey(quizID int64) string {
	return fmt.Sprintf("quiz:%d:definition", quizID)
}

func (r *QuizRepository) metaKey(quizID int64) string {
	return fmt.Sprintf("quiz:%d:meta", quizID)
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
