package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"quiz-attempt-service/internal/domain"
)

const (
	inProgressKey     = "quiz:attempts:inprogress"
	defaultMaxRetries = 16
)

// AttemptStore keeps attempts in Redis so several service instances can share them.
//
//	SET  quiz:attempt:{attemptID}                 {json}
//	ZADD quiz:attempts:user:{userID}:quiz:{quizID} {attemptNumber} {attemptID}
//	SADD quiz:attempts:inprogress                 {attemptID}
//
// Updates use optimistic locking (WATCH/MULTI) and retry when another writer
// touched the attempt between read and commit.
type AttemptStore struct {
	client     *redis.Client
	maxRetries int
}

// record is the stored form; Version is kept alongside the attempt payload.
type record struct {
	domain.QuizAttempt
	Version int64 `json:"version"`
}

func NewAttemptStore(client *redis.Client) *AttemptStore {
	return &AttemptStore{client: client, maxRetries: defaultMaxRetries}
}

func (s *AttemptStore) Create(ctx context.Context, attempt domain.QuizAttempt) error {
	key := attemptKey(attempt.ID)
	index := indexKey(attempt.UserID, attempt.QuizID)
	attempt.Version = 1
	payload, err := encode(attempt)
	if err != nil {
		return err
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists > 0 {
			return domain.ErrConflict
		}
		number := fmt.Sprint(attempt.AttemptNumber)
		taken, err := tx.ZRangeByScore(ctx, index, &redis.ZRangeBy{Min: number, Max: number}).Result()
		if err != nil {
			return err
		}
		if len(taken) > 0 {
			return domain.ErrConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			pipe.ZAdd(ctx, index, redis.Z{Score: float64(attempt.AttemptNumber), Member: attempt.ID})
			if attempt.Status == domain.AttemptInProgress {
				pipe.SAdd(ctx, inProgressKey, attempt.ID)
			}
			return nil
		})
		return err
	}, key, index)
	if errors.Is(err, redis.TxFailedErr) {
		return domain.ErrConflict
	}
	return err
}

func (s *AttemptStore) Get(ctx context.Context, attemptID string) (domain.QuizAttempt, error) {
	raw, err := s.client.Get(ctx, attemptKey(attemptID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.QuizAttempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.QuizAttempt{}, err
	}
	return decode(raw)
}

func (s *AttemptStore) ListByUserQuiz(ctx context.Context, userID string, quizID int64) ([]domain.QuizAttempt, error) {
	ids, err := s.client.ZRange(ctx, indexKey(userID, quizID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	attempts, err := s.load(ctx, ids)
	if err != nil {
		return nil, err
	}
	sort.Slice(attempts, func(i, j int) bool { return attempts[i].AttemptNumber < attempts[j].AttemptNumber })
	return attempts, nil
}

func (s *AttemptStore) ListInProgress(ctx context.Context) ([]domain.QuizAttempt, error) {
	ids, err := s.client.SMembers(ctx, inProgressKey).Result()
	if err != nil {
		return nil, err
	}
	loaded, err := s.load(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]domain.QuizAttempt, 0, len(loaded))
	for _, attempt := range loaded {
		if attempt.Status == domain.AttemptInProgress {
			out = append(out, attempt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (s *AttemptStore) Update(ctx context.Context, attemptID string, fn func(*domain.QuizAttempt) error) (domain.QuizAttempt, error) {
	key := attemptKey(attemptID)
	for i := 0; i < s.maxRetries; i++ {
		var updated domain.QuizAttempt
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return domain.ErrAttemptNotFound
			}
			if err != nil {
				return err
			}
			working, err := decode(raw)
			if err != nil {
				return err
			}
			if err := fn(&working); err != nil {
				return err
			}
			working.Version++
			payload, err := encode(working)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, payload, 0)
				if working.Status != domain.AttemptInProgress {
					pipe.SRem(ctx, inProgressKey, attemptID)
				}
				return nil
			})
			updated = working
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return domain.QuizAttempt{}, err
		}
		return updated, nil
	}
	return domain.QuizAttempt{}, fmt.Errorf("update attempt %s: %w", attemptID, domain.ErrConflict)
}

func (s *AttemptStore) load(ctx context.Context, ids []string) ([]domain.QuizAttempt, error) {
	if len(ids) == 0 {
		return []domain.QuizAttempt{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = attemptKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.QuizAttempt, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// index entry without a payload
			continue
		}
		attempt, err := decode([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, attempt)
	}
	return out, nil
}

func encode(attempt domain.QuizAttempt) ([]byte, error) {
	payload, err := json.Marshal(record{QuizAttempt: attempt, Version: attempt.Version})
	if err != nil {
		return nil, fmt.Errorf("encode attempt %s: %w", attempt.ID, err)
	}
	return payload, nil
}

func decode(raw []byte) (domain.QuizAttempt, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.QuizAttempt{}, fmt.Errorf("decode attempt: %w", err)
	}
	attempt := rec.QuizAttempt
	attempt.Version = rec.Version
	if attempt.Answers == nil {
		attempt.Answers = map[int64]domain.Answer{}
	}
	if attempt.Scores == nil {
		attempt.Scores = map[int64]float64{}
	}
	return attempt, nil
}

func attemptKey(attemptID string) string {
	return "quiz:attempt:" + attemptID
}

func indexKey(userID string, quizID int64) string {
	return fmt.Sprintf("quiz:attempts:user:%s:quiz:%d", userID, quizID)
}
