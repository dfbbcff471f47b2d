package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/memory"
)

// QuestionBank caches quiz content in Redis and falls back to a loader on
// cache miss. Content is stored as:
//
//	SET bank:{quizID}:questions {json array}
//	SET bank:{quizID}:config    {json object}
type QuestionBank struct {
	client *redis.Client
	loader memory.BankLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionBank(client *redis.Client, loader memory.BankLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *QuestionBank) GetQuestionsForQuiz(ctx context.Context, quizID string) ([]domain.Question, error) {
	key := b.questionsKey(quizID)

	if raw, err := b.client.Get(ctx, key).Bytes(); err == nil && len(raw) > 0 {
		var questions []domain.Question
		if err := json.Unmarshal(raw, &questions); err == nil {
			return questions, nil
		}
	}

	result, err, _ := b.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if raw, err := b.client.Get(ctx, key).Bytes(); err == nil && len(raw) > 0 {
			var questions []domain.Question
			if err := json.Unmarshal(raw, &questions); err == nil {
				return questions, nil
			}
		}

		questions, err := b.loader.LoadQuestions(ctx, quizID)
		if err != nil {
			return nil, err
		}
		b.fill(ctx, key, questions)
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (b *QuestionBank) GetQuizConfig(ctx context.Context, quizID string) (domain.QuizConfig, error) {
	key := b.configKey(quizID)

	if raw, err := b.client.Get(ctx, key).Bytes(); err == nil && len(raw) > 0 {
		var cfg domain.QuizConfig
		if err := json.Unmarshal(raw, &cfg); err == nil {
			return cfg, nil
		}
	}

	result, err, _ := b.sf.Do(key, func() (interface{}, error) {
		if raw, err := b.client.Get(ctx, key).Bytes(); err == nil && len(raw) > 0 {
			var cfg domain.QuizConfig
			if err := json.Unmarshal(raw, &cfg); err == nil {
				return cfg, nil
			}
		}

		cfg, err := b.loader.LoadQuizConfig(ctx, quizID)
		if err != nil {
			return domain.QuizConfig{}, err
		}
		b.fill(ctx, key, cfg)
		return cfg, nil
	})
	if err != nil {
		return domain.QuizConfig{}, err
	}
	return result.(domain.QuizConfig), nil
}

// fill writes a cache entry best-effort; a failed fill only costs a reload.
func (b *QuestionBank) fill(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = b.client.Set(ctx, key, data, b.ttlWithJitter()).Err()
}

func (b *QuestionBank) questionsKey(quizID string) string {
	return "bank:" + quizID + ":questions"
}

func (b *QuestionBank) configKey(quizID string) string {
	return "bank:" + quizID + ":config"
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	jitterMax := int64(b.ttl) / 10
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}
