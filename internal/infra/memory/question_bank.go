package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-session-service/internal/domain"
)

// BankLoader fetches quiz content from a backing store (e.g., Postgres).
type BankLoader interface {
	LoadQuestions(ctx context.Context, quizID string) ([]domain.Question, error)
	LoadQuizConfig(ctx context.Context, quizID string) (domain.QuizConfig, error)
}

// QuestionBank caches bank content with TTL to avoid repeated store hits.
type QuestionBank struct {
	loader BankLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	questions map[string]cachedQuestions
	configs   map[string]cachedConfig
}

type cachedQuestions struct {
	questions []domain.Question
	expiresAt time.Time
}

type cachedConfig struct {
	config    domain.QuizConfig
	expiresAt time.Time
}

func NewQuestionBank(loader BankLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		loader:    loader,
		ttl:       ttl,
		clock:     time.Now,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
		questions: make(map[string]cachedQuestions),
		configs:   make(map[string]cachedConfig),
	}
}

func (b *QuestionBank) GetQuestionsForQuiz(ctx context.Context, quizID string) ([]domain.Question, error) {
	now := b.clock()

	b.mu.RLock()
	if entry, ok := b.questions[quizID]; ok && entry.expiresAt.After(now) {
		b.mu.RUnlock()
		return entry.questions, nil
	}
	b.mu.RUnlock()

	result, err, _ := b.sf.Do("questions:"+quizID, func() (interface{}, error) {
		now := b.clock()
		b.mu.RLock()
		if entry, ok := b.questions[quizID]; ok && entry.expiresAt.After(now) {
			b.mu.RUnlock()
			return entry.questions, nil
		}
		b.mu.RUnlock()

		questions, err := b.loader.LoadQuestions(ctx, quizID)
		if err != nil {
			return nil, err
		}

		b.mu.Lock()
		b.questions[quizID] = cachedQuestions{
			questions: questions,
			expiresAt: now.Add(b.ttlWithJitter()),
		}
		b.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (b *QuestionBank) GetQuizConfig(ctx context.Context, quizID string) (domain.QuizConfig, error) {
	now := b.clock()

	b.mu.RLock()
	if entry, ok := b.configs[quizID]; ok && entry.expiresAt.After(now) {
		b.mu.RUnlock()
		return entry.config, nil
	}
	b.mu.RUnlock()

	result, err, _ := b.sf.Do("config:"+quizID, func() (interface{}, error) {
		now := b.clock()
		b.mu.RLock()
		if entry, ok := b.configs[quizID]; ok && entry.expiresAt.After(now) {
			b.mu.RUnlock()
			return entry.config, nil
		}
		b.mu.RUnlock()

		config, err := b.loader.LoadQuizConfig(ctx, quizID)
		if err != nil {
			return domain.QuizConfig{}, err
		}

		b.mu.Lock()
		b.configs[quizID] = cachedConfig{
			config:    config,
			expiresAt: now.Add(b.ttlWithJitter()),
		}
		b.mu.Unlock()
		return config, nil
	})
	if err != nil {
		return domain.QuizConfig{}, err
	}
	return result.(domain.QuizConfig), nil
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(b.ttl) / 10
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}

// StaticBankLoader serves bank content from in-memory maps (tests/demos).
type StaticBankLoader struct {
	configs   map[string]domain.QuizConfig
	questions map[string][]domain.Question
}

func NewStaticBankLoader(configs map[string]domain.QuizConfig, questions map[string][]domain.Question) *StaticBankLoader {
	return &StaticBankLoader{configs: configs, questions: questions}
}

func (l *StaticBankLoader) LoadQuestions(_ context.Context, quizID string) ([]domain.Question, error) {
	if _, ok := l.configs[quizID]; !ok {
		return nil, domain.ErrInvalidQuiz
	}
	return l.questions[quizID], nil
}

func (l *StaticBankLoader) LoadQuizConfig(_ context.Context, quizID string) (domain.QuizConfig, error) {
	if cfg, ok := l.configs[quizID]; ok {
		return cfg, nil
	}
	return domain.QuizConfig{}, domain.ErrInvalidQuiz
}
