package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/memory"
)

func TestQuestionBankCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		BankLoader: memory.NewStaticBankLoader(sampleConfigs(), sampleQuestions()),
	}
	bank := NewQuestionBank(client, loader, time.Minute)

	questions, err := bank.GetQuestionsForQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get questions: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("bank:quiz-1:questions") {
		t.Fatalf("expected cache key to be set")
	}

	// Second call should hit cache, loader not incremented.
	again, err := bank.GetQuestionsForQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get questions 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	// Predicates survive the round-trip.
	if again[1].Predicate == nil || again[1].Predicate.Expected != 5 {
		t.Fatalf("expected predicate preserved, got %+v", again[1].Predicate)
	}
}

func TestQuizConfigRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	bank := NewQuestionBank(newClient(mr), memory.NewStaticBankLoader(sampleConfigs(), sampleQuestions()), time.Minute)

	cfg, err := bank.GetQuizConfig(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get config: %v", err)
	}
	if cfg.TimeLimitSeconds != 300 {
		t.Fatalf("unexpected config %+v", cfg)
	}

	cached, err := bank.GetQuizConfig(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get cached config: %v", err)
	}
	if cached != cfg {
		t.Fatalf("expected identical config from cache")
	}
}

type countingLoader struct {
	memory.BankLoader
	calls int
}

func (l *countingLoader) LoadQuestions(ctx context.Context, quizID string) ([]domain.Question, error) {
	l.calls++
	return l.BankLoader.LoadQuestions(ctx, quizID)
}

func sampleConfigs() map[string]domain.QuizConfig {
	return map[string]domain.QuizConfig{
		"quiz-1": {QuizID: "quiz-1", TotalQuestions: 2, TimeLimitSeconds: 300},
	}
}

func sampleQuestions() map[string][]domain.Question {
	return map[string][]domain.Question{
		"quiz-1": {
			{
				ID:         "q1",
				Prompt:     "What is 2 + 2?",
				Difficulty: domain.DifficultyEasy,
				Points:     1,
				Options: []domain.Option{
					{ID: "o1", Text: "3"},
					{ID: "o2", Text: "4", Correct: true},
				},
			},
			{
				ID:         "q2",
				Prompt:     "Solve for x: 3x + 4 = 19",
				Difficulty: domain.DifficultyMedium,
				Points:     2,
				Variables:  map[string]float64{"x": 5},
				Predicate:  &domain.Predicate{Kind: domain.PredicateEquals, Variable: "x", Expected: 5},
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
