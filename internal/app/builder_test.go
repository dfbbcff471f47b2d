package app_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/memory"
)

func TestBuildSessionUnderSupplyReturnsAvailable(t *testing.T) {
	bank := staticBank(t, 12)
	builder := app.NewSessionBuilderWithRand(bank, rand.New(rand.NewSource(1)))

	session, err := builder.BuildSession(context.Background(), "quiz-1", "s1", 20)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(session.Questions) != 12 {
		t.Fatalf("expected 12 questions, got %d", len(session.Questions))
	}
	if session.Status != domain.StatusNotStarted {
		t.Fatalf("expected not_started, got %s", session.Status)
	}
}

func TestBuildSessionUnknownQuiz(t *testing.T) {
	bank := staticBank(t, 3)
	builder := app.NewSessionBuilderWithRand(bank, rand.New(rand.NewSource(1)))

	_, err := builder.BuildSession(context.Background(), "nope", "s1", 3)
	if !errors.Is(err, domain.ErrInvalidQuiz) {
		t.Fatalf("expected ErrInvalidQuiz, got %v", err)
	}
}

func TestBuildSessionEmptyQuiz(t *testing.T) {
	loader := memory.NewStaticBankLoader(
		map[string]domain.QuizConfig{"quiz-1": {QuizID: "quiz-1", TotalQuestions: 5}},
		map[string][]domain.Question{"quiz-1": nil},
	)
	builder := app.NewSessionBuilderWithRand(memory.NewQuestionBank(loader, time.Minute), rand.New(rand.NewSource(1)))

	_, err := builder.BuildSession(context.Background(), "quiz-1", "s1", 5)
	if !errors.Is(err, domain.ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
}

func TestBuildSessionSelectsWithoutReplacement(t *testing.T) {
	bank := staticBank(t, 10)
	builder := app.NewSessionBuilderWithRand(bank, rand.New(rand.NewSource(42)))

	session, err := builder.BuildSession(context.Background(), "quiz-1", "s1", 6)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	seen := map[string]bool{}
	for _, sq := range session.Questions {
		if seen[sq.Question.ID] {
			t.Fatalf("question %s selected twice", sq.Question.ID)
		}
		seen[sq.Question.ID] = true
	}
}

// Shuffling option order repeatedly should land each option in each position
// with frequency close to 1/n; correctness flags stay put.
func TestOptionShuffleIsUniform(t *testing.T) {
	const trials = 10000
	const n = 4

	bank := staticBank(t, 1)
	builder := app.NewSessionBuilderWithRand(bank, rand.New(rand.NewSource(7)))

	counts := make(map[string][]int)
	for trial := 0; trial < trials; trial++ {
		session, err := builder.BuildSession(context.Background(), "quiz-1", "s1", 1)
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		order := session.Questions[0].OptionOrder
		if len(order) != n {
			t.Fatalf("expected %d options, got %d", n, len(order))
		}
		for pos, id := range order {
			if counts[id] == nil {
				counts[id] = make([]int, n)
			}
			counts[id][pos]++
		}
	}

	expected := float64(trials) / float64(n)
	// ~6 standard deviations for a binomial with p=1/n.
	tolerance := 6 * 43.3
	for id, positions := range counts {
		for pos, count := range positions {
			if diff := float64(count) - expected; diff > tolerance || diff < -tolerance {
				t.Fatalf("option %s position %d: count %d too far from %f", id, pos, count, expected)
			}
		}
	}
}

func TestShuffleKeepsCorrectFlags(t *testing.T) {
	bank := staticBank(t, 1)
	builder := app.NewSessionBuilderWithRand(bank, rand.New(rand.NewSource(3)))

	session, err := builder.BuildSession(context.Background(), "quiz-1", "s1", 1)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	question := session.Questions[0].Question
	correct := 0
	for _, opt := range question.Options {
		if opt.Correct {
			correct++
		}
	}
	if correct != 1 {
		t.Fatalf("expected exactly one correct option, got %d", correct)
	}
}

// staticBank builds a quiz with n four-option questions.
// The deployment-wide grading-policy fallback applies only when the quiz
// config leaves the policy unset; per-quiz config wins otherwise.
func TestBuildSessionGradingPolicyFallback(t *testing.T) {
	bank := staticBank(t, 3) // quiz-1 config carries no grading policy
	builder := app.NewSessionBuilderWithRand(bank, rand.New(rand.NewSource(1)))

	session, err := builder.BuildSession(context.Background(), "quiz-1", "s1", 3)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if session.Policy != domain.SkipIncorrect {
		t.Fatalf("expected built-in default skip-incorrect, got %s", session.Policy)
	}

	builder.SetDefaultGradingPolicy(domain.SkipExcluded)
	session, err = builder.BuildSession(context.Background(), "quiz-1", "s1", 3)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if session.Policy != domain.SkipExcluded {
		t.Fatalf("expected configured fallback skip-excluded, got %s", session.Policy)
	}

	loader := memory.NewStaticBankLoader(
		map[string]domain.QuizConfig{"quiz-2": {QuizID: "quiz-2", TotalQuestions: 1, GradingPolicy: domain.SkipIncorrect}},
		map[string][]domain.Question{"quiz-2": {{ID: "q1", Options: []domain.Option{{ID: "a", Correct: true}}}}},
	)
	builder = app.NewSessionBuilderWithRand(memory.NewQuestionBank(loader, time.Minute), rand.New(rand.NewSource(1)))
	builder.SetDefaultGradingPolicy(domain.SkipExcluded)
	session, err = builder.BuildSession(context.Background(), "quiz-2", "s1", 1)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if session.Policy != domain.SkipIncorrect {
		t.Fatalf("expected per-quiz policy to win, got %s", session.Policy)
	}
}

func staticBank(t *testing.T, n int) *memory.QuestionBank {
	t.Helper()
	questions := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		questions = append(questions, domain.Question{
			ID:         fmt.Sprintf("q%d", i+1),
			Prompt:     fmt.Sprintf("Question %d", i+1),
			Difficulty: domain.DifficultyEasy,
			Points:     1,
			Options: []domain.Option{
				{ID: "a", Text: "A"},
				{ID: "b", Text: "B", Correct: true},
				{ID: "c", Text: "C"},
				{ID: "d", Text: "D"},
			},
		})
	}
	loader := memory.NewStaticBankLoader(
		map[string]domain.QuizConfig{"quiz-1": {QuizID: "quiz-1", TotalQuestions: n}},
		map[string][]domain.Question{"quiz-1": questions},
	)
	return memory.NewQuestionBank(loader, time.Minute)
}
