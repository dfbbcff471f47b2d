package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-session-service/internal/domain"
)

// BankLoader loads quiz configuration and question JSONB from Postgres.
type BankLoader struct {
	pool *pgxpool.Pool
}

func NewBankLoader(pool *pgxpool.Pool) *BankLoader {
	return &BankLoader{pool: pool}
}

func (l *BankLoader) LoadQuizConfig(ctx context.Context, quizID string) (domain.QuizConfig, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT config FROM quizzes WHERE id=$1`, quizID).Scan(&raw)
	if err == pgx.ErrNoRows {
		return domain.QuizConfig{}, fmt.Errorf("%w: %s", domain.ErrInvalidQuiz, quizID)
	}
	if err != nil {
		return domain.QuizConfig{}, fmt.Errorf("load quiz config: %w", err)
	}
	var cfg domain.QuizConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return domain.QuizConfig{}, fmt.Errorf("unmarshal quiz config: %w", err)
	}
	cfg.QuizID = quizID
	return cfg, nil
}

func (l *BankLoader) LoadQuestions(ctx context.Context, quizID string) ([]domain.Question, error) {
	// Quiz existence is checked first so an unknown quiz surfaces as
	// ErrInvalidQuiz rather than an empty bank.
	if _, err := l.LoadQuizConfig(ctx, quizID); err != nil {
		return nil, err
	}

	rows, err := l.pool.Query(ctx, `SELECT data FROM questions WHERE quiz_id=$1 ORDER BY id`, quizID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		var question domain.Question
		if err := json.Unmarshal(raw, &question); err != nil {
			return nil, fmt.Errorf("unmarshal question: %w", err)
		}
		questions = append(questions, question)
	}
	return questions, rows.Err()
}
