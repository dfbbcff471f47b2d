package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-session-service/internal/domain"
)

// ResultStore writes compiled quiz results to Postgres as JSONB rows.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

// SaveResult upserts by session ID: recompiling a terminal session yields
// identical content, so the write is idempotent.
func (s *ResultStore) SaveResult(ctx context.Context, result *domain.QuizResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO results (session_id, quiz_id, student_id, data)
		VALUES ($1, $2, $3, $4::jsonb)
		ON CONFLICT (session_id) DO UPDATE SET data = EXCLUDED.data`,
		result.SessionID, result.QuizID, result.StudentID, string(data))
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}
