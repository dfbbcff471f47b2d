package app

import (
	"context"

	"quiz-session-service/internal/domain"
)

// QuestionBank is the read-only view over stored quiz content (cache/backing
// store; see internal/infra).
type QuestionBank interface {
	GetQuestionsForQuiz(ctx context.Context, quizID string) ([]domain.Question, error)
	GetQuizConfig(ctx context.Context, quizID string) (domain.QuizConfig, error)
}

// SessionRepository holds live sessions (in-memory, Redis-backed, etc).
type SessionRepository interface {
	Put(session *domain.Session)
	Get(sessionID string) (*domain.Session, bool)
	Delete(sessionID string)
}

// SessionArchive persists session snapshots and answer records as they are
// produced. Implementations may be asynchronous underneath; the engine only
// requires that a persist is attempted after each state transition.
type SessionArchive interface {
	SaveSession(ctx context.Context, session *domain.Session) error
	AppendAnswerRecord(ctx context.Context, sessionID string, record domain.AnswerRecord) error
	LoadSession(ctx context.Context, sessionID string) (*domain.Session, error)
}

// ResultSink receives the compiled final report.
type ResultSink interface {
	SaveResult(ctx context.Context, result *domain.QuizResult) error
}
