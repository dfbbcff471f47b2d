package memory

import (
	"context"
	"encoding/json"
	"sync"

	"quiz-session-service/internal/domain"
)

// Archive is an in-memory SessionArchive and ResultSink, used in tests and
// when no durable backend is configured. Snapshots are stored as JSON so the
// archive exercises the same round-trip the Redis and Postgres backends do.
type Archive struct {
	mu       sync.RWMutex
	sessions map[string][]byte
	records  map[string][]domain.AnswerRecord
	results  map[string][]byte
}

func NewArchive() *Archive {
	return &Archive{
		sessions: make(map[string][]byte),
		records:  make(map[string][]domain.AnswerRecord),
		results:  make(map[string][]byte),
	}
}

func (a *Archive) SaveSession(_ context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessions[session.ID] = data
	return nil
}

func (a *Archive) AppendAnswerRecord(_ context.Context, sessionID string, record domain.AnswerRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records[sessionID] = append(a.records[sessionID], record)
	return nil
}

func (a *Archive) LoadSession(_ context.Context, sessionID string) (*domain.Session, error) {
	a.mu.RLock()
	data, ok := a.sessions[sessionID]
	a.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (a *Archive) SaveResult(_ context.Context, result *domain.QuizResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results[result.SessionID] = data
	return nil
}

// Records returns the appended answer records for a session (test helper).
func (a *Archive) Records(sessionID string) []domain.AnswerRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]domain.AnswerRecord, len(a.records[sessionID]))
	copy(out, a.records[sessionID])
	return out
}

// Result returns the stored result JSON for a session (test helper).
func (a *Archive) Result(sessionID string) ([]byte, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	data, ok := a.results[sessionID]
	return data, ok
}
