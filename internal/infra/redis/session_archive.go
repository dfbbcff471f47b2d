package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-session-service/internal/domain"
)

// SessionArchive persists session snapshots and answer records in Redis:
//
//	SET   session:{id}          {session json}
//	RPUSH session:{id}:records  {record json}
//
// Snapshots are TTL-bounded; completed sessions live on through the compiled
// result in the durable store.
type SessionArchive struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionArchive(client *redis.Client, ttl time.Duration) *SessionArchive {
	return &SessionArchive{client: client, ttl: ttl}
}

func (a *SessionArchive) SaveSession(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return a.client.Set(ctx, a.sessionKey(session.ID), data, a.ttl).Err()
}

func (a *SessionArchive) AppendAnswerRecord(ctx context.Context, sessionID string, record domain.AnswerRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	key := a.recordsKey(sessionID)
	pipe := a.client.Pipeline()
	pipe.RPush(ctx, key, data)
	if a.ttl > 0 {
		pipe.Expire(ctx, key, a.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (a *SessionArchive) LoadSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	raw, err := a.client.Get(ctx, a.sessionKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, err
	}
	if session.Records == nil {
		session.Records = make(map[string]domain.AnswerRecord)
	}
	return &session, nil
}

func (a *SessionArchive) sessionKey(sessionID string) string {
	return "session:" + sessionID
}

func (a *SessionArchive) recordsKey(sessionID string) string {
	return "session:" + sessionID + ":records"
}
